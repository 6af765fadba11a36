package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/callkit/engine"
	"github.com/opd-ai/callkit/engine/enginetest"
	"github.com/opd-ai/callkit/event"
)

func testCatalog() []engine.DeviceInfo {
	return []engine.DeviceInfo{
		{ID: "cam-1", Name: "Front Camera", Type: engine.DeviceCamera},
		{ID: "cam-2", Name: "Rear Camera", Type: engine.DeviceCamera},
		{ID: "mic-1", Name: "Headset Mic", Type: engine.DeviceMicrophone, IsSystemDefault: true},
		{ID: "spk-1", Name: "Speakers", Type: engine.DeviceSpeaker, IsSystemDefault: true},
	}
}

func newTestManager(t *testing.T) (*Manager, *enginetest.DeviceHost) {
	t.Helper()
	host := enginetest.NewDeviceHost()
	host.SetCatalog(testCatalog())
	m, err := NewManager(host)
	require.NoError(t, err)
	return m, host
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil)
	assert.Error(t, err)
}

func TestEnumerationFiltersByType(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	cams, err := m.Cameras(ctx)
	require.NoError(t, err)
	require.Len(t, cams, 2)
	assert.Equal(t, "cam-1", cams[0].ID)
	assert.Equal(t, "Front Camera", cams[0].Name)

	mics, err := m.Microphones(ctx)
	require.NoError(t, err)
	require.Len(t, mics, 1)
	assert.Equal(t, KindMicrophone, mics[0].Kind)
	assert.True(t, mics[0].IsSystemDefault)

	spks, err := m.Speakers(ctx)
	require.NoError(t, err)
	require.Len(t, spks, 1)
	assert.Equal(t, KindSpeaker, spks[0].Kind)
}

func TestPermissionDenialIsNotAnError(t *testing.T) {
	m, host := newTestManager(t)
	host.SetPermissionResult(engine.PermissionResult{Audio: false, Video: false})

	state, err := m.AskDevicePermission(context.Background(), PermissionConstraints{Audio: true, Video: true})
	require.NoError(t, err, "denial must resolve, not fail")
	assert.False(t, state.Audio)
	assert.False(t, state.Video)
}

func TestPermissionPartialGrant(t *testing.T) {
	m, host := newTestManager(t)
	host.SetPermissionResult(engine.PermissionResult{Audio: true, Video: false})

	state, err := m.AskDevicePermission(context.Background(), PermissionConstraints{Audio: true, Video: true})
	require.NoError(t, err)
	assert.True(t, state.Audio)
	assert.False(t, state.Video)
}

func TestSelectMicrophoneValidatesCatalog(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	assert.Nil(t, m.SelectedMicrophone())

	err := m.SelectMicrophone(ctx, AudioDeviceInfo{ID: "mic-ghost"})
	assert.ErrorIs(t, err, ErrUnknownDevice)
	assert.Nil(t, m.SelectedMicrophone())

	require.NoError(t, m.SelectMicrophone(ctx, AudioDeviceInfo{ID: "mic-1", Name: "Headset Mic", Kind: KindMicrophone}))
	require.NotNil(t, m.SelectedMicrophone())
	assert.Equal(t, "mic-1", m.SelectedMicrophone().ID)
}

func TestHotPlugDeltas(t *testing.T) {
	m, host := newTestManager(t)

	var videoDeltas []event.Delta[VideoDeviceInfo]
	var audioDeltas []event.Delta[AudioDeviceInfo]
	m.OnVideoDevicesUpdated(func(d event.Delta[VideoDeviceInfo]) { videoDeltas = append(videoDeltas, d) })
	m.OnAudioDevicesUpdated(func(d event.Delta[AudioDeviceInfo]) { audioDeltas = append(audioDeltas, d) })

	host.PushDeviceChange(engine.DeviceCamera,
		[]engine.DeviceInfo{{ID: "cam-3", Name: "USB Camera", Type: engine.DeviceCamera}},
		[]engine.DeviceInfo{{ID: "cam-2", Name: "Rear Camera", Type: engine.DeviceCamera}})

	require.Len(t, videoDeltas, 1)
	assert.Equal(t, []VideoDeviceInfo{{ID: "cam-3", Name: "USB Camera"}}, videoDeltas[0].Added)
	assert.Equal(t, []VideoDeviceInfo{{ID: "cam-2", Name: "Rear Camera"}}, videoDeltas[0].Removed)
	assert.Empty(t, audioDeltas)

	// The new catalog is visible on re-enumeration.
	cams, err := m.Cameras(context.Background())
	require.NoError(t, err)
	require.Len(t, cams, 2)
	assert.Equal(t, "cam-3", cams[1].ID)
}

func TestUnplugClearsSelection(t *testing.T) {
	m, host := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.SelectMicrophone(ctx, AudioDeviceInfo{ID: "mic-1", Kind: KindMicrophone}))

	host.PushDeviceChange(engine.DeviceMicrophone, nil,
		[]engine.DeviceInfo{{ID: "mic-1", Name: "Headset Mic", Type: engine.DeviceMicrophone}})

	assert.Nil(t, m.SelectedMicrophone(), "selection of an unplugged device must clear")
}

func TestDispose(t *testing.T) {
	m, _ := newTestManager(t)
	m.Dispose()
	m.Dispose() // idempotent

	_, err := m.Cameras(context.Background())
	assert.ErrorIs(t, err, ErrManagerDisposed)

	_, err = m.AskDevicePermission(context.Background(), PermissionConstraints{Audio: true})
	assert.ErrorIs(t, err, ErrManagerDisposed)
}
