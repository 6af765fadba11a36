// Package device implements the local device catalog: enumeration of
// cameras, microphones and speakers, selection state, the one-shot
// permission gate, and hot-plug notification.
//
// Enumeration results are snapshots. Hot-plug never invalidates a
// previously returned slice; it is reported only through the updated
// events.
package device

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/callkit/engine"
	"github.com/opd-ai/callkit/event"
)

// Manager state errors.
var (
	// ErrManagerDisposed indicates the device manager was torn down with
	// its owning client.
	ErrManagerDisposed = errors.New("device manager has been disposed")

	// ErrUnknownDevice indicates a selection target that is not in the
	// current catalog.
	ErrUnknownDevice = errors.New("device is not present in the catalog")
)

// VideoDeviceInfo describes one camera.
type VideoDeviceInfo struct {
	ID   string
	Name string
}

// AudioDeviceKind distinguishes capture from playback devices.
type AudioDeviceKind int

const (
	// KindMicrophone is an audio capture device.
	KindMicrophone AudioDeviceKind = iota
	// KindSpeaker is an audio playback device.
	KindSpeaker
)

// AudioDeviceInfo describes one microphone or speaker.
type AudioDeviceInfo struct {
	ID              string
	Name            string
	Kind            AudioDeviceKind
	IsSystemDefault bool
}

// PermissionConstraints names the device classes to request access to.
type PermissionConstraints struct {
	Audio bool
	Video bool
}

// PermissionState reports what the user granted. Denial resolves with
// false flags; it is never surfaced as an error.
type PermissionState struct {
	Audio bool
	Video bool
}

// Manager is the device catalog bound to one CallClient. It consumes the
// engine's device host and relays hot-plug changes to subscribers.
type Manager struct {
	host engine.DeviceHost
	log  *logrus.Entry

	mu              sync.RWMutex
	selectedMic     *AudioDeviceInfo
	selectedSpeaker *AudioDeviceInfo
	disposed        bool

	videoUpdated event.Emitter[event.Delta[VideoDeviceInfo]]
	audioUpdated event.Emitter[event.Delta[AudioDeviceInfo]]
}

// NewManager creates a device manager on top of the engine's device
// host and registers for hot-plug notifications.
func NewManager(host engine.DeviceHost) (*Manager, error) {
	if host == nil {
		return nil, errors.New("device host cannot be nil")
	}

	m := &Manager{
		host: host,
		log:  logrus.WithField("component", "device.Manager"),
	}
	host.SetDeviceSink(m)

	m.log.Debug("device manager created")
	return m, nil
}

// Cameras enumerates the video capture devices currently present.
func (m *Manager) Cameras(ctx context.Context) ([]VideoDeviceInfo, error) {
	infos, err := m.enumerate(ctx, engine.DeviceCamera)
	if err != nil {
		return nil, err
	}
	out := make([]VideoDeviceInfo, 0, len(infos))
	for _, d := range infos {
		out = append(out, VideoDeviceInfo{ID: d.ID, Name: d.Name})
	}
	return out, nil
}

// Microphones enumerates the audio capture devices currently present.
func (m *Manager) Microphones(ctx context.Context) ([]AudioDeviceInfo, error) {
	return m.audioDevices(ctx, engine.DeviceMicrophone, KindMicrophone)
}

// Speakers enumerates the audio playback devices currently present.
func (m *Manager) Speakers(ctx context.Context) ([]AudioDeviceInfo, error) {
	return m.audioDevices(ctx, engine.DeviceSpeaker, KindSpeaker)
}

func (m *Manager) audioDevices(ctx context.Context, t engine.DeviceType, kind AudioDeviceKind) ([]AudioDeviceInfo, error) {
	infos, err := m.enumerate(ctx, t)
	if err != nil {
		return nil, err
	}
	out := make([]AudioDeviceInfo, 0, len(infos))
	for _, d := range infos {
		out = append(out, AudioDeviceInfo{ID: d.ID, Name: d.Name, Kind: kind, IsSystemDefault: d.IsSystemDefault})
	}
	return out, nil
}

func (m *Manager) enumerate(ctx context.Context, t engine.DeviceType) ([]engine.DeviceInfo, error) {
	m.mu.RLock()
	disposed := m.disposed
	m.mu.RUnlock()
	if disposed {
		return nil, ErrManagerDisposed
	}

	all, err := m.host.EnumerateDevices(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, d := range all {
		if d.Type == t {
			out = append(out, d)
		}
	}
	return out, nil
}

// AskDevicePermission prompts the user once for device access. A denial
// is an expected outcome and resolves with false flags rather than an
// error; errors are reserved for disposal and engine failure.
func (m *Manager) AskDevicePermission(ctx context.Context, constraints PermissionConstraints) (PermissionState, error) {
	m.mu.RLock()
	disposed := m.disposed
	m.mu.RUnlock()
	if disposed {
		return PermissionState{}, ErrManagerDisposed
	}

	m.log.WithFields(logrus.Fields{
		"audio": constraints.Audio,
		"video": constraints.Video,
	}).Info("requesting device permission")

	result, err := m.host.RequestPermission(ctx, engine.PermissionRequest{
		Audio: constraints.Audio,
		Video: constraints.Video,
	})
	if err != nil {
		return PermissionState{}, err
	}

	state := PermissionState{Audio: result.Audio, Video: result.Video}
	m.log.WithFields(logrus.Fields{
		"audio_granted": state.Audio,
		"video_granted": state.Video,
	}).Info("device permission resolved")
	return state, nil
}

// SelectedMicrophone returns the active capture device, or nil when none
// has been selected.
func (m *Manager) SelectedMicrophone() *AudioDeviceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectedMic
}

// SelectMicrophone makes mic the active capture device. The device must
// be present in the current catalog.
func (m *Manager) SelectMicrophone(ctx context.Context, mic AudioDeviceInfo) error {
	return m.selectAudio(ctx, mic, KindMicrophone)
}

// SelectedSpeaker returns the active playback device, or nil when none
// has been selected.
func (m *Manager) SelectedSpeaker() *AudioDeviceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectedSpeaker
}

// SelectSpeaker makes speaker the active playback device. The device
// must be present in the current catalog.
func (m *Manager) SelectSpeaker(ctx context.Context, speaker AudioDeviceInfo) error {
	return m.selectAudio(ctx, speaker, KindSpeaker)
}

func (m *Manager) selectAudio(ctx context.Context, dev AudioDeviceInfo, kind AudioDeviceKind) error {
	var (
		devices []AudioDeviceInfo
		err     error
	)
	if kind == KindMicrophone {
		devices, err = m.Microphones(ctx)
	} else {
		devices, err = m.Speakers(ctx)
	}
	if err != nil {
		return err
	}

	found := false
	for _, d := range devices {
		if d.ID == dev.ID {
			found = true
			break
		}
	}
	if !found {
		return ErrUnknownDevice
	}

	m.mu.Lock()
	selected := dev
	if kind == KindMicrophone {
		m.selectedMic = &selected
	} else {
		m.selectedSpeaker = &selected
	}
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"device_id":   dev.ID,
		"device_name": dev.Name,
		"kind":        kind,
	}).Info("device selected")
	return nil
}

// OnVideoDevicesUpdated subscribes to camera hot-plug batches.
func (m *Manager) OnVideoDevicesUpdated(handler func(event.Delta[VideoDeviceInfo])) event.Subscription {
	return m.videoUpdated.Subscribe(handler)
}

// OffVideoDevicesUpdated removes a camera hot-plug subscription.
func (m *Manager) OffVideoDevicesUpdated(sub event.Subscription) {
	m.videoUpdated.Unsubscribe(sub)
}

// OnAudioDevicesUpdated subscribes to microphone/speaker hot-plug
// batches.
func (m *Manager) OnAudioDevicesUpdated(handler func(event.Delta[AudioDeviceInfo])) event.Subscription {
	return m.audioUpdated.Subscribe(handler)
}

// OffAudioDevicesUpdated removes an audio hot-plug subscription.
func (m *Manager) OffAudioDevicesUpdated(sub event.Subscription) {
	m.audioUpdated.Unsubscribe(sub)
}

// OnDevicesChanged implements engine.DeviceSink. The engine pushes one
// call per logical hot-plug batch.
func (m *Manager) OnDevicesChanged(kind engine.DeviceType, added, removed []engine.DeviceInfo) {
	m.mu.RLock()
	disposed := m.disposed
	m.mu.RUnlock()
	if disposed {
		return
	}
	if len(added) == 0 && len(removed) == 0 {
		return
	}

	m.log.WithFields(logrus.Fields{
		"kind":    kind,
		"added":   len(added),
		"removed": len(removed),
	}).Debug("device hot-plug batch")

	switch kind {
	case engine.DeviceCamera:
		delta := event.Delta[VideoDeviceInfo]{}
		for _, d := range added {
			delta.Added = append(delta.Added, VideoDeviceInfo{ID: d.ID, Name: d.Name})
		}
		for _, d := range removed {
			delta.Removed = append(delta.Removed, VideoDeviceInfo{ID: d.ID, Name: d.Name})
		}
		m.videoUpdated.Emit(delta)

	case engine.DeviceMicrophone, engine.DeviceSpeaker:
		audioKind := KindMicrophone
		if kind == engine.DeviceSpeaker {
			audioKind = KindSpeaker
		}
		delta := event.Delta[AudioDeviceInfo]{}
		for _, d := range added {
			delta.Added = append(delta.Added, AudioDeviceInfo{ID: d.ID, Name: d.Name, Kind: audioKind, IsSystemDefault: d.IsSystemDefault})
		}
		for _, d := range removed {
			delta.Removed = append(delta.Removed, AudioDeviceInfo{ID: d.ID, Name: d.Name, Kind: audioKind, IsSystemDefault: d.IsSystemDefault})
		}
		m.audioUpdated.Emit(delta)
		m.dropRemovedSelection(delta.Removed)
	}
}

// dropRemovedSelection clears a selection whose device was unplugged.
func (m *Manager) dropRemovedSelection(removed []AudioDeviceInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range removed {
		if m.selectedMic != nil && m.selectedMic.ID == d.ID {
			m.selectedMic = nil
		}
		if m.selectedSpeaker != nil && m.selectedSpeaker.ID == d.ID {
			m.selectedSpeaker = nil
		}
	}
}

// Dispose tears the manager down. Disposing twice is safe; enumeration
// after disposal fails with ErrManagerDisposed.
func (m *Manager) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	m.mu.Unlock()

	m.log.Debug("device manager disposed")
}
