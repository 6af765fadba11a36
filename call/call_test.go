package call

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/callkit/engine"
	"github.com/opd-ai/callkit/event"
	"github.com/opd-ai/callkit/identifier"
	"github.com/opd-ai/callkit/media"
)

// fakeSession records operations and can be scripted to fail them. It
// never pushes events on its own; tests drive the Apply methods
// directly, the way the agent's router would.
type fakeSession struct {
	mu       sync.Mutex
	ops      []string
	failures map[string]error
}

func newFakeSession() *fakeSession {
	return &fakeSession{failures: make(map[string]error)}
}

func (s *fakeSession) fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *fakeSession) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[op]; err != nil {
		return err
	}
	s.ops = append(s.ops, op)
	return nil
}

func (s *fakeSession) opCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.ops {
		if o == op {
			n++
		}
	}
	return n
}

func (s *fakeSession) SetSink(engine.EventSink) {}
func (s *fakeSession) Dial(context.Context, string, []string, engine.CallOptions) error {
	return s.record("Dial")
}
func (s *fakeSession) Accept(context.Context, string, engine.CallOptions) error {
	return s.record("Accept")
}
func (s *fakeSession) Reject(context.Context, string) error  { return s.record("Reject") }
func (s *fakeSession) Hangup(context.Context, string) error  { return s.record("Hangup") }
func (s *fakeSession) Hold(context.Context, string) error    { return s.record("Hold") }
func (s *fakeSession) Resume(context.Context, string) error  { return s.record("Resume") }
func (s *fakeSession) SetMuted(context.Context, string, bool) error {
	return s.record("SetMuted")
}
func (s *fakeSession) StartVideo(context.Context, string, string) error {
	return s.record("StartVideo")
}
func (s *fakeSession) StopVideo(context.Context, string, string) error {
	return s.record("StopVideo")
}
func (s *fakeSession) SwitchVideoSource(context.Context, string, string) error {
	return s.record("SwitchVideoSource")
}
func (s *fakeSession) AddParticipant(context.Context, string, string) error {
	return s.record("AddParticipant")
}
func (s *fakeSession) RemoveParticipant(context.Context, string, string) error {
	return s.record("RemoveParticipant")
}
func (s *fakeSession) SendDTMF(context.Context, string, string) error {
	return s.record("SendDTMF")
}
func (s *fakeSession) Transfer(context.Context, string, string) error {
	return s.record("Transfer")
}
func (s *fakeSession) SetCaptionsEnabled(context.Context, string, bool, string) error {
	return s.record("SetCaptionsEnabled")
}
func (s *fakeSession) Close() error { return nil }

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := t.stopped
	t.stopped = true
	return !was
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// fire runs the most recent pending timer, simulating its expiry.
func (c *fakeClock) fire(t *testing.T) {
	t.Helper()
	c.mu.Lock()
	var pending *fakeTimer
	for _, timer := range c.timers {
		if !timer.stopped {
			pending = timer
		}
	}
	c.mu.Unlock()
	if pending == nil {
		t.Fatal("no pending timer to fire")
	}
	pending.f()
}

func (c *fakeClock) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, timer := range c.timers {
		if !timer.stopped {
			n++
		}
	}
	return n
}

func newTestCall(t *testing.T, session *fakeSession, clock Clock) *Call {
	t.Helper()
	c, err := New(Config{
		ID:      "call-1",
		Session: session,
		Clock:   clock,
	})
	require.NoError(t, err)
	return c
}

func connect(c *Call) {
	c.ApplyPhase(engine.PhaseConnecting, nil)
	c.ApplyPhase(engine.PhaseRinging, nil)
	c.ApplyPhase(engine.PhaseConnected, nil)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Session: newFakeSession()})
	assert.Error(t, err, "empty call id must be rejected")

	_, err = New(Config{ID: "call-1"})
	assert.Error(t, err, "nil session must be rejected")
}

func TestOutgoingLifecycle(t *testing.T) {
	session := newFakeSession()
	c := newTestCall(t, session, nil)

	var states []State
	c.OnStateChanged(func(s State) { states = append(states, s) })

	require.Equal(t, StateNone, c.State())
	assert.Nil(t, c.EndReason())

	connect(c)
	c.ApplyPhase(engine.PhaseDisconnecting, nil)
	reason := engine.EndReason{Code: 0, Subcode: 0}
	c.ApplyPhase(engine.PhaseDisconnected, &reason)

	assert.Equal(t, []State{
		StateConnecting, StateRinging, StateConnected,
		StateDisconnecting, StateDisconnected,
	}, states)
	assert.Equal(t, StateDisconnected, c.State())
	require.NotNil(t, c.EndReason())
	assert.Equal(t, 0, c.EndReason().Code)
}

func TestStateVisibleInsideHandler(t *testing.T) {
	c := newTestCall(t, newFakeSession(), nil)

	c.OnStateChanged(func(s State) {
		assert.Equal(t, s, c.State(), "property must be updated before the event fires")
	})
	connect(c)
}

func TestInvalidTransitionDropped(t *testing.T) {
	c := newTestCall(t, newFakeSession(), nil)
	connect(c)

	var fired int
	c.OnStateChanged(func(State) { fired++ })

	// Connected cannot go back to Ringing.
	c.ApplyPhase(engine.PhaseRinging, nil)

	assert.Equal(t, 0, fired)
	assert.Equal(t, StateConnected, c.State())
}

func TestTerminalStateIsFinal(t *testing.T) {
	session := newFakeSession()
	c := newTestCall(t, session, nil)
	connect(c)
	c.ApplyPhase(engine.PhaseDisconnected, nil)

	var fired int
	c.OnStateChanged(func(State) { fired++ })

	c.ApplyPhase(engine.PhaseConnected, nil)
	c.ApplyPhase(engine.PhaseConnecting, nil)
	c.ApplyPhase(engine.PhaseDisconnected, nil)
	assert.Equal(t, 0, fired, "nothing fires after the terminal state")

	ctx := context.Background()
	stream := media.NewLocalVideoStream(media.DeviceSource{ID: "cam-1"})

	assert.ErrorIs(t, c.Hangup(ctx), ErrCallTerminated)
	assert.ErrorIs(t, c.Hold(ctx), ErrCallTerminated)
	assert.ErrorIs(t, c.Resume(ctx), ErrCallTerminated)
	assert.ErrorIs(t, c.Mute(ctx), ErrCallTerminated)
	assert.ErrorIs(t, c.StartVideo(ctx, stream), ErrCallTerminated)
	assert.ErrorIs(t, c.SendDTMF(ctx, "1"), ErrCallTerminated)
	_, err := c.AddParticipant(ctx, identifier.CommunicationUser{ID: "8:acs:x"})
	assert.ErrorIs(t, err, ErrCallTerminated)
}

func TestTerminalHookFiresAfterStateEvent(t *testing.T) {
	session := newFakeSession()
	var order []string
	c, err := New(Config{
		ID:      "call-1",
		Session: session,
		OnTerminal: func(*Call) {
			order = append(order, "terminal")
		},
	})
	require.NoError(t, err)

	c.OnStateChanged(func(s State) {
		if s == StateDisconnected {
			order = append(order, "event")
		}
	})

	connect(c)
	c.ApplyPhase(engine.PhaseDisconnected, nil)

	assert.Equal(t, []string{"event", "terminal"}, order)
}

func TestDefaultEndReasonIsHangup(t *testing.T) {
	c := newTestCall(t, newFakeSession(), nil)
	connect(c)
	c.ApplyPhase(engine.PhaseDisconnected, nil)

	require.NotNil(t, c.EndReason())
	assert.Equal(t, engine.ReasonHangup, *c.EndReason())
}

func TestHoldRequiresEstablishedCall(t *testing.T) {
	session := newFakeSession()
	c := newTestCall(t, session, nil)
	ctx := context.Background()

	c.ApplyPhase(engine.PhaseConnecting, nil)
	c.ApplyPhase(engine.PhaseRinging, nil)
	assert.ErrorIs(t, c.Hold(ctx), ErrNotConnected)

	c.ApplyPhase(engine.PhaseConnected, nil)
	require.NoError(t, c.Hold(ctx))
	assert.Equal(t, 1, session.opCount("Hold"))

	// The state change lands from the engine, not from the mutator.
	assert.Equal(t, StateConnected, c.State())
	c.ApplyPhase(engine.PhaseLocalHold, nil)
	assert.Equal(t, StateLocalHold, c.State())
}

func TestResumeRequiresLocalHold(t *testing.T) {
	session := newFakeSession()
	c := newTestCall(t, session, nil)
	ctx := context.Background()
	connect(c)

	assert.ErrorIs(t, c.Resume(ctx), ErrNotOnHold)

	c.ApplyPhase(engine.PhaseLocalHold, nil)
	require.NoError(t, c.Resume(ctx))
	assert.Equal(t, 1, session.opCount("Resume"))

	// Remote hold is not ours to resume.
	c.ApplyPhase(engine.PhaseRemoteHold, nil)
	assert.ErrorIs(t, c.Resume(ctx), ErrNotOnHold)
}

func TestMuteIsIdempotent(t *testing.T) {
	session := newFakeSession()
	c := newTestCall(t, session, nil)
	ctx := context.Background()
	connect(c)

	var events []bool
	c.OnIsMutedChanged(func(m bool) { events = append(events, m) })

	require.NoError(t, c.Mute(ctx))
	require.NoError(t, c.Mute(ctx))
	assert.True(t, c.IsMuted())
	assert.Equal(t, 1, session.opCount("SetMuted"), "repeated mute must not hit the engine")
	assert.Equal(t, []bool{true}, events)

	require.NoError(t, c.Unmute(ctx))
	assert.False(t, c.IsMuted())
	assert.Equal(t, []bool{true, false}, events)
}

func TestFailedMuteLeavesStateUntouched(t *testing.T) {
	session := newFakeSession()
	session.fail("SetMuted", errors.New("engine down"))
	c := newTestCall(t, session, nil)
	connect(c)

	var fired int
	c.OnIsMutedChanged(func(bool) { fired++ })

	err := c.Mute(context.Background())
	require.Error(t, err)
	assert.False(t, c.IsMuted())
	assert.Equal(t, 0, fired)
}

func TestStartVideoPublishesStream(t *testing.T) {
	session := newFakeSession()
	c := newTestCall(t, session, nil)
	ctx := context.Background()
	connect(c)

	var deltas []event.Delta[*media.LocalVideoStream]
	c.OnLocalVideoStreamsUpdated(func(d event.Delta[*media.LocalVideoStream]) {
		deltas = append(deltas, d)
	})

	stream := media.NewLocalVideoStream(media.DeviceSource{ID: "cam-1", Name: "Front"})
	require.NoError(t, c.StartVideo(ctx, stream))

	require.Len(t, deltas, 1)
	assert.Equal(t, []*media.LocalVideoStream{stream}, deltas[0].Added)
	assert.Contains(t, c.LocalVideoStreams(), stream)

	assert.ErrorIs(t, c.StartVideo(ctx, stream), ErrStreamAlreadyStarted)
}

func TestStartVideoFailureIsDualSurfaced(t *testing.T) {
	session := newFakeSession()
	session.fail("StartVideo", errors.New("camera busy"))
	c := newTestCall(t, session, nil)
	ctx := context.Background()
	connect(c)

	var diags []Diagnostic
	c.OnDiagnosticChanged(func(d Diagnostic) { diags = append(diags, d) })

	stream := media.NewLocalVideoStream(media.DeviceSource{ID: "cam-1"})
	err := c.StartVideo(ctx, stream)

	assert.ErrorIs(t, err, ErrSourceUnavailable)
	require.Len(t, diags, 1)
	assert.Equal(t, DiagCameraStartFailed, diags[0].Name)
	assert.True(t, diags[0].Value)
	assert.Empty(t, c.LocalVideoStreams())

	// A later success clears the flag.
	session.fail("StartVideo", nil)
	require.NoError(t, c.StartVideo(ctx, stream))
	require.Len(t, diags, 2)
	assert.False(t, diags[1].Value)
}

func TestStopVideoMatchesByInstance(t *testing.T) {
	session := newFakeSession()
	c := newTestCall(t, session, nil)
	ctx := context.Background()
	connect(c)

	started := media.NewLocalVideoStream(media.DeviceSource{ID: "cam-1"})
	require.NoError(t, c.StartVideo(ctx, started))

	// Equivalent stream for the same camera, different instance.
	twin := media.NewLocalVideoStream(media.DeviceSource{ID: "cam-1"})
	assert.ErrorIs(t, c.StopVideo(ctx, twin), ErrStreamNotStarted)
	assert.Len(t, c.LocalVideoStreams(), 1)

	require.NoError(t, c.StopVideo(ctx, started))
	assert.Empty(t, c.LocalVideoStreams())
	assert.ErrorIs(t, c.StopVideo(ctx, started), ErrStreamNotStarted)
}

func TestStartedStreamSwitchesThroughCall(t *testing.T) {
	session := newFakeSession()
	c := newTestCall(t, session, nil)
	ctx := context.Background()
	connect(c)

	stream := media.NewLocalVideoStream(media.DeviceSource{ID: "cam-1"})
	require.NoError(t, c.StartVideo(ctx, stream))

	require.NoError(t, stream.SwitchSource(ctx, media.DeviceSource{ID: "cam-2"}))
	assert.Equal(t, 1, session.opCount("SwitchVideoSource"))
	assert.Equal(t, "cam-2", stream.Source().ID)

	// After stop the stream is detached and switches locally only.
	require.NoError(t, c.StopVideo(ctx, stream))
	require.NoError(t, stream.SwitchSource(ctx, media.DeviceSource{ID: "cam-3"}))
	assert.Equal(t, 1, session.opCount("SwitchVideoSource"))
}

func TestAddParticipant(t *testing.T) {
	session := newFakeSession()
	c := newTestCall(t, session, nil)
	ctx := context.Background()
	connect(c)

	var deltas []event.Delta[*RemoteParticipant]
	c.OnRemoteParticipantsUpdated(func(d event.Delta[*RemoteParticipant]) {
		deltas = append(deltas, d)
	})

	target := identifier.CommunicationUser{ID: "8:acs:bob"}
	p, err := c.AddParticipant(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, ParticipantConnecting, p.State())
	assert.Equal(t, identifier.Identifier(target), p.Identifier())
	require.Len(t, deltas, 1)

	_, err = c.AddParticipant(ctx, target)
	assert.ErrorIs(t, err, ErrDuplicateParticipant)
}

func TestParticipantUpsertAndLeave(t *testing.T) {
	c := newTestCall(t, newFakeSession(), nil)
	connect(c)

	c.ApplyParticipant(engine.ParticipantInfo{
		RawID:       "8:acs:bob",
		DisplayName: "Bob",
		Phase:       engine.ParticipantConnected,
	})
	require.Len(t, c.RemoteParticipants(), 1)
	p := c.RemoteParticipants()[0]

	var states []ParticipantState
	var muted []bool
	p.OnStateChanged(func(s ParticipantState) { states = append(states, s) })
	p.OnIsMutedChanged(func(m bool) { muted = append(muted, m) })

	// Upsert with only the mute flag changed: one event, not two.
	c.ApplyParticipant(engine.ParticipantInfo{
		RawID:       "8:acs:bob",
		DisplayName: "Bob",
		Phase:       engine.ParticipantConnected,
		Muted:       true,
	})
	assert.Empty(t, states)
	assert.Equal(t, []bool{true}, muted)

	var removed []*RemoteParticipant
	c.OnRemoteParticipantsUpdated(func(d event.Delta[*RemoteParticipant]) {
		removed = append(removed, d.Removed...)
	})

	c.ApplyParticipantLeft("8:acs:bob")
	assert.Equal(t, []ParticipantState{ParticipantDisconnected}, states)
	assert.Equal(t, []*RemoteParticipant{p}, removed)
	assert.Empty(t, c.RemoteParticipants())

	// Unknown participant leaving is ignored.
	c.ApplyParticipantLeft("8:acs:nobody")
	assert.Len(t, removed, 1)
}

func TestRemoveParticipant(t *testing.T) {
	session := newFakeSession()
	c := newTestCall(t, session, nil)
	ctx := context.Background()
	connect(c)

	p, err := c.AddParticipant(ctx, identifier.CommunicationUser{ID: "8:acs:bob"})
	require.NoError(t, err)

	require.NoError(t, c.RemoveParticipant(ctx, p))
	assert.Equal(t, 1, session.opCount("RemoveParticipant"))
	// Membership is untouched until the engine confirms.
	assert.Len(t, c.RemoteParticipants(), 1)

	c.ApplyParticipantLeft("8:acs:bob")
	assert.Empty(t, c.RemoteParticipants())
	assert.ErrorIs(t, c.RemoveParticipant(ctx, p), ErrParticipantNotFound)
}

func TestRemoteStreams(t *testing.T) {
	c := newTestCall(t, newFakeSession(), nil)
	connect(c)
	c.ApplyParticipant(engine.ParticipantInfo{RawID: "8:acs:bob", Phase: engine.ParticipantConnected})
	p := c.RemoteParticipants()[0]

	var deltas []event.Delta[*RemoteVideoStream]
	p.OnVideoStreamsUpdated(func(d event.Delta[*RemoteVideoStream]) { deltas = append(deltas, d) })

	c.ApplyStreamAdded("8:acs:bob", engine.StreamInfo{ID: 7, Type: engine.StreamVideo, Available: true, Width: 640, Height: 360})
	require.Len(t, deltas, 1)
	require.Len(t, p.VideoStreams(), 1)
	s := p.VideoStreams()[0]
	assert.Equal(t, 7, s.StreamID())
	assert.True(t, s.IsAvailable())
	assert.Equal(t, StreamSize{Width: 640, Height: 360}, s.Size())

	var avail []bool
	var sizes []StreamSize
	s.OnIsAvailableChanged(func(v bool) { avail = append(avail, v) })
	s.OnSizeChanged(func(sz StreamSize) { sizes = append(sizes, sz) })

	c.ApplyStreamChanged("8:acs:bob", engine.StreamInfo{ID: 7, Available: false})
	c.ApplyStreamChanged("8:acs:bob", engine.StreamInfo{ID: 7, Available: true, Width: 1280, Height: 720})
	assert.Equal(t, []bool{false, true}, avail)
	assert.Equal(t, []StreamSize{{Width: 1280, Height: 720}}, sizes)

	c.ApplyStreamRemoved("8:acs:bob", 7)
	assert.Empty(t, p.VideoStreams())
	assert.False(t, s.IsAvailable())
	require.Len(t, deltas, 2)
	assert.Equal(t, []*RemoteVideoStream{s}, deltas[1].Removed)
}

func TestGraceWindowRecovery(t *testing.T) {
	session := newFakeSession()
	clock := newFakeClock()
	c := newTestCall(t, session, clock)
	connect(c)

	var diags []Diagnostic
	c.OnDiagnosticChanged(func(d Diagnostic) { diags = append(diags, d) })

	c.ApplyMediaLost()
	require.Equal(t, 1, clock.pendingCount())
	require.Len(t, diags, 1)
	assert.Equal(t, DiagNetworkReconnect, diags[0].Name)
	assert.True(t, diags[0].Value)
	assert.Equal(t, StateConnected, c.State(), "the call stays up during the window")

	// A second loss report must not arm a second timer.
	c.ApplyMediaLost()
	assert.Equal(t, 1, clock.pendingCount())

	c.ApplyMediaRestored()
	assert.Equal(t, 0, clock.pendingCount())
	require.Len(t, diags, 2)
	assert.False(t, diags[1].Value)
	assert.Equal(t, StateConnected, c.State())

	// Restoring again is a no-op.
	c.ApplyMediaRestored()
	assert.Len(t, diags, 2)
}

func TestGraceWindowExpiry(t *testing.T) {
	session := newFakeSession()
	clock := newFakeClock()
	c := newTestCall(t, session, clock)
	connect(c)

	var states []State
	c.OnStateChanged(func(s State) { states = append(states, s) })

	c.ApplyMediaLost()
	clock.fire(t)

	assert.Equal(t, []State{StateDisconnecting, StateDisconnected}, states)
	require.NotNil(t, c.EndReason())
	assert.Equal(t, engine.ReasonNetworkFailure, *c.EndReason())
	assert.Equal(t, 1, session.opCount("Hangup"))
}

func TestGraceTimerDuration(t *testing.T) {
	clock := newFakeClock()
	c := newTestCall(t, newFakeSession(), clock)
	connect(c)

	c.ApplyMediaLost()
	require.Len(t, clock.timers, 1)
	assert.Equal(t, 2*time.Minute, clock.timers[0].d)
}

func TestSendDTMF(t *testing.T) {
	session := newFakeSession()
	c := newTestCall(t, session, nil)
	ctx := context.Background()

	c.ApplyPhase(engine.PhaseConnecting, nil)
	assert.ErrorIs(t, c.SendDTMF(ctx, "1"), ErrNotConnected)

	c.ApplyPhase(engine.PhaseConnected, nil)
	for _, tone := range []string{"0", "9", "*", "#", "A", "D"} {
		assert.NoError(t, c.SendDTMF(ctx, tone))
	}
	assert.ErrorIs(t, c.SendDTMF(ctx, "E"), ErrInvalidDTMFTone)
	assert.ErrorIs(t, c.SendDTMF(ctx, "12"), ErrInvalidDTMFTone)
	assert.ErrorIs(t, c.SendDTMF(ctx, ""), ErrInvalidDTMFTone)
}

func TestRecordingAndTranscription(t *testing.T) {
	c := newTestCall(t, newFakeSession(), nil)
	connect(c)

	var rec, trans []bool
	c.OnRecordingActiveChanged(func(v bool) { rec = append(rec, v) })
	c.OnTranscriptionActiveChanged(func(v bool) { trans = append(trans, v) })

	c.ApplyRecording(true)
	c.ApplyRecording(true) // unchanged, suppressed
	c.ApplyRecording(false)
	c.ApplyTranscription(true)

	assert.True(t, c.IsTranscriptionActive())
	assert.False(t, c.IsRecordingActive())
	assert.Equal(t, []bool{true, false}, rec)
	assert.Equal(t, []bool{true}, trans)
}

func TestCaptionsRoundTrip(t *testing.T) {
	session := newFakeSession()
	c := newTestCall(t, session, nil)
	ctx := context.Background()
	connect(c)

	require.NoError(t, c.EnableCaptions(ctx, "en-us"))
	assert.True(t, c.CaptionsActive())
	assert.Equal(t, "en-us", c.CaptionsLanguage())

	var captions []engine.CaptionInfo
	c.OnCaptionReceived(func(info engine.CaptionInfo) { captions = append(captions, info) })
	c.ApplyCaption(engine.CaptionInfo{SpeakerRawID: "8:acs:bob", Text: "hello", Final: true})
	require.Len(t, captions, 1)
	assert.Equal(t, "hello", captions[0].Text)

	require.NoError(t, c.DisableCaptions(ctx))
	assert.False(t, c.CaptionsActive())
	assert.Empty(t, c.CaptionsLanguage())
}

func TestTransfer(t *testing.T) {
	session := newFakeSession()
	c := newTestCall(t, session, nil)
	ctx := context.Background()

	c.ApplyPhase(engine.PhaseConnecting, nil)
	err := c.TransferTo(ctx, identifier.CommunicationUser{ID: "8:acs:carol"})
	assert.ErrorIs(t, err, ErrNotConnected)

	c.ApplyPhase(engine.PhaseConnected, nil)
	var updates []engine.TransferUpdate
	c.OnTransferStateChanged(func(u engine.TransferUpdate) { updates = append(updates, u) })

	require.NoError(t, c.TransferTo(ctx, identifier.CommunicationUser{ID: "8:acs:carol"}))
	assert.Equal(t, engine.TransferTransferring, c.CurrentTransferState())

	c.ApplyTransfer(engine.TransferUpdate{State: engine.TransferTransferred})
	assert.Equal(t, engine.TransferTransferred, c.CurrentTransferState())
	require.Len(t, updates, 2)
}

func TestTerminalDetachesLocalStreams(t *testing.T) {
	session := newFakeSession()
	c := newTestCall(t, session, nil)
	ctx := context.Background()
	connect(c)

	stream := media.NewLocalVideoStream(media.DeviceSource{ID: "cam-1"})
	require.NoError(t, c.StartVideo(ctx, stream))
	c.ApplyPhase(engine.PhaseDisconnected, nil)

	// Detached streams switch locally without touching the dead call.
	require.NoError(t, stream.SwitchSource(ctx, media.DeviceSource{ID: "cam-2"}))
	assert.Equal(t, 0, session.opCount("SwitchVideoSource"))
}
