// Package enginetest provides an in-memory engine implementation for
// tests. The fake records every operation, can be scripted to fail
// specific ones, and pushes events into the installed sink either on
// demand or automatically in response to operations.
package enginetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/opd-ai/callkit/engine"
)

// Fake implements engine.Engine. Zero value is not usable; create with
// New.
type Fake struct {
	mu         sync.Mutex
	connectErr error
	session    *Session
	devices    *DeviceHost
}

// New creates a fake engine with an empty device catalog.
func New() *Fake {
	return &Fake{devices: NewDeviceHost()}
}

// FailConnect makes the next Connect calls return err.
func (f *Fake) FailConnect(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErr = err
}

// Session returns the session handed out by the last successful
// Connect, nil before that.
func (f *Fake) Session() *Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

// Connect implements engine.Engine.
func (f *Fake) Connect(ctx context.Context, token, displayName string) (engine.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	f.session = &Session{
		Token:       token,
		DisplayName: displayName,
		failures:    make(map[string]error),
		active:      make(map[string]bool),
		callOpts:    make(map[string]engine.CallOptions),
	}
	return f.session, nil
}

// Devices implements engine.Engine.
func (f *Fake) Devices() engine.DeviceHost { return f.devices }

// DeviceHostFake returns the concrete device host for scripting.
func (f *Fake) DeviceHostFake() *DeviceHost { return f.devices }

// Op is one recorded session operation.
type Op struct {
	Name   string
	CallID string
	Arg    string
}

// Session implements engine.Session. All operations are recorded in
// order; scripted failures are returned without recording state
// changes. With auto-respond enabled, Dial, Accept and Hangup push the
// corresponding phase sequences synchronously before returning.
type Session struct {
	Token       string
	DisplayName string

	mu          sync.Mutex
	sink        engine.EventSink
	ops         []Op
	failures    map[string]error
	active      map[string]bool
	callOpts    map[string]engine.CallOptions
	autoRespond bool
	closed      bool
}

// SetAutoRespond makes call setup and teardown operations push their
// usual phase sequences without explicit scripting.
func (s *Session) SetAutoRespond(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoRespond = enabled
}

// Fail makes the named operation (e.g. "Dial", "StartVideo") return err.
func (s *Session) Fail(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[name] = err
}

// Ops returns a copy of the recorded operation log.
func (s *Session) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Op, len(s.ops))
	copy(out, s.ops)
	return out
}

// OpNames returns just the names of the recorded operations.
func (s *Session) OpNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.ops))
	for i, op := range s.ops {
		names[i] = op.Name
	}
	return names
}

// OptionsFor returns the call options recorded by the last Dial or
// Accept for the call.
func (s *Session) OptionsFor(callID string) engine.CallOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callOpts[callID]
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) record(name, callID, arg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[name]; err != nil {
		return err
	}
	s.ops = append(s.ops, Op{Name: name, CallID: callID, Arg: arg})
	return nil
}

func (s *Session) currentSink() engine.EventSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

// SetSink implements engine.Session.
func (s *Session) SetSink(sink engine.EventSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// Dial implements engine.Session.
func (s *Session) Dial(ctx context.Context, callID string, targets []string, opts engine.CallOptions) error {
	if err := s.record("Dial", callID, fmt.Sprintf("%v", targets)); err != nil {
		return err
	}
	s.mu.Lock()
	s.active[callID] = true
	s.callOpts[callID] = opts
	auto := s.autoRespond
	s.mu.Unlock()

	if auto {
		s.PushPhase(callID, engine.PhaseConnecting, nil)
		s.PushPhase(callID, engine.PhaseRinging, nil)
		s.PushPhase(callID, engine.PhaseConnected, nil)
	}
	return nil
}

// Accept implements engine.Session.
func (s *Session) Accept(ctx context.Context, callID string, opts engine.CallOptions) error {
	if err := s.record("Accept", callID, ""); err != nil {
		return err
	}
	s.mu.Lock()
	s.active[callID] = true
	s.callOpts[callID] = opts
	auto := s.autoRespond
	s.mu.Unlock()

	if auto {
		s.PushPhase(callID, engine.PhaseConnecting, nil)
		s.PushPhase(callID, engine.PhaseConnected, nil)
	}
	return nil
}

// Reject implements engine.Session.
func (s *Session) Reject(ctx context.Context, callID string) error {
	return s.record("Reject", callID, "")
}

// Hangup implements engine.Session.
func (s *Session) Hangup(ctx context.Context, callID string) error {
	if err := s.record("Hangup", callID, ""); err != nil {
		return err
	}
	s.mu.Lock()
	auto := s.autoRespond
	s.mu.Unlock()

	if auto {
		s.EndCall(callID, engine.ReasonHangup)
	}
	return nil
}

// Hold implements engine.Session.
func (s *Session) Hold(ctx context.Context, callID string) error {
	if err := s.record("Hold", callID, ""); err != nil {
		return err
	}
	s.mu.Lock()
	auto := s.autoRespond
	s.mu.Unlock()
	if auto {
		s.PushPhase(callID, engine.PhaseLocalHold, nil)
	}
	return nil
}

// Resume implements engine.Session.
func (s *Session) Resume(ctx context.Context, callID string) error {
	if err := s.record("Resume", callID, ""); err != nil {
		return err
	}
	s.mu.Lock()
	auto := s.autoRespond
	s.mu.Unlock()
	if auto {
		s.PushPhase(callID, engine.PhaseConnected, nil)
	}
	return nil
}

// SetMuted implements engine.Session.
func (s *Session) SetMuted(ctx context.Context, callID string, muted bool) error {
	return s.record("SetMuted", callID, fmt.Sprintf("%v", muted))
}

// StartVideo implements engine.Session.
func (s *Session) StartVideo(ctx context.Context, callID, deviceID string) error {
	return s.record("StartVideo", callID, deviceID)
}

// StopVideo implements engine.Session.
func (s *Session) StopVideo(ctx context.Context, callID, deviceID string) error {
	return s.record("StopVideo", callID, deviceID)
}

// SwitchVideoSource implements engine.Session.
func (s *Session) SwitchVideoSource(ctx context.Context, callID, deviceID string) error {
	return s.record("SwitchVideoSource", callID, deviceID)
}

// AddParticipant implements engine.Session.
func (s *Session) AddParticipant(ctx context.Context, callID, rawID string) error {
	return s.record("AddParticipant", callID, rawID)
}

// RemoveParticipant implements engine.Session.
func (s *Session) RemoveParticipant(ctx context.Context, callID, rawID string) error {
	return s.record("RemoveParticipant", callID, rawID)
}

// SendDTMF implements engine.Session.
func (s *Session) SendDTMF(ctx context.Context, callID, tone string) error {
	return s.record("SendDTMF", callID, tone)
}

// Transfer implements engine.Session.
func (s *Session) Transfer(ctx context.Context, callID, targetRawID string) error {
	return s.record("Transfer", callID, targetRawID)
}

// SetCaptionsEnabled implements engine.Session.
func (s *Session) SetCaptionsEnabled(ctx context.Context, callID string, enabled bool, language string) error {
	return s.record("SetCaptionsEnabled", callID, fmt.Sprintf("%v:%s", enabled, language))
}

// Close implements engine.Session. Calls still active surface a
// Disconnected phase before Close returns.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pending := make([]string, 0, len(s.active))
	for id := range s.active {
		pending = append(pending, id)
	}
	s.mu.Unlock()

	for _, id := range pending {
		s.EndCall(id, engine.ReasonHangup)
	}
	return nil
}

// Event push helpers. All of them dispatch synchronously into the
// installed sink, mirroring the in-order delivery contract.

// PushPhase pushes a call phase change.
func (s *Session) PushPhase(callID string, phase engine.Phase, reason *engine.EndReason) {
	if phase == engine.PhaseDisconnected {
		s.mu.Lock()
		delete(s.active, callID)
		s.mu.Unlock()
	}
	if sink := s.currentSink(); sink != nil {
		sink.OnCallPhaseChanged(callID, phase, reason)
	}
}

// EndCall pushes the Disconnecting/Disconnected pair with the given
// reason.
func (s *Session) EndCall(callID string, reason engine.EndReason) {
	s.PushPhase(callID, engine.PhaseDisconnecting, nil)
	s.PushPhase(callID, engine.PhaseDisconnected, &reason)
}

// PushIncoming announces an inbound call.
func (s *Session) PushIncoming(info engine.IncomingCallInfo) {
	s.mu.Lock()
	s.active[info.CallID] = true
	s.mu.Unlock()
	if sink := s.currentSink(); sink != nil {
		sink.OnIncomingCall(info)
	}
}

// PushParticipant upserts a remote participant.
func (s *Session) PushParticipant(callID string, info engine.ParticipantInfo) {
	if sink := s.currentSink(); sink != nil {
		sink.OnParticipantUpserted(callID, info)
	}
}

// PushParticipantLeft removes a remote participant.
func (s *Session) PushParticipantLeft(callID, rawID string) {
	if sink := s.currentSink(); sink != nil {
		sink.OnParticipantLeft(callID, rawID)
	}
}

// PushStreamAdded adds a remote video stream.
func (s *Session) PushStreamAdded(callID, rawID string, info engine.StreamInfo) {
	if sink := s.currentSink(); sink != nil {
		sink.OnRemoteStreamAdded(callID, rawID, info)
	}
}

// PushStreamChanged updates a remote video stream.
func (s *Session) PushStreamChanged(callID, rawID string, info engine.StreamInfo) {
	if sink := s.currentSink(); sink != nil {
		sink.OnRemoteStreamChanged(callID, rawID, info)
	}
}

// PushStreamRemoved removes a remote video stream.
func (s *Session) PushStreamRemoved(callID, rawID string, streamID int) {
	if sink := s.currentSink(); sink != nil {
		sink.OnRemoteStreamRemoved(callID, rawID, streamID)
	}
}

// PushMediaLost signals loss of media transport.
func (s *Session) PushMediaLost(callID string) {
	if sink := s.currentSink(); sink != nil {
		sink.OnMediaLost(callID)
	}
}

// PushMediaRestored signals recovered media transport.
func (s *Session) PushMediaRestored(callID string) {
	if sink := s.currentSink(); sink != nil {
		sink.OnMediaRestored(callID)
	}
}

// PushRecording toggles server-side recording.
func (s *Session) PushRecording(callID string, active bool) {
	if sink := s.currentSink(); sink != nil {
		sink.OnRecordingChanged(callID, active)
	}
}

// PushTranscription toggles server-side transcription.
func (s *Session) PushTranscription(callID string, active bool) {
	if sink := s.currentSink(); sink != nil {
		sink.OnTranscriptionChanged(callID, active)
	}
}

// PushCaption delivers one caption fragment.
func (s *Session) PushCaption(callID string, caption engine.CaptionInfo) {
	if sink := s.currentSink(); sink != nil {
		sink.OnCaption(callID, caption)
	}
}

// PushDiagnostic flips one call health flag.
func (s *Session) PushDiagnostic(callID, name string, value bool) {
	if sink := s.currentSink(); sink != nil {
		sink.OnDiagnostic(callID, name, value)
	}
}

// PushTransfer reports transfer progress.
func (s *Session) PushTransfer(callID string, update engine.TransferUpdate) {
	if sink := s.currentSink(); sink != nil {
		sink.OnTransfer(callID, update)
	}
}

// DeviceHost implements engine.DeviceHost with a settable catalog.
type DeviceHost struct {
	mu           sync.Mutex
	catalog      []engine.DeviceInfo
	sink         engine.DeviceSink
	permission   engine.PermissionResult
	permissionGr bool
	enumerateErr error
	permErr      error
}

// NewDeviceHost creates an empty device host. Permission requests grant
// everything asked for until SetPermissionResult is called.
func NewDeviceHost() *DeviceHost {
	return &DeviceHost{}
}

// SetCatalog replaces the device catalog without notifying the sink.
func (h *DeviceHost) SetCatalog(devices []engine.DeviceInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.catalog = append([]engine.DeviceInfo(nil), devices...)
}

// SetPermissionResult fixes what RequestPermission grants.
func (h *DeviceHost) SetPermissionResult(result engine.PermissionResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.permission = result
	h.permissionGr = true
}

// FailEnumerate makes EnumerateDevices return err.
func (h *DeviceHost) FailEnumerate(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enumerateErr = err
}

// FailPermission makes RequestPermission return err.
func (h *DeviceHost) FailPermission(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.permErr = err
}

// EnumerateDevices implements engine.DeviceHost.
func (h *DeviceHost) EnumerateDevices(ctx context.Context) ([]engine.DeviceInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.enumerateErr != nil {
		return nil, h.enumerateErr
	}
	return append([]engine.DeviceInfo(nil), h.catalog...), nil
}

// RequestPermission implements engine.DeviceHost.
func (h *DeviceHost) RequestPermission(ctx context.Context, req engine.PermissionRequest) (engine.PermissionResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.permErr != nil {
		return engine.PermissionResult{}, h.permErr
	}
	if h.permissionGr {
		return h.permission, nil
	}
	return engine.PermissionResult{Audio: req.Audio, Video: req.Video}, nil
}

// SetDeviceSink implements engine.DeviceHost.
func (h *DeviceHost) SetDeviceSink(sink engine.DeviceSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink = sink
}

// PushDeviceChange reports a hot-plug event and updates the catalog to
// match.
func (h *DeviceHost) PushDeviceChange(kind engine.DeviceType, added, removed []engine.DeviceInfo) {
	h.mu.Lock()
	next := make([]engine.DeviceInfo, 0, len(h.catalog)+len(added))
	for _, d := range h.catalog {
		gone := false
		for _, r := range removed {
			if r.ID == d.ID {
				gone = true
				break
			}
		}
		if !gone {
			next = append(next, d)
		}
	}
	next = append(next, added...)
	h.catalog = next
	sink := h.sink
	h.mu.Unlock()

	if sink != nil {
		sink.OnDevicesChanged(kind, added, removed)
	}
}

var (
	_ engine.Engine     = (*Fake)(nil)
	_ engine.Session    = (*Session)(nil)
	_ engine.DeviceHost = (*DeviceHost)(nil)
)
