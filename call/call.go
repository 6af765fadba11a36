package call

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/callkit/engine"
	"github.com/opd-ai/callkit/event"
	"github.com/opd-ai/callkit/feature"
	"github.com/opd-ai/callkit/identifier"
	"github.com/opd-ai/callkit/media"
)

// GracePeriod is how long a call survives loss of media transport
// before it auto-disconnects. Connectivity returning inside the window
// recovers the call without a state change.
const GracePeriod = 2 * time.Minute

// Config assembles a new Call. Session and ID are mandatory; a nil
// Clock falls back to SystemClock.
type Config struct {
	ID        string
	Direction Direction
	Session   engine.Session
	Clock     Clock

	// ClientID and AgentID identify the owning client and agent in the
	// feature context.
	ClientID string
	AgentID  string

	// Muted starts the call with outgoing audio already muted, matching
	// what was requested from the engine.
	Muted bool

	// InitialVideo seeds the outgoing video collection for calls started
	// or accepted with video. The streams are already running on the
	// engine side; no StartVideo round trip happens for them.
	InitialVideo []*media.LocalVideoStream

	// OnTerminal is invoked once, after the terminal state change event
	// has fired, so the owning agent can drop the call from its
	// collection and tear down call-scoped features.
	OnTerminal func(*Call)
}

// Call is one signaling+media session between the local identity and one
// or more remote parties. Property getters are synchronous reads of the
// last-delivered snapshot; mutators forward to the engine and only
// update local state on success.
type Call struct {
	id        string
	direction Direction
	session   engine.Session
	clock     Clock
	log       *logrus.Entry

	mu           sync.RWMutex
	state        State
	endReason    *EndReason
	muted        bool
	participants map[string]*RemoteParticipant
	graceTimer   Timer

	recordingActive     bool
	transcriptionActive bool
	captionsActive      bool
	captionsLanguage    string
	transferState       engine.TransferState
	diagnostics         map[string]bool

	onTerminal func(*Call)
	features   *feature.Registry

	stateChanged         event.Emitter[State]
	mutedChanged         event.Emitter[bool]
	recordingChanged     event.Emitter[bool]
	transcriptionChanged event.Emitter[bool]
	captionReceived      event.Emitter[engine.CaptionInfo]
	diagnosticChanged    event.Emitter[Diagnostic]
	transferChanged      event.Emitter[engine.TransferUpdate]

	remoteParticipants event.Collection[*RemoteParticipant]
	localVideo         event.Collection[*media.LocalVideoStream]
}

// Diagnostic is one out-of-band call health flag. Diagnostics change
// independently of the state machine.
type Diagnostic = engine.Diagnostic

// Diagnostic flag names raised by the SDK itself. The engine may push
// additional names.
const (
	DiagCameraStartFailed          = "cameraStartFailed"
	DiagNetworkReconnect           = "networkReconnect"
	DiagMicrophoneMuteUnexpectedly = "microphoneMuteUnexpectedly"
)

// New creates a call in StateNone. The engine drives it forward from
// there.
func New(cfg Config) (*Call, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("call id cannot be empty")
	}
	if cfg.Session == nil {
		return nil, fmt.Errorf("engine session cannot be nil")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}

	c := &Call{
		id:           cfg.ID,
		direction:    cfg.Direction,
		session:      cfg.Session,
		clock:        clock,
		log:          logrus.WithFields(logrus.Fields{"component": "call.Call", "call_id": cfg.ID}),
		state:        StateNone,
		muted:        cfg.Muted,
		participants: make(map[string]*RemoteParticipant),
		diagnostics:  make(map[string]bool),
		onTerminal:   cfg.OnTerminal,
	}
	c.features = feature.NewRegistry(feature.Context{
		Owner:    c,
		ClientID: cfg.ClientID,
		AgentID:  cfg.AgentID,
	})

	for _, stream := range cfg.InitialVideo {
		stream.Attach(func(ctx context.Context, deviceID string) error {
			return c.session.SwitchVideoSource(ctx, c.id, deviceID)
		})
	}
	c.localVideo.Apply(cfg.InitialVideo, nil)

	c.log.WithField("direction", cfg.Direction).Debug("call created")
	return c, nil
}

// Feature returns the lazily constructed extension for the factory.
// Repeated requests with the same factory return the identical cached
// instance; all features are disposed with the call.
func (c *Call) Feature(factory feature.Factory) (feature.Feature, error) {
	return c.features.Get(factory)
}

// ID returns the call's stable identifier.
func (c *Call) ID() string { return c.id }

// Direction reports which side initiated the call.
func (c *Call) Direction() Direction { return c.direction }

// State returns the current lifecycle state.
func (c *Call) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// EndReason returns the post-mortem outcome, or nil while the call is
// still alive.
func (c *Call) EndReason() *EndReason {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.endReason == nil {
		return nil
	}
	r := *c.endReason
	return &r
}

// IsMuted reports whether outgoing audio is muted.
func (c *Call) IsMuted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.muted
}

// RemoteParticipants returns a snapshot of the current remote parties.
func (c *Call) RemoteParticipants() []*RemoteParticipant {
	return c.remoteParticipants.Items()
}

// LocalVideoStreams returns a snapshot of the outgoing video bindings.
func (c *Call) LocalVideoStreams() []*media.LocalVideoStream {
	return c.localVideo.Items()
}

// OnStateChanged subscribes to lifecycle transitions. The handler runs
// after the state property is updated.
func (c *Call) OnStateChanged(handler func(State)) event.Subscription {
	return c.stateChanged.Subscribe(handler)
}

// OffStateChanged removes a state subscription.
func (c *Call) OffStateChanged(sub event.Subscription) { c.stateChanged.Unsubscribe(sub) }

// OnIsMutedChanged subscribes to outgoing-mute changes.
func (c *Call) OnIsMutedChanged(handler func(bool)) event.Subscription {
	return c.mutedChanged.Subscribe(handler)
}

// OffIsMutedChanged removes a mute subscription.
func (c *Call) OffIsMutedChanged(sub event.Subscription) { c.mutedChanged.Unsubscribe(sub) }

// OnRemoteParticipantsUpdated subscribes to participant batches.
func (c *Call) OnRemoteParticipantsUpdated(handler func(event.Delta[*RemoteParticipant])) event.Subscription {
	return c.remoteParticipants.OnChanged(handler)
}

// OffRemoteParticipantsUpdated removes a participant subscription.
func (c *Call) OffRemoteParticipantsUpdated(sub event.Subscription) {
	c.remoteParticipants.OffChanged(sub)
}

// OnLocalVideoStreamsUpdated subscribes to outgoing video batches.
func (c *Call) OnLocalVideoStreamsUpdated(handler func(event.Delta[*media.LocalVideoStream])) event.Subscription {
	return c.localVideo.OnChanged(handler)
}

// OffLocalVideoStreamsUpdated removes an outgoing video subscription.
func (c *Call) OffLocalVideoStreamsUpdated(sub event.Subscription) {
	c.localVideo.OffChanged(sub)
}

// ensureAlive fails with ErrCallTerminated once the call is terminal.
func (c *Call) ensureAlive() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == StateDisconnected {
		return ErrCallTerminated
	}
	return nil
}

// Hangup ends the call. The terminal state and end reason arrive through
// the engine's Disconnecting/Disconnected pushes.
func (c *Call) Hangup(ctx context.Context) error {
	if err := c.ensureAlive(); err != nil {
		return err
	}
	c.log.Info("hanging up")
	if err := c.session.Hangup(ctx, c.id); err != nil {
		return fmt.Errorf("hangup: %w", err)
	}
	return nil
}

// Hold puts an established call on local hold.
func (c *Call) Hold(ctx context.Context) error {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	switch state {
	case StateDisconnected:
		return ErrCallTerminated
	case StateConnected, StateRemoteHold:
	default:
		return ErrNotConnected
	}

	if err := c.session.Hold(ctx, c.id); err != nil {
		return fmt.Errorf("hold: %w", err)
	}
	return nil
}

// Resume takes the call off local hold.
func (c *Call) Resume(ctx context.Context) error {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	switch state {
	case StateDisconnected:
		return ErrCallTerminated
	case StateLocalHold:
	default:
		return ErrNotOnHold
	}

	if err := c.session.Resume(ctx, c.id); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	return nil
}

// Mute stops sending outgoing audio. Muting an already muted call is a
// no-op.
func (c *Call) Mute(ctx context.Context) error {
	return c.setMuted(ctx, true)
}

// Unmute resumes sending outgoing audio. Unmuting an unmuted call is a
// no-op.
func (c *Call) Unmute(ctx context.Context) error {
	return c.setMuted(ctx, false)
}

func (c *Call) setMuted(ctx context.Context, muted bool) error {
	c.mu.RLock()
	if c.state == StateDisconnected {
		c.mu.RUnlock()
		return ErrCallTerminated
	}
	if c.muted == muted {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	if err := c.session.SetMuted(ctx, c.id, muted); err != nil {
		return fmt.Errorf("set muted: %w", err)
	}

	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()

	c.log.WithField("muted", muted).Info("outgoing audio mute changed")
	c.mutedChanged.Emit(muted)
	return nil
}

// StartVideo begins sending the given stream. A stream instance may be
// started on at most one call at a time. A capture failure surfaces both
// as the returned error and as the cameraStartFailed diagnostic.
func (c *Call) StartVideo(ctx context.Context, stream *media.LocalVideoStream) error {
	if err := c.ensureAlive(); err != nil {
		return err
	}
	if c.localVideo.Contains(stream) {
		return ErrStreamAlreadyStarted
	}

	deviceID := stream.Source().ID
	if err := c.session.StartVideo(ctx, c.id, deviceID); err != nil {
		c.raiseDiagnostic(DiagCameraStartFailed, true)
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	c.raiseDiagnostic(DiagCameraStartFailed, false)

	stream.Attach(func(ctx context.Context, deviceID string) error {
		return c.session.SwitchVideoSource(ctx, c.id, deviceID)
	})
	c.localVideo.Apply([]*media.LocalVideoStream{stream}, nil)

	c.log.WithField("device_id", deviceID).Info("outgoing video started")
	return nil
}

// StopVideo stops sending the given stream. The instance must be the
// one passed to StartVideo; an equivalent stream for the same device
// does not match.
func (c *Call) StopVideo(ctx context.Context, stream *media.LocalVideoStream) error {
	if err := c.ensureAlive(); err != nil {
		return err
	}
	if !c.localVideo.Contains(stream) {
		return ErrStreamNotStarted
	}

	if err := c.session.StopVideo(ctx, c.id, stream.Source().ID); err != nil {
		return fmt.Errorf("stop video: %w", err)
	}

	stream.Detach()
	c.localVideo.Apply(nil, []*media.LocalVideoStream{stream})

	c.log.Info("outgoing video stopped")
	return nil
}

// AddParticipant invites another identity into the call and returns its
// participant object once the engine accepted the request.
func (c *Call) AddParticipant(ctx context.Context, id identifier.Identifier) (*RemoteParticipant, error) {
	if err := c.ensureAlive(); err != nil {
		return nil, err
	}

	rawID := id.RawID()
	c.mu.RLock()
	_, exists := c.participants[rawID]
	c.mu.RUnlock()
	if exists {
		return nil, ErrDuplicateParticipant
	}

	if err := c.session.AddParticipant(ctx, c.id, rawID); err != nil {
		return nil, fmt.Errorf("add participant: %w", err)
	}

	p := c.upsertParticipant(engine.ParticipantInfo{
		RawID: rawID,
		Phase: engine.ParticipantConnecting,
	})

	c.log.WithField("participant", rawID).Info("participant added")
	return p, nil
}

// RemoveParticipant kicks a participant out of the call. The removal
// itself lands through the engine's participant-left push.
func (c *Call) RemoveParticipant(ctx context.Context, p *RemoteParticipant) error {
	if err := c.ensureAlive(); err != nil {
		return err
	}
	if !c.remoteParticipants.Contains(p) {
		return ErrParticipantNotFound
	}

	if err := c.session.RemoveParticipant(ctx, c.id, p.rawID); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	return nil
}

// SendDTMF sends one DTMF tone on an established PSTN leg. Valid tones
// are 0-9, *, # and A-D.
func (c *Call) SendDTMF(ctx context.Context, tone string) error {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	if state == StateDisconnected {
		return ErrCallTerminated
	}
	if state != StateConnected {
		return ErrNotConnected
	}
	if len(tone) != 1 || !strings.Contains("0123456789*#ABCD", tone) {
		return ErrInvalidDTMFTone
	}

	if err := c.session.SendDTMF(ctx, c.id, tone); err != nil {
		return fmt.Errorf("send dtmf: %w", err)
	}
	return nil
}

// raiseDiagnostic flips one health flag and notifies subscribers.
// Re-raising the current value is suppressed.
func (c *Call) raiseDiagnostic(name string, value bool) {
	c.mu.Lock()
	if current, ok := c.diagnostics[name]; ok && current == value {
		c.mu.Unlock()
		return
	}
	c.diagnostics[name] = value
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"diagnostic": name, "value": value}).Debug("diagnostic changed")
	c.diagnosticChanged.Emit(Diagnostic{Name: name, Value: value})
}

func (c *Call) participantByRaw(rawID string) *RemoteParticipant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.participants[rawID]
}
