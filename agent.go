package callkit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/callkit/call"
	"github.com/opd-ai/callkit/engine"
	"github.com/opd-ai/callkit/event"
	"github.com/opd-ai/callkit/feature"
	"github.com/opd-ai/callkit/identifier"
	"github.com/opd-ai/callkit/media"
)

// CallAgent binds one authenticated identity to the calling service. It
// starts outgoing calls, surfaces incoming ones, and routes every engine
// event to the call it belongs to.
type CallAgent struct {
	id          string
	client      *CallClient
	session     engine.Session
	displayName string
	log         *logrus.Entry

	mu       sync.Mutex
	disposed bool
	byID     map[string]*call.Call
	pending  map[string]bool
	incoming map[string]*IncomingCall

	calls        event.Collection[*call.Call]
	incomingRecv event.Emitter[*IncomingCall]

	features *feature.Registry
}

func newCallAgent(client *CallClient, session engine.Session, displayName string) *CallAgent {
	a := &CallAgent{
		id:          uuid.NewString(),
		client:      client,
		session:     session,
		displayName: displayName,
		byID:        make(map[string]*call.Call),
		pending:     make(map[string]bool),
		incoming:    make(map[string]*IncomingCall),
	}
	a.log = logrus.WithFields(logrus.Fields{"component": "callkit.CallAgent", "agent_id": a.id})
	a.features = feature.NewRegistry(feature.Context{
		Owner:    a,
		ClientID: client.id,
		AgentID:  a.id,
	})
	session.SetSink(&agentRouter{agent: a})
	return a
}

// ID returns the agent's stable identifier.
func (a *CallAgent) ID() string { return a.id }

// DisplayName returns the name shown to callees.
func (a *CallAgent) DisplayName() string { return a.displayName }

// Feature returns the lazily constructed agent-scoped extension for the
// factory.
func (a *CallAgent) Feature(factory feature.Factory) (feature.Feature, error) {
	return a.features.Get(factory)
}

// Calls returns a snapshot of the active calls.
func (a *CallAgent) Calls() []*call.Call {
	return a.calls.Items()
}

// OnCallsUpdated subscribes to active-call batches. Accepted incoming
// calls and started outgoing calls arrive as added; terminated calls as
// removed.
func (a *CallAgent) OnCallsUpdated(handler func(event.Delta[*call.Call])) event.Subscription {
	return a.calls.OnChanged(handler)
}

// OffCallsUpdated removes a calls subscription.
func (a *CallAgent) OffCallsUpdated(sub event.Subscription) { a.calls.OffChanged(sub) }

// OnIncomingCall subscribes to inbound call announcements.
func (a *CallAgent) OnIncomingCall(handler func(*IncomingCall)) event.Subscription {
	return a.incomingRecv.Subscribe(handler)
}

// OffIncomingCall removes an incoming-call subscription.
func (a *CallAgent) OffIncomingCall(sub event.Subscription) { a.incomingRecv.Unsubscribe(sub) }

// StartCall dials one or more targets and returns the call once the
// engine accepted the request. The returned call starts in StateNone;
// the engine drives it through Connecting and onward.
func (a *CallAgent) StartCall(ctx context.Context, targets []identifier.Identifier, opts *StartCallOptions) (*call.Call, error) {
	if len(targets) == 0 {
		return nil, errors.New("at least one target is required")
	}
	if opts == nil {
		opts = &StartCallOptions{}
	}

	engineOpts := engine.CallOptions{
		VideoDeviceIDs: videoDeviceIDs(opts.VideoStreams),
		Muted:          opts.Muted,
		ThreadID:       opts.ThreadID,
	}
	if opts.AlternateCallerID != nil {
		engineOpts.AlternateCallerID = opts.AlternateCallerID.RawID()
	}
	if opts.AudioStream != nil {
		engineOpts.AudioDeviceID = opts.AudioStream.Source().ID
	}

	rawTargets := make([]string, len(targets))
	for i, t := range targets {
		rawTargets[i] = t.RawID()
	}

	return a.openCall(ctx, call.DirectionOutgoing, opts.VideoStreams, opts.Muted,
		func(ctx context.Context, callID string) error {
			return a.session.Dial(ctx, callID, rawTargets, engineOpts)
		})
}

// Join connects to an existing group call addressed by the locator.
func (a *CallAgent) Join(ctx context.Context, locator GroupLocator, opts *JoinOptions) (*call.Call, error) {
	if locator.GroupID == (uuid.UUID{}) {
		return nil, errors.New("group id is required")
	}
	if opts == nil {
		opts = &JoinOptions{}
	}

	engineOpts := engine.CallOptions{
		VideoDeviceIDs: videoDeviceIDs(opts.VideoStreams),
		Muted:          opts.Muted,
		GroupID:        locator.GroupID.String(),
	}
	if opts.AudioStream != nil {
		engineOpts.AudioDeviceID = opts.AudioStream.Source().ID
	}

	return a.openCall(ctx, call.DirectionOutgoing, opts.VideoStreams, opts.Muted,
		func(ctx context.Context, callID string) error {
			return a.session.Dial(ctx, callID, nil, engineOpts)
		})
}

// openCall allocates a call ID, registers the call for event routing,
// and runs the engine operation that brings it up. The call joins the
// public collection only after the engine accepted it.
func (a *CallAgent) openCall(ctx context.Context, direction call.Direction, video []*media.LocalVideoStream, muted bool, connect func(ctx context.Context, callID string) error) (*call.Call, error) {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return nil, ErrAgentDisposed
	}
	a.mu.Unlock()

	callID := uuid.NewString()
	c, err := call.New(call.Config{
		ID:           callID,
		Direction:    direction,
		Session:      a.session,
		ClientID:     a.client.id,
		AgentID:      a.id,
		Muted:        muted,
		InitialVideo: video,
		OnTerminal:   a.removeCall,
	})
	if err != nil {
		return nil, err
	}

	// Register before the engine round trip so pushes that arrive during
	// it are routed; publish only on success.
	a.mu.Lock()
	a.byID[callID] = c
	a.pending[callID] = true
	a.mu.Unlock()

	if err := connect(ctx, callID); err != nil {
		a.mu.Lock()
		delete(a.byID, callID)
		delete(a.pending, callID)
		a.mu.Unlock()
		return nil, fmt.Errorf("start call: %w", err)
	}

	a.client.noteCall(callID)
	a.publish(c)

	a.log.WithField("call_id", callID).Info("call started")
	return c, nil
}

// publish moves a registered call into the public collection. A call the
// engine already terminated while the setup operation was in flight
// never surfaces: its terminal hook ran while it was still pending, so
// neither an added nor a removed delta is owed. A termination racing the
// publish itself is settled here with the matching removed delta.
func (a *CallAgent) publish(c *call.Call) {
	a.mu.Lock()
	live := a.byID[c.ID()] == c
	a.mu.Unlock()
	if live {
		a.calls.Apply([]*call.Call{c}, nil)
	}

	a.mu.Lock()
	delete(a.pending, c.ID())
	gone := a.byID[c.ID()] != c
	a.mu.Unlock()
	if live && gone {
		a.calls.Apply(nil, []*call.Call{c})
	}
}

// removeCall drops a terminated call from the collection. Runs as the
// call's terminal hook, after its Disconnected event has fired. Calls
// still pending publication are only deregistered; publish owns their
// delta accounting.
func (a *CallAgent) removeCall(c *call.Call) {
	a.mu.Lock()
	_, known := a.byID[c.ID()]
	wasPending := a.pending[c.ID()]
	delete(a.byID, c.ID())
	a.mu.Unlock()

	if known && !wasPending {
		a.calls.Apply(nil, []*call.Call{c})
	}
}

// Dispose hangs up every active call, closes the signaling session, and
// frees the agent slot on the client. Safe to call more than once.
func (a *CallAgent) Dispose() {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	a.disposed = true
	active := make([]*call.Call, 0, len(a.byID))
	for _, c := range a.byID {
		active = append(active, c)
	}
	pending := make([]*IncomingCall, 0, len(a.incoming))
	for _, ic := range a.incoming {
		pending = append(pending, ic)
	}
	a.incoming = make(map[string]*IncomingCall)
	a.mu.Unlock()

	ctx := context.Background()
	for _, c := range active {
		if err := c.Hangup(ctx); err != nil && !errors.Is(err, call.ErrCallTerminated) {
			a.log.WithError(err).WithField("call_id", c.ID()).Warn("hangup during dispose failed")
		}
	}
	for _, ic := range pending {
		ic.resolveEnded(engine.ReasonDeclined)
	}

	if err := a.session.Close(); err != nil {
		a.log.WithError(err).Warn("session close failed")
	}
	a.features.Dispose()
	a.client.releaseAgent(a)

	a.log.Info("call agent disposed")
}

func (a *CallAgent) callByID(callID string) *call.Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.byID[callID]
}

func videoDeviceIDs(streams []*media.LocalVideoStream) []string {
	if len(streams) == 0 {
		return nil
	}
	ids := make([]string, len(streams))
	for i, s := range streams {
		ids[i] = s.Source().ID
	}
	return ids
}

// agentRouter is the engine event intake. It lives on a separate type so
// the sink methods stay off the agent's public API.
type agentRouter struct {
	agent *CallAgent
}

var _ engine.EventSink = (*agentRouter)(nil)

func (r *agentRouter) OnCallPhaseChanged(callID string, phase engine.Phase, reason *engine.EndReason) {
	a := r.agent
	if c := a.callByID(callID); c != nil {
		c.ApplyPhase(phase, reason)
		return
	}

	// Phase pushes for a call we never surfaced resolve pending incoming
	// calls: the caller hung up or the call was answered elsewhere.
	if phase != engine.PhaseDisconnected {
		return
	}
	a.mu.Lock()
	ic := a.incoming[callID]
	delete(a.incoming, callID)
	a.mu.Unlock()
	if ic == nil {
		return
	}
	end := engine.ReasonHangup
	if reason != nil {
		end = *reason
	}
	ic.resolveEnded(end)
}

func (r *agentRouter) OnIncomingCall(info engine.IncomingCallInfo) {
	a := r.agent
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	ic := newIncomingCall(a, info)
	a.incoming[info.CallID] = ic
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"call_id": info.CallID,
		"caller":  info.CallerRawID,
	}).Info("incoming call")
	a.incomingRecv.Emit(ic)
}

func (r *agentRouter) OnParticipantUpserted(callID string, info engine.ParticipantInfo) {
	if c := r.agent.callByID(callID); c != nil {
		c.ApplyParticipant(info)
	}
}

func (r *agentRouter) OnParticipantLeft(callID, rawID string) {
	if c := r.agent.callByID(callID); c != nil {
		c.ApplyParticipantLeft(rawID)
	}
}

func (r *agentRouter) OnRemoteStreamAdded(callID, rawID string, info engine.StreamInfo) {
	if c := r.agent.callByID(callID); c != nil {
		c.ApplyStreamAdded(rawID, info)
	}
}

func (r *agentRouter) OnRemoteStreamChanged(callID, rawID string, info engine.StreamInfo) {
	if c := r.agent.callByID(callID); c != nil {
		c.ApplyStreamChanged(rawID, info)
	}
}

func (r *agentRouter) OnRemoteStreamRemoved(callID, rawID string, streamID int) {
	if c := r.agent.callByID(callID); c != nil {
		c.ApplyStreamRemoved(rawID, streamID)
	}
}

func (r *agentRouter) OnMediaLost(callID string) {
	if c := r.agent.callByID(callID); c != nil {
		c.ApplyMediaLost()
	}
}

func (r *agentRouter) OnMediaRestored(callID string) {
	if c := r.agent.callByID(callID); c != nil {
		c.ApplyMediaRestored()
	}
}

func (r *agentRouter) OnRecordingChanged(callID string, active bool) {
	if c := r.agent.callByID(callID); c != nil {
		c.ApplyRecording(active)
	}
}

func (r *agentRouter) OnTranscriptionChanged(callID string, active bool) {
	if c := r.agent.callByID(callID); c != nil {
		c.ApplyTranscription(active)
	}
}

func (r *agentRouter) OnCaption(callID string, caption engine.CaptionInfo) {
	if c := r.agent.callByID(callID); c != nil {
		c.ApplyCaption(caption)
	}
}

func (r *agentRouter) OnDiagnostic(callID, name string, value bool) {
	if c := r.agent.callByID(callID); c != nil {
		c.ApplyDiagnostic(name, value)
	}
}

func (r *agentRouter) OnTransfer(callID string, update engine.TransferUpdate) {
	if c := r.agent.callByID(callID); c != nil {
		c.ApplyTransfer(update)
	}
}
