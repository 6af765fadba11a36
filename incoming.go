package callkit

import (
	"context"
	"fmt"
	"sync"

	"github.com/opd-ai/callkit/call"
	"github.com/opd-ai/callkit/engine"
	"github.com/opd-ai/callkit/event"
	"github.com/opd-ai/callkit/identifier"
)

// IncomingCall announces an inbound call before it is answered. It
// resolves exactly once: by Accept, by Reject, or by the caller ending
// it first. Any operation after resolution fails with
// ErrIncomingResolved.
type IncomingCall struct {
	agent    *CallAgent
	id       string
	caller   identifier.Identifier
	name     string
	hasVideo bool

	mu        sync.Mutex
	resolved  bool
	endReason *call.EndReason

	ended event.Emitter[call.EndReason]
}

func newIncomingCall(agent *CallAgent, info engine.IncomingCallInfo) *IncomingCall {
	return &IncomingCall{
		agent:    agent,
		id:       info.CallID,
		caller:   identifier.FromRawID(info.CallerRawID),
		name:     info.CallerDisplayName,
		hasVideo: info.HasVideo,
	}
}

// ID returns the call identifier the accepted call will carry.
func (ic *IncomingCall) ID() string { return ic.id }

// CallerID identifies who is calling.
func (ic *IncomingCall) CallerID() identifier.Identifier { return ic.caller }

// CallerDisplayName returns the caller's display name, possibly empty.
func (ic *IncomingCall) CallerDisplayName() string { return ic.name }

// HasIncomingVideo reports whether the caller is sending video.
func (ic *IncomingCall) HasIncomingVideo() bool { return ic.hasVideo }

// EndReason returns why the incoming call ended before being answered,
// or nil while it is still ringing or once it was accepted.
func (ic *IncomingCall) EndReason() *call.EndReason {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	if ic.endReason == nil {
		return nil
	}
	r := *ic.endReason
	return &r
}

// OnCallEnded subscribes to the caller hanging up before an answer.
func (ic *IncomingCall) OnCallEnded(handler func(call.EndReason)) event.Subscription {
	return ic.ended.Subscribe(handler)
}

// OffCallEnded removes an ended subscription.
func (ic *IncomingCall) OffCallEnded(sub event.Subscription) { ic.ended.Unsubscribe(sub) }

// Accept answers the call and returns the resulting Call, already
// published in the agent's collection. When the caller ends the call
// while Accept is in flight the returned call is already terminal and
// never appears in the collection.
func (ic *IncomingCall) Accept(ctx context.Context, opts *AcceptOptions) (*call.Call, error) {
	if opts == nil {
		opts = &AcceptOptions{}
	}

	ic.mu.Lock()
	if ic.resolved {
		ic.mu.Unlock()
		return nil, ErrIncomingResolved
	}
	ic.mu.Unlock()

	a := ic.agent
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return nil, ErrAgentDisposed
	}
	a.mu.Unlock()

	c, err := call.New(call.Config{
		ID:           ic.id,
		Direction:    call.DirectionIncoming,
		Session:      a.session,
		ClientID:     a.client.id,
		AgentID:      a.id,
		InitialVideo: opts.VideoStreams,
		OnTerminal:   a.removeCall,
	})
	if err != nil {
		return nil, err
	}

	// Route engine pushes to the call while Accept is in flight.
	a.mu.Lock()
	a.byID[ic.id] = c
	a.pending[ic.id] = true
	a.mu.Unlock()

	engineOpts := engine.CallOptions{
		VideoDeviceIDs: videoDeviceIDs(opts.VideoStreams),
	}
	if opts.AudioStream != nil {
		engineOpts.AudioDeviceID = opts.AudioStream.Source().ID
	}
	if err := a.session.Accept(ctx, ic.id, engineOpts); err != nil {
		a.mu.Lock()
		delete(a.byID, ic.id)
		delete(a.pending, ic.id)
		a.mu.Unlock()
		return nil, fmt.Errorf("accept call: %w", err)
	}

	ic.mu.Lock()
	ic.resolved = true
	ic.mu.Unlock()

	a.mu.Lock()
	delete(a.incoming, ic.id)
	a.mu.Unlock()

	a.client.noteCall(ic.id)
	a.publish(c)

	a.log.WithField("call_id", ic.id).Info("incoming call accepted")
	return c, nil
}

// Reject declines the call.
func (ic *IncomingCall) Reject(ctx context.Context) error {
	ic.mu.Lock()
	if ic.resolved {
		ic.mu.Unlock()
		return ErrIncomingResolved
	}
	ic.mu.Unlock()

	a := ic.agent
	if err := a.session.Reject(ctx, ic.id); err != nil {
		return fmt.Errorf("reject call: %w", err)
	}

	a.mu.Lock()
	delete(a.incoming, ic.id)
	a.mu.Unlock()

	ic.resolveEnded(engine.ReasonDeclined)
	a.log.WithField("call_id", ic.id).Info("incoming call rejected")
	return nil
}

// resolveEnded marks the incoming call finished and fires the ended
// event once.
func (ic *IncomingCall) resolveEnded(reason call.EndReason) {
	ic.mu.Lock()
	if ic.resolved {
		ic.mu.Unlock()
		return
	}
	ic.resolved = true
	ic.endReason = &reason
	ic.mu.Unlock()

	ic.ended.Emit(reason)
}
