package call

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/callkit/engine"
)

// Engine event intake. These methods are invoked by the agent's event
// router, in the order the engine pushed the underlying changes for this
// call. Applications never call them.

// ApplyPhase advances the state machine. Transitions the table rejects
// are dropped; nothing fires after the terminal state.
func (c *Call) ApplyPhase(phase engine.Phase, reason *EndReason) {
	to := stateFromPhase(phase)

	c.mu.Lock()
	from := c.state
	if !canTransition(from, to) {
		c.mu.Unlock()
		if from != StateDisconnected {
			c.log.WithFields(logrus.Fields{
				"from": from.String(),
				"to":   to.String(),
			}).Warn("dropping invalid state transition")
		}
		return
	}
	c.state = to
	if to == StateDisconnected {
		r := engine.ReasonHangup
		if reason != nil {
			r = *reason
		}
		c.endReason = &r
		if c.graceTimer != nil {
			c.graceTimer.Stop()
			c.graceTimer = nil
		}
	}
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"from": from.String(),
		"to":   to.String(),
	}).Info("call state changed")
	c.stateChanged.Emit(to)

	if to == StateDisconnected {
		c.teardown()
	}
}

// teardown runs once, after the terminal state event has fired.
func (c *Call) teardown() {
	for _, s := range c.localVideo.Items() {
		s.Detach()
	}
	c.features.Dispose()
	if c.onTerminal != nil {
		c.onTerminal(c)
	}
}

// ApplyParticipant upserts a remote party from the engine's view,
// creating it on first sight.
func (c *Call) ApplyParticipant(info engine.ParticipantInfo) {
	c.upsertParticipant(info)
}

func (c *Call) upsertParticipant(info engine.ParticipantInfo) *RemoteParticipant {
	c.mu.Lock()
	p, exists := c.participants[info.RawID]
	if !exists {
		p = newRemoteParticipant(info)
		c.participants[info.RawID] = p
	}
	c.mu.Unlock()

	if exists {
		p.apply(info)
		return p
	}
	c.remoteParticipants.Apply([]*RemoteParticipant{p}, nil)
	return p
}

// ApplyParticipantLeft removes a remote party that left or was removed.
func (c *Call) ApplyParticipantLeft(rawID string) {
	c.mu.Lock()
	p, exists := c.participants[rawID]
	if exists {
		delete(c.participants, rawID)
	}
	c.mu.Unlock()
	if !exists {
		return
	}

	p.markDisconnected()
	c.remoteParticipants.Apply(nil, []*RemoteParticipant{p})
	c.log.WithField("participant", rawID).Info("participant left")
}

// ApplyStreamAdded attaches a new inbound feed to its participant.
func (c *Call) ApplyStreamAdded(rawID string, info engine.StreamInfo) {
	if p := c.participantByRaw(rawID); p != nil {
		p.applyStreamAdded(info)
	}
}

// ApplyStreamChanged updates availability or size of an inbound feed.
func (c *Call) ApplyStreamChanged(rawID string, info engine.StreamInfo) {
	if p := c.participantByRaw(rawID); p != nil {
		p.applyStreamChanged(info)
	}
}

// ApplyStreamRemoved detaches an inbound feed that stopped.
func (c *Call) ApplyStreamRemoved(rawID string, streamID int) {
	if p := c.participantByRaw(rawID); p != nil {
		p.applyStreamRemoved(streamID)
	}
}

// ApplyMediaLost opens the reconnect grace window. If connectivity does
// not return within GracePeriod the call disconnects itself with
// ReasonNetworkFailure.
func (c *Call) ApplyMediaLost() {
	c.mu.Lock()
	if c.state == StateDisconnected || c.graceTimer != nil {
		c.mu.Unlock()
		return
	}
	c.graceTimer = c.clock.AfterFunc(GracePeriod, c.onGraceExpired)
	c.mu.Unlock()

	c.log.Warn("media transport lost, reconnect window open")
	c.raiseDiagnostic(DiagNetworkReconnect, true)
}

// ApplyMediaRestored closes the reconnect window; the call keeps its
// current state.
func (c *Call) ApplyMediaRestored() {
	c.mu.Lock()
	if c.graceTimer == nil {
		c.mu.Unlock()
		return
	}
	c.graceTimer.Stop()
	c.graceTimer = nil
	c.mu.Unlock()

	c.log.Info("media transport restored")
	c.raiseDiagnostic(DiagNetworkReconnect, false)
}

func (c *Call) onGraceExpired() {
	c.mu.Lock()
	expired := c.graceTimer != nil
	c.graceTimer = nil
	c.mu.Unlock()
	if !expired {
		return
	}

	c.log.Warn("reconnect window expired, disconnecting")

	// Best effort: tell the engine to release the leg. The local state
	// machine completes regardless.
	_ = c.session.Hangup(context.Background(), c.id)

	reason := engine.ReasonNetworkFailure
	c.ApplyPhase(engine.PhaseDisconnecting, nil)
	c.ApplyPhase(engine.PhaseDisconnected, &reason)
}

// ApplyRecording tracks server-side recording activity.
func (c *Call) ApplyRecording(active bool) {
	c.mu.Lock()
	if c.recordingActive == active {
		c.mu.Unlock()
		return
	}
	c.recordingActive = active
	c.mu.Unlock()
	c.recordingChanged.Emit(active)
}

// ApplyTranscription tracks server-side transcription activity.
func (c *Call) ApplyTranscription(active bool) {
	c.mu.Lock()
	if c.transcriptionActive == active {
		c.mu.Unlock()
		return
	}
	c.transcriptionActive = active
	c.mu.Unlock()
	c.transcriptionChanged.Emit(active)
}

// ApplyCaption delivers one live-caption fragment.
func (c *Call) ApplyCaption(caption engine.CaptionInfo) {
	c.captionReceived.Emit(caption)
}

// ApplyDiagnostic records an engine-reported health flag.
func (c *Call) ApplyDiagnostic(name string, value bool) {
	c.raiseDiagnostic(name, value)
}

// ApplyTransfer tracks progress of a transfer initiated on this call.
func (c *Call) ApplyTransfer(update engine.TransferUpdate) {
	c.mu.Lock()
	c.transferState = update.State
	c.mu.Unlock()
	c.transferChanged.Emit(update)
}
