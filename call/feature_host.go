package call

import (
	"context"
	"fmt"

	"github.com/opd-ai/callkit/engine"
	"github.com/opd-ai/callkit/event"
	"github.com/opd-ai/callkit/identifier"
)

// Feature host surface. The feature package layers its typed views on
// top of these accessors; they never mutate the call's core state.

// IsRecordingActive reports whether the service records this call.
func (c *Call) IsRecordingActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recordingActive
}

// OnRecordingActiveChanged subscribes to recording toggles.
func (c *Call) OnRecordingActiveChanged(handler func(bool)) event.Subscription {
	return c.recordingChanged.Subscribe(handler)
}

// OffRecordingActiveChanged removes a recording subscription.
func (c *Call) OffRecordingActiveChanged(sub event.Subscription) {
	c.recordingChanged.Unsubscribe(sub)
}

// IsTranscriptionActive reports whether the service transcribes this
// call.
func (c *Call) IsTranscriptionActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transcriptionActive
}

// OnTranscriptionActiveChanged subscribes to transcription toggles.
func (c *Call) OnTranscriptionActiveChanged(handler func(bool)) event.Subscription {
	return c.transcriptionChanged.Subscribe(handler)
}

// OffTranscriptionActiveChanged removes a transcription subscription.
func (c *Call) OffTranscriptionActiveChanged(sub event.Subscription) {
	c.transcriptionChanged.Unsubscribe(sub)
}

// CaptionsActive reports whether live captions are enabled.
func (c *Call) CaptionsActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.captionsActive
}

// CaptionsLanguage returns the active spoken language, empty while
// captions are off.
func (c *Call) CaptionsLanguage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.captionsLanguage
}

// EnableCaptions starts live captions in the given spoken language.
func (c *Call) EnableCaptions(ctx context.Context, language string) error {
	if err := c.ensureAlive(); err != nil {
		return err
	}
	if err := c.session.SetCaptionsEnabled(ctx, c.id, true, language); err != nil {
		return fmt.Errorf("enable captions: %w", err)
	}

	c.mu.Lock()
	c.captionsActive = true
	c.captionsLanguage = language
	c.mu.Unlock()
	return nil
}

// DisableCaptions stops live captions.
func (c *Call) DisableCaptions(ctx context.Context) error {
	if err := c.ensureAlive(); err != nil {
		return err
	}
	if err := c.session.SetCaptionsEnabled(ctx, c.id, false, ""); err != nil {
		return fmt.Errorf("disable captions: %w", err)
	}

	c.mu.Lock()
	c.captionsActive = false
	c.captionsLanguage = ""
	c.mu.Unlock()
	return nil
}

// OnCaptionReceived subscribes to caption fragments.
func (c *Call) OnCaptionReceived(handler func(engine.CaptionInfo)) event.Subscription {
	return c.captionReceived.Subscribe(handler)
}

// OffCaptionReceived removes a caption subscription.
func (c *Call) OffCaptionReceived(sub event.Subscription) {
	c.captionReceived.Unsubscribe(sub)
}

// LatestDiagnostics returns a copy of the current health flag values.
func (c *Call) LatestDiagnostics() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]bool, len(c.diagnostics))
	for k, v := range c.diagnostics {
		out[k] = v
	}
	return out
}

// OnDiagnosticChanged subscribes to health flag changes.
func (c *Call) OnDiagnosticChanged(handler func(Diagnostic)) event.Subscription {
	return c.diagnosticChanged.Subscribe(handler)
}

// OffDiagnosticChanged removes a diagnostic subscription.
func (c *Call) OffDiagnosticChanged(sub event.Subscription) {
	c.diagnosticChanged.Unsubscribe(sub)
}

// CurrentTransferState returns the latest transfer progress.
func (c *Call) CurrentTransferState() engine.TransferState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transferState
}

// TransferTo hands the call off to another identity. Progress arrives
// through the transfer state events.
func (c *Call) TransferTo(ctx context.Context, target identifier.Identifier) error {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	if state == StateDisconnected {
		return ErrCallTerminated
	}
	if state != StateConnected {
		return ErrNotConnected
	}

	if err := c.session.Transfer(ctx, c.id, target.RawID()); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}

	c.ApplyTransfer(engine.TransferUpdate{State: engine.TransferTransferring})
	return nil
}

// OnTransferStateChanged subscribes to transfer progress.
func (c *Call) OnTransferStateChanged(handler func(engine.TransferUpdate)) event.Subscription {
	return c.transferChanged.Subscribe(handler)
}

// OffTransferStateChanged removes a transfer subscription.
func (c *Call) OffTransferStateChanged(sub event.Subscription) {
	c.transferChanged.Unsubscribe(sub)
}
