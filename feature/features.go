package feature

import (
	"context"

	"github.com/opd-ai/callkit/engine"
	"github.com/opd-ai/callkit/event"
	"github.com/opd-ai/callkit/identifier"
)

// Owner is any object carrying a feature registry. *call.Call,
// CallAgent and CallClient all satisfy it.
type Owner interface {
	Feature(Factory) (Feature, error)
}

// Host interfaces. Factories downcast Context.Owner to the interface
// they need; a call satisfies all of the call-scoped ones structurally.

// RecordingHost is the owner surface the recording feature reads.
type RecordingHost interface {
	ID() string
	IsRecordingActive() bool
	OnRecordingActiveChanged(func(bool)) event.Subscription
	OffRecordingActiveChanged(event.Subscription)
}

// TranscriptionHost is the owner surface the transcription feature
// reads.
type TranscriptionHost interface {
	ID() string
	IsTranscriptionActive() bool
	OnTranscriptionActiveChanged(func(bool)) event.Subscription
	OffTranscriptionActiveChanged(event.Subscription)
}

// CaptionsHost is the owner surface the captions feature drives.
type CaptionsHost interface {
	ID() string
	CaptionsActive() bool
	CaptionsLanguage() string
	EnableCaptions(ctx context.Context, language string) error
	DisableCaptions(ctx context.Context) error
	OnCaptionReceived(func(engine.CaptionInfo)) event.Subscription
	OffCaptionReceived(event.Subscription)
}

// TransferHost is the owner surface the transfer feature drives.
type TransferHost interface {
	ID() string
	CurrentTransferState() engine.TransferState
	TransferTo(ctx context.Context, target identifier.Identifier) error
	OnTransferStateChanged(func(engine.TransferUpdate)) event.Subscription
	OffTransferStateChanged(event.Subscription)
}

// DiagnosticsHost is the owner surface the diagnostics feature reads.
type DiagnosticsHost interface {
	ID() string
	LatestDiagnostics() map[string]bool
	OnDiagnosticChanged(func(engine.Diagnostic)) event.Subscription
	OffDiagnosticChanged(event.Subscription)
}

// Singleton factories. Memoization keys on these values, so the same
// factory always resolves to the same feature instance per owner.
var (
	// Recording observes server-side call recording.
	Recording Factory = recordingFactory{}
	// Transcription observes server-side call transcription.
	Transcription Factory = transcriptionFactory{}
	// Captions controls and observes live captions.
	Captions Factory = captionsFactory{}
	// Transfer hands a call off to another identity.
	Transfer Factory = transferFactory{}
	// Diagnostics exposes out-of-band call health flags.
	Diagnostics Factory = diagnosticsFactory{}
)

type recordingFactory struct{}

func (recordingFactory) Name() string { return "recording" }

func (recordingFactory) New(ctx Context) (Feature, error) {
	host, ok := ctx.Owner.(RecordingHost)
	if !ok {
		return nil, ErrUnsupportedOwner
	}
	return &CallRecording{host: host}, nil
}

// CallRecording reports whether the service records the owning call.
type CallRecording struct {
	host RecordingHost
}

func (*CallRecording) Name() string { return "recording" }

// IsRecordingActive reports current recording activity.
func (f *CallRecording) IsRecordingActive() bool { return f.host.IsRecordingActive() }

// OnIsRecordingActiveChanged subscribes to recording toggles.
func (f *CallRecording) OnIsRecordingActiveChanged(handler func(bool)) event.Subscription {
	return f.host.OnRecordingActiveChanged(handler)
}

// OffIsRecordingActiveChanged removes a recording subscription.
func (f *CallRecording) OffIsRecordingActiveChanged(sub event.Subscription) {
	f.host.OffRecordingActiveChanged(sub)
}

// Dispose releases the feature.
func (f *CallRecording) Dispose() {}

type transcriptionFactory struct{}

func (transcriptionFactory) Name() string { return "transcription" }

func (transcriptionFactory) New(ctx Context) (Feature, error) {
	host, ok := ctx.Owner.(TranscriptionHost)
	if !ok {
		return nil, ErrUnsupportedOwner
	}
	return &CallTranscription{host: host}, nil
}

// CallTranscription reports whether the service transcribes the owning
// call.
type CallTranscription struct {
	host TranscriptionHost
}

func (*CallTranscription) Name() string { return "transcription" }

// IsTranscriptionActive reports current transcription activity.
func (f *CallTranscription) IsTranscriptionActive() bool { return f.host.IsTranscriptionActive() }

// OnIsTranscriptionActiveChanged subscribes to transcription toggles.
func (f *CallTranscription) OnIsTranscriptionActiveChanged(handler func(bool)) event.Subscription {
	return f.host.OnTranscriptionActiveChanged(handler)
}

// OffIsTranscriptionActiveChanged removes a transcription subscription.
func (f *CallTranscription) OffIsTranscriptionActiveChanged(sub event.Subscription) {
	f.host.OffTranscriptionActiveChanged(sub)
}

// Dispose releases the feature.
func (f *CallTranscription) Dispose() {}

type captionsFactory struct{}

func (captionsFactory) Name() string { return "captions" }

func (captionsFactory) New(ctx Context) (Feature, error) {
	host, ok := ctx.Owner.(CaptionsHost)
	if !ok {
		return nil, ErrUnsupportedOwner
	}
	return &CallCaptions{host: host}, nil
}

// CallCaptions controls live captions on the owning call.
type CallCaptions struct {
	host CaptionsHost
}

func (*CallCaptions) Name() string { return "captions" }

// IsCaptionsActive reports whether captions are running.
func (f *CallCaptions) IsCaptionsActive() bool { return f.host.CaptionsActive() }

// SpokenLanguage returns the active caption language.
func (f *CallCaptions) SpokenLanguage() string { return f.host.CaptionsLanguage() }

// StartCaptions enables captions in the given spoken language.
func (f *CallCaptions) StartCaptions(ctx context.Context, language string) error {
	return f.host.EnableCaptions(ctx, language)
}

// StopCaptions disables captions.
func (f *CallCaptions) StopCaptions(ctx context.Context) error {
	return f.host.DisableCaptions(ctx)
}

// OnCaptionReceived subscribes to caption fragments.
func (f *CallCaptions) OnCaptionReceived(handler func(engine.CaptionInfo)) event.Subscription {
	return f.host.OnCaptionReceived(handler)
}

// OffCaptionReceived removes a caption subscription.
func (f *CallCaptions) OffCaptionReceived(sub event.Subscription) {
	f.host.OffCaptionReceived(sub)
}

// Dispose releases the feature.
func (f *CallCaptions) Dispose() {}

type transferFactory struct{}

func (transferFactory) Name() string { return "transfer" }

func (transferFactory) New(ctx Context) (Feature, error) {
	host, ok := ctx.Owner.(TransferHost)
	if !ok {
		return nil, ErrUnsupportedOwner
	}
	return &CallTransfer{host: host}, nil
}

// CallTransfer hands the owning call off to another identity.
type CallTransfer struct {
	host TransferHost
}

func (*CallTransfer) Name() string { return "transfer" }

// State returns the latest transfer progress.
func (f *CallTransfer) State() engine.TransferState { return f.host.CurrentTransferState() }

// Transfer starts a blind transfer toward target. Progress arrives via
// the state change events.
func (f *CallTransfer) Transfer(ctx context.Context, target identifier.Identifier) error {
	return f.host.TransferTo(ctx, target)
}

// OnStateChanged subscribes to transfer progress.
func (f *CallTransfer) OnStateChanged(handler func(engine.TransferUpdate)) event.Subscription {
	return f.host.OnTransferStateChanged(handler)
}

// OffStateChanged removes a transfer subscription.
func (f *CallTransfer) OffStateChanged(sub event.Subscription) {
	f.host.OffTransferStateChanged(sub)
}

// Dispose releases the feature.
func (f *CallTransfer) Dispose() {}

type diagnosticsFactory struct{}

func (diagnosticsFactory) Name() string { return "diagnostics" }

func (diagnosticsFactory) New(ctx Context) (Feature, error) {
	host, ok := ctx.Owner.(DiagnosticsHost)
	if !ok {
		return nil, ErrUnsupportedOwner
	}
	return &UserFacingDiagnostics{host: host}, nil
}

// UserFacingDiagnostics exposes out-of-band health flags for the owning
// call, such as cameraStartFailed and networkReconnect.
type UserFacingDiagnostics struct {
	host DiagnosticsHost
}

func (*UserFacingDiagnostics) Name() string { return "diagnostics" }

// Latest returns a copy of the current flag values.
func (f *UserFacingDiagnostics) Latest() map[string]bool { return f.host.LatestDiagnostics() }

// OnDiagnosticChanged subscribes to flag changes.
func (f *UserFacingDiagnostics) OnDiagnosticChanged(handler func(engine.Diagnostic)) event.Subscription {
	return f.host.OnDiagnosticChanged(handler)
}

// OffDiagnosticChanged removes a flag subscription.
func (f *UserFacingDiagnostics) OffDiagnosticChanged(sub event.Subscription) {
	f.host.OffDiagnosticChanged(sub)
}

// Dispose releases the feature.
func (f *UserFacingDiagnostics) Dispose() {}

// Typed accessors saving the caller a type assertion.

// RecordingOf resolves the recording feature of an owner.
func RecordingOf(owner Owner) (*CallRecording, error) {
	f, err := owner.Feature(Recording)
	if err != nil {
		return nil, err
	}
	return f.(*CallRecording), nil
}

// TranscriptionOf resolves the transcription feature of an owner.
func TranscriptionOf(owner Owner) (*CallTranscription, error) {
	f, err := owner.Feature(Transcription)
	if err != nil {
		return nil, err
	}
	return f.(*CallTranscription), nil
}

// CaptionsOf resolves the captions feature of an owner.
func CaptionsOf(owner Owner) (*CallCaptions, error) {
	f, err := owner.Feature(Captions)
	if err != nil {
		return nil, err
	}
	return f.(*CallCaptions), nil
}

// TransferOf resolves the transfer feature of an owner.
func TransferOf(owner Owner) (*CallTransfer, error) {
	f, err := owner.Feature(Transfer)
	if err != nil {
		return nil, err
	}
	return f.(*CallTransfer), nil
}

// DiagnosticsOf resolves the diagnostics feature of an owner.
func DiagnosticsOf(owner Owner) (*UserFacingDiagnostics, error) {
	f, err := owner.Feature(Diagnostics)
	if err != nil {
		return nil, err
	}
	return f.(*UserFacingDiagnostics), nil
}
