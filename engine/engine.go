// Package engine declares the boundary between the SDK and the
// proprietary native calling engine.
//
// Everything on the far side of these interfaces is opaque: signaling,
// media transport, codecs and device capture all live inside the engine
// binding. The SDK never inspects engine internals; it issues operations
// through Session and DeviceHost and consumes engine pushes through
// EventSink. Package enginetest provides a scriptable in-memory
// implementation for tests.
package engine

import (
	"context"
	"time"
)

// Engine is the process-wide entry point of the native binding.
type Engine interface {
	// Connect authenticates with the calling service and opens a
	// signaling session for one identity. The bearer token is opaque to
	// the engine consumer.
	Connect(ctx context.Context, token, displayName string) (Session, error)

	// Devices exposes the local capture/playback catalog.
	Devices() DeviceHost
}

// CallOptions carries the per-call knobs understood by the engine.
type CallOptions struct {
	// VideoDeviceIDs are cameras to start sending from immediately.
	VideoDeviceIDs []string
	// AudioDeviceID is the microphone to capture from; empty selects
	// the host default.
	AudioDeviceID string
	// Muted starts the call with outgoing audio muted.
	Muted bool
	// AlternateCallerID is the raw PSTN identity shown to callees.
	AlternateCallerID string
	// ThreadID is the chat thread associated with a Teams call.
	ThreadID string
	// GroupID joins an existing group call instead of dialing targets.
	GroupID string
}

// Session is one authenticated signaling session. All operations are
// keyed by the SDK-assigned call ID; the engine echoes that ID back on
// every event it pushes.
type Session interface {
	// SetSink installs the event intake. Must be called before any call
	// operation; events pushed with no sink installed are dropped.
	SetSink(sink EventSink)

	Dial(ctx context.Context, callID string, targets []string, opts CallOptions) error
	Accept(ctx context.Context, callID string, opts CallOptions) error
	Reject(ctx context.Context, callID string) error
	Hangup(ctx context.Context, callID string) error
	Hold(ctx context.Context, callID string) error
	Resume(ctx context.Context, callID string) error
	SetMuted(ctx context.Context, callID string, muted bool) error

	StartVideo(ctx context.Context, callID, deviceID string) error
	StopVideo(ctx context.Context, callID, deviceID string) error
	SwitchVideoSource(ctx context.Context, callID, deviceID string) error

	AddParticipant(ctx context.Context, callID, rawID string) error
	RemoveParticipant(ctx context.Context, callID, rawID string) error
	SendDTMF(ctx context.Context, callID, tone string) error
	Transfer(ctx context.Context, callID, targetRawID string) error
	SetCaptionsEnabled(ctx context.Context, callID string, enabled bool, language string) error

	// Close tears the session down. Calls still in flight surface a
	// Disconnected phase before Close returns.
	Close() error
}

// Track is an opaque media handle produced by or handed to the engine.
// The SDK never touches frames; it only carries the handle between the
// engine and stream constructors.
type Track interface {
	ID() string
	Kind() TrackKind
	Close() error
}

// TrackKind distinguishes audio from video tracks.
type TrackKind int

const (
	TrackAudio TrackKind = iota
	TrackVideo
)

// EventSink is implemented by the SDK and fed by the engine. Events for
// one call arrive in the order the underlying state changed; there is no
// ordering guarantee across calls.
type EventSink interface {
	OnCallPhaseChanged(callID string, phase Phase, reason *EndReason)
	OnIncomingCall(info IncomingCallInfo)

	OnParticipantUpserted(callID string, info ParticipantInfo)
	OnParticipantLeft(callID, rawID string)

	OnRemoteStreamAdded(callID, rawID string, info StreamInfo)
	OnRemoteStreamChanged(callID, rawID string, info StreamInfo)
	OnRemoteStreamRemoved(callID, rawID string, streamID int)

	OnMediaLost(callID string)
	OnMediaRestored(callID string)

	OnRecordingChanged(callID string, active bool)
	OnTranscriptionChanged(callID string, active bool)
	OnCaption(callID string, caption CaptionInfo)
	OnDiagnostic(callID, name string, value bool)
	OnTransfer(callID string, update TransferUpdate)
}

// Phase is the engine-level call lifecycle position. The call package
// maps phases onto its public state machine one to one.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseConnecting
	PhaseRinging
	PhaseEarlyMedia
	PhaseInLobby
	PhaseConnected
	PhaseLocalHold
	PhaseRemoteHold
	PhaseDisconnecting
	PhaseDisconnected
)

// EndReason is the post-mortem outcome of a finished call. Call
// termination is a normal result, not an error; the pair of codes tells
// the application why the call ended.
type EndReason struct {
	Code    int
	Subcode int
}

// Well-known end reason codes.
var (
	// ReasonHangup is a deliberate local or remote hangup.
	ReasonHangup = EndReason{Code: 0, Subcode: 0}
	// ReasonDeclined means the callee rejected the call.
	ReasonDeclined = EndReason{Code: 603, Subcode: 0}
	// ReasonUnreachable means no callee endpoint answered.
	ReasonUnreachable = EndReason{Code: 480, Subcode: 0}
	// ReasonNetworkFailure is loss of media transport that outlived the
	// reconnect grace period.
	ReasonNetworkFailure = EndReason{Code: 540, Subcode: 1000}
)

// IncomingCallInfo announces an inbound call before it is accepted.
type IncomingCallInfo struct {
	CallID            string
	CallerRawID       string
	CallerDisplayName string
	HasVideo          bool
}

// ParticipantPhase is a remote party's position within a call.
type ParticipantPhase int

const (
	ParticipantIdle ParticipantPhase = iota
	ParticipantConnecting
	ParticipantRinging
	ParticipantInLobby
	ParticipantConnected
	ParticipantHold
	ParticipantDisconnected
)

// ParticipantInfo is the engine's view of one remote party.
type ParticipantInfo struct {
	RawID       string
	DisplayName string
	Phase       ParticipantPhase
	Muted       bool
	Speaking    bool
}

// StreamType distinguishes camera video from screen sharing.
type StreamType int

const (
	StreamVideo StreamType = iota
	StreamScreenSharing
)

// StreamInfo describes one inbound video or screen-share feed.
type StreamInfo struct {
	ID        int
	Type      StreamType
	Available bool
	Width     int
	Height    int
}

// CaptionInfo is one live-caption fragment.
type CaptionInfo struct {
	SpeakerRawID       string
	SpeakerDisplayName string
	Text               string
	Language           string
	Timestamp          time.Time
	Final              bool
}

// Diagnostic is one out-of-band call health flag, independent of the
// call state machine.
type Diagnostic struct {
	Name  string
	Value bool
}

// TransferState tracks a blind transfer initiated on a call.
type TransferState int

const (
	TransferNone TransferState = iota
	TransferTransferring
	TransferTransferred
	TransferFailed
)

// TransferUpdate reports transfer progress. Reason is set when the
// transfer fails.
type TransferUpdate struct {
	State  TransferState
	Reason string
}

// DeviceType classifies entries of the local device catalog.
type DeviceType int

const (
	DeviceCamera DeviceType = iota
	DeviceMicrophone
	DeviceSpeaker
)

// DeviceInfo describes one local capture or playback device.
type DeviceInfo struct {
	ID              string
	Name            string
	Type            DeviceType
	IsSystemDefault bool
}

// PermissionRequest names the device classes an application wants access
// to.
type PermissionRequest struct {
	Audio bool
	Video bool
}

// PermissionResult reports what the user actually granted. Denial is an
// expected outcome: a denied request yields false flags, not an error.
type PermissionResult struct {
	Audio bool
	Video bool
}

// DeviceSink receives hot-plug notifications from the OS via the engine.
type DeviceSink interface {
	OnDevicesChanged(kind DeviceType, added, removed []DeviceInfo)
}

// DeviceHost is the engine's local device catalog.
type DeviceHost interface {
	// EnumerateDevices returns a snapshot of the current catalog.
	// Previously returned snapshots stay valid; hot-plug is reported
	// only through the device sink.
	EnumerateDevices(ctx context.Context) ([]DeviceInfo, error)

	// RequestPermission prompts the user once for device access.
	RequestPermission(ctx context.Context, req PermissionRequest) (PermissionResult, error)

	// SetDeviceSink installs the hot-plug intake.
	SetDeviceSink(sink DeviceSink)
}
