package call

import "errors"

// Sentinel errors for call operations. These enable reliable error
// classification with errors.Is().

// Lifecycle errors.
var (
	// ErrCallTerminated indicates a mutator was invoked on a call that
	// already reached the terminal Disconnected state.
	ErrCallTerminated = errors.New("call has been disconnected")

	// ErrNotConnected indicates the operation requires an established
	// call.
	ErrNotConnected = errors.New("call is not connected")

	// ErrNotOnHold indicates Resume was called while the call was not on
	// local hold.
	ErrNotOnHold = errors.New("call is not on local hold")
)

// Local media errors.
var (
	// ErrStreamAlreadyStarted indicates the stream instance is already
	// part of the call's outgoing video.
	ErrStreamAlreadyStarted = errors.New("local video stream is already started on this call")

	// ErrStreamNotStarted indicates the stream instance passed to
	// StopVideo is not the one that started video. Streams match by
	// instance identity, not by device.
	ErrStreamNotStarted = errors.New("local video stream is not started on this call")

	// ErrSourceUnavailable indicates the capture device is busy,
	// disabled or gone. The cameraStartFailed diagnostic is raised in
	// parallel with this error.
	ErrSourceUnavailable = errors.New("video source unavailable")
)

// Participant errors.
var (
	// ErrDuplicateParticipant indicates the identity is already in the
	// call.
	ErrDuplicateParticipant = errors.New("participant is already in the call")

	// ErrParticipantNotFound indicates the participant is not a current
	// member of the call.
	ErrParticipantNotFound = errors.New("participant is not in the call")
)

// PSTN errors.
var (
	// ErrInvalidDTMFTone indicates a tone outside 0-9, *, #, A-D.
	ErrInvalidDTMFTone = errors.New("invalid DTMF tone")
)
