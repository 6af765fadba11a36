package callkit

import "errors"

// Sentinel errors for client and agent lifecycle operations.

var (
	// ErrClientDisposed indicates the CallClient was already disposed.
	ErrClientDisposed = errors.New("call client has been disposed")

	// ErrAgentDisposed indicates the CallAgent was already disposed.
	ErrAgentDisposed = errors.New("call agent has been disposed")

	// ErrAgentActive indicates a second CallAgent was requested while
	// one is active. A client holds at most one agent; dispose the
	// current one first.
	ErrAgentActive = errors.New("a call agent is already active on this client")

	// ErrIncomingResolved indicates the incoming call was already
	// accepted, rejected, or ended by the caller.
	ErrIncomingResolved = errors.New("incoming call has already been resolved")
)
