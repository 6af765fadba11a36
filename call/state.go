package call

import "github.com/opd-ai/callkit/engine"

// State is the position of a call in its lifecycle. Transitions are
// monotonic toward StateDisconnected and validated against a fixed
// table; the engine cannot move a call backward out of a terminal state.
type State int

const (
	// StateNone is the initial state before any signaling has happened.
	StateNone State = iota
	// StateConnecting means signaling setup is in progress.
	StateConnecting
	// StateRinging means the remote side is being alerted.
	StateRinging
	// StateEarlyMedia means media flows before the call is answered.
	StateEarlyMedia
	// StateInLobby means the local party waits for moderated entry.
	StateInLobby
	// StateConnected means the call is fully established.
	StateConnected
	// StateLocalHold means the local party put the call on hold.
	StateLocalHold
	// StateRemoteHold means the remote party put the call on hold.
	StateRemoteHold
	// StateDisconnecting means teardown signaling is in progress.
	StateDisconnecting
	// StateDisconnected is terminal.
	StateDisconnected
)

// String returns the state name used in logs and events.
func (s State) String() string {
	switch s {
	case StateNone:
		return "None"
	case StateConnecting:
		return "Connecting"
	case StateRinging:
		return "Ringing"
	case StateEarlyMedia:
		return "EarlyMedia"
	case StateInLobby:
		return "InLobby"
	case StateConnected:
		return "Connected"
	case StateLocalHold:
		return "LocalHold"
	case StateRemoteHold:
		return "RemoteHold"
	case StateDisconnecting:
		return "Disconnecting"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// validNext is the transition table. Disconnecting and Disconnected are
// reachable from every non-terminal state, so they are handled in
// canTransition instead of being repeated here.
var validNext = map[State][]State{
	StateNone:       {StateConnecting},
	StateConnecting: {StateRinging, StateEarlyMedia, StateInLobby, StateConnected},
	StateRinging:    {StateEarlyMedia, StateInLobby, StateConnected},
	StateEarlyMedia: {StateRinging, StateConnected},
	StateInLobby:    {StateConnected},
	StateConnected:  {StateLocalHold, StateRemoteHold},
	StateLocalHold:  {StateConnected, StateRemoteHold},
	StateRemoteHold: {StateConnected, StateLocalHold},
}

// canTransition reports whether the machine accepts from -> to.
func canTransition(from, to State) bool {
	if from == StateDisconnected {
		return false
	}
	if to == StateDisconnected {
		return true
	}
	if to == StateDisconnecting {
		return from != StateDisconnecting
	}
	for _, next := range validNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

// stateFromPhase maps the engine's lifecycle phase onto the public
// state machine.
func stateFromPhase(p engine.Phase) State {
	switch p {
	case engine.PhaseConnecting:
		return StateConnecting
	case engine.PhaseRinging:
		return StateRinging
	case engine.PhaseEarlyMedia:
		return StateEarlyMedia
	case engine.PhaseInLobby:
		return StateInLobby
	case engine.PhaseConnected:
		return StateConnected
	case engine.PhaseLocalHold:
		return StateLocalHold
	case engine.PhaseRemoteHold:
		return StateRemoteHold
	case engine.PhaseDisconnecting:
		return StateDisconnecting
	case engine.PhaseDisconnected:
		return StateDisconnected
	default:
		return StateNone
	}
}

// Direction records which side initiated the call.
type Direction int

const (
	// DirectionOutgoing means the local identity dialed out.
	DirectionOutgoing Direction = iota
	// DirectionIncoming means the call was accepted from the incoming
	// funnel.
	DirectionIncoming
)

// String returns the direction name.
func (d Direction) String() string {
	if d == DirectionIncoming {
		return "incoming"
	}
	return "outgoing"
}

// EndReason is the post-mortem outcome of a finished call.
type EndReason = engine.EndReason
