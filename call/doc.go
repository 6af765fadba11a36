// Package call implements the per-call state machine and the observable
// property surface of an active call: lifecycle state, mute state, local
// video bindings, remote participants and their inbound streams.
//
// A Call never talks to the network itself. Mutators forward to the
// engine session and succeed or fail atomically: a failed mutator leaves
// every property untouched and emits nothing. Engine pushes arrive
// through the Apply* intake methods, invoked by the agent's event router;
// each accepted transition updates the property first and then fires its
// change event exactly once, so handlers always observe the new value.
//
// Disconnected is terminal. Once a call reaches it no further state
// events fire and every mutator fails with ErrCallTerminated.
package call
