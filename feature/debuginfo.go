package feature

import "fmt"

// DebugHost is the client surface the debug-info feature reads.
type DebugHost interface {
	ClientID() string
	LastCallID() string
}

// DebugInfo is the client-scoped support feature: stable identifiers an
// application attaches to support tickets.
var DebugInfo Factory = debugInfoFactory{}

type debugInfoFactory struct{}

func (debugInfoFactory) Name() string { return "debugInfo" }

func (debugInfoFactory) New(ctx Context) (Feature, error) {
	host, ok := ctx.Owner.(DebugHost)
	if !ok {
		return nil, ErrUnsupportedOwner
	}
	return &ClientDebugInfo{host: host}, nil
}

// ClientDebugInfo exposes correlation identifiers for support.
type ClientDebugInfo struct {
	host DebugHost
}

func (*ClientDebugInfo) Name() string { return "debugInfo" }

// LocalID returns the client's stable identifier.
func (f *ClientDebugInfo) LocalID() string { return f.host.ClientID() }

// LastCallID returns the identifier of the most recently created call,
// empty when no call has been made.
func (f *ClientDebugInfo) LastCallID() string { return f.host.LastCallID() }

// Summary renders a single support line.
func (f *ClientDebugInfo) Summary() string {
	return fmt.Sprintf("client=%s last_call=%s", f.host.ClientID(), f.host.LastCallID())
}

// Dispose releases the feature.
func (f *ClientDebugInfo) Dispose() {}

// DebugInfoOf resolves the debug-info feature of a client.
func DebugInfoOf(owner Owner) (*ClientDebugInfo, error) {
	f, err := owner.Feature(DebugInfo)
	if err != nil {
		return nil, err
	}
	return f.(*ClientDebugInfo), nil
}
