// Package feature implements the lazy extension registry and the
// optional capabilities layered on top of calls, agents and clients:
// recording, transcription, captions, transfer and diagnostics.
//
// Features are additive views. Constructing one never mutates the
// owner's core state; disposing the owner disposes every feature built
// from it.
package feature

import (
	"errors"
	"sync"
)

// Registry errors.
var (
	// ErrRegistryDisposed indicates the owning object was already torn
	// down.
	ErrRegistryDisposed = errors.New("feature registry has been disposed")

	// ErrUnsupportedOwner indicates the factory cannot extend this kind
	// of owner, for example asking a CallClient for call recording.
	ErrUnsupportedOwner = errors.New("feature is not supported by this owner")
)

// Feature is one constructed capability instance. Its lifetime is bound
// to the owner it was built from.
type Feature interface {
	Name() string
	Dispose()
}

// Factory builds one kind of feature. Factories are package-level
// singletons; the registry memoizes by factory identity, so asking twice
// with the same factory yields the identical instance.
type Factory interface {
	Name() string
	New(ctx Context) (Feature, error)
}

// Context captures the owning object's identity for a feature under
// construction. Exactly one owner field is meaningful per registry.
type Context struct {
	// Owner is the extended object: a *call.Call, *callkit.CallAgent or
	// *callkit.CallClient. Factories downcast it to the host interface
	// they require.
	Owner any

	// ClientID identifies the root client an owner belongs to.
	ClientID string
	// AgentID identifies the agent, when the owner is a call or agent.
	AgentID string
}

// Registry is the per-owner memoization table.
type Registry struct {
	ctx Context

	mu       sync.Mutex
	features map[Factory]Feature
	order    []Factory
	disposed bool
}

// NewRegistry creates an empty registry bound to one owner.
func NewRegistry(ctx Context) *Registry {
	return &Registry{
		ctx:      ctx,
		features: make(map[Factory]Feature),
	}
}

// Get returns the feature for the factory, constructing it on first
// request and returning the cached instance afterwards.
func (r *Registry) Get(factory Factory) (Feature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return nil, ErrRegistryDisposed
	}
	if f, ok := r.features[factory]; ok {
		return f, nil
	}

	f, err := factory.New(r.ctx)
	if err != nil {
		return nil, err
	}
	r.features[factory] = f
	r.order = append(r.order, factory)
	return f, nil
}

// Dispose tears down every constructed feature in reverse construction
// order. Disposing twice is safe.
func (r *Registry) Dispose() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	order := r.order
	features := r.features
	r.order = nil
	r.features = nil
	r.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		features[order[i]].Dispose()
	}
}
