// Package event provides the subscription primitives shared by every
// observable object in the SDK: a typed multi-listener emitter and a
// snapshot collection with batched change notification.
//
// Delivery is synchronous and ordered per emitter: handlers run on the
// goroutine that mutated the owning object, after the owning property has
// already been updated, in subscription order. There is no cross-emitter
// ordering guarantee.
package event

import "sync"

// Subscription identifies one registered handler. Unsubscribing requires
// the token returned at registration; handlers themselves are not
// comparable in Go.
type Subscription struct {
	id uint64
}

// Emitter dispatches values of type T to subscribed handlers.
//
// The zero value is ready to use. Emitter is safe for concurrent use;
// handlers are invoked without the internal lock held, so a handler may
// subscribe or unsubscribe re-entrantly.
type Emitter[T any] struct {
	mu       sync.Mutex
	nextID   uint64
	order    []uint64
	handlers map[uint64]func(T)
}

// Subscribe registers a handler and returns its subscription token.
func (e *Emitter[T]) Subscribe(handler func(T)) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[uint64]func(T))
	}
	e.nextID++
	id := e.nextID
	e.handlers[id] = handler
	e.order = append(e.order, id)
	return Subscription{id: id}
}

// Unsubscribe removes the handler registered under sub. Unknown or
// already-removed tokens are ignored.
func (e *Emitter[T]) Unsubscribe(sub Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.handlers[sub.id]; !ok {
		return
	}
	delete(e.handlers, sub.id)
	for i, id := range e.order {
		if id == sub.id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Emit invokes every subscribed handler with v, in subscription order.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	snapshot := make([]func(T), 0, len(e.order))
	for _, id := range e.order {
		if h, ok := e.handlers[id]; ok {
			snapshot = append(snapshot, h)
		}
	}
	e.mu.Unlock()

	for _, h := range snapshot {
		h(v)
	}
}

// Len reports the number of active subscriptions.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}
