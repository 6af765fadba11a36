package event

import "sync"

// Delta describes one logical batch of collection changes. At least one
// of Added or Removed is non-empty for every delivered delta.
type Delta[T any] struct {
	Added   []T
	Removed []T
}

// Collection is an observable snapshot list. Mutations never happen in
// place: Apply installs a new snapshot and fires a single Delta covering
// the whole batch. Added items keep the order in which they were
// introduced.
//
// T must be comparable because membership and removal match by identity,
// which in practice means pointer types.
type Collection[T comparable] struct {
	mu      sync.RWMutex
	items   []T
	changed Emitter[Delta[T]]
}

// Items returns an immutable snapshot of the current members.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len reports the current member count.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Contains reports whether v is a current member, by identity.
func (c *Collection[T]) Contains(v T) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item == v {
			return true
		}
	}
	return false
}

// Apply installs the batch: removed members leave the snapshot, added
// members append in order. The change event fires exactly once per batch,
// after the new snapshot is visible to readers. A batch that changes
// nothing fires nothing.
func (c *Collection[T]) Apply(added, removed []T) {
	c.mu.Lock()

	var actuallyRemoved []T
	if len(removed) > 0 {
		kept := c.items[:0]
		for _, item := range c.items {
			drop := false
			for _, r := range removed {
				if item == r {
					drop = true
					break
				}
			}
			if drop {
				actuallyRemoved = append(actuallyRemoved, item)
			} else {
				kept = append(kept, item)
			}
		}
		c.items = kept
	}

	var actuallyAdded []T
	for _, a := range added {
		dup := false
		for _, item := range c.items {
			if item == a {
				dup = true
				break
			}
		}
		if !dup {
			c.items = append(c.items, a)
			actuallyAdded = append(actuallyAdded, a)
		}
	}
	c.mu.Unlock()

	if len(actuallyAdded) == 0 && len(actuallyRemoved) == 0 {
		return
	}
	c.changed.Emit(Delta[T]{Added: actuallyAdded, Removed: actuallyRemoved})
}

// OnChanged subscribes to batch change events.
func (c *Collection[T]) OnChanged(handler func(Delta[T])) Subscription {
	return c.changed.Subscribe(handler)
}

// OffChanged removes a change subscription.
func (c *Collection[T]) OffChanged(sub Subscription) {
	c.changed.Unsubscribe(sub)
}
