package event

import "testing"

type member struct{ name string }

func TestCollectionApplyAddsInOrder(t *testing.T) {
	var c Collection[*member]
	a, b := &member{"a"}, &member{"b"}

	c.Apply([]*member{a, b}, nil)

	items := c.Items()
	if len(items) != 2 || items[0] != a || items[1] != b {
		t.Fatalf("unexpected snapshot: %v", items)
	}
	if !c.Contains(a) || !c.Contains(b) {
		t.Error("expected membership for both added items")
	}
}

func TestCollectionDeltaNeverEmpty(t *testing.T) {
	var c Collection[*member]
	a := &member{"a"}
	var deltas []Delta[*member]
	c.OnChanged(func(d Delta[*member]) { deltas = append(deltas, d) })

	// Nothing actually changes: no event.
	c.Apply(nil, nil)
	c.Apply(nil, []*member{a})
	if len(deltas) != 0 {
		t.Fatalf("expected no deltas for no-op batches, got %d", len(deltas))
	}

	c.Apply([]*member{a}, nil)
	c.Apply([]*member{a}, nil) // duplicate add is a no-op

	if len(deltas) != 1 {
		t.Fatalf("expected exactly one delta, got %d", len(deltas))
	}
	if len(deltas[0].Added) != 1 || len(deltas[0].Removed) != 0 {
		t.Errorf("unexpected delta: %+v", deltas[0])
	}
}

func TestCollectionBatchFiresOnce(t *testing.T) {
	var c Collection[*member]
	a, b, x := &member{"a"}, &member{"b"}, &member{"x"}
	c.Apply([]*member{x}, nil)

	var fires int
	c.OnChanged(func(d Delta[*member]) {
		fires++
		if len(d.Added) != 2 || len(d.Removed) != 1 {
			t.Errorf("unexpected delta: %+v", d)
		}
	})

	c.Apply([]*member{a, b}, []*member{x})

	if fires != 1 {
		t.Errorf("expected one event per batch, got %d", fires)
	}
}

func TestCollectionSnapshotUpdatedBeforeEvent(t *testing.T) {
	var c Collection[*member]
	a := &member{"a"}

	c.OnChanged(func(d Delta[*member]) {
		if !c.Contains(a) {
			t.Error("snapshot must include added member when the event fires")
		}
	})
	c.Apply([]*member{a}, nil)
}

// The old snapshot plus the delta always reconstructs the new snapshot.
func TestCollectionDeltaReconstructsSnapshot(t *testing.T) {
	var c Collection[*member]
	a, b, d, e := &member{"a"}, &member{"b"}, &member{"d"}, &member{"e"}
	c.Apply([]*member{a, b}, nil)

	before := c.Items()
	var delta Delta[*member]
	sub := c.OnChanged(func(got Delta[*member]) { delta = got })
	c.Apply([]*member{d, e}, []*member{a})
	c.OffChanged(sub)

	reconstructed := make(map[*member]bool)
	for _, m := range before {
		reconstructed[m] = true
	}
	for _, m := range delta.Removed {
		delete(reconstructed, m)
	}
	for _, m := range delta.Added {
		reconstructed[m] = true
	}

	after := c.Items()
	if len(reconstructed) != len(after) {
		t.Fatalf("reconstruction mismatch: %d vs %d members", len(reconstructed), len(after))
	}
	for _, m := range after {
		if !reconstructed[m] {
			t.Errorf("member %s missing from reconstruction", m.name)
		}
	}
}
