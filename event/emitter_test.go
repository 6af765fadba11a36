package event

import "testing"

func TestEmitterDeliversInSubscriptionOrder(t *testing.T) {
	var e Emitter[int]
	var got []string

	e.Subscribe(func(v int) { got = append(got, "first") })
	e.Subscribe(func(v int) { got = append(got, "second") })
	e.Subscribe(func(v int) { got = append(got, "third") })

	e.Emit(1)

	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delivery %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestEmitterUnsubscribe(t *testing.T) {
	var e Emitter[string]
	var calls int

	sub := e.Subscribe(func(string) { calls++ })
	keep := e.Subscribe(func(string) { calls++ })

	e.Unsubscribe(sub)
	e.Emit("x")

	if calls != 1 {
		t.Errorf("expected 1 delivery after unsubscribe, got %d", calls)
	}
	if e.Len() != 1 {
		t.Errorf("expected 1 active subscription, got %d", e.Len())
	}

	// Unknown and repeated tokens are ignored.
	e.Unsubscribe(sub)
	e.Unsubscribe(Subscription{})
	e.Unsubscribe(keep)
	if e.Len() != 0 {
		t.Errorf("expected 0 active subscriptions, got %d", e.Len())
	}
}

func TestEmitterSameHandlerTwice(t *testing.T) {
	var e Emitter[int]
	var calls int
	handler := func(int) { calls++ }

	first := e.Subscribe(handler)
	e.Subscribe(handler)

	e.Emit(0)
	if calls != 2 {
		t.Fatalf("expected both registrations to fire, got %d", calls)
	}

	// Tokens identify registrations, not functions.
	e.Unsubscribe(first)
	calls = 0
	e.Emit(0)
	if calls != 1 {
		t.Errorf("expected 1 delivery after removing one registration, got %d", calls)
	}
}

func TestEmitterReentrantUnsubscribe(t *testing.T) {
	var e Emitter[int]
	var calls int

	var sub Subscription
	sub = e.Subscribe(func(int) {
		calls++
		e.Unsubscribe(sub)
	})

	e.Emit(1)
	e.Emit(2)

	if calls != 1 {
		t.Errorf("expected self-removing handler to fire once, got %d", calls)
	}
}
