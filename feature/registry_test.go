package feature

import (
	"errors"
	"testing"
)

type stubFeature struct {
	name     string
	disposed *[]string
}

func (f *stubFeature) Name() string { return f.name }
func (f *stubFeature) Dispose()     { *f.disposed = append(*f.disposed, f.name) }

type stubFactory struct {
	name string
	err  error
}

func (f *stubFactory) Name() string { return f.name }

func (f *stubFactory) New(ctx Context) (Feature, error) {
	if f.err != nil {
		return nil, f.err
	}
	disposed, _ := ctx.Owner.(*[]string)
	return &stubFeature{name: f.name, disposed: disposed}, nil
}

func TestRegistryMemoizes(t *testing.T) {
	var log []string
	r := NewRegistry(Context{Owner: &log})
	factory := &stubFactory{name: "alpha"}

	first, err := r.Get(factory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.Get(factory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("expected the identical cached instance on repeated Get")
	}
}

func TestRegistryConstructionErrorNotCached(t *testing.T) {
	var log []string
	r := NewRegistry(Context{Owner: &log})
	boom := errors.New("boom")
	factory := &stubFactory{name: "alpha", err: boom}

	if _, err := r.Get(factory); !errors.Is(err, boom) {
		t.Fatalf("expected construction error, got %v", err)
	}

	// The factory recovers; the registry must retry instead of caching
	// the failure.
	factory.err = nil
	if _, err := r.Get(factory); err != nil {
		t.Errorf("expected retry to succeed, got %v", err)
	}
}

func TestRegistryDisposeReverseOrder(t *testing.T) {
	var log []string
	r := NewRegistry(Context{Owner: &log})

	for _, name := range []string{"alpha", "beta", "gamma"} {
		if _, err := r.Get(&stubFactory{name: name}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	r.Dispose()
	r.Dispose() // idempotent

	want := []string{"gamma", "beta", "alpha"}
	if len(log) != len(want) {
		t.Fatalf("expected %d disposals, got %d", len(want), len(log))
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("disposal %d: expected %s, got %s", i, want[i], log[i])
		}
	}

	if _, err := r.Get(&stubFactory{name: "late"}); !errors.Is(err, ErrRegistryDisposed) {
		t.Errorf("expected ErrRegistryDisposed, got %v", err)
	}
}

func TestBuiltinFactoriesRejectForeignOwner(t *testing.T) {
	r := NewRegistry(Context{Owner: struct{}{}})

	for _, factory := range []Factory{Recording, Transcription, Captions, Transfer, Diagnostics, DebugInfo} {
		if _, err := r.Get(factory); !errors.Is(err, ErrUnsupportedOwner) {
			t.Errorf("%s: expected ErrUnsupportedOwner, got %v", factory.Name(), err)
		}
	}
}
