package media

import (
	"errors"
	"testing"

	"github.com/opd-ai/callkit/engine"
)

// fakeSource is a minimal renderable feed.
type fakeSource struct {
	id        int
	available bool
}

func (f *fakeSource) StreamID() int                 { return f.id }
func (f *fakeSource) StreamType() engine.StreamType { return engine.StreamVideo }
func (f *fakeSource) IsAvailable() bool             { return f.available }

func TestCreateViewRequiresAvailableSource(t *testing.T) {
	src := &fakeSource{id: 1, available: false}
	r := NewRenderer(src)

	if _, err := r.CreateView(ScalingCrop); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}

	src.available = true
	view, err := r.CreateView(ScalingCrop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.TargetID() == "" {
		t.Error("view must carry a target identifier")
	}
	if len(r.Views()) != 1 {
		t.Errorf("expected 1 live view, got %d", len(r.Views()))
	}
}

func TestViewProperties(t *testing.T) {
	r := NewRenderer(&fakeSource{id: 1, available: true})
	view, err := r.CreateView(ScalingFit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if view.ScalingMode() != ScalingFit {
		t.Errorf("expected ScalingFit, got %v", view.ScalingMode())
	}
	if err := view.SetScalingMode(ScalingStretch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ScalingMode() != ScalingStretch {
		t.Errorf("expected ScalingStretch, got %v", view.ScalingMode())
	}

	if view.IsMirrored() {
		t.Error("views must not be mirrored by default")
	}
	if err := view.SetMirrored(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !view.IsMirrored() {
		t.Error("expected mirrored view")
	}
}

func TestViewDisposeDropsFromRenderer(t *testing.T) {
	r := NewRenderer(&fakeSource{id: 1, available: true})
	view, err := r.CreateView(ScalingCrop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view.Dispose()
	view.Dispose() // idempotent

	if len(r.Views()) != 0 {
		t.Errorf("expected no live views, got %d", len(r.Views()))
	}
	if err := view.SetScalingMode(ScalingFit); !errors.Is(err, ErrRendererDisposed) {
		t.Errorf("expected ErrRendererDisposed, got %v", err)
	}
}

func TestRendererDisposeCascades(t *testing.T) {
	r := NewRenderer(&fakeSource{id: 1, available: true})
	a, _ := r.CreateView(ScalingCrop)
	b, _ := r.CreateView(ScalingFit)

	r.Dispose()
	r.Dispose() // idempotent

	for _, view := range []*RendererView{a, b} {
		if err := view.SetMirrored(true); !errors.Is(err, ErrRendererDisposed) {
			t.Errorf("expected disposed view, got %v", err)
		}
	}
	if _, err := r.CreateView(ScalingCrop); !errors.Is(err, ErrRendererDisposed) {
		t.Errorf("expected ErrRendererDisposed, got %v", err)
	}
}
