package media

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/opd-ai/callkit/engine"
)

// Renderer errors.
var (
	// ErrSourceUnavailable indicates the stream has no live feed to
	// render right now.
	ErrSourceUnavailable = errors.New("video source is not available")

	// ErrRendererDisposed indicates the renderer was already disposed.
	ErrRendererDisposed = errors.New("renderer has been disposed")
)

// VideoSource is anything a renderer can draw: remote video streams and
// screen shares satisfy it.
type VideoSource interface {
	StreamID() int
	StreamType() engine.StreamType
	IsAvailable() bool
}

// ScalingMode controls how a view fits its target surface.
type ScalingMode int

const (
	// ScalingCrop fills the target, cropping overflow.
	ScalingCrop ScalingMode = iota
	// ScalingFit letterboxes to show the whole frame.
	ScalingFit
	// ScalingStretch distorts to fill the target exactly.
	ScalingStretch
)

// Renderer produces views of one video source. The actual pixel pipeline
// lives in the engine; views here are opaque targets the host UI embeds.
type Renderer struct {
	source VideoSource

	mu       sync.Mutex
	views    []*RendererView
	disposed bool
}

// NewRenderer creates a renderer for the given source.
func NewRenderer(source VideoSource) *Renderer {
	return &Renderer{source: source}
}

// Source returns the rendered video source.
func (r *Renderer) Source() VideoSource { return r.source }

// CreateView materializes a new view of the source. It fails when the
// source currently has no live feed.
func (r *Renderer) CreateView(mode ScalingMode) (*RendererView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return nil, ErrRendererDisposed
	}
	if !r.source.IsAvailable() {
		return nil, ErrSourceUnavailable
	}

	view := &RendererView{
		id:       uuid.NewString(),
		renderer: r,
		mode:     mode,
	}
	r.views = append(r.views, view)
	return view, nil
}

// Views returns a snapshot of the live views.
func (r *Renderer) Views() []*RendererView {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*RendererView, len(r.views))
	copy(out, r.views)
	return out
}

// Dispose tears down the renderer and every view it created. Disposing
// twice is safe.
func (r *Renderer) Dispose() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	views := r.views
	r.views = nil
	r.mu.Unlock()

	for _, v := range views {
		v.markDisposed()
	}
}

func (r *Renderer) dropView(view *RendererView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.views {
		if v == view {
			r.views = append(r.views[:i], r.views[i+1:]...)
			return
		}
	}
}

// RendererView is one opaque render target. The host embeds it by ID;
// the engine fills it with frames.
type RendererView struct {
	id       string
	renderer *Renderer

	mu       sync.Mutex
	mode     ScalingMode
	mirrored bool
	disposed bool
}

// TargetID returns the opaque identifier the host UI binds to.
func (v *RendererView) TargetID() string { return v.id }

// ScalingMode returns the current fit mode.
func (v *RendererView) ScalingMode() ScalingMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

// SetScalingMode changes the fit mode of a live view.
func (v *RendererView) SetScalingMode(mode ScalingMode) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return ErrRendererDisposed
	}
	v.mode = mode
	return nil
}

// IsMirrored reports whether the view flips horizontally.
func (v *RendererView) IsMirrored() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mirrored
}

// SetMirrored toggles horizontal flip, typically for self view.
func (v *RendererView) SetMirrored(mirrored bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return ErrRendererDisposed
	}
	v.mirrored = mirrored
	return nil
}

// Dispose releases the view. Disposing twice is safe.
func (v *RendererView) Dispose() {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	v.disposed = true
	v.mu.Unlock()
	v.renderer.dropView(v)
}

func (v *RendererView) markDisposed() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disposed = true
}
