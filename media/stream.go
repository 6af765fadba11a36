// Package media holds the outbound media source bindings and the
// renderer contract. No frames pass through this package; streams are
// device bindings and renderer views are opaque targets filled in by the
// engine.
package media

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/opd-ai/callkit/engine"
)

// Stream binding errors.
var (
	// ErrStreamDisposed indicates the stream was already disposed.
	ErrStreamDisposed = errors.New("local stream has been disposed")

	// ErrNoSwitchTarget indicates SwitchSource was called on a stream
	// that is not attached to an active call.
	ErrNoSwitchTarget = errors.New("stream is not attached to a call")
)

// DeviceSource is the camera or microphone a local stream captures from.
type DeviceSource struct {
	ID   string
	Name string
}

// LocalVideoStream binds one camera (or a raw engine track) as an
// outbound video source. A stream instance may be attached to at most
// one in-flight call action at a time; stopping video requires the same
// instance that started it.
type LocalVideoStream struct {
	id         string
	streamType engine.StreamType

	mu       sync.RWMutex
	source   DeviceSource
	track    engine.Track
	switcher func(ctx context.Context, deviceID string) error
	disposed bool
}

// NewLocalVideoStream creates a video stream backed by a camera.
func NewLocalVideoStream(source DeviceSource) *LocalVideoStream {
	return &LocalVideoStream{
		id:         uuid.NewString(),
		streamType: engine.StreamVideo,
		source:     source,
	}
}

// NewRawLocalVideoStream creates a video stream backed by an opaque
// engine track, for sources the device catalog does not know about.
func NewRawLocalVideoStream(track engine.Track) *LocalVideoStream {
	return &LocalVideoStream{
		id:         uuid.NewString(),
		streamType: engine.StreamVideo,
		source:     DeviceSource{ID: track.ID()},
		track:      track,
	}
}

// ID returns the stream's stable identifier.
func (s *LocalVideoStream) ID() string { return s.id }

// MediaStreamType reports what this stream carries.
func (s *LocalVideoStream) MediaStreamType() engine.StreamType { return s.streamType }

// Source returns the device currently backing the stream.
func (s *LocalVideoStream) Source() DeviceSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Track returns the opaque engine track, or nil for device-backed
// streams.
func (s *LocalVideoStream) Track() engine.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.track
}

// SwitchSource retargets the stream onto another camera. When the stream
// is attached to an active call the engine switches mid-call; a failed
// switch leaves the previous source in place.
func (s *LocalVideoStream) SwitchSource(ctx context.Context, source DeviceSource) error {
	s.mu.RLock()
	if s.disposed {
		s.mu.RUnlock()
		return ErrStreamDisposed
	}
	switcher := s.switcher
	s.mu.RUnlock()

	if switcher != nil {
		if err := switcher(ctx, source.ID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.source = source
	s.mu.Unlock()
	return nil
}

// Attach installs the mid-call switch hook. It is invoked by the call
// that starts sending this stream; applications have no reason to call
// it.
func (s *LocalVideoStream) Attach(switcher func(ctx context.Context, deviceID string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switcher = switcher
}

// Detach removes the mid-call switch hook.
func (s *LocalVideoStream) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switcher = nil
}

// Dispose releases the stream. Disposing twice is safe.
func (s *LocalVideoStream) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	s.switcher = nil
	if s.track != nil {
		s.track.Close()
	}
}

// LocalAudioStream binds one microphone as an outbound audio source.
type LocalAudioStream struct {
	id string

	mu       sync.RWMutex
	source   DeviceSource
	track    engine.Track
	disposed bool
}

// NewLocalAudioStream creates an audio stream backed by a microphone.
func NewLocalAudioStream(source DeviceSource) *LocalAudioStream {
	return &LocalAudioStream{
		id:     uuid.NewString(),
		source: source,
	}
}

// NewRawLocalAudioStream creates an audio stream backed by an opaque
// engine track.
func NewRawLocalAudioStream(track engine.Track) *LocalAudioStream {
	return &LocalAudioStream{
		id:     uuid.NewString(),
		source: DeviceSource{ID: track.ID()},
		track:  track,
	}
}

// ID returns the stream's stable identifier.
func (s *LocalAudioStream) ID() string { return s.id }

// Source returns the device currently backing the stream.
func (s *LocalAudioStream) Source() DeviceSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Dispose releases the stream. Disposing twice is safe.
func (s *LocalAudioStream) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	if s.track != nil {
		s.track.Close()
	}
}
