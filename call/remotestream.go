package call

import (
	"sync"

	"github.com/opd-ai/callkit/engine"
	"github.com/opd-ai/callkit/event"
)

// StreamSize is the pixel dimensions of an inbound feed.
type StreamSize struct {
	Width  int
	Height int
}

// RemoteVideoStream is one inbound video or screen-share feed. It
// satisfies media.VideoSource, so it can be handed straight to a
// renderer.
type RemoteVideoStream struct {
	id         int
	streamType engine.StreamType

	mu        sync.RWMutex
	available bool
	size      StreamSize

	availableChanged event.Emitter[bool]
	sizeChanged      event.Emitter[StreamSize]
}

func newRemoteVideoStream(info engine.StreamInfo) *RemoteVideoStream {
	return &RemoteVideoStream{
		id:         info.ID,
		streamType: info.Type,
		available:  info.Available,
		size:       StreamSize{Width: info.Width, Height: info.Height},
	}
}

// StreamID returns the engine-scoped feed identifier.
func (s *RemoteVideoStream) StreamID() int { return s.id }

// StreamType reports whether this is camera video or screen sharing.
func (s *RemoteVideoStream) StreamType() engine.StreamType { return s.streamType }

// IsAvailable reports whether frames are currently flowing.
func (s *RemoteVideoStream) IsAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.available
}

// Size returns the current frame dimensions.
func (s *RemoteVideoStream) Size() StreamSize {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// OnIsAvailableChanged subscribes to availability flips.
func (s *RemoteVideoStream) OnIsAvailableChanged(handler func(bool)) event.Subscription {
	return s.availableChanged.Subscribe(handler)
}

// OffIsAvailableChanged removes an availability subscription.
func (s *RemoteVideoStream) OffIsAvailableChanged(sub event.Subscription) {
	s.availableChanged.Unsubscribe(sub)
}

// OnSizeChanged subscribes to resolution changes.
func (s *RemoteVideoStream) OnSizeChanged(handler func(StreamSize)) event.Subscription {
	return s.sizeChanged.Subscribe(handler)
}

// OffSizeChanged removes a resolution subscription.
func (s *RemoteVideoStream) OffSizeChanged(sub event.Subscription) {
	s.sizeChanged.Unsubscribe(sub)
}

func (s *RemoteVideoStream) apply(info engine.StreamInfo) {
	newSize := StreamSize{Width: info.Width, Height: info.Height}

	s.mu.Lock()
	availableChanged := s.available != info.Available
	sizeChanged := info.Width > 0 && s.size != newSize
	s.available = info.Available
	if info.Width > 0 {
		s.size = newSize
	}
	s.mu.Unlock()

	if availableChanged {
		s.availableChanged.Emit(info.Available)
	}
	if sizeChanged {
		s.sizeChanged.Emit(newSize)
	}
}
