package call

import (
	"sync"

	"github.com/opd-ai/callkit/engine"
	"github.com/opd-ai/callkit/event"
	"github.com/opd-ai/callkit/identifier"
)

// ParticipantState is a remote party's position within the call.
type ParticipantState int

const (
	// ParticipantIdle means the invite has not gone out yet.
	ParticipantIdle ParticipantState = iota
	// ParticipantConnecting means the party is being connected.
	ParticipantConnecting
	// ParticipantRinging means the party is being alerted.
	ParticipantRinging
	// ParticipantInLobby means the party waits for moderated entry.
	ParticipantInLobby
	// ParticipantConnected means the party is in the call.
	ParticipantConnected
	// ParticipantHold means the party put their leg on hold.
	ParticipantHold
	// ParticipantDisconnected means the party left or was removed.
	ParticipantDisconnected
)

// String returns the state name.
func (s ParticipantState) String() string {
	switch s {
	case ParticipantIdle:
		return "Idle"
	case ParticipantConnecting:
		return "Connecting"
	case ParticipantRinging:
		return "Ringing"
	case ParticipantInLobby:
		return "InLobby"
	case ParticipantConnected:
		return "Connected"
	case ParticipantHold:
		return "Hold"
	case ParticipantDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

func participantStateFromPhase(p engine.ParticipantPhase) ParticipantState {
	switch p {
	case engine.ParticipantConnecting:
		return ParticipantConnecting
	case engine.ParticipantRinging:
		return ParticipantRinging
	case engine.ParticipantInLobby:
		return ParticipantInLobby
	case engine.ParticipantConnected:
		return ParticipantConnected
	case engine.ParticipantHold:
		return ParticipantHold
	case engine.ParticipantDisconnected:
		return ParticipantDisconnected
	default:
		return ParticipantIdle
	}
}

// RemoteParticipant is one other party in a call. All properties are
// snapshots maintained from engine pushes; each change event fires after
// the property it describes has been updated.
type RemoteParticipant struct {
	rawID string
	id    identifier.Identifier

	mu          sync.RWMutex
	displayName string
	state       ParticipantState
	muted       bool
	speaking    bool
	streamsByID map[int]*RemoteVideoStream

	stateChanged       event.Emitter[ParticipantState]
	mutedChanged       event.Emitter[bool]
	speakingChanged    event.Emitter[bool]
	displayNameChanged event.Emitter[string]
	videoStreams       event.Collection[*RemoteVideoStream]
}

func newRemoteParticipant(info engine.ParticipantInfo) *RemoteParticipant {
	return &RemoteParticipant{
		rawID:       info.RawID,
		id:          identifier.FromRawID(info.RawID),
		displayName: info.DisplayName,
		state:       participantStateFromPhase(info.Phase),
		muted:       info.Muted,
		speaking:    info.Speaking,
		streamsByID: make(map[int]*RemoteVideoStream),
	}
}

// Identifier returns the party's tagged identity.
func (p *RemoteParticipant) Identifier() identifier.Identifier { return p.id }

// DisplayName returns the party's current display name.
func (p *RemoteParticipant) DisplayName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.displayName
}

// State returns the party's position within the call.
func (p *RemoteParticipant) State() ParticipantState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// IsMuted reports whether the party's outgoing audio is muted.
func (p *RemoteParticipant) IsMuted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.muted
}

// IsSpeaking reports whether the party is actively speaking.
func (p *RemoteParticipant) IsSpeaking() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.speaking
}

// VideoStreams returns a snapshot of the party's inbound feeds.
func (p *RemoteParticipant) VideoStreams() []*RemoteVideoStream {
	return p.videoStreams.Items()
}

// OnStateChanged subscribes to participant state transitions.
func (p *RemoteParticipant) OnStateChanged(handler func(ParticipantState)) event.Subscription {
	return p.stateChanged.Subscribe(handler)
}

// OffStateChanged removes a state subscription.
func (p *RemoteParticipant) OffStateChanged(sub event.Subscription) {
	p.stateChanged.Unsubscribe(sub)
}

// OnIsMutedChanged subscribes to the party's mute changes.
func (p *RemoteParticipant) OnIsMutedChanged(handler func(bool)) event.Subscription {
	return p.mutedChanged.Subscribe(handler)
}

// OffIsMutedChanged removes a mute subscription.
func (p *RemoteParticipant) OffIsMutedChanged(sub event.Subscription) {
	p.mutedChanged.Unsubscribe(sub)
}

// OnIsSpeakingChanged subscribes to speech activity changes.
func (p *RemoteParticipant) OnIsSpeakingChanged(handler func(bool)) event.Subscription {
	return p.speakingChanged.Subscribe(handler)
}

// OffIsSpeakingChanged removes a speech activity subscription.
func (p *RemoteParticipant) OffIsSpeakingChanged(sub event.Subscription) {
	p.speakingChanged.Unsubscribe(sub)
}

// OnDisplayNameChanged subscribes to display name changes.
func (p *RemoteParticipant) OnDisplayNameChanged(handler func(string)) event.Subscription {
	return p.displayNameChanged.Subscribe(handler)
}

// OffDisplayNameChanged removes a display name subscription.
func (p *RemoteParticipant) OffDisplayNameChanged(sub event.Subscription) {
	p.displayNameChanged.Unsubscribe(sub)
}

// OnVideoStreamsUpdated subscribes to inbound feed batches.
func (p *RemoteParticipant) OnVideoStreamsUpdated(handler func(event.Delta[*RemoteVideoStream])) event.Subscription {
	return p.videoStreams.OnChanged(handler)
}

// OffVideoStreamsUpdated removes an inbound feed subscription.
func (p *RemoteParticipant) OffVideoStreamsUpdated(sub event.Subscription) {
	p.videoStreams.OffChanged(sub)
}

// apply merges the engine's view, firing one event per property that
// actually changed.
func (p *RemoteParticipant) apply(info engine.ParticipantInfo) {
	newState := participantStateFromPhase(info.Phase)

	p.mu.Lock()
	stateChanged := p.state != newState
	mutedChanged := p.muted != info.Muted
	speakingChanged := p.speaking != info.Speaking
	nameChanged := info.DisplayName != "" && p.displayName != info.DisplayName

	p.state = newState
	p.muted = info.Muted
	p.speaking = info.Speaking
	if info.DisplayName != "" {
		p.displayName = info.DisplayName
	}
	name := p.displayName
	p.mu.Unlock()

	if stateChanged {
		p.stateChanged.Emit(newState)
	}
	if mutedChanged {
		p.mutedChanged.Emit(info.Muted)
	}
	if speakingChanged {
		p.speakingChanged.Emit(info.Speaking)
	}
	if nameChanged {
		p.displayNameChanged.Emit(name)
	}
}

func (p *RemoteParticipant) markDisconnected() {
	p.mu.Lock()
	changed := p.state != ParticipantDisconnected
	p.state = ParticipantDisconnected
	p.mu.Unlock()
	if changed {
		p.stateChanged.Emit(ParticipantDisconnected)
	}
}

func (p *RemoteParticipant) applyStreamAdded(info engine.StreamInfo) {
	p.mu.Lock()
	if _, exists := p.streamsByID[info.ID]; exists {
		p.mu.Unlock()
		return
	}
	s := newRemoteVideoStream(info)
	p.streamsByID[info.ID] = s
	p.mu.Unlock()

	p.videoStreams.Apply([]*RemoteVideoStream{s}, nil)
}

func (p *RemoteParticipant) applyStreamChanged(info engine.StreamInfo) {
	p.mu.RLock()
	s := p.streamsByID[info.ID]
	p.mu.RUnlock()
	if s != nil {
		s.apply(info)
	}
}

func (p *RemoteParticipant) applyStreamRemoved(streamID int) {
	p.mu.Lock()
	s, exists := p.streamsByID[streamID]
	if exists {
		delete(p.streamsByID, streamID)
	}
	p.mu.Unlock()
	if !exists {
		return
	}

	s.apply(engine.StreamInfo{ID: streamID, Type: s.streamType, Available: false})
	p.videoStreams.Apply(nil, []*RemoteVideoStream{s})
}
