// Package room moves audio between the caller and the agent: a websocket
// transport carrying binary PCM frames plus JSON control events, and the
// input pipeline that turns inbound audio into conversation turns.
package room

import (
	"context"

	"github.com/magalia-labs/voicemesh/voice"
)

// Event is a JSON control message exchanged over the room transport. Binary
// websocket frames carry PCM audio; text frames carry one Event each.
type Event struct {
	Type     string `json:"type"` // "join", "peer_joined", "peer_left", "transcript"
	Room     string `json:"room,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Text     string `json:"text,omitempty"`  // transcript payload
	Role     string `json:"role,omitempty"`  // speaking role for transcripts
	Final    bool   `json:"final,omitempty"` // interim vs final transcript
}

// Event types.
const (
	EventJoin       = "join"
	EventPeerJoined = "peer_joined"
	EventPeerLeft   = "peer_left"
	EventTranscript = "transcript"
)

// Transport is the bidirectional audio/event channel to the caller.
type Transport interface {
	// Join connects and enters the named room.
	Join(ctx context.Context, room string) error

	// SendAudio sends one PCM frame to the room.
	SendAudio(pcm []byte) error

	// SendEvent sends one control event to the room.
	SendEvent(ev Event) error

	// OnAudio sets the callback for inbound PCM frames.
	OnAudio(callback func(pcm []byte))

	// OnEvent sets the callback for inbound control events.
	OnEvent(callback func(ev Event))

	// Close leaves the room and tears the connection down.
	Close() error
}

// InputOptions configure how inbound room audio is conditioned before it
// reaches the STT provider.
type InputOptions struct {
	// NoiseCanceller filters each frame; nil means no filtering.
	NoiseCanceller voice.NoiseCanceller

	// VAD plus TurnDetector provide local end-of-turn detection as a
	// fallback for providers without utterance events. Both must be set
	// together to take effect.
	VAD          voice.VAD
	TurnDetector voice.TurnDetector
}

// OutputOptions configure what flows back to the room besides audio.
type OutputOptions struct {
	// TranscriptionEnabled mirrors assistant replies as transcript events,
	// letting clients render captions.
	TranscriptionEnabled bool
}
