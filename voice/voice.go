// Package voice defines the speech pipeline contracts: realtime
// speech-to-text, text-to-speech synthesis, voice activity detection, turn
// detection and noise cancellation. Provider implementations live in
// subpackages (deepgram, elevenlabs); the session layer only depends on the
// interfaces declared here.
package voice

import "context"

// TranscriptCallback is called when a transcript is received.
type TranscriptCallback func(transcript string, isFinal bool)

// UtteranceEndCallback is called when the user finishes speaking.
type UtteranceEndCallback func()

// SpeechToText is the contract for realtime transcription providers.
type SpeechToText interface {
	// OnTranscript sets the callback for transcriptions.
	OnTranscript(callback TranscriptCallback)

	// OnUtteranceEnd sets the callback for when the user finishes speaking.
	OnUtteranceEnd(callback UtteranceEndCallback)

	// Connect establishes the connection to the STT service.
	Connect(ctx context.Context) error

	// SendAudio sends PCM audio data to the STT service.
	SendAudio(pcmData []byte) error

	// Close closes the connection.
	Close() error

	// IsConnected returns connection status.
	IsConnected() bool
}

// TextToSpeech is the contract for speech synthesis providers. Synthesize
// returns PCM audio (signed 16-bit LE). A nil profile selects the provider's
// default voice.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string, profile *Profile) ([]byte, error)
	SynthesizeStream(ctx context.Context, text string, profile *Profile, callback AudioCallback) error
}

// AudioCallback is called with PCM audio chunks.
type AudioCallback func(pcmData []byte)

// VAD detects voice activity in raw PCM frames.
type VAD interface {
	// ProcessChunk reports whether the frame contains speech.
	ProcessChunk(pcm []byte) bool
}

// TurnDetector decides when the user's conversational turn has ended based
// on the VAD signal over time.
type TurnDetector interface {
	// Observe feeds one VAD decision; it returns true exactly once per turn,
	// when enough trailing silence has accumulated after speech.
	Observe(speech bool) (endOfTurn bool)

	// Reset clears accumulated state, e.g. when the agent starts speaking.
	Reset()
}

// NoiseCanceller filters inbound PCM frames before they reach the STT
// provider. Implementations must return a frame of the same length.
type NoiseCanceller interface {
	Process(pcm []byte) []byte
}

// Profile carries the per-role synthesis settings. Each role can speak with
// its own voice; the session passes the active role's profile to the TTS
// provider on every synthesis call.
type Profile struct {
	VoiceID         string  // Provider voice identifier
	Stability       float64 // 0..1, higher is more monotone
	SimilarityBoost float64 // 0..1
	Style           float64 // 0..1, expressiveness
	SpeakerBoost    bool
	Speed           float64 // 1.0 is normal speed
}

// DefaultProfile returns a neutral synthesis profile.
func DefaultProfile() Profile {
	return Profile{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Speed:           1.0,
	}
}
