// Package elevenlabs implements voice.TextToSpeech over the ElevenLabs HTTP
// API. Output is signed 16-bit LE PCM at 22050Hz mono (pcm_22050).
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/magalia-labs/voicemesh/logging"
	"github.com/magalia-labs/voicemesh/voice"
)

const apiURL = "https://api.elevenlabs.io/v1"

// Options configure the ElevenLabs client.
type Options struct {
	VoiceID    string // fallback voice when the profile does not name one
	Model      string // e.g. "eleven_turbo_v2_5"
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client is an ElevenLabs TTS client.
type Client struct {
	apiKey  string
	voiceID string
	model   string
	client  *http.Client
	logger  logging.Logger
}

var _ voice.TextToSpeech = (*Client)(nil)

// NewClient creates a new ElevenLabs client.
func NewClient(apiKey string, optFns ...func(o *Options)) *Client {
	opts := Options{
		VoiceID:    "21m00Tcm4TlvDq8ikWAM", // Rachel - default voice
		Model:      "eleven_turbo_v2_5",
		HTTPClient: &http.Client{},
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		apiKey:  apiKey,
		voiceID: opts.VoiceID,
		model:   opts.Model,
		client:  opts.HTTPClient,
		logger:  opts.Logger,
	}
}

// ttsRequest is the request body for text-to-speech.
type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
	Speed           float64 `json:"speed"`
}

// resolve maps a per-role profile onto concrete request settings, falling
// back to client defaults where the profile leaves fields unset.
func (c *Client) resolve(profile *voice.Profile) (string, voiceSettings) {
	p := voice.DefaultProfile()
	if profile != nil {
		p = *profile
	}
	voiceID := c.voiceID
	if p.VoiceID != "" {
		voiceID = p.VoiceID
	}
	if p.Speed == 0 {
		p.Speed = 1.0
	}
	return voiceID, voiceSettings{
		Stability:       p.Stability,
		SimilarityBoost: p.SimilarityBoost,
		Style:           p.Style,
		UseSpeakerBoost: p.SpeakerBoost,
		Speed:           p.Speed,
	}
}

func (c *Client) newRequest(ctx context.Context, url, text string, settings voiceSettings) (*http.Request, error) {
	reqBody := ttsRequest{
		Text:          text,
		ModelID:       c.model,
		VoiceSettings: settings,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	return req, nil
}

// Synthesize converts text to speech and returns PCM audio.
func (c *Client) Synthesize(ctx context.Context, text string, profile *voice.Profile) ([]byte, error) {
	voiceID, settings := c.resolve(profile)

	// output_format must be a query parameter, not in the body
	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=pcm_22050", apiURL, voiceID)

	req, err := c.newRequest(ctx, url, text, settings)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	pcmData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("tts.synthesized",
		"provider", "elevenlabs",
		"voice_id", voiceID,
		"bytes", len(pcmData),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return pcmData, nil
}

// SynthesizeStream converts text to speech and streams PCM audio chunks.
func (c *Client) SynthesizeStream(ctx context.Context, text string, profile *voice.Profile, callback voice.AudioCallback) error {
	voiceID, settings := c.resolve(profile)

	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=pcm_22050", apiURL, voiceID)

	req, err := c.newRequest(ctx, url, text, settings)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			// Copy the chunk; callbacks may retain it past the next read.
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			callback(chunk)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read error: %w", err)
		}
	}

	return nil
}
