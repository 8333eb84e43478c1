// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the credentials and tuning knobs the voice agent needs.
type Config struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string

	DeepgramAPIKey   string
	ElevenLabsAPIKey string
	ElevenVoiceID    string

	OpenAIModel    string
	AnthropicModel string

	RoomURL string

	Language     string
	SampleRate   int
	MaxToolSteps int
	TurnSilence  time.Duration
}

// Load reads .env (when present) and the environment. A missing .env file is
// not an error; real environment variables always win because godotenv does
// not overwrite existing keys.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),

		DeepgramAPIKey:   getEnv("DEEPGRAM_API_KEY", ""),
		ElevenLabsAPIKey: getEnv("ELEVENLABS_API_KEY", ""),
		ElevenVoiceID:    getEnv("ELEVEN_VOICE_ID", ""),

		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicModel: getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),

		RoomURL: getEnv("ROOM_URL", "ws://localhost:8080/room"),

		Language:     getEnv("AGENT_LANGUAGE", "es"),
		SampleRate:   getEnvInt("AUDIO_SAMPLE_RATE", 48000),
		MaxToolSteps: getEnvInt("MAX_TOOL_STEPS", 5),
		TurnSilence:  getEnvDuration("TURN_SILENCE", 700*time.Millisecond),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks internal consistency; credential presence is checked by
// the callers that need each provider.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be > 0")
	}
	if c.MaxToolSteps <= 0 {
		return fmt.Errorf("MAX_TOOL_STEPS must be > 0")
	}
	if c.TurnSilence <= 0 {
		return fmt.Errorf("TURN_SILENCE must be > 0")
	}
	return nil
}

// RequireVoice errors unless both speech providers are configured.
func (c *Config) RequireVoice() error {
	if c.DeepgramAPIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	if c.ElevenLabsAPIKey == "" {
		return fmt.Errorf("ELEVENLABS_API_KEY is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
