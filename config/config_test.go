package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, "es", cfg.Language)
	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, 5, cfg.MaxToolSteps)
	assert.Equal(t, 700*time.Millisecond, cfg.TurnSilence)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("AGENT_LANGUAGE", "en")
	t.Setenv("MAX_TOOL_STEPS", "3")
	t.Setenv("TURN_SILENCE", "1s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, 3, cfg.MaxToolSteps)
	assert.Equal(t, time.Second, cfg.TurnSilence)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("AUDIO_SAMPLE_RATE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 48000, cfg.SampleRate)
}

func TestLoad_RejectsNonPositive(t *testing.T) {
	t.Setenv("MAX_TOOL_STEPS", "0")

	_, err := Load()
	require.Error(t, err)
}

func TestRequireVoice(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.RequireVoice())

	cfg.DeepgramAPIKey = "dg"
	require.Error(t, cfg.RequireVoice())

	cfg.ElevenLabsAPIKey = "el"
	require.NoError(t, cfg.RequireVoice())
}
