package voice

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func pcmFrame(amplitude int16, samples int) []byte {
	buf := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(amplitude))
	}
	return buf
}

func TestEnergyVAD_DetectsSpeechAndSilence(t *testing.T) {
	vad := NewEnergyVAD()

	assert.True(t, vad.ProcessChunk(pcmFrame(8000, 160)))
	assert.False(t, vad.ProcessChunk(pcmFrame(50, 160)))
	assert.False(t, vad.ProcessChunk(nil))
}

func TestEnergyVAD_ThresholdOption(t *testing.T) {
	strict := NewEnergyVAD(func(o *EnergyVADOptions) { o.Threshold = 0.9 })
	assert.False(t, strict.ProcessChunk(pcmFrame(8000, 160)))
}

func TestSilenceTurnDetector_FiresOncePerTurn(t *testing.T) {
	now := time.Unix(0, 0)
	det := NewSilenceTurnDetector(func(o *SilenceTurnDetectorOptions) {
		o.MinSilence = 500 * time.Millisecond
		o.Clock = func() time.Time { return now }
	})

	// Ambient silence before any speech never ends a turn.
	assert.False(t, det.Observe(false))
	now = now.Add(time.Second)
	assert.False(t, det.Observe(false))

	// Speech, then accumulating silence.
	assert.False(t, det.Observe(true))
	assert.False(t, det.Observe(false)) // starts the silence window
	now = now.Add(600 * time.Millisecond)
	assert.True(t, det.Observe(false))

	// Fires exactly once.
	now = now.Add(time.Second)
	assert.False(t, det.Observe(false))

	// New speech arms it again.
	assert.False(t, det.Observe(true))
	assert.False(t, det.Observe(false))
	now = now.Add(time.Second)
	assert.True(t, det.Observe(false))
}

func TestSilenceTurnDetector_Reset(t *testing.T) {
	now := time.Unix(0, 0)
	det := NewSilenceTurnDetector(func(o *SilenceTurnDetectorOptions) {
		o.MinSilence = 100 * time.Millisecond
		o.Clock = func() time.Time { return now }
	})

	det.Observe(true)
	det.Reset()

	det.Observe(false)
	now = now.Add(time.Second)
	assert.False(t, det.Observe(false), "reset must clear the spoke flag")
}

func TestPassthroughNoiseCanceller(t *testing.T) {
	frame := pcmFrame(1234, 8)
	out := PassthroughNoiseCanceller{}.Process(frame)
	assert.Equal(t, frame, out)
}
