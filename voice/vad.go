package voice

import (
	"encoding/binary"
	"math"
	"time"
)

// EnergyVADOptions configure the energy based voice activity detector.
type EnergyVADOptions struct {
	// Threshold is the RMS amplitude (0..1, relative to int16 full scale)
	// above which a frame counts as speech.
	Threshold float64
}

// EnergyVAD is a lightweight VAD over signed 16-bit LE PCM frames. It
// computes the RMS energy of each frame and compares it against a fixed
// threshold. Good enough for push-to-talk style pipelines where the STT
// provider does the heavy lifting; swap in a model-based detector for noisy
// environments.
type EnergyVAD struct {
	threshold float64
}

var _ VAD = (*EnergyVAD)(nil)

// NewEnergyVAD constructs an EnergyVAD with a default threshold of 0.015.
func NewEnergyVAD(optFns ...func(o *EnergyVADOptions)) *EnergyVAD {
	opts := EnergyVADOptions{
		Threshold: 0.015,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &EnergyVAD{threshold: opts.Threshold}
}

// ProcessChunk implements VAD. Odd trailing bytes are ignored.
func (v *EnergyVAD) ProcessChunk(pcm []byte) bool {
	n := len(pcm) / 2
	if n == 0 {
		return false
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		f := float64(s) / math.MaxInt16
		sum += f * f
	}
	rms := math.Sqrt(sum / float64(n))
	return rms >= v.threshold
}

// SilenceTurnDetectorOptions configure the silence based turn detector.
type SilenceTurnDetectorOptions struct {
	// MinSilence is the trailing silence required after speech before the
	// turn is considered finished.
	MinSilence time.Duration

	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// SilenceTurnDetector ends the user's turn after a fixed window of silence
// following detected speech. It never signals end-of-turn before speech has
// been observed, so ambient silence at session start does not trigger empty
// turns.
type SilenceTurnDetector struct {
	minSilence time.Duration
	clock      func() time.Time

	spoke        bool
	silenceSince time.Time
	fired        bool
}

var _ TurnDetector = (*SilenceTurnDetector)(nil)

// NewSilenceTurnDetector constructs a SilenceTurnDetector with a default
// window of 700ms.
func NewSilenceTurnDetector(optFns ...func(o *SilenceTurnDetectorOptions)) *SilenceTurnDetector {
	opts := SilenceTurnDetectorOptions{
		MinSilence: 700 * time.Millisecond,
		Clock:      time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SilenceTurnDetector{minSilence: opts.MinSilence, clock: opts.Clock}
}

// Observe implements TurnDetector.
func (d *SilenceTurnDetector) Observe(speech bool) bool {
	now := d.clock()
	if speech {
		d.spoke = true
		d.fired = false
		d.silenceSince = time.Time{}
		return false
	}
	if !d.spoke || d.fired {
		return false
	}
	if d.silenceSince.IsZero() {
		d.silenceSince = now
		return false
	}
	if now.Sub(d.silenceSince) >= d.minSilence {
		d.fired = true
		return true
	}
	return false
}

// Reset implements TurnDetector.
func (d *SilenceTurnDetector) Reset() {
	d.spoke = false
	d.fired = false
	d.silenceSince = time.Time{}
}

// PassthroughNoiseCanceller returns frames unchanged. It stands in where a
// real canceller (e.g. a BVC-style model) is not configured.
type PassthroughNoiseCanceller struct{}

var _ NoiseCanceller = PassthroughNoiseCanceller{}

// Process implements NoiseCanceller.
func (PassthroughNoiseCanceller) Process(pcm []byte) []byte { return pcm }
