package engine

import (
	"math"
	"math/rand/v2"

	"github.com/zurustar/metronome/pkg/pattern"
)

// Voice generates mono samples in the range [-1,1].
type Voice interface {
	// Sample returns the next sample and whether the voice has finished.
	Sample() (float64, bool)
}

// tone describes a struck, exponentially decaying sound: a sum of sine
// partials with optional noise.
type tone struct {
	partials []partial
	noise    float64
	decay    float64 // seconds for the envelope to fall by 1/e
	attack   float64 // seconds
	level    float64
}

type partial struct {
	freq  float64
	level float64
}

// Procedural tones for each layer.
var tones = map[pattern.Layer]tone{
	pattern.Accent: {
		partials: []partial{{1760, 1}, {3520, 0.3}},
		decay:    0.035,
		attack:   0.0005,
		level:    0.9,
	},
	pattern.Click: {
		partials: []partial{{1320, 1}, {2640, 0.2}},
		decay:    0.025,
		attack:   0.0005,
		level:    0.7,
	},
	pattern.Woodblock: {
		partials: []partial{{880, 1}, {2420, 0.45}},
		decay:    0.03,
		attack:   0.0003,
		level:    0.8,
	},
	pattern.Shaker: {
		noise:  1,
		decay:  0.04,
		attack: 0.006,
		level:  0.35,
	},
	pattern.Triangle: {
		partials: []partial{{3900, 1}, {5600, 0.5}, {8100, 0.25}},
		decay:    0.35,
		attack:   0.001,
		level:    0.3,
	},
}

// toneVoice renders one strike of a tone.
type toneVoice struct {
	t     tone
	sr    float64
	i, n  int
	phase []float64
	rng   *rand.Rand
	prev  float64
}

func newToneVoice(t tone, sampleRate int, rng *rand.Rand) *toneVoice {
	sr := float64(sampleRate)
	// Run until the envelope is 60dB down.
	n := int(t.decay * math.Log(1000) * sr)
	return &toneVoice{
		t:     t,
		sr:    sr,
		n:     n,
		phase: make([]float64, len(t.partials)),
		rng:   rng,
	}
}

func (v *toneVoice) Sample() (float64, bool) {
	if v.i >= v.n {
		return 0, true
	}
	secs := float64(v.i) / v.sr
	env := math.Exp(-secs / v.t.decay)
	if v.t.attack > 0 && secs < v.t.attack {
		env *= secs / v.t.attack
	}

	var s float64
	for k, p := range v.t.partials {
		v.phase[k] += 2 * math.Pi * p.freq / v.sr
		s += math.Sin(v.phase[k]) * p.level
	}
	if v.t.noise > 0 {
		// First difference of white noise tilts the burst toward the highs.
		n := v.rng.Float64()*2 - 1
		s += (n - v.prev) * 0.5 * v.t.noise
		v.prev = n
	}

	v.i++
	return s * env * v.t.level, false
}

// SynthBank synthesizes every layer procedurally. It needs no external
// assets and is the default bank.
type SynthBank struct {
	sampleRate int
	voices     []Voice
	rng        *rand.Rand
}

// NewSynthBank creates a procedural bank for the given sample rate.
func NewSynthBank(sampleRate int) *SynthBank {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	return &SynthBank{
		sampleRate: sampleRate,
		rng:        rand.New(rand.NewPCG(1, 2)),
	}
}

// Strike starts a new voice for layer. Unknown layers are ignored.
func (b *SynthBank) Strike(layer pattern.Layer) {
	t, ok := tones[layer]
	if !ok {
		return
	}
	b.voices = append(b.voices, newToneVoice(t, b.sampleRate, b.rng))
}

// Active returns the number of sounding voices.
func (b *SynthBank) Active() int {
	return len(b.voices)
}

// Render mixes all sounding voices into left and right.
func (b *SynthBank) Render(left, right []float32) {
	for i := range left {
		var sum float64
		for idx := 0; idx < len(b.voices); idx++ {
			val, done := b.voices[idx].Sample()
			sum += val
			if done {
				b.voices = append(b.voices[:idx], b.voices[idx+1:]...)
				idx--
			}
		}
		left[i] = float32(sum)
		right[i] = float32(sum)
	}
}
