package pattern

// Config is the per-session configuration handed to the scheduler on start.
type Config struct {
	// Tempo in beats per minute.
	Tempo int `json:"tempo" yaml:"tempo"`

	// Volume is linear, 0 (silent) to 1 (unity gain).
	Volume float64 `json:"volume" yaml:"volume"`

	// BeatUnit is the time-signature denominator; 0 means DefaultBeatUnit.
	BeatUnit int `json:"beatUnit,omitempty" yaml:"beatUnit,omitempty"`

	// Layers holds one beat mask per active layer.
	Layers Layers `json:"layers" yaml:"layers"`

	// NotifyEveryBeat makes the visual callback fire on every beat, including
	// beats where no layer sounds.
	NotifyEveryBeat bool `json:"notifyEveryBeat,omitempty" yaml:"notifyEveryBeat,omitempty"`
}

// EffectiveBeatUnit returns BeatUnit, or DefaultBeatUnit when unset.
func (c Config) EffectiveBeatUnit() int {
	if c.BeatUnit <= 0 {
		return DefaultBeatUnit
	}
	return c.BeatUnit
}

// BeatsPerMeasure returns the measure length defined by the layer masks.
func (c Config) BeatsPerMeasure() int {
	return BeatsPerMeasure(c.Layers)
}

// SecondsPerBeat returns the inter-beat interval at the configured tempo.
func (c Config) SecondsPerBeat() float64 {
	return SecondsPerBeat(float64(c.Tempo), c.BeatUnit)
}

// Clone returns a copy that shares no masks with c.
func (c Config) Clone() Config {
	c.Layers = c.Layers.Clone()
	return c
}

// Simple builds the single-sound metronome: a click on every beat, with the
// first beat swapped for the accent when accentFirst is set. The visual
// callback fires on every beat.
func Simple(tempo int, volume float64, beatsPerMeasure int, accentFirst bool) Config {
	click := make(Mask, beatsPerMeasure)
	accent := make(Mask, beatsPerMeasure)
	for i := range click {
		click[i] = true
	}
	if accentFirst && beatsPerMeasure > 0 {
		click[0] = false
		accent[0] = true
	}

	layers := Layers{Click: click}
	if accentFirst {
		layers[Accent] = accent
	}

	return Config{
		Tempo:           tempo,
		Volume:          volume,
		BeatUnit:        DefaultBeatUnit,
		Layers:          layers,
		NotifyEveryBeat: true,
	}
}
