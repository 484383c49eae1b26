package pattern

import "math"

const (
	// MinTempo and MaxTempo bound the accepted beats per minute.
	MinTempo = 40
	MaxTempo = 240

	// DefaultBeatUnit is the quarter-note beat used when a config leaves it unset.
	DefaultBeatUnit = 4

	// MinDecibels is the gain at the bottom of the linear volume scale.
	MinDecibels = -60.0
)

// BeatsPerMeasure returns the common mask length of layers, or 0 when there
// are no layers. It trusts that masks have been validated to equal length and
// reports the first one in trigger order.
func BeatsPerMeasure(layers Layers) int {
	for _, name := range layers.Names() {
		return len(layers[name])
	}
	return 0
}

// SecondsPerBeat is (60/tempo) * (4/beatUnit). A beat unit of 0 means
// DefaultBeatUnit.
func SecondsPerBeat(tempo float64, beatUnit int) float64 {
	if beatUnit <= 0 {
		beatUnit = DefaultBeatUnit
	}
	return (60 / tempo) * (4 / float64(beatUnit))
}

// WrapBeat maps any beat index into [0, beatsPerMeasure).
func WrapBeat(beat, beatsPerMeasure int) int {
	if beatsPerMeasure <= 0 {
		return 0
	}
	beat %= beatsPerMeasure
	if beat < 0 {
		beat += beatsPerMeasure
	}
	return beat
}

// DueLayers returns the layers whose mask is on at beat, in trigger order.
// The beat index wraps modulo the measure length.
func DueLayers(layers Layers, beat int) []Layer {
	n := BeatsPerMeasure(layers)
	if n == 0 {
		return nil
	}
	beat = WrapBeat(beat, n)

	var due []Layer
	for _, name := range layers.Names() {
		mask := layers[name]
		if beat < len(mask) && mask[beat] {
			due = append(due, name)
		}
	}
	return due
}

// VolumeToDecibels maps linear volume in [0,1] onto the -60dB..0dB scale.
// Zero and below is silence (-Inf); values above 1 clamp to unity.
func VolumeToDecibels(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return math.Inf(-1)
	}
	if v >= 1 {
		return 0
	}
	return MinDecibels + v*(-MinDecibels)
}

// DecibelsToGain converts decibels to a linear amplitude factor.
func DecibelsToGain(db float64) float64 {
	if math.IsInf(db, -1) {
		return 0
	}
	return math.Pow(10, db/20)
}
