// Package export writes patterns out as Standard MIDI Files and as rendered
// WAV audio.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/zurustar/metronome/pkg/engine"
	"github.com/zurustar/metronome/pkg/pattern"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// TicksPerQuarter is the MIDI file resolution.
const TicksPerQuarter = 960

// ErrInvalidMeasures is returned for a measure count below one.
var ErrInvalidMeasures = errors.New("measures must be at least 1")

// ticksPerBeat returns the length of one beat of the given unit in ticks.
func ticksPerBeat(beatUnit int) uint32 {
	if beatUnit <= 0 {
		beatUnit = pattern.DefaultBeatUnit
	}
	return uint32(TicksPerQuarter * 4 / beatUnit)
}

// velocity scales a layer's strike velocity by volume, keeping audible hits
// above zero so they stay note-ons.
func velocity(layer pattern.Layer, volume float64) uint8 {
	v := math.Round(float64(engine.Velocity(layer)) * volume)
	return uint8(max(1, min(127, v)))
}

// WriteMIDI writes measures repetitions of cfg to w as a format 1 Standard
// MIDI File: a tempo track and one General MIDI percussion track.
func WriteMIDI(w io.Writer, name string, cfg pattern.Config, measures int) error {
	if err := pattern.Validate(cfg); err != nil {
		return err
	}
	if measures < 1 {
		return ErrInvalidMeasures
	}
	beats := cfg.BeatsPerMeasure()
	if beats > math.MaxUint8 {
		return fmt.Errorf("cannot express %d beats per measure as a MIDI meter", beats)
	}

	unit := cfg.EffectiveBeatUnit()
	tpb := ticksPerBeat(unit)
	noteLen := tpb / 4
	total := uint32(measures*beats) * tpb

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var tempoTrack smf.Track
	if name != "" {
		tempoTrack.Add(0, smf.MetaTrackSequenceName(name))
	}
	tempoTrack.Add(0, smf.MetaMeter(uint8(beats), uint8(unit)))
	tempoTrack.Add(0, smf.MetaTempo(float64(cfg.Tempo)))
	tempoTrack.Close(total)
	if err := sm.Add(tempoTrack); err != nil {
		return fmt.Errorf("error adding tempo track: %w", err)
	}

	var drums smf.Track
	drums.Add(0, smf.MetaTrackSequenceName("metronome"))
	var last uint32
	for beat := 0; beat < measures*beats; beat++ {
		due := pattern.DueLayers(cfg.Layers, beat)
		if len(due) == 0 {
			continue
		}
		pos := uint32(beat) * tpb

		delta := pos - last
		for _, layer := range due {
			drums.Add(delta, midi.NoteOn(engine.PercussionChannel, uint8(engine.GMNotes[layer]), velocity(layer, cfg.Volume)))
			delta = 0
		}
		delta = noteLen
		for _, layer := range due {
			drums.Add(delta, midi.NoteOff(engine.PercussionChannel, uint8(engine.GMNotes[layer])))
			delta = 0
		}
		last = pos + noteLen
	}
	drums.Close(total - last)
	if err := sm.Add(drums); err != nil {
		return fmt.Errorf("error adding percussion track: %w", err)
	}

	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}

// SaveMIDI writes the MIDI file to path.
func SaveMIDI(path, name string, cfg pattern.Config, measures int) (rerr error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create MIDI file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("cannot close MIDI file: %w", err)
		}
	}()
	return WriteMIDI(f, name, cfg, measures)
}
