package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/sinshu/go-meltysynth/meltysynth"
	"github.com/zurustar/metronome/pkg/pattern"
)

// ErrSoundFontNotFound is returned when the SoundFont file cannot be found.
var ErrSoundFontNotFound = errors.New("SoundFont file not found")

// PercussionChannel is MIDI channel 10 (zero-based 9), the General MIDI drum kit.
const PercussionChannel = 9

// GMNotes maps each layer to its General MIDI percussion key.
var GMNotes = map[pattern.Layer]int32{
	pattern.Accent:    34, // Metronome Bell
	pattern.Click:     33, // Metronome Click
	pattern.Woodblock: 76, // Hi Wood Block
	pattern.Shaker:    82, // Shaker
	pattern.Triangle:  81, // Open Triangle
}

// Velocity returns the MIDI velocity used for a layer's strike.
func Velocity(layer pattern.Layer) int32 {
	if layer == pattern.Accent {
		return 127
	}
	return 100
}

// LoadSoundFont reads and parses a SoundFont (.sf2) file.
func LoadSoundFont(path string) (*meltysynth.SoundFont, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSoundFontNotFound, path)
		}
		return nil, fmt.Errorf("failed to read SoundFont file: %w", err)
	}

	soundFont, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SoundFont: %w", err)
	}
	return soundFont, nil
}

// SoundFontBank plays each layer as General MIDI percussion through a
// meltysynth synthesizer.
type SoundFontBank struct {
	synth *meltysynth.Synthesizer
}

// NewSoundFontBank creates a synthesizer for soundFont at sampleRate.
func NewSoundFontBank(soundFont *meltysynth.SoundFont, sampleRate int) (*SoundFontBank, error) {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	settings := meltysynth.NewSynthesizerSettings(int32(sampleRate))
	synth, err := meltysynth.NewSynthesizer(soundFont, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	return &SoundFontBank{synth: synth}, nil
}

// LoadSoundFontBank is LoadSoundFont followed by NewSoundFontBank.
func LoadSoundFontBank(path string, sampleRate int) (*SoundFontBank, error) {
	soundFont, err := LoadSoundFont(path)
	if err != nil {
		return nil, err
	}
	return NewSoundFontBank(soundFont, sampleRate)
}

// Strike sends a note-on for the layer's percussion key.
func (b *SoundFontBank) Strike(layer pattern.Layer) {
	key, ok := GMNotes[layer]
	if !ok {
		return
	}
	b.synth.NoteOn(PercussionChannel, key, Velocity(layer))
}

// Render renders the synthesizer output.
func (b *SoundFontBank) Render(left, right []float32) {
	b.synth.Render(left, right)
}
