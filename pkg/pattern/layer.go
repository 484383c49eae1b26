// Package pattern holds the metronome's beat patterns and the pure timing math
// derived from them: beats per measure, seconds per beat, which layers sound on
// a beat, and the linear-volume to gain mapping.
package pattern

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Layer names one sound layer of a pattern.
type Layer string

const (
	Accent    Layer = "accent"
	Click     Layer = "click"
	Woodblock Layer = "woodblock"
	Shaker    Layer = "shaker"
	Triangle  Layer = "triangle"
)

// AllLayers lists every layer in trigger order.
var AllLayers = []Layer{Accent, Click, Woodblock, Shaker, Triangle}

// Valid reports whether l is one of the known layers.
func (l Layer) Valid() bool {
	for _, known := range AllLayers {
		if l == known {
			return true
		}
	}
	return false
}

// Mask is a beat mask: one entry per beat of the measure.
type Mask []bool

// ParseMask parses a step string such as "x..x.x..".
// 'x', 'X' and '1' are hits; '.', '-', '_' and '0' are rests; whitespace and
// '|' bar separators are ignored.
func ParseMask(steps string) (Mask, error) {
	mask := make(Mask, 0, len(steps))
	for i, r := range steps {
		switch r {
		case 'x', 'X', '1':
			mask = append(mask, true)
		case '.', '-', '_', '0':
			mask = append(mask, false)
		case ' ', '\t', '|':
		default:
			return nil, fmt.Errorf("invalid step %q at position %d in %q", r, i, steps)
		}
	}
	return mask, nil
}

// MustParseMask is ParseMask for literals; it panics on malformed input.
func MustParseMask(steps string) Mask {
	m, err := ParseMask(steps)
	if err != nil {
		panic(err)
	}
	return m
}

// String renders the mask as a step string.
func (m Mask) String() string {
	var b strings.Builder
	for _, on := range m {
		if on {
			b.WriteByte('x')
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// Hits returns the number of active beats.
func (m Mask) Hits() int {
	n := 0
	for _, on := range m {
		if on {
			n++
		}
	}
	return n
}

// UnmarshalYAML accepts either a step string or a sequence of booleans.
func (m *Mask) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := ParseMask(value.Value)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case yaml.SequenceNode:
		var beats []bool
		if err := value.Decode(&beats); err != nil {
			return err
		}
		*m = beats
		return nil
	default:
		return fmt.Errorf("line %d: beat mask must be a step string or a list of booleans", value.Line)
	}
}

// MarshalYAML writes the mask as a step string.
func (m Mask) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// UnmarshalJSON accepts either a step string or an array of booleans.
func (m *Mask) UnmarshalJSON(data []byte) error {
	var steps string
	if err := json.Unmarshal(data, &steps); err == nil {
		parsed, err := ParseMask(steps)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	var beats []bool
	if err := json.Unmarshal(data, &beats); err != nil {
		return fmt.Errorf("beat mask must be a step string or an array of booleans: %w", err)
	}
	*m = beats
	return nil
}

// MarshalJSON writes the mask as a step string.
func (m Mask) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// Layers maps each active layer to its beat mask.
type Layers map[Layer]Mask

// Clone returns a deep copy.
func (ls Layers) Clone() Layers {
	if ls == nil {
		return nil
	}
	out := make(Layers, len(ls))
	for name, mask := range ls {
		out[name] = append(Mask(nil), mask...)
	}
	return out
}

// Names returns the layers present, in trigger order. Unknown names are
// appended last in map order.
func (ls Layers) Names() []Layer {
	names := make([]Layer, 0, len(ls))
	for _, l := range AllLayers {
		if _, ok := ls[l]; ok {
			names = append(names, l)
		}
	}
	for l := range ls {
		if !l.Valid() {
			names = append(names, l)
		}
	}
	return names
}
