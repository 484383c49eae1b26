// Package display prints a line per beat for the terminal metronome.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/zurustar/metronome/pkg/pattern"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Step symbols.
const (
	StepEmpty    = '·'
	StepActive   = '●'
	StepPlayhead = '▶'
)

// Display writes each beat as a step row followed by the beat number and the
// layers that sounded. It is safe for concurrent use, and Beat has the
// signature of scheduler.VisualFunc.
type Display struct {
	w      io.Writer
	layers pattern.Layers
	count  int

	title    cases.Caser
	dim      lipgloss.Style
	active   lipgloss.Style
	playhead lipgloss.Style
	accent   lipgloss.Style
	label    lipgloss.Style

	mu sync.Mutex
}

// New creates a display writing to w for the given pattern. Colors are used
// only when w is a terminal.
func New(w io.Writer, layers pattern.Layers) *Display {
	r := lipgloss.NewRenderer(w)
	return &Display{
		w:        w,
		layers:   layers.Clone(),
		title:    cases.Title(language.English),
		dim:      r.NewStyle().Foreground(lipgloss.Color("#555")),
		active:   r.NewStyle().Foreground(lipgloss.Color("#fff")),
		playhead: r.NewStyle().Reverse(true),
		accent:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f87")),
		label:    r.NewStyle().Foreground(lipgloss.Color("#888")),
	}
}

// SetLayers replaces the pattern shown in the step row.
func (d *Display) SetLayers(layers pattern.Layers) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layers = layers.Clone()
}

// Beat prints the line for one beat.
func (d *Display) Beat(beat int, layers []pattern.Layer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.count++
	fmt.Fprintln(d.w, d.line(beat, layers))
}

// Count returns the number of beats printed.
func (d *Display) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Line renders the line for one beat without printing it.
func (d *Display) Line(beat int, layers []pattern.Layer) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.line(beat, layers)
}

func (d *Display) line(beat int, layers []pattern.Layer) string {
	n := pattern.BeatsPerMeasure(d.layers)

	var steps strings.Builder
	for i := 0; i < n; i++ {
		switch {
		case i == beat:
			steps.WriteString(d.playhead.Render(string(StepPlayhead)))
		case len(pattern.DueLayers(d.layers, i)) > 0:
			steps.WriteString(d.active.Render(string(StepActive)))
		default:
			steps.WriteString(d.dim.Render(string(StepEmpty)))
		}
	}

	number := fmt.Sprintf("%2d", beat+1)
	accented := false
	names := make([]string, 0, len(layers))
	for _, l := range layers {
		if l == pattern.Accent {
			accented = true
		}
		names = append(names, d.title.String(string(l)))
	}
	if accented {
		number = d.accent.Render(number)
	}

	return fmt.Sprintf("%s %s %s", steps.String(), number, d.label.Render(strings.Join(names, " ")))
}
