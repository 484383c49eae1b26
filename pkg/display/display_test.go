package display

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/zurustar/metronome/pkg/pattern"
)

func TestLine(t *testing.T) {
	layers := pattern.Layers{
		pattern.Accent: pattern.MustParseMask("x..."),
		pattern.Click:  pattern.MustParseMask(".x.x"),
	}
	d := New(&bytes.Buffer{}, layers)

	tests := []struct {
		name   string
		beat   int
		layers []pattern.Layer
		want   string
	}{
		{"downbeat", 0, []pattern.Layer{pattern.Accent}, "▶●·●  1 Accent"},
		{"offbeat", 1, []pattern.Layer{pattern.Click}, "●▶·●  2 Click"},
		{"rest", 2, nil, "●●▶●  3 "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Line(tt.beat, tt.layers); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLineTitleCasesLayers(t *testing.T) {
	d := New(&bytes.Buffer{}, pattern.Simple(120, 1, 2, false).Layers)
	got := d.Line(0, []pattern.Layer{pattern.Woodblock, pattern.Triangle})
	if !strings.HasSuffix(got, "Woodblock Triangle") {
		t.Errorf("Line() = %q, want title-cased layer names", got)
	}
}

func TestBeatWritesLines(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf, pattern.Simple(120, 1, 3, true).Layers)

	d.Beat(0, []pattern.Layer{pattern.Accent})
	d.Beat(1, []pattern.Layer{pattern.Click})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q, want 2", lines)
	}
	if !strings.Contains(lines[0], "1 Accent") || !strings.Contains(lines[1], "2 Click") {
		t.Errorf("lines = %q", lines)
	}
	if d.Count() != 2 {
		t.Errorf("Count() = %d, want 2", d.Count())
	}
}

func TestSetLayers(t *testing.T) {
	d := New(&bytes.Buffer{}, pattern.Simple(120, 1, 4, false).Layers)
	d.SetLayers(pattern.Layers{pattern.Shaker: pattern.MustParseMask("x.")})

	if got := d.Line(1, nil); !strings.HasPrefix(got, "●▶") {
		t.Errorf("Line() = %q, want the two-step pattern", got)
	}
}

func TestBeatConcurrent(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf, pattern.Simple(120, 1, 4, false).Layers)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				d.Beat((i+j)%4, []pattern.Layer{pattern.Click})
			}
		}(i)
	}
	wg.Wait()

	if d.Count() != 80 {
		t.Errorf("Count() = %d, want 80", d.Count())
	}
	if n := strings.Count(buf.String(), "\n"); n != 80 {
		t.Errorf("lines = %d, want 80", n)
	}
}
