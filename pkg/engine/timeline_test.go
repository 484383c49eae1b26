package engine

import (
	"sync"
	"testing"

	"github.com/zurustar/metronome/pkg/pattern"
)

func TestTimelineOrdersByTime(t *testing.T) {
	tl := NewTimeline()
	tl.Push(Event{At: 0.3, Layer: pattern.Click})
	tl.Push(Event{At: 0.1, Layer: pattern.Accent})
	tl.Push(Event{At: 0.2, Layer: pattern.Shaker})

	due := tl.PopDue(1)
	if len(due) != 3 {
		t.Fatalf("expected 3 events, got %d", len(due))
	}
	want := []pattern.Layer{pattern.Accent, pattern.Shaker, pattern.Click}
	for i, ev := range due {
		if ev.Layer != want[i] {
			t.Errorf("event %d: got %s, want %s", i, ev.Layer, want[i])
		}
	}
}

func TestTimelineKeepsPushOrderForEqualTimes(t *testing.T) {
	tl := NewTimeline()
	for _, l := range pattern.AllLayers {
		tl.Push(Event{At: 0.5, Layer: l})
	}

	due := tl.PopDue(0.6)
	for i, ev := range due {
		if ev.Layer != pattern.AllLayers[i] {
			t.Errorf("event %d: got %s, want %s", i, ev.Layer, pattern.AllLayers[i])
		}
	}
}

func TestTimelinePopDueIsExclusive(t *testing.T) {
	tl := NewTimeline()
	tl.Push(Event{At: 0.5})
	tl.Push(Event{At: 1.0})

	if due := tl.PopDue(0.5); len(due) != 0 {
		t.Errorf("event at the bound should not be due, got %d", len(due))
	}
	if due := tl.PopDue(0.75); len(due) != 1 {
		t.Errorf("expected 1 due event, got %d", len(due))
	}
	if tl.Len() != 1 {
		t.Errorf("expected 1 remaining event, got %d", tl.Len())
	}

	ev, ok := tl.Peek()
	if !ok || ev.At != 1.0 {
		t.Errorf("Peek = %+v, %v; want At=1.0", ev, ok)
	}
}

func TestTimelineClear(t *testing.T) {
	tl := NewTimeline()
	tl.Push(Event{At: 0.1})
	tl.Push(Event{At: 0.2})
	tl.Clear()

	if tl.Len() != 0 {
		t.Errorf("expected empty timeline, got %d", tl.Len())
	}
	if _, ok := tl.Peek(); ok {
		t.Error("Peek on empty timeline should report false")
	}
}

func TestTimelineConcurrentAccess(t *testing.T) {
	tl := NewTimeline()
	var wg sync.WaitGroup

	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tl.Push(Event{At: float64(g*100 + i)})
			}
		}(g)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			tl.PopDue(-1)
			_ = tl.Len()
		}
	}()
	wg.Wait()

	if tl.Len() != 400 {
		t.Errorf("expected 400 events, got %d", tl.Len())
	}
}
