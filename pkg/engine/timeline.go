package engine

import (
	"container/heap"
	"sync"

	"github.com/zurustar/metronome/pkg/pattern"
)

// EventKind distinguishes sounds from notifications on the timeline.
type EventKind int

const (
	// KindTrigger starts a layer's sound.
	KindTrigger EventKind = iota
	// KindNotify runs a callback.
	KindNotify
)

// Event is a pending action on the audio clock.
type Event struct {
	// At is the audio time in seconds the event is due.
	At float64

	Kind  EventKind
	Layer pattern.Layer
	Fn    func()

	seq uint64
}

type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].At != h[j].At {
		return h[i].At < h[j].At
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(Event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]
	return ev
}

// Timeline is a goroutine-safe queue of events ordered by audio time.
// Events due at the same time come out in the order they were pushed.
type Timeline struct {
	events eventHeap
	seq    uint64
	mu     sync.Mutex
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Push adds an event.
func (tl *Timeline) Push(ev Event) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.seq++
	ev.seq = tl.seq
	heap.Push(&tl.events, ev)
}

// PopDue removes and returns, in order, every event due before until.
func (tl *Timeline) PopDue(until float64) []Event {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	var due []Event
	for len(tl.events) > 0 && tl.events[0].At < until {
		due = append(due, heap.Pop(&tl.events).(Event))
	}
	return due
}

// Peek returns the earliest event without removing it.
func (tl *Timeline) Peek() (Event, bool) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if len(tl.events) == 0 {
		return Event{}, false
	}
	return tl.events[0], true
}

// Len returns the number of pending events.
func (tl *Timeline) Len() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.events)
}

// Clear drops every pending event.
func (tl *Timeline) Clear() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.events = tl.events[:0]
}
