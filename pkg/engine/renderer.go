package engine

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zurustar/metronome/pkg/pattern"
)

// Bank produces the sound for each layer. Strike starts a layer at the current
// render position; Render writes the next len(left) frames of every sounding
// voice. Renderer serializes all calls.
type Bank interface {
	Strike(layer pattern.Layer)
	Render(left, right []float32)
}

// Renderer is the sample-accurate core shared by every engine. It owns the
// frame clock, the timeline of pending events and the output gain.
//
// Render starts each trigger on the frame it is due and hands each due
// notification to the sink once the block that contains it has been rendered.
type Renderer struct {
	sampleRate int
	frames     atomic.Int64

	timeline *Timeline
	bank     Bank

	// gain ramps linearly from gainFrom to gainTo between rampStart and rampEnd.
	gainFrom  float64
	gainTo    float64
	rampStart int64
	rampEnd   int64

	sink func(at float64, fn func())

	mu sync.Mutex
}

// NewRenderer creates a renderer at unity gain.
func NewRenderer(sampleRate int, bank Bank) *Renderer {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	return &Renderer{
		sampleRate: sampleRate,
		timeline:   NewTimeline(),
		bank:       bank,
		gainFrom:   1,
		gainTo:     1,
	}
}

// SetSink sets the function that receives due notifications. A nil sink runs
// them directly.
func (r *Renderer) SetSink(sink func(at float64, fn func())) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
}

// SampleRate returns the renderer's sample rate.
func (r *Renderer) SampleRate() int {
	return r.sampleRate
}

// Frames returns the number of frames rendered so far.
func (r *Renderer) Frames() int64 {
	return r.frames.Load()
}

// Now returns the audio clock in seconds.
func (r *Renderer) Now() float64 {
	return float64(r.frames.Load()) / float64(r.sampleRate)
}

// Trigger schedules a layer's sound.
func (r *Renderer) Trigger(at float64, layer pattern.Layer) {
	r.timeline.Push(Event{At: at, Kind: KindTrigger, Layer: layer})
}

// Notify schedules a callback.
func (r *Renderer) Notify(at float64, fn func()) {
	if fn == nil {
		return
	}
	r.timeline.Push(Event{At: at, Kind: KindNotify, Fn: fn})
}

// CancelAll drops pending events. Voices already sounding ring out.
func (r *Renderer) CancelAll() {
	r.timeline.Clear()
}

// Pending returns the number of events not yet rendered.
func (r *Renderer) Pending() int {
	return r.timeline.Len()
}

// RampGain starts a linear ramp from the current gain to db decibels.
func (r *Renderer) RampGain(db float64, over time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.frames.Load()
	current := r.gainAt(now)
	target := pattern.DecibelsToGain(db)

	length := int64(over.Seconds() * float64(r.sampleRate))
	r.gainFrom = current
	r.gainTo = target
	r.rampStart = now
	r.rampEnd = now + length
}

// Gain returns the output gain at the current frame.
func (r *Renderer) Gain() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gainAt(r.frames.Load())
}

// gainAt must be called with r.mu held.
func (r *Renderer) gainAt(frame int64) float64 {
	if frame >= r.rampEnd || r.rampEnd <= r.rampStart {
		return r.gainTo
	}
	if frame <= r.rampStart {
		return r.gainFrom
	}
	t := float64(frame-r.rampStart) / float64(r.rampEnd-r.rampStart)
	return r.gainFrom + (r.gainTo-r.gainFrom)*t
}

// Render writes the next len(left) frames. left and right must have equal
// length.
func (r *Renderer) Render(left, right []float32) {
	n := len(left)
	if n == 0 {
		return
	}

	r.mu.Lock()

	start := r.frames.Load()
	end := start + int64(n)
	due := r.timeline.PopDue(float64(end) / float64(r.sampleRate))

	var notes []Event
	pos := 0
	for _, ev := range due {
		offset := int(math.Ceil(ev.At*float64(r.sampleRate))) - int(start)
		if offset < 0 {
			offset = 0
		}
		if offset > n {
			offset = n
		}
		if offset > pos {
			r.renderBank(left[pos:offset], right[pos:offset])
			pos = offset
		}
		switch ev.Kind {
		case KindTrigger:
			if r.bank != nil {
				r.bank.Strike(ev.Layer)
			}
		case KindNotify:
			notes = append(notes, ev)
		}
	}
	if pos < n {
		r.renderBank(left[pos:], right[pos:])
	}

	r.applyGain(left, right, start)
	r.frames.Store(end)
	sink := r.sink

	r.mu.Unlock()

	for _, ev := range notes {
		if sink != nil {
			sink(ev.At, ev.Fn)
		} else {
			ev.Fn()
		}
	}
}

func (r *Renderer) renderBank(left, right []float32) {
	if r.bank == nil {
		clear(left)
		clear(right)
		return
	}
	r.bank.Render(left, right)
}

// applyGain must be called with r.mu held.
func (r *Renderer) applyGain(left, right []float32, start int64) {
	for i := range left {
		g := float32(r.gainAt(start + int64(i)))
		left[i] = clamp(left[i]*g, -1, 1)
		right[i] = clamp(right[i]*g, -1, 1)
	}
}

// clamp restricts a value to the range [min, max].
func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
