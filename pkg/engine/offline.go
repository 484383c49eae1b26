package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zurustar/metronome/pkg/pattern"
)

// Offline is an engine whose clock moves only when Render or Advance is
// called. Notifications run on the rendering goroutine.
type Offline struct {
	renderer *Renderer
	scratchL []float32
	scratchR []float32
	closed   bool
	mu       sync.Mutex
}

// NewOffline creates an offline engine.
func NewOffline(sampleRate int, bank Bank) *Offline {
	return &Offline{renderer: NewRenderer(sampleRate, bank)}
}

// Renderer exposes the underlying renderer.
func (o *Offline) Renderer() *Renderer {
	return o.renderer
}

// Now returns the audio clock in seconds.
func (o *Offline) Now() float64 {
	return o.renderer.Now()
}

// Resume fails only after Close; an offline clock is never suspended.
func (o *Offline) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, ErrEngineClosed)
	}
	return nil
}

// Trigger schedules a layer's sound.
func (o *Offline) Trigger(at float64, layer pattern.Layer) {
	o.renderer.Trigger(at, layer)
}

// Notify schedules fn.
func (o *Offline) Notify(at float64, fn func()) {
	o.renderer.Notify(at, fn)
}

// CancelAll drops pending events.
func (o *Offline) CancelAll() {
	o.renderer.CancelAll()
}

// RampGain ramps the output gain.
func (o *Offline) RampGain(db float64, over time.Duration) {
	o.renderer.RampGain(db, over)
}

// Render renders the next len(left) frames into left and right.
func (o *Offline) Render(left, right []float32) {
	o.renderer.Render(left, right)
}

// Advance renders d worth of audio and discards it.
func (o *Offline) Advance(d time.Duration) {
	o.AdvanceFrames(int(d.Seconds() * float64(o.renderer.SampleRate())))
}

// AdvanceFrames renders n frames and discards them.
func (o *Offline) AdvanceFrames(n int) {
	if n <= 0 {
		return
	}
	o.mu.Lock()
	if cap(o.scratchL) < n {
		o.scratchL = make([]float32, n)
		o.scratchR = make([]float32, n)
	}
	left, right := o.scratchL[:n], o.scratchR[:n]
	o.mu.Unlock()

	o.renderer.Render(left, right)
}

// Close marks the engine closed and drops pending events.
func (o *Offline) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.renderer.CancelAll()
	return nil
}

// DefaultPaceInterval is how often a Paced engine catches its clock up with
// the wall clock.
const DefaultPaceInterval = 5 * time.Millisecond

// Paced drives an offline renderer from the wall clock and throws the audio
// away. It lets the metronome run, visuals included, where no audio device
// exists.
type Paced struct {
	*Offline

	interval time.Duration
	started  time.Time
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
}

// NewPaced creates a paced engine. The clock stays at zero until Resume.
func NewPaced(sampleRate int, bank Bank) *Paced {
	return &Paced{
		Offline:  NewOffline(sampleRate, bank),
		interval: DefaultPaceInterval,
	}
}

// Resume starts pacing the clock on the first call.
func (p *Paced) Resume(ctx context.Context) error {
	if err := p.Offline.Resume(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	p.running = true
	p.started = time.Now().Add(-time.Duration(p.Now() * float64(time.Second)))
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.run(p.stopCh, p.doneCh)
	return nil
}

func (p *Paced) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	sr := float64(p.renderer.SampleRate())
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			target := int64(time.Since(p.started).Seconds() * sr)
			if behind := target - p.renderer.Frames(); behind > 0 {
				p.AdvanceFrames(int(behind))
			}
		}
	}
}

// Close stops pacing and closes the renderer.
func (p *Paced) Close() error {
	p.mu.Lock()
	running := p.running
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	if running {
		close(stopCh)
		<-doneCh
	}
	return p.Offline.Close()
}
