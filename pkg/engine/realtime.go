package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/zurustar/metronome/pkg/logger"
	"github.com/zurustar/metronome/pkg/pattern"
)

const (
	// DefaultBufferSize is the player buffer, and so the output latency.
	DefaultBufferSize = 40 * time.Millisecond

	// DefaultResumeTimeout bounds how long Resume waits for the audio device.
	DefaultResumeTimeout = 3 * time.Second

	readyPollInterval = 10 * time.Millisecond
)

// RealtimeOption configures a Realtime engine.
type RealtimeOption func(*Realtime)

// WithBufferSize sets the player buffer size.
func WithBufferSize(d time.Duration) RealtimeOption {
	return func(rt *Realtime) {
		if d > 0 {
			rt.bufferSize = d
		}
	}
}

// WithResumeTimeout sets how long Resume waits for the audio context.
func WithResumeTimeout(d time.Duration) RealtimeOption {
	return func(rt *Realtime) {
		if d > 0 {
			rt.resumeTimeout = d
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) RealtimeOption {
	return func(rt *Realtime) {
		if l != nil {
			rt.log = l
		}
	}
}

type notification struct {
	heardAt    time.Time
	generation uint64
	fn         func()
}

// Realtime plays through Ebitengine's audio context. The audio clock is the
// number of frames the player has pulled from the stream; notifications are
// held back by the player buffer so they fire when the beat is heard.
type Realtime struct {
	audioCtx *audio.Context
	player   *audio.Player
	stream   *Stream
	renderer *Renderer

	bufferSize    time.Duration
	resumeTimeout time.Duration
	log           *slog.Logger

	notifyCh   chan notification
	generation uint64
	stopCh     chan struct{}
	doneCh     chan struct{}

	closed bool

	mu sync.Mutex
}

// NewRealtime creates a realtime engine over bank. Ebitengine allows a single
// audio context per process, so an existing one is reused and its sample rate
// wins.
func NewRealtime(bank Bank, opts ...RealtimeOption) (*Realtime, error) {
	rt := &Realtime{
		bufferSize:    DefaultBufferSize,
		resumeTimeout: DefaultResumeTimeout,
		log:           logger.GetLogger(),
		notifyCh:      make(chan notification, 256),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(rt)
	}

	audioCtx := audio.CurrentContext()
	if audioCtx == nil {
		audioCtx = audio.NewContext(SampleRate)
	}
	rt.audioCtx = audioCtx

	rt.renderer = NewRenderer(audioCtx.SampleRate(), bank)
	rt.renderer.SetSink(rt.enqueue)
	rt.stream = NewStream(rt.renderer)

	player, err := audioCtx.NewPlayer(rt.stream)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio player: %w", err)
	}
	player.SetBufferSize(rt.bufferSize)
	rt.player = player

	go rt.dispatch()

	rt.log.Debug("Realtime engine created", "sampleRate", audioCtx.SampleRate(), "buffer", rt.bufferSize)
	return rt, nil
}

// Now returns the audio clock in seconds.
func (rt *Realtime) Now() float64 {
	return rt.renderer.Now()
}

// Resume waits for the audio context to become ready and starts the player.
func (rt *Realtime) Resume(ctx context.Context) error {
	rt.mu.Lock()
	closed := rt.closed
	rt.mu.Unlock()
	if closed {
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, ErrEngineClosed)
	}

	if !rt.audioCtx.IsReady() {
		rt.log.Debug("Waiting for audio context")
		ctx, cancel := context.WithTimeout(ctx, rt.resumeTimeout)
		defer cancel()

		ticker := time.NewTicker(readyPollInterval)
		defer ticker.Stop()
		for !rt.audioCtx.IsReady() {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrEngineUnavailable, ctx.Err())
			case <-ticker.C:
			}
		}
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, ErrEngineClosed)
	}
	if !rt.player.IsPlaying() {
		rt.player.Play()
	}
	return nil
}

// Trigger schedules a layer's sound.
func (rt *Realtime) Trigger(at float64, layer pattern.Layer) {
	rt.renderer.Trigger(at, layer)
}

// Notify schedules fn for when audio time at is heard.
func (rt *Realtime) Notify(at float64, fn func()) {
	rt.renderer.Notify(at, fn)
}

// CancelAll drops pending triggers and notifications, including those already
// rendered but not yet heard.
func (rt *Realtime) CancelAll() {
	rt.mu.Lock()
	rt.generation++
	rt.mu.Unlock()
	rt.renderer.CancelAll()
}

// RampGain ramps the output gain.
func (rt *Realtime) RampGain(db float64, over time.Duration) {
	rt.renderer.RampGain(db, over)
}

// Close stops the dispatcher and closes the player. The shared audio context
// stays alive for the next engine.
func (rt *Realtime) Close() error {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return nil
	}
	rt.closed = true
	close(rt.stopCh)
	rt.mu.Unlock()

	<-rt.doneCh

	rt.renderer.CancelAll()
	rt.stream.Stop()
	if err := rt.player.Close(); err != nil {
		return fmt.Errorf("cannot close audio player: %w", err)
	}
	rt.log.Debug("Realtime engine closed")
	return nil
}

// enqueue is the renderer sink; it runs on the audio thread and must not block.
func (rt *Realtime) enqueue(_ float64, fn func()) {
	rt.mu.Lock()
	gen := rt.generation
	closed := rt.closed
	rt.mu.Unlock()
	if closed {
		return
	}

	n := notification{heardAt: time.Now().Add(rt.bufferSize), generation: gen, fn: fn}
	select {
	case rt.notifyCh <- n:
	default:
		rt.log.Warn("Dropping visual notification, dispatcher is behind")
	}
}

// dispatch fires notifications in order once their audio has left the buffer.
func (rt *Realtime) dispatch() {
	defer close(rt.doneCh)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-rt.stopCh:
			return
		case n := <-rt.notifyCh:
			if wait := time.Until(n.heardAt); wait > 0 {
				timer.Reset(wait)
				select {
				case <-rt.stopCh:
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			rt.mu.Lock()
			current := n.generation == rt.generation
			rt.mu.Unlock()
			if current {
				n.fn()
			}
		}
	}
}
