// Package scheduler turns a tempo and a beat pattern into sounds scheduled
// ahead of time on an engine's audio clock.
//
// A wake loop runs every WakeInterval. Each pass commits every beat that falls
// inside the lookahead window, so timer jitter never reaches the audible
// output: the engine starts each sound on its exact frame, and the visual
// callback is scheduled against the same audio timestamp.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zurustar/metronome/pkg/engine"
	"github.com/zurustar/metronome/pkg/logger"
	"github.com/zurustar/metronome/pkg/pattern"
)

const (
	// DefaultLookahead is how far past the audio clock each pass schedules.
	DefaultLookahead = 100 * time.Millisecond

	// DefaultWakeInterval is the period of the wake loop.
	DefaultWakeInterval = 25 * time.Millisecond

	// TempoRamp is the audio time over which a tempo change glides.
	TempoRamp = 100 * time.Millisecond

	// VolumeRamp is the duration of a gain change.
	VolumeRamp = 50 * time.Millisecond
)

// VisualFunc is called once per beat, in step with the audio, with the beat
// index and the layers that sounded on it.
type VisualFunc func(beat int, layers []pattern.Layer)

// State is a snapshot of the scheduler's runtime state.
type State struct {
	Beat          int
	NextEventTime float64
	Running       bool
	Tempo         float64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLookahead sets the lookahead window.
func WithLookahead(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.lookahead = d
		}
	}
}

// WithWakeInterval sets the wake loop period.
func WithWakeInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.wakeInterval = d
		}
	}
}

// WithLogger sets the scheduler's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithManualWake disables the wake goroutine. The caller drives scheduling by
// calling Wake, typically between blocks of offline rendering.
func WithManualWake() Option {
	return func(s *Scheduler) {
		s.manual = true
	}
}

// Scheduler is the lookahead scheduler. It owns its engine: Dispose closes it.
// All methods are safe for concurrent use.
type Scheduler struct {
	engine       engine.Engine
	lookahead    time.Duration
	wakeInterval time.Duration
	manual       bool
	log          *slog.Logger

	// Guarded by mu.
	cfg           pattern.Config
	visual        VisualFunc
	beat          int
	nextEventTime float64
	running       bool
	disposed      bool
	stopCh        chan struct{}
	doneCh        chan struct{}

	// The tempo glides linearly from tempoFrom to tempoTo between audio times
	// rampStart and rampEnd.
	tempoFrom float64
	tempoTo   float64
	rampStart float64
	rampEnd   float64

	mu sync.Mutex

	// control serializes Start, Stop and Dispose. It is held across
	// Engine.Resume and while waiting for the wake goroutine, neither of
	// which may happen under mu.
	control sync.Mutex
}

// New creates a scheduler over eng.
//
// Parameters:
//   - eng: The engine that provides the audio clock and plays the sounds
//   - opts: Options overriding the lookahead, wake interval, logger or wake mode
//
// Returns:
//   - *Scheduler: A stopped scheduler
func New(eng engine.Engine, opts ...Option) *Scheduler {
	s := &Scheduler{
		engine:       eng,
		lookahead:    DefaultLookahead,
		wakeInterval: DefaultWakeInterval,
		log:          logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins playing cfg. Any previous run is stopped first, so calling
// Start twice is the same as Stop followed by Start.
//
// Start validates cfg, applies its volume and tempo, and resumes the engine.
// When the engine cannot resume, the error wraps engine.ErrEngineUnavailable
// and the scheduler stays stopped. Otherwise the first pass has already been
// scheduled when Start returns.
//
// Parameters:
//   - ctx: Bounds how long Start waits for the engine to resume
//   - cfg: The pattern to play
//   - visual: Optional callback for each beat (may be nil)
func (s *Scheduler) Start(ctx context.Context, cfg pattern.Config, visual VisualFunc) error {
	if err := pattern.Validate(cfg); err != nil {
		return err
	}

	s.control.Lock()
	defer s.control.Unlock()

	s.stopLocked()

	s.mu.Lock()
	s.cfg = cfg.Clone()
	s.visual = visual
	s.beat = 0
	s.nextEventTime = 0
	tempo := float64(cfg.Tempo)
	s.tempoFrom, s.tempoTo = tempo, tempo
	s.rampStart, s.rampEnd = 0, 0
	s.mu.Unlock()

	s.engine.RampGain(pattern.VolumeToDecibels(cfg.Volume), VolumeRamp)

	if err := s.engine.Resume(ctx); err != nil {
		s.log.Warn("Audio engine did not resume", "error", err)
		return fmt.Errorf("cannot start metronome: %w", err)
	}

	s.mu.Lock()
	s.nextEventTime = s.engine.Now()
	s.running = true
	if !s.manual {
		s.stopCh = make(chan struct{})
		s.doneCh = make(chan struct{})
		go s.run(s.stopCh, s.doneCh)
	}
	s.fill()
	s.mu.Unlock()

	s.log.Info("Metronome started",
		"tempo", cfg.Tempo,
		"beatUnit", cfg.EffectiveBeatUnit(),
		"beatsPerMeasure", cfg.BeatsPerMeasure(),
		"layers", len(cfg.Layers))
	return nil
}

// run is the wake loop.
func (s *Scheduler) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.wakeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.Wake()
		}
	}
}

// Wake runs one scheduling pass. It does nothing unless the scheduler is
// running.
func (s *Scheduler) Wake() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fill()
}

// fill schedules every beat due before the end of the lookahead window. It
// must be called with s.mu held.
func (s *Scheduler) fill() {
	if !s.running {
		return
	}
	beats := pattern.BeatsPerMeasure(s.cfg.Layers)
	if beats == 0 {
		return
	}

	horizon := s.engine.Now() + s.lookahead.Seconds()
	for s.nextEventTime < horizon {
		at := s.nextEventTime
		layers := pattern.DueLayers(s.cfg.Layers, s.beat)
		for _, layer := range layers {
			s.engine.Trigger(at, layer)
		}
		if s.visual != nil && (len(layers) > 0 || s.cfg.NotifyEveryBeat) {
			visual, beat := s.visual, s.beat
			s.engine.Notify(at, func() { visual(beat, layers) })
		}

		s.beat = (s.beat + 1) % beats
		s.nextEventTime += pattern.SecondsPerBeat(s.tempoAt(at), s.cfg.BeatUnit)
	}
}

// tempoAt returns the tempo in effect at audio time t. It must be called with
// s.mu held.
func (s *Scheduler) tempoAt(t float64) float64 {
	if t >= s.rampEnd || s.rampEnd <= s.rampStart {
		return s.tempoTo
	}
	if t <= s.rampStart {
		return s.tempoFrom
	}
	f := (t - s.rampStart) / (s.rampEnd - s.rampStart)
	return s.tempoFrom + (s.tempoTo-s.tempoFrom)*f
}

// Stop cancels the wake loop and every scheduled but unplayed event, and
// resets the beat cursor. Stopping a stopped scheduler does nothing.
func (s *Scheduler) Stop() {
	s.control.Lock()
	defer s.control.Unlock()
	s.stopLocked()
}

// stopLocked must be called with s.control held.
func (s *Scheduler) stopLocked() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	s.engine.CancelAll()

	s.mu.Lock()
	s.beat = 0
	s.nextEventTime = 0
	s.mu.Unlock()

	s.log.Info("Metronome stopped")
}

// SetTempo changes the tempo. The change glides over TempoRamp of audio time
// and only affects beats scheduled after the call.
func (s *Scheduler) SetTempo(bpm int) error {
	if err := pattern.ValidateTempo(bpm); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := float64(bpm)
	s.cfg.Tempo = bpm
	if !s.running {
		s.tempoFrom, s.tempoTo = target, target
		s.rampStart, s.rampEnd = 0, 0
		return nil
	}

	now := s.engine.Now()
	s.tempoFrom = s.tempoAt(now)
	s.tempoTo = target
	s.rampStart = now
	s.rampEnd = now + TempoRamp.Seconds()
	s.log.Debug("Tempo changed", "from", s.tempoFrom, "to", bpm)
	return nil
}

// SetVolume maps v in [0,1] onto the -60dB..0dB scale and ramps the engine
// gain to it over VolumeRamp. Zero is silence.
func (s *Scheduler) SetVolume(v float64) error {
	if err := pattern.ValidateVolume(v); err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg.Volume = v
	s.mu.Unlock()

	s.engine.RampGain(pattern.VolumeToDecibels(v), VolumeRamp)
	return nil
}

// SetPatterns replaces the beat masks without interrupting playback. The
// measure length becomes the new mask length and the cursor wraps into it at
// once.
func (s *Scheduler) SetPatterns(layers pattern.Layers) error {
	if err := pattern.ValidateLayers(layers); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Layers = layers.Clone()
	s.beat = pattern.WrapBeat(s.beat, pattern.BeatsPerMeasure(s.cfg.Layers))
	s.log.Debug("Patterns replaced", "layers", len(layers), "beatsPerMeasure", pattern.BeatsPerMeasure(layers))
	return nil
}

// IsPlaying returns whether the scheduler is running.
func (s *Scheduler) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Config returns a copy of the active configuration, including any tempo,
// volume or pattern changes made since Start.
func (s *Scheduler) Config() pattern.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// Snapshot returns the current runtime state.
func (s *Scheduler) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	tempo := s.tempoTo
	if s.running {
		tempo = s.tempoAt(s.engine.Now())
	}
	return State{
		Beat:          s.beat,
		NextEventTime: s.nextEventTime,
		Running:       s.running,
		Tempo:         tempo,
	}
}

// Dispose stops the scheduler and closes its engine. It is safe to call more
// than once.
func (s *Scheduler) Dispose() error {
	s.control.Lock()
	defer s.control.Unlock()

	s.mu.Lock()
	disposed := s.disposed
	s.disposed = true
	s.mu.Unlock()
	if disposed {
		return nil
	}

	s.stopLocked()
	if err := s.engine.Close(); err != nil {
		return fmt.Errorf("cannot close audio engine: %w", err)
	}
	s.log.Debug("Scheduler disposed")
	return nil
}

// Disposed returns whether Dispose has been called.
func (s *Scheduler) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
