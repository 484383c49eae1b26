// Package metronome is the control surface applications use to play a
// metronome. A Provider owns the single Service of a process and rebuilds it
// when it finds it disposed or half built.
package metronome

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zurustar/metronome/pkg/engine"
	"github.com/zurustar/metronome/pkg/logger"
	"github.com/zurustar/metronome/pkg/pattern"
	"github.com/zurustar/metronome/pkg/scheduler"
)

// ErrNotInitialized is returned by a Service that has no scheduler.
var ErrNotInitialized = errors.New("metronome service is not initialized")

// EngineFactory creates the engine for a new Service.
type EngineFactory func() (engine.Engine, error)

// Service plays patterns through one scheduler and engine.
type Service struct {
	engine    engine.Engine
	scheduler *scheduler.Scheduler
}

// NewService creates an engine with factory and a scheduler over it.
func NewService(factory EngineFactory, opts ...scheduler.Option) (*Service, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: no engine factory", ErrNotInitialized)
	}
	eng, err := factory()
	if err != nil {
		return nil, fmt.Errorf("cannot create audio engine: %w", err)
	}
	return &Service{
		engine:    eng,
		scheduler: scheduler.New(eng, opts...),
	}, nil
}

// Start plays cfg, calling visual on each beat.
func (s *Service) Start(ctx context.Context, cfg pattern.Config, visual scheduler.VisualFunc) error {
	if s.scheduler == nil {
		return ErrNotInitialized
	}
	return s.scheduler.Start(ctx, cfg, visual)
}

// StartSimple plays a single click on every beat, optionally accenting the
// first beat of the measure. visual runs on every beat.
func (s *Service) StartSimple(ctx context.Context, tempo int, volume float64, beatsPerMeasure int, accentFirst bool, visual scheduler.VisualFunc) error {
	return s.Start(ctx, pattern.Simple(tempo, volume, beatsPerMeasure, accentFirst), visual)
}

// Stop stops playback.
func (s *Service) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// SetTempo changes the tempo of the running pattern.
func (s *Service) SetTempo(bpm int) error {
	if s.scheduler == nil {
		return ErrNotInitialized
	}
	return s.scheduler.SetTempo(bpm)
}

// SetVolume changes the output volume.
func (s *Service) SetVolume(v float64) error {
	if s.scheduler == nil {
		return ErrNotInitialized
	}
	return s.scheduler.SetVolume(v)
}

// SetPatterns replaces the beat masks.
func (s *Service) SetPatterns(layers pattern.Layers) error {
	if s.scheduler == nil {
		return ErrNotInitialized
	}
	return s.scheduler.SetPatterns(layers)
}

// IsPlaying returns whether a pattern is playing.
func (s *Service) IsPlaying() bool {
	return s.scheduler != nil && s.scheduler.IsPlaying()
}

// State returns the scheduler's runtime state.
func (s *Service) State() scheduler.State {
	if s.scheduler == nil {
		return scheduler.State{}
	}
	return s.scheduler.Snapshot()
}

// Engine returns the service's engine.
func (s *Service) Engine() engine.Engine {
	return s.engine
}

// Dispose stops playback and releases the engine. It is safe to call more
// than once.
func (s *Service) Dispose() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Dispose()
}

// usable reports whether the service is fully built and not disposed.
func (s *Service) usable() bool {
	return s != nil && s.engine != nil && s.scheduler != nil && !s.scheduler.Disposed()
}

// Provider hands out the one Service of a process. It is built once by the
// application and passed to whatever needs playback control.
type Provider struct {
	factory EngineFactory
	opts    []scheduler.Option
	log     *slog.Logger

	service *Service
	mu      sync.Mutex
}

// NewProvider creates a provider that builds services with factory and opts.
func NewProvider(factory EngineFactory, opts ...scheduler.Option) *Provider {
	return &Provider{
		factory: factory,
		opts:    opts,
		log:     logger.GetLogger(),
	}
}

// Acquire returns the current Service, building it on first use. A service
// that was disposed, or never finished building, is discarded and replaced.
func (p *Provider) Acquire() (*Service, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.service.usable() {
		return p.service, nil
	}
	if p.service != nil {
		p.log.Warn("Replacing unusable metronome service")
		if err := p.service.Dispose(); err != nil {
			p.log.Debug("Dispose of stale service failed", "error", err)
		}
		p.service = nil
	}

	svc, err := NewService(p.factory, p.opts...)
	if err != nil {
		return nil, err
	}
	p.service = svc
	p.log.Debug("Metronome service created")
	return svc, nil
}

// Set installs svc as the current service, disposing the previous one. It
// exists for tests and embedders that build the service themselves.
func (p *Provider) Set(svc *Service) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.service != nil && p.service != svc {
		_ = p.service.Dispose()
	}
	p.service = svc
}

// Release disposes the current service.
func (p *Provider) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.service == nil {
		return nil
	}
	err := p.service.Dispose()
	p.service = nil
	return err
}
