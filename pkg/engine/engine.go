// Package engine provides the audio clock the metronome schedules against and
// the sound production behind it.
//
// Every engine keeps a monotonic audio clock measured in rendered frames, so
// events can be committed ahead of time and started on the exact sample they
// are due. Realtime plays through Ebitengine's audio context, Offline renders
// on demand for file export and tests, and Paced advances an Offline renderer
// with the wall clock for runs without an audio device.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/zurustar/metronome/pkg/pattern"
)

// SampleRate is the default output sample rate.
const SampleRate = 44100

var (
	// ErrEngineUnavailable is returned by Resume when the audio clock cannot be
	// started, for example when the platform has not granted audio output.
	ErrEngineUnavailable = errors.New("audio engine unavailable")

	// ErrEngineClosed is returned when an engine is used after Close.
	ErrEngineClosed = errors.New("audio engine closed")
)

// Engine is the audio clock and sound source driven by the scheduler.
type Engine interface {
	// Now returns the current audio-clock time in seconds.
	Now() float64

	// Resume starts the audio clock if it is suspended.
	Resume(ctx context.Context) error

	// Trigger schedules the layer's sound at absolute audio time at.
	Trigger(at float64, layer pattern.Layer)

	// Notify schedules fn to run when audio time at is heard.
	Notify(at float64, fn func())

	// CancelAll drops every trigger and notification not yet played.
	CancelAll()

	// RampGain moves the output gain to db decibels over the given duration.
	RampGain(db float64, over time.Duration)

	// Close releases the engine's resources. It is safe to call more than once.
	Close() error
}
