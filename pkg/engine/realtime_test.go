package engine

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zurustar/metronome/pkg/pattern"
)

// Realtime tests need an audio device, so they only run when asked.
func requireAudio(t *testing.T) {
	t.Helper()
	if os.Getenv("METRONOME_AUDIO_TESTS") == "" {
		t.Skip("set METRONOME_AUDIO_TESTS=1 to run tests that open the audio device")
	}
}

func TestRealtimePlaysAndNotifies(t *testing.T) {
	requireAudio(t)

	rt, err := NewRealtime(NewSynthBank(SampleRate))
	if err != nil {
		t.Fatalf("NewRealtime() error = %v", err)
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Resume(ctx); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	var fired atomic.Int32
	at := rt.Now() + 0.1
	rt.Trigger(at, pattern.Accent)
	rt.Notify(at, func() { fired.Add(1) })

	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if fired.Load() != 1 {
		t.Errorf("notification did not fire, clock at %v", rt.Now())
	}
}

func TestRealtimeCancelAllDropsNotifications(t *testing.T) {
	requireAudio(t)

	rt, err := NewRealtime(NewSynthBank(SampleRate), WithBufferSize(200*time.Millisecond))
	if err != nil {
		t.Fatalf("NewRealtime() error = %v", err)
	}
	defer rt.Close()

	if err := rt.Resume(context.Background()); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	var fired atomic.Int32
	rt.Notify(rt.Now()+0.05, func() { fired.Add(1) })
	rt.CancelAll()

	time.Sleep(400 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("cancelled notification fired")
	}
}

func TestRealtimeCloseIsIdempotent(t *testing.T) {
	requireAudio(t)

	rt, err := NewRealtime(NewSynthBank(SampleRate))
	if err != nil {
		t.Fatalf("NewRealtime() error = %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := rt.Resume(context.Background()); err == nil {
		t.Error("Resume() after Close should fail")
	}
}
