package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/zurustar/metronome/pkg/engine"
	"github.com/zurustar/metronome/pkg/logger"
	"github.com/zurustar/metronome/pkg/pattern"
	"github.com/zurustar/metronome/pkg/scheduler"
)

const (
	// Tail is the silence rendered after the last measure so the final
	// strikes can ring out.
	Tail = time.Second

	bitDepth  = 16
	channels  = 2
	pcmFormat = 1

	// renderBlock is the offline render quantum between scheduler wakes.
	renderBlock = 10 * time.Millisecond
)

// Render plays measures of cfg through the scheduler on an offline engine and
// returns the interleaved stereo samples scaled to 16 bits.
//
// The scheduler is woken between render blocks exactly as the wake loop would
// be, so the result is what a realtime run would have played.
func Render(ctx context.Context, cfg pattern.Config, measures int, bank engine.Bank, sampleRate int) ([]int, error) {
	if err := pattern.Validate(cfg); err != nil {
		return nil, err
	}
	if measures < 1 {
		return nil, ErrInvalidMeasures
	}

	eng := engine.NewOffline(sampleRate, bank)
	sampleRate = eng.Renderer().SampleRate()
	sched := scheduler.New(eng,
		scheduler.WithManualWake(),
		scheduler.WithLookahead(renderBlock),
		scheduler.WithLogger(logger.GetLogger()))
	defer sched.Dispose()

	if err := sched.Start(ctx, cfg, nil); err != nil {
		return nil, err
	}

	spb := cfg.SecondsPerBeat()
	musicEnd := spb * float64(measures*cfg.BeatsPerMeasure())
	// Stop waking half a beat early so the first beat of the next measure
	// never enters the lookahead window.
	lastWake := musicEnd - spb/2 - renderBlock.Seconds()

	totalFrames := int((musicEnd + Tail.Seconds()) * float64(sampleRate))
	blockFrames := int(renderBlock.Seconds() * float64(sampleRate))
	left := make([]float32, blockFrames)
	right := make([]float32, blockFrames)
	data := make([]int, 0, totalFrames*channels)

	for rendered := 0; rendered < totalFrames; {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("render cancelled: %w", err)
		}
		n := min(blockFrames, totalFrames-rendered)
		eng.Render(left[:n], right[:n])
		for i := 0; i < n; i++ {
			data = append(data, toPCM16(left[i]), toPCM16(right[i]))
		}
		rendered += n

		if eng.Now() < lastWake {
			sched.Wake()
		}
	}
	return data, nil
}

func toPCM16(v float32) int {
	return int(min(1, max(-1, v)) * 32767)
}

// RenderWAV renders measures of cfg and writes them to w as a 16-bit stereo
// PCM WAV file.
func RenderWAV(ctx context.Context, w io.WriteSeeker, cfg pattern.Config, measures int, bank engine.Bank) error {
	data, err := Render(ctx, cfg, measures, bank, engine.SampleRate)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(w, engine.SampleRate, bitDepth, channels, pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: engine.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("error writing WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("error finishing WAV file: %w", err)
	}
	return nil
}

// SaveWAV renders to a WAV file at path.
func SaveWAV(ctx context.Context, path string, cfg pattern.Config, measures int, bank engine.Bank) (rerr error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create WAV file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("cannot close WAV file: %w", err)
		}
	}()
	return RenderWAV(ctx, f, cfg, measures, bank)
}
