package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.aimuz.me/nexus/audiocapture"
	"go.aimuz.me/nexus/pcm"
	"go.aimuz.me/nexus/playback"
)

// MicProbe summarizes a short microphone capture.
type MicProbe struct {
	Frames   int
	PeakRMS  float64 // loudest frame, normalized to [0, 1]
	MeanRMS  float64
	Duration time.Duration
}

// ProbeMicrophone captures from the default microphone for d and reports the
// input level.
func ProbeMicrophone(ctx context.Context, d time.Duration, newCapture func(audiocapture.Config) (audiocapture.Capturer, error)) (MicProbe, error) {
	if newCapture == nil {
		newCapture = audiocapture.New
	}
	capture, err := newCapture(audiocapture.DefaultConfig())
	if err != nil {
		return MicProbe{}, fmt.Errorf("create audio capture: %w", err)
	}
	defer func() {
		if err := capture.Stop(); err != nil {
			slog.Warn("stop audio capture", "error", err)
		}
	}()

	var (
		mu    sync.Mutex
		probe MicProbe
		sum   float64
	)
	start := time.Now()
	if err := capture.Start(func(frame []int16) {
		level := pcm.RMS(frame)
		mu.Lock()
		probe.Frames++
		probe.PeakRMS = math.Max(probe.PeakRMS, level)
		sum += level
		mu.Unlock()
	}); err != nil {
		return MicProbe{}, fmt.Errorf("start audio capture: %w", err)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return MicProbe{}, ctx.Err()
	case <-timer.C:
	}

	mu.Lock()
	defer mu.Unlock()
	probe.Duration = time.Since(start)
	if probe.Frames > 0 {
		probe.MeanRMS = sum / float64(probe.Frames)
	}
	return probe, nil
}

// ProbeSpeaker plays a short tone through an output and waits for it to
// finish.
func ProbeSpeaker(ctx context.Context, tone time.Duration, newOutput func(pcm.Format) (playback.Output, error)) error {
	if newOutput == nil {
		newOutput = func(f pcm.Format) (playback.Output, error) {
			out, err := playback.NewDeviceOutput(f)
			if err != nil {
				return nil, err
			}
			return out, nil
		}
	}
	out, err := newOutput(pcm.Output)
	if err != nil {
		return fmt.Errorf("open speaker: %w", err)
	}

	done := make(chan struct{}, 1)
	sched := playback.NewScheduler(out, pcm.Output, func(uint64) {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	defer sched.Close()

	if _, err := sched.Schedule(sineTone(pcm.Output, 440, tone)); err != nil {
		return fmt.Errorf("play tone: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// sineTone renders a half-scale sine wave.
func sineTone(f pcm.Format, hz float64, d time.Duration) []int16 {
	n := f.Samples(d)
	out := make([]int16, n)
	for i := range out {
		v := 0.5 * math.Sin(2*math.Pi*hz*float64(i)/float64(f.SampleRate))
		out[i] = int16(v * math.MaxInt16)
	}
	return out
}
