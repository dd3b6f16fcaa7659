// Package audiocapture provides microphone capture delivered as fixed-size PCM16 frames.
package audiocapture

import (
	"errors"

	"go.aimuz.me/nexus/pcm"
)

var (
	// ErrUnsupported is returned when the build has no capture backend.
	ErrUnsupported = errors.New("audiocapture: unsupported on this build")
	// ErrRunning is returned by Start when capture is already running.
	ErrRunning = errors.New("audiocapture: already running")
	// ErrClosed is returned by Start after Stop released the device.
	ErrClosed = errors.New("audiocapture: device released")
	// ErrNoHandler is returned by Start when the handler is nil.
	ErrNoHandler = errors.New("audiocapture: nil handler")
)

// FrameHandler receives one fixed-size frame of mono PCM16 samples.
// It runs on the device thread and must not block.
type FrameHandler func(frame []int16)

// Capturer is an acquired input device.
//
// Start begins delivering frames. Stop halts capture and releases the device
// and its audio context; it is safe to call more than once.
type Capturer interface {
	Start(handler FrameHandler) error
	Stop() error
}

// Config holds configuration for microphone capture.
type Config struct {
	Format       pcm.Format
	FrameSamples int // samples per delivered frame
}

// DefaultFrameSamples is the frame size used when none is configured.
const DefaultFrameSamples = 4096

// DefaultConfig returns 16 kHz mono capture in 4096-sample frames.
func DefaultConfig() Config {
	return Config{
		Format:       pcm.Input,
		FrameSamples: DefaultFrameSamples,
	}
}

func (c Config) withDefaults() Config {
	if c.Format.SampleRate <= 0 {
		c.Format = pcm.Input
	}
	if c.Format.Channels <= 0 {
		c.Format.Channels = 1
	}
	if c.FrameSamples <= 0 {
		c.FrameSamples = DefaultFrameSamples
	}
	return c
}
