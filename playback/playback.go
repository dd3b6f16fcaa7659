// Package playback schedules synthesized speech for gapless output.
//
// An Output exposes an audio clock and plays PCM buffers at absolute clock
// positions. The Scheduler sits on top of an Output and places each incoming
// chunk directly after the previous one, or at the current clock time when
// playback has drained.
package playback

import (
	"errors"
	"time"
)

var (
	// ErrClosed is returned when playing on a closed output.
	ErrClosed = errors.New("playback: output closed")
	// ErrUnsupported is returned when the build has no device backend.
	ErrUnsupported = errors.New("playback: unsupported on this build")
)

// Source is a buffer placed on an Output.
type Source interface {
	// Stop silences the source immediately. Safe to call more than once.
	Stop()
}

// Output is an audio sink with its own clock.
type Output interface {
	// Now returns the current audio clock position.
	Now() time.Duration
	// Play schedules samples to start at clock position at. done is invoked
	// exactly once, on an output goroutine, when the source finishes or is
	// stopped.
	Play(samples []int16, at time.Duration, done func()) (Source, error)
	// Close stops all sources and releases the output context.
	Close() error
}
