package playback

import (
	"fmt"
	"time"

	"go.aimuz.me/nexus/pcm"
)

// Chunk describes one scheduled buffer. Offset and Samples are exact;
// Start and Duration are derived from them for reporting.
type Chunk struct {
	ID       uint64
	Offset   int64 // first sample on the output clock
	Samples  int
	Start    time.Duration
	Duration time.Duration
}

// Scheduler places chunks back to back on an Output.
//
// A Scheduler is not safe for concurrent use. It is owned by a single
// goroutine; completion notices arrive through the ended callback and must be
// forwarded to that goroutine, which then calls Release.
type Scheduler struct {
	out    Output
	format pcm.Format
	ended  func(id uint64)

	cursor int64 // next free sample on the output clock
	active map[uint64]Source
	nextID uint64
}

// NewScheduler returns a Scheduler for out. ended may be nil.
func NewScheduler(out Output, format pcm.Format, ended func(id uint64)) *Scheduler {
	return &Scheduler{
		out:    out,
		format: format,
		ended:  ended,
		active: make(map[uint64]Source),
	}
}

// Schedule queues samples at max(cursor, clock) and advances the cursor by
// their length. Positions are kept in whole samples so consecutive chunks
// neither overlap nor leave a gap on the output.
func (s *Scheduler) Schedule(samples []int16) (Chunk, error) {
	start := max(s.cursor, s.format.SampleIndex(s.out.Now()))

	s.nextID++
	id := s.nextID
	src, err := s.out.Play(samples, s.format.SampleDuration(int(start)), func() {
		if s.ended != nil {
			s.ended(id)
		}
	})
	if err != nil {
		return Chunk{}, fmt.Errorf("schedule chunk: %w", err)
	}

	s.cursor = start + int64(len(samples))
	s.active[id] = src
	return Chunk{
		ID:       id,
		Offset:   start,
		Samples:  len(samples),
		Start:    s.format.SampleDuration(int(start)),
		Duration: s.format.SampleDuration(len(samples)),
	}, nil
}

// Release forgets a completed chunk. It reports whether id was still active.
func (s *Scheduler) Release(id uint64) bool {
	if _, ok := s.active[id]; !ok {
		return false
	}
	delete(s.active, id)
	return true
}

// Interrupt stops every active chunk, clears the set and resets the cursor to
// zero so the next chunk starts at the current clock time. It returns the
// number of chunks stopped.
func (s *Scheduler) Interrupt() int {
	n := len(s.active)
	for id, src := range s.active {
		src.Stop()
		delete(s.active, id)
	}
	s.cursor = 0
	return n
}

// Cursor returns the clock position where the next chunk would start if it
// arrived now and the clock had not passed it.
func (s *Scheduler) Cursor() time.Duration {
	return s.format.SampleDuration(int(s.cursor))
}

// CursorSamples returns the cursor in samples.
func (s *Scheduler) CursorSamples() int64 {
	return s.cursor
}

// Active returns the number of chunks scheduled or playing.
func (s *Scheduler) Active() int {
	return len(s.active)
}

// Close interrupts playback and closes the output.
func (s *Scheduler) Close() error {
	s.Interrupt()
	return s.out.Close()
}
