package playback

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"time"

	"go.aimuz.me/nexus/pcm"
)

// Timeline is a sample-accurate mono mixing surface. Reading from it yields
// PCM16 little-endian audio and advances its clock; buffers placed with Play
// are mixed in at their start positions. Silence is produced when nothing is
// scheduled, so a reader pulling at device rate keeps the clock in step with
// the device.
type Timeline struct {
	format pcm.Format

	mu     sync.Mutex
	pos    int64 // samples read so far
	segs   []*segment
	closed bool
}

type segment struct {
	tl      *Timeline
	start   int64
	samples []int16
	done    func()
	once    sync.Once
}

// NewTimeline returns an empty Timeline positioned at zero.
func NewTimeline(format pcm.Format) *Timeline {
	return &Timeline{format: format}
}

// Now returns the amount of audio read so far.
func (t *Timeline) Now() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.format.SampleDuration(int(t.pos))
}

// Play places samples at clock position at. Positions already read are
// clipped, so a late buffer starts immediately with its head dropped.
func (t *Timeline) Play(samples []int16, at time.Duration, done func()) (Source, error) {
	seg := &segment{
		tl:      t,
		start:   t.format.SampleIndex(at),
		samples: samples,
		done:    done,
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	if len(samples) == 0 {
		t.mu.Unlock()
		seg.finish()
		return seg, nil
	}
	t.segs = append(t.segs, seg)
	t.mu.Unlock()
	return seg, nil
}

// Pending returns the number of segments not yet finished.
func (t *Timeline) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.segs)
}

// Read implements io.Reader. It returns io.EOF once the timeline is closed.
func (t *Timeline) Read(p []byte) (int, error) {
	n := len(p) / pcm.BytesPerSample
	if n == 0 {
		return 0, nil
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, io.EOF
	}

	from := t.pos
	to := from + int64(n)
	mix := make([]int32, n)
	var finished []*segment
	kept := t.segs[:0]
	for _, seg := range t.segs {
		end := seg.start + int64(len(seg.samples))
		lo := max(seg.start, from)
		hi := min(end, to)
		for i := lo; i < hi; i++ {
			mix[i-from] += int32(seg.samples[i-seg.start])
		}
		if end <= to {
			finished = append(finished, seg)
			continue
		}
		kept = append(kept, seg)
	}
	clear(t.segs[len(kept):])
	t.segs = kept
	t.pos = to
	t.mu.Unlock()

	for i, v := range mix {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(clamp16(v)))
	}
	for _, seg := range finished {
		seg.finish()
	}
	return n * pcm.BytesPerSample, nil
}

// Close drops all segments, firing their callbacks, and makes Read return io.EOF.
func (t *Timeline) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	segs := t.segs
	t.segs = nil
	t.mu.Unlock()

	for _, seg := range segs {
		seg.finish()
	}
	return nil
}

func (t *Timeline) remove(target *segment) {
	t.mu.Lock()
	for i, seg := range t.segs {
		if seg == target {
			t.segs = append(t.segs[:i], t.segs[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
}

func (s *segment) Stop() {
	s.tl.remove(s)
	s.finish()
}

func (s *segment) finish() {
	s.once.Do(func() {
		if s.done != nil {
			s.done()
		}
	})
}

func clamp16(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
