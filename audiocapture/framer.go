package audiocapture

import "go.aimuz.me/nexus/pcm"

// Framer re-slices device periods of arbitrary length into frames of exactly
// size samples. It is not safe for concurrent use; the device thread owns it.
type Framer struct {
	size int
	buf  []float32
	emit FrameHandler
}

// NewFramer returns a Framer that calls emit for every complete frame.
func NewFramer(size int, emit FrameHandler) *Framer {
	if size <= 0 {
		size = DefaultFrameSamples
	}
	return &Framer{
		size: size,
		buf:  make([]float32, 0, size),
		emit: emit,
	}
}

// Write appends normalized samples and emits any frames that became complete.
// Each emitted frame is a fresh slice the handler may retain.
func (f *Framer) Write(samples []float32) {
	for len(samples) > 0 {
		n := min(f.size-len(f.buf), len(samples))
		f.buf = append(f.buf, samples[:n]...)
		samples = samples[n:]
		if len(f.buf) == f.size {
			f.emit(pcm.FromFloat32(f.buf))
			f.buf = f.buf[:0]
		}
	}
}

// Pending reports how many samples are waiting for a full frame.
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Reset drops any partial frame.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}
