package playback

import (
	"sync"
	"time"

	"go.aimuz.me/nexus/pcm"
)

// VirtualOutput is an Output paced by the wall clock instead of a device.
// Audio is mixed and discarded. It backs muted sessions and builds without a
// speaker backend.
type VirtualOutput struct {
	*Timeline

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewVirtualOutput starts a wall-clock pump that reads tick worth of audio at
// a time. A zero tick defaults to 10ms.
func NewVirtualOutput(format pcm.Format, tick time.Duration) *VirtualOutput {
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	o := &VirtualOutput{
		Timeline: NewTimeline(format),
		stop:     make(chan struct{}),
	}
	o.wg.Go(func() { o.pump(tick) })
	return o
}

func (o *VirtualOutput) pump(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	begin := time.Now()
	var read int
	buf := make([]byte, 0)
	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
		}
		target := o.format.Samples(time.Since(begin))
		n := target - read
		if n <= 0 {
			continue
		}
		if cap(buf) < n*pcm.BytesPerSample {
			buf = make([]byte, n*pcm.BytesPerSample)
		}
		if _, err := o.Read(buf[:n*pcm.BytesPerSample]); err != nil {
			return
		}
		read = target
	}
}

// Close stops the pump and the timeline.
func (o *VirtualOutput) Close() error {
	o.once.Do(func() { close(o.stop) })
	o.wg.Wait()
	return o.Timeline.Close()
}
