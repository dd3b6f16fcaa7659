//go:build cgo

package audiocapture

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// capturer is the miniaudio implementation. New acquires the context and the
// default input device; Start only begins the data callback.
type capturer struct {
	cfg Config

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	framer  *Framer
	handler FrameHandler
	running bool
	closed  bool

	frames int
}

// New acquires the default microphone for cfg.
func New(cfg Config) (Capturer, error) {
	cfg = cfg.withDefaults()
	c := &capturer{cfg: cfg}

	ctxCfg := malgo.ContextConfig{ThreadPriority: malgo.ThreadPriorityRealtime}
	ctx, err := malgo.InitContext(nil, ctxCfg, func(msg string) {
		slog.Debug("miniaudio", "message", msg)
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	c.ctx = ctx

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.Capture.Format = malgo.FormatF32
	devCfg.Capture.Channels = uint32(cfg.Format.Channels)
	devCfg.SampleRate = uint32(cfg.Format.SampleRate)
	devCfg.PeriodSizeInFrames = uint32(cfg.FrameSamples)

	device, err := malgo.InitDevice(ctx.Context, devCfg, malgo.DeviceCallbacks{
		Data: c.onData,
	})
	if err != nil {
		c.releaseContext()
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	c.device = device
	return c, nil
}

func (c *capturer) Start(handler FrameHandler) error {
	if handler == nil {
		return ErrNoHandler
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.running {
		return ErrRunning
	}

	c.handler = handler
	c.framer = NewFramer(c.cfg.FrameSamples, c.deliver)
	if err := c.device.Start(); err != nil {
		c.handler = nil
		return fmt.Errorf("start microphone: %w", err)
	}
	c.running = true
	return nil
}

func (c *capturer) Stop() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.running = false
	device := c.device
	c.device = nil
	c.handler = nil
	c.mu.Unlock()

	var err error
	if device != nil {
		if stopErr := device.Stop(); stopErr != nil {
			err = fmt.Errorf("stop microphone: %w", stopErr)
		}
		device.Uninit()
	}
	c.releaseContext()
	return err
}

func (c *capturer) releaseContext() {
	if c.ctx == nil {
		return
	}
	if err := c.ctx.Uninit(); err != nil {
		slog.Warn("release audio context", "error", err)
	}
	c.ctx.Free()
	c.ctx = nil
}

// onData runs on the miniaudio thread.
func (c *capturer) onData(_, input []byte, frameCount uint32) {
	c.mu.Lock()
	framer := c.framer
	running := c.running
	c.mu.Unlock()
	if !running || framer == nil {
		return
	}

	channels := c.cfg.Format.Channels
	samples := make([]float32, int(frameCount))
	for i := range samples {
		off := i * channels * 4
		if off+4 > len(input) {
			samples = samples[:i]
			break
		}
		// First channel only.
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(input[off:]))
	}
	framer.Write(samples)
}

func (c *capturer) deliver(frame []int16) {
	c.mu.Lock()
	h := c.handler
	c.frames++
	n := c.frames
	c.mu.Unlock()

	if n%100 == 0 {
		slog.Debug("microphone frames captured", "count", n)
	}
	if h != nil {
		h(frame)
	}
}
