//go:build cgo

package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"go.aimuz.me/nexus/pcm"
)

// oto allows a single context per process; sessions share it and each owns
// a player.
var (
	otoOnce   sync.Once
	otoCtx    *oto.Context
	otoFormat pcm.Format
	otoErr    error
)

func sharedContext(format pcm.Format) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		})
		if err != nil {
			otoErr = fmt.Errorf("open speaker: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
		otoFormat = format
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoFormat.SampleRate != format.SampleRate {
		return nil, fmt.Errorf("open speaker: context already running at %d Hz", otoFormat.SampleRate)
	}
	return otoCtx, nil
}

// DeviceOutput plays a Timeline through the default speaker.
type DeviceOutput struct {
	*Timeline
	player *oto.Player
	once   sync.Once
}

// NewDeviceOutput opens a player on the default speaker.
func NewDeviceOutput(format pcm.Format) (*DeviceOutput, error) {
	ctx, err := sharedContext(format)
	if err != nil {
		return nil, err
	}
	tl := NewTimeline(format)
	player := ctx.NewPlayer(tl)
	player.Play()
	return &DeviceOutput{Timeline: tl, player: player}, nil
}

// Close stops every source and releases the player.
func (o *DeviceOutput) Close() error {
	var err error
	o.once.Do(func() {
		_ = o.Timeline.Close()
		err = o.player.Close()
	})
	return err
}
