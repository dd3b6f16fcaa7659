//go:build !cgo

package playback

import "go.aimuz.me/nexus/pcm"

// DeviceOutput is unavailable without cgo.
type DeviceOutput struct {
	*Timeline
}

// NewDeviceOutput returns ErrUnsupported when built without cgo.
func NewDeviceOutput(format pcm.Format) (*DeviceOutput, error) {
	return nil, ErrUnsupported
}
