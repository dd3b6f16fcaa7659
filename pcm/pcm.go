// Package pcm describes raw 16-bit linear PCM streams and converts them
// between the representations used by capture devices, speakers and the
// Gemini Live wire protocol.
package pcm

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Format is a mono or multi-channel signed 16-bit little-endian PCM format.
type Format struct {
	SampleRate int
	Channels   int
}

var (
	// Input is the microphone format sent to the live endpoint.
	Input = Format{SampleRate: 16000, Channels: 1}
	// Output is the synthesized speech format returned by the live endpoint.
	Output = Format{SampleRate: 24000, Channels: 1}
)

// BytesPerSample is the width of one 16-bit sample.
const BytesPerSample = 2

// MIMEType returns the descriptor the live endpoint expects, e.g. "audio/pcm;rate=16000".
func (f Format) MIMEType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", f.SampleRate)
}

func (f Format) String() string {
	return fmt.Sprintf("pcm16 %dHz %dch", f.SampleRate, f.channels())
}

func (f Format) channels() int {
	if f.Channels <= 0 {
		return 1
	}
	return f.Channels
}

// BytesPerSecond is the byte rate of the format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.channels() * BytesPerSample
}

// SampleDuration returns the playback duration of n samples (per channel).
func (f Format) SampleDuration(n int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(f.SampleRate)
}

// Duration returns the playback duration of n bytes of audio.
func (f Format) Duration(n int) time.Duration {
	return f.SampleDuration(n / (f.channels() * BytesPerSample))
}

// Samples returns the number of samples (per channel) covered by d, rounded down.
func (f Format) Samples(d time.Duration) int {
	return int(d * time.Duration(f.SampleRate) / time.Second)
}

// SampleIndex returns the sample position nearest to clock position d. It
// inverts SampleDuration exactly, which Samples does not for rates that do
// not divide a second evenly in nanoseconds.
func (f Format) SampleIndex(d time.Duration) int64 {
	if f.SampleRate <= 0 {
		return 0
	}
	return int64((d*time.Duration(f.SampleRate) + time.Second/2) / time.Second)
}

// BytesInDuration returns the number of bytes needed to hold d of audio.
func (f Format) BytesInDuration(d time.Duration) int {
	return f.Samples(d) * f.channels() * BytesPerSample
}

// FromFloat32 converts normalized float samples to int16, clamping to [-1, 1].
func FromFloat32(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s < -1 {
			s = -1
		} else if s > 1 {
			s = 1
		}
		out[i] = int16(s * math.MaxInt16)
	}
	return out
}

// ToFloat32 converts int16 samples to normalized floats in [-1, 1).
func ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768
	}
	return out
}

// Encode serializes samples as little-endian bytes.
func Encode(samples []int16) []byte {
	buf := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// Decode parses little-endian bytes into samples. A trailing odd byte is ignored.
func Decode(data []byte) []int16 {
	out := make([]int16, len(data)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}

// EncodeWire base64-encodes raw PCM16 bytes for the live wire protocol.
func EncodeWire(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeWire reverses EncodeWire and rejects payloads that are not whole samples.
func DecodeWire(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64 audio: %w", err)
	}
	if len(data)%BytesPerSample != 0 {
		return nil, fmt.Errorf("decode base64 audio: odd byte count %d", len(data))
	}
	return data, nil
}

// EncodeBase64 returns the wire representation of samples.
func EncodeBase64(samples []int16) string {
	return EncodeWire(Encode(samples))
}

// DecodeBase64 parses the wire representation back into samples.
func DecodeBase64(s string) ([]int16, error) {
	data, err := DecodeWire(s)
	if err != nil {
		return nil, err
	}
	return Decode(data), nil
}

// RMS returns the root mean square level of samples, normalized to [0, 1].
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
