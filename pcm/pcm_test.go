package pcm

import (
	"math"
	"testing"
	"time"
)

func TestBase64RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
	}{
		{"empty", []int16{}},
		{"single", []int16{1}},
		{"extremes", []int16{math.MinInt16, -1, 0, 1, math.MaxInt16}},
		{"ramp", func() []int16 {
			s := make([]int16, 4096)
			for i := range s {
				s[i] = int16(i*16 - 32768)
			}
			return s
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := EncodeBase64(tt.samples)
			got, err := DecodeBase64(wire)
			if err != nil {
				t.Fatalf("DecodeBase64() error = %v", err)
			}
			if len(got) != len(tt.samples) {
				t.Fatalf("got %d samples, want %d", len(got), len(tt.samples))
			}
			for i := range got {
				if got[i] != tt.samples[i] {
					t.Fatalf("sample %d = %d, want %d", i, got[i], tt.samples[i])
				}
			}
		})
	}
}

func TestDecodeBase64Invalid(t *testing.T) {
	if _, err := DecodeBase64("not base64!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	// "AAAA" decodes to three bytes.
	if _, err := DecodeBase64("AAAA"); err == nil {
		t.Error("expected error for odd byte count")
	}
}

func TestEncodeLittleEndian(t *testing.T) {
	got := Encode([]int16{0x0102, -2})
	want := []byte{0x02, 0x01, 0xfe, 0xff}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestFromFloat32Clamps(t *testing.T) {
	got := FromFloat32([]float32{-2, -1, 0, 0.5, 1, 3})
	want := []int16{-32767, -32767, 0, 16383, 32767, 32767}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Input.MIMEType(); got != "audio/pcm;rate=16000" {
		t.Errorf("Input.MIMEType() = %q", got)
	}
	if got := Output.SampleDuration(12000); got != 500*time.Millisecond {
		t.Errorf("SampleDuration(12000) = %v, want 500ms", got)
	}
	if got := Output.Duration(9600 * 2); got != 400*time.Millisecond {
		t.Errorf("Duration() = %v, want 400ms", got)
	}
	if got := Input.Samples(256 * time.Millisecond); got != 4096 {
		t.Errorf("Samples(256ms) = %d, want 4096", got)
	}
	if got := Input.BytesPerSecond(); got != 32000 {
		t.Errorf("BytesPerSecond() = %d, want 32000", got)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v", got)
	}
	got := RMS([]int16{16384, -16384})
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RMS() = %v, want 0.5", got)
	}
}

func TestSampleIndexInvertsSampleDuration(t *testing.T) {
	for _, f := range []Format{Input, Output, {SampleRate: 44100, Channels: 1}} {
		for _, n := range []int{0, 1, 2, 999, 1000, 1001, 24001, 12345678} {
			if got := f.SampleIndex(f.SampleDuration(n)); got != int64(n) {
				t.Errorf("%v: SampleIndex(SampleDuration(%d)) = %d", f, n, got)
			}
		}
	}
	if got := Output.SampleIndex(0); got != 0 {
		t.Errorf("SampleIndex(0) = %d", got)
	}
}
