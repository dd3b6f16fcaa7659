package audiocapture

import (
	"errors"
	"testing"
)

func TestFramer(t *testing.T) {
	tests := []struct {
		name        string
		size        int
		writes      []int
		wantFrames  int
		wantPending int
	}{
		{"exact", 4, []int{4}, 1, 0},
		{"partial", 4, []int{3}, 0, 3},
		{"split across writes", 4, []int{3, 3, 2}, 2, 0},
		{"large period", 4, []int{10}, 2, 2},
		{"empty write", 4, []int{0}, 0, 0},
		{"default size", 0, []int{DefaultFrameSamples + 1}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var frames [][]int16
			f := NewFramer(tt.size, func(frame []int16) {
				frames = append(frames, frame)
			})
			for _, n := range tt.writes {
				f.Write(make([]float32, n))
			}

			if len(frames) != tt.wantFrames {
				t.Fatalf("got %d frames, want %d", len(frames), tt.wantFrames)
			}
			want := tt.size
			if want == 0 {
				want = DefaultFrameSamples
			}
			for i, fr := range frames {
				if len(fr) != want {
					t.Errorf("frame %d has %d samples, want %d", i, len(fr), want)
				}
			}
			if got := f.Pending(); got != tt.wantPending {
				t.Errorf("Pending() = %d, want %d", got, tt.wantPending)
			}
		})
	}
}

func TestFramerPreservesOrder(t *testing.T) {
	var got []int16
	f := NewFramer(3, func(frame []int16) {
		got = append(got, frame...)
	})
	f.Write([]float32{0, 0.5})
	f.Write([]float32{1, -1, -0.5, 0})

	want := []int16{0, 16383, 32767, -32767, -16383, 0}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFramerFramesAreIndependent(t *testing.T) {
	var frames [][]int16
	f := NewFramer(2, func(frame []int16) {
		frames = append(frames, frame)
	})
	f.Write([]float32{1, 1, -1, -1})

	if frames[0][0] == frames[1][0] {
		t.Fatal("frames share backing storage")
	}
}

func TestFramerReset(t *testing.T) {
	f := NewFramer(4, func([]int16) { t.Fatal("unexpected frame") })
	f.Write(make([]float32, 3))
	f.Reset()
	if f.Pending() != 0 {
		t.Fatalf("Pending() = %d after Reset", f.Pending())
	}
}

func TestStartWithNilHandler(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping device test in short mode")
	}
	c, err := New(DefaultConfig())
	if errors.Is(err, ErrUnsupported) {
		t.Skip("no capture backend in this build")
	}
	if err != nil {
		t.Skipf("no microphone available: %v", err)
	}
	defer c.Stop()

	if err := c.Start(nil); !errors.Is(err, ErrNoHandler) {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}
}

func TestStopIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping device test in short mode")
	}
	c, err := New(DefaultConfig())
	if errors.Is(err, ErrUnsupported) {
		t.Skip("no capture backend in this build")
	}
	if err != nil {
		t.Skipf("no microphone available: %v", err)
	}

	for i := range 3 {
		if err := c.Stop(); err != nil {
			t.Fatalf("Stop() call %d: %v", i+1, err)
		}
	}
	if err := c.Start(func([]int16) {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Start after Stop: expected ErrClosed, got %v", err)
	}
}
