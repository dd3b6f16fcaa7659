package live

import (
	"fmt"
	"testing"

	"go.aimuz.me/nexus/internal/types"
)

func TestTranscriptLog(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		appends   int
		wantLen   int
		wantFirst int
	}{
		{"empty", 3, 0, 0, 0},
		{"under capacity", 3, 2, 2, 1},
		{"at capacity", 3, 3, 3, 1},
		{"one over", 3, 4, 3, 2},
		{"many over", 11, 40, 11, 30},
		{"default capacity", 0, 20, DefaultTranscriptCapacity, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewTranscriptLog(tt.capacity)
			for i := 1; i <= tt.appends; i++ {
				l.Append(types.TranscriptEntry{Seq: i, Speaker: types.SpeakerAI, Text: fmt.Sprint(i)})
				if l.Len() > l.Cap() {
					t.Fatalf("Len() = %d exceeds Cap() = %d", l.Len(), l.Cap())
				}
			}

			got := l.Entries()
			if len(got) != tt.wantLen {
				t.Fatalf("got %d entries, want %d", len(got), tt.wantLen)
			}
			for i, e := range got {
				if want := tt.wantFirst + i; e.Seq != want {
					t.Errorf("entry %d seq = %d, want %d", i, e.Seq, want)
				}
			}
		})
	}
}

func TestTranscriptLogEntriesIsCopy(t *testing.T) {
	l := NewTranscriptLog(2)
	l.Append(types.TranscriptEntry{Seq: 1, Text: "a"})

	got := l.Entries()
	got[0].Text = "changed"

	if l.Entries()[0].Text != "a" {
		t.Fatal("Entries() exposes internal storage")
	}
}
