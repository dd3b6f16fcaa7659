package live

import (
	"sync"

	"go.aimuz.me/nexus/internal/types"
)

// TranscriptLog keeps the most recent fragments in insertion order. Once
// full, each append evicts the oldest entry.
type TranscriptLog struct {
	mu       sync.RWMutex
	capacity int
	entries  []types.TranscriptEntry
}

// NewTranscriptLog returns a log holding at most capacity entries.
func NewTranscriptLog(capacity int) *TranscriptLog {
	if capacity <= 0 {
		capacity = DefaultTranscriptCapacity
	}
	return &TranscriptLog{
		capacity: capacity,
		entries:  make([]types.TranscriptEntry, 0, capacity),
	}
}

// Append adds e, evicting the oldest entry when the log is full.
func (l *TranscriptLog) Append(e types.TranscriptEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries[len(l.entries)-1] = e
		return
	}
	l.entries = append(l.entries, e)
}

// Entries returns a copy of the log, oldest first.
func (l *TranscriptLog) Entries() []types.TranscriptEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.TranscriptEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries held.
func (l *TranscriptLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Cap returns the fixed capacity.
func (l *TranscriptLog) Cap() int {
	return l.capacity
}
