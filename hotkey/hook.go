//go:build cgo

package hotkey

import (
	"log/slog"
	"sync"

	hook "github.com/robotn/gohook"
)

// Manager listens for one global key combination.
type Manager struct {
	keys     []string
	onPress  func()
	mu       sync.Mutex
	running  bool
	stopOnce sync.Once
}

// NewManager parses combo and prepares a Manager that calls onPress on every
// press. Call Start to begin listening.
func NewManager(combo string, onPress func()) (*Manager, error) {
	keys, err := ParseCombo(combo)
	if err != nil {
		return nil, err
	}
	return &Manager{keys: keys, onPress: onPress}, nil
}

// Start installs the keyboard hook. The hook is process-wide.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	hook.Register(hook.KeyDown, m.keys, func(hook.Event) {
		slog.Debug("hotkey pressed", "keys", m.keys)
		m.onPress()
	})
	events := hook.Start()
	go func() {
		<-hook.Process(events)
	}()
	m.running = true
	slog.Info("hotkey registered", "keys", m.keys)
	return nil
}

// Stop removes the hook. Safe to call more than once.
func (m *Manager) Stop() {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	if !running {
		return
	}
	m.stopOnce.Do(hook.End)
}
