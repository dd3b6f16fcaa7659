package live

import (
	"context"
	"log/slog"
	"sync"

	"go.aimuz.me/nexus/internal/types"
)

// Manager keeps at most one active Session per capture device.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Start starts s on its configured device, stopping any session already
// holding that device first. s is registered before it connects, so Stop and
// StopAll can force-close it while the connection is still being set up.
func (m *Manager) Start(ctx context.Context, s *Session) error {
	device := s.Config().Device

	m.mu.Lock()
	prev := m.sessions[device]
	m.sessions[device] = s
	m.mu.Unlock()

	if prev != nil && prev != s {
		slog.Info("stopping previous live session", "device", device, "session", prev.ID())
		_ = prev.Stop()
	}

	if err := s.Start(ctx); err != nil {
		m.forget(device, s)
		return err
	}

	// Stop may have run before s marked itself started, in which case it
	// had nothing to cancel.
	m.mu.RLock()
	current := m.sessions[device]
	m.mu.RUnlock()
	if current != s {
		_ = s.Stop()
		return ErrStopped
	}
	return nil
}

func (m *Manager) forget(device string, s *Session) {
	m.mu.Lock()
	if m.sessions[device] == s {
		delete(m.sessions, device)
	}
	m.mu.Unlock()
}

// Stop stops the session on device, if any.
func (m *Manager) Stop(device string) error {
	m.mu.Lock()
	s := m.sessions[device]
	delete(m.sessions, device)
	m.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Stop()
}

// StopAll stops every session.
func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		_ = s.Stop()
	}
}

// Active returns the session on device while it is connecting or listening.
// Sessions that ended on their own are forgotten.
func (m *Manager) Active(device string) *Session {
	m.mu.RLock()
	s := m.sessions[device]
	m.mu.RUnlock()
	if s == nil {
		return nil
	}
	select {
	case <-s.Done():
		m.forget(device, s)
		return nil
	default:
		return s
	}
}

// Status returns the status of the session on device, or an idle status.
func (m *Manager) Status(device string) types.LiveStatus {
	if s := m.Active(device); s != nil {
		return s.Status()
	}
	return types.LiveStatus{State: StateIdle.String(), Status: StatusIdle}
}

// Toggle stops the session on device if one is active; otherwise it builds a
// new session with newSession and starts it. It reports whether a session
// was started.
func (m *Manager) Toggle(ctx context.Context, device string, newSession func() (*Session, error)) (bool, error) {
	if s := m.Active(device); s != nil {
		return false, m.Stop(device)
	}
	s, err := newSession()
	if err != nil {
		return false, err
	}
	if err := m.Start(ctx, s); err != nil {
		return false, err
	}
	return true, nil
}
