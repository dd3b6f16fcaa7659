//go:build !cgo

package hotkey

// Manager is a stub on builds without cgo.
type Manager struct{}

// NewManager validates combo and returns ErrUnsupported.
func NewManager(combo string, _ func()) (*Manager, error) {
	if _, err := ParseCombo(combo); err != nil {
		return nil, err
	}
	return nil, ErrUnsupported
}

// Start is a no-op.
func (m *Manager) Start() error { return ErrUnsupported }

// Stop is a no-op.
func (m *Manager) Stop() {}
