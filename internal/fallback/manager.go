package fallback

import "sync"

// Manager holds the currently active fallback Source and allows it to be
// swapped atomically under its own lock, matching spec.md's
// shared-resource policy for the fan-out fallback: the pump reads the
// pointer with the lock held only long enough to load it.
type Manager struct {
	mu     sync.Mutex
	active Source
}

// NewManager returns a Manager starting with initial as the active source.
func NewManager(initial Source) *Manager {
	return &Manager{active: initial}
}

// Set swaps the active source.
func (m *Manager) Set(s Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = s
}

// ReadFrame delegates to the currently active source.
func (m *Manager) ReadFrame() []byte {
	m.mu.Lock()
	s := m.active
	m.mu.Unlock()
	return s.ReadFrame()
}

// Mode reports the currently active source's mode string.
func (m *Manager) Mode() string {
	m.mu.Lock()
	s := m.active
	m.mu.Unlock()
	return s.Mode()
}

// FilePath reports the active source's file path, or "" if the active
// source isn't a File.
func (m *Manager) FilePath() string {
	m.mu.Lock()
	s := m.active
	m.mu.Unlock()
	if f, ok := s.(*File); ok {
		return f.Path()
	}
	return ""
}
