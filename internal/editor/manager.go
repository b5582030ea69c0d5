package editor

import (
	"context"
	"sync"

	"github.com/ziadkadry99/formula-canvas/internal/metrics"
)

// Manager keeps at most one open session per formula.
type Manager struct {
	deps Deps
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager.
func NewManager(deps Deps, opts Options) *Manager {
	return &Manager{deps: deps, opts: opts, sessions: make(map[string]*Session)}
}

// Session returns the open session for a formula, opening it on first use.
func (m *Manager) Session(ctx context.Context, formulaID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[formulaID]; ok {
		return s, nil
	}
	s, err := Open(ctx, formulaID, m.deps, m.opts)
	if err != nil {
		return nil, err
	}
	m.sessions[formulaID] = s
	metrics.LiveSessions.Set(float64(len(m.sessions)))
	return s, nil
}

// Release closes the session of a formula, if open.
func (m *Manager) Release(formulaID string) {
	m.mu.Lock()
	s, ok := m.sessions[formulaID]
	delete(m.sessions, formulaID)
	metrics.LiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	metrics.LiveSessions.Set(0)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
