package session

import (
	"fmt"
	"sync"
)

// Manager tracks the live sessions of a process in a local map. It is safe
// for concurrent access and best suited for single-instance deployments;
// sessions are not persisted across restarts.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*AgentSession
}

// NewManager constructs an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*AgentSession)}
}

// Get returns an existing session.
func (m *Manager) Get(sessionID string) (*AgentSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// GetOrCreate returns the existing session or builds one through the
// factory. The factory runs under the manager lock, so concurrent calls for
// the same ID create exactly one session.
func (m *Manager) GetOrCreate(sessionID string, factory func(id string) (*AgentSession, error)) (*AgentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		return s, nil
	}
	s, err := factory(sessionID)
	if err != nil {
		return nil, fmt.Errorf("create session %q: %w", sessionID, err)
	}
	m.sessions[sessionID] = s
	return s, nil
}

// Put registers (or replaces) a session.
func (m *Manager) Put(s *AgentSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
}

// Delete removes a session, returning it for teardown.
func (m *Manager) Delete(sessionID string) (*AgentSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	return s, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the identifiers of all live sessions.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}
