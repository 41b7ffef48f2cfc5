// Package session holds per-user state for the interactive surfaces.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Session owns the single current document of one user. A new value
// replaces the old one; there is no history.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.RWMutex
	document string
}

func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
}

func (s *Session) Document() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.document
}

func (s *Session) HasDocument() bool {
	return s.Document() != ""
}

func (s *Session) SetDocument(doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = doc
}

func (s *Session) Clear() {
	s.SetDocument("")
}

// Manager tracks live sessions. Sessions are created at connect time and
// removed, with their state cleared, when the user leaves.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

func (m *Manager) Create() *Session {
	s := New()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// End clears and forgets a session. Ending an unknown id is a no-op.
func (m *Manager) End(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Clear()
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
