package session

import (
	"context"
	"sync"
	"time"
)

// Memory keeps sessions in process memory. Sessions are lost on restart.
type Memory struct {
	byID    map[string]*Session
	byToken map[string]string // token -> id
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *Memory {
	return &Memory{
		byID:    make(map[string]*Session),
		byToken: make(map[string]string),
	}
}

func (m *Memory) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[s.ID] = s.Clone()
	m.byToken[s.Token] = s.ID
	return nil
}

func (m *Memory) Get(_ context.Context, token string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	s, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.IsExpired() {
		return nil, ErrExpired
	}
	return s.Clone(), nil
}

func (m *Memory) Update(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.byID[s.ID]
	if !ok {
		return ErrNotFound
	}
	if old.Token != s.Token {
		delete(m.byToken, old.Token)
		m.byToken[s.Token] = s.ID
	}
	m.byID[s.ID] = s.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(id)
	return nil
}

func (m *Memory) DeleteByUserID(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.byID {
		if s.UserID == userID {
			m.deleteLocked(id)
		}
	}
	return nil
}

func (m *Memory) Touch(_ context.Context, id string, lastActiveAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.LastActiveAt = lastActiveAt
	return nil
}

// DeleteExpired removes expired sessions.
func (m *Memory) DeleteExpired(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, s := range m.byID {
		if s.IsExpired() {
			m.deleteLocked(id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) deleteLocked(id string) {
	if s, ok := m.byID[id]; ok {
		delete(m.byToken, s.Token)
		delete(m.byID, id)
	}
}
