package connection

import (
	"context"
	"sync"
	"time"
)

// Memory keeps connections in process memory.
// All stores returned by Begin share the same data and write immediately.
type Memory struct {
	items      map[string]*Connection
	identities map[identityKey]string
	mu         sync.RWMutex
}

type identityKey struct {
	providerID     string
	providerUserID string
}

// NewMemoryDatastore creates an empty in-memory datastore.
func NewMemoryDatastore() *Memory {
	return &Memory{
		items:      make(map[string]*Connection),
		identities: make(map[identityKey]string),
	}
}

// Begin returns the datastore itself; memory writes need no unit of work.
func (m *Memory) Begin(context.Context) (Store, error) {
	return m, nil
}

// Healthcheck always succeeds.
func (m *Memory) Healthcheck(context.Context) error {
	return nil
}

func (m *Memory) FindConnection(ctx context.Context, f Filter) (*Connection, error) {
	conns, err := m.FindConnections(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return nil, ErrNotFound
	}
	return conns[0], nil
}

func (m *Memory) FindConnections(_ context.Context, f Filter) ([]*Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.match(f), nil
}

func (m *Memory) CreateConnection(_ context.Context, c *Connection) (*Connection, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := identityKey{c.ProviderID, c.ProviderUserID}
	if _, ok := m.identities[key]; ok {
		return nil, ErrDuplicate
	}

	stored := *c
	stored.prepareCreate()
	m.items[stored.ID] = &stored
	m.identities[key] = stored.ID

	out := stored
	return &out, nil
}

func (m *Memory) UpdateConnection(_ context.Context, c *Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.items[c.ID]
	if !ok {
		return ErrNotFound
	}

	updated := *c
	updated.UserID = existing.UserID
	updated.ProviderID = existing.ProviderID
	updated.ProviderUserID = existing.ProviderUserID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	m.items[c.ID] = &updated
	return nil
}

func (m *Memory) DeleteConnection(_ context.Context, f Filter) (bool, error) {
	if f.IsEmpty() {
		return false, ErrEmptyFilter
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conns := m.match(f)
	if len(conns) == 0 {
		return false, nil
	}
	m.remove(conns[0])
	return true, nil
}

func (m *Memory) DeleteConnections(_ context.Context, f Filter) (bool, error) {
	if f.IsEmpty() {
		return false, ErrEmptyFilter
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conns := m.match(f)
	for _, c := range conns {
		m.remove(c)
	}
	return len(conns) > 0, nil
}

func (m *Memory) Commit(context.Context) error   { return nil }
func (m *Memory) Rollback(context.Context) error { return nil }

// match returns copies of the matching connections ordered by rank.
// Caller must hold the lock.
func (m *Memory) match(f Filter) []*Connection {
	out := make([]*Connection, 0)
	for _, c := range m.items {
		if f.Match(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sortByRank(out)
	return out
}

// remove deletes a connection and its identity index. Caller must hold the lock.
func (m *Memory) remove(c *Connection) {
	delete(m.items, c.ID)
	delete(m.identities, identityKey{c.ProviderID, c.ProviderUserID})
}
