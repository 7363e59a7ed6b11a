package internal

import (
	"fmt"
	"sync"

	"github.com/dmitrymomot/social/pkg/connection"
)

// unitOfWork is the connection store of one request. It commits right
// before the response is written and rolls back otherwise.
type unitOfWork struct {
	connection.Store
	once sync.Once
}

// begin opens a unit and registers its commit as a before-write hook.
// Callers defer release.
func (e *Extension) begin(c Context) (*unitOfWork, error) {
	store, err := e.datastore.Begin(c)
	if err != nil {
		return nil, fmt.Errorf("begin connection unit: %w", err)
	}
	u := &unitOfWork{Store: store}
	c.ResponseWriter().OnBeforeWrite(func() { u.commit(c) })
	return u, nil
}

// commit flushes the unit. A failure is logged and leaves it uncommitted.
func (u *unitOfWork) commit(c Context) {
	u.once.Do(func() {
		if err := u.Store.Commit(c); err != nil {
			c.LogError("failed to commit connection changes", "error", err)
		}
	})
}

// release rolls back a unit that was never committed.
func (u *unitOfWork) release(c Context) {
	u.once.Do(func() {
		if err := u.Store.Rollback(c); err != nil {
			c.LogError("failed to roll back connection changes", "error", err)
		}
	})
}
