package connection_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/social/pkg/connection"
)

// runDatastoreSuite exercises the behavior every backend must share.
// newDatastore must return an isolated, empty datastore.
func runDatastoreSuite(t *testing.T, newDatastore func(t *testing.T) connection.Datastore) {
	t.Helper()

	begin := func(t *testing.T, ds connection.Datastore) connection.Store {
		t.Helper()
		store, err := ds.Begin(context.Background())
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Rollback(context.Background()) })
		return store
	}

	create := func(t *testing.T, store connection.Store, c connection.Connection) *connection.Connection {
		t.Helper()
		created, err := store.CreateConnection(context.Background(), &c)
		require.NoError(t, err)
		return created
	}

	t.Run("create assigns id and timestamps", func(t *testing.T) {
		ds := newDatastore(t)
		store := begin(t, ds)

		created := create(t, store, connection.Connection{
			UserID:         "user-1",
			ProviderID:     "twitter",
			ProviderUserID: "1234",
			AccessToken:    "token",
			DisplayName:    "@jdoe",
		})

		require.NotEmpty(t, created.ID)
		require.False(t, created.CreatedAt.IsZero())
		require.False(t, created.UpdatedAt.IsZero())
		require.NoError(t, store.Commit(context.Background()))
	})

	t.Run("find by provider identity", func(t *testing.T) {
		ds := newDatastore(t)
		store := begin(t, ds)
		ctx := context.Background()

		create(t, store, connection.Connection{
			UserID:         "user-1",
			ProviderID:     "twitter",
			ProviderUserID: "1234",
			AccessToken:    "token",
			Secret:         "secret",
		})

		found, err := store.FindConnection(ctx, connection.Filter{ProviderID: "twitter", ProviderUserID: "1234"})
		require.NoError(t, err)
		require.Equal(t, "user-1", found.UserID)
		require.Equal(t, "token", found.AccessToken)
		require.Equal(t, "secret", found.Secret)
	})

	t.Run("find missing returns ErrNotFound", func(t *testing.T) {
		ds := newDatastore(t)
		store := begin(t, ds)

		_, err := store.FindConnection(context.Background(), connection.Filter{ProviderID: "twitter", ProviderUserID: "nope"})
		require.ErrorIs(t, err, connection.ErrNotFound)
	})

	t.Run("duplicate provider identity is rejected", func(t *testing.T) {
		ds := newDatastore(t)
		store := begin(t, ds)
		ctx := context.Background()

		create(t, store, connection.Connection{UserID: "user-1", ProviderID: "twitter", ProviderUserID: "1234"})

		_, err := store.CreateConnection(ctx, &connection.Connection{UserID: "user-1", ProviderID: "twitter", ProviderUserID: "1234"})
		require.ErrorIs(t, err, connection.ErrDuplicate)

		_, err = store.CreateConnection(ctx, &connection.Connection{UserID: "user-2", ProviderID: "twitter", ProviderUserID: "1234"})
		require.ErrorIs(t, err, connection.ErrDuplicate)

		conns, err := store.FindConnections(ctx, connection.Filter{ProviderID: "twitter"})
		require.NoError(t, err)
		require.Len(t, conns, 1)
	})

	t.Run("create requires identifying fields", func(t *testing.T) {
		ds := newDatastore(t)
		store := begin(t, ds)

		_, err := store.CreateConnection(context.Background(), &connection.Connection{ProviderID: "twitter", ProviderUserID: "1"})
		require.ErrorIs(t, err, connection.ErrInvalidConnection)
	})

	t.Run("connections are ordered by rank", func(t *testing.T) {
		ds := newDatastore(t)
		store := begin(t, ds)
		ctx := context.Background()

		create(t, store, connection.Connection{UserID: "user-1", ProviderID: "facebook", ProviderUserID: "b", Rank: 2})
		create(t, store, connection.Connection{UserID: "user-1", ProviderID: "facebook", ProviderUserID: "a", Rank: 1})
		create(t, store, connection.Connection{UserID: "user-1", ProviderID: "twitter", ProviderUserID: "c", Rank: 0})

		conns, err := store.FindConnections(ctx, connection.Filter{UserID: "user-1", ProviderID: "facebook"})
		require.NoError(t, err)
		require.Len(t, conns, 2)
		require.Equal(t, "a", conns[0].ProviderUserID)
		require.Equal(t, "b", conns[1].ProviderUserID)

		primary, err := store.FindConnection(ctx, connection.Filter{UserID: "user-1", ProviderID: "facebook"})
		require.NoError(t, err)
		require.Equal(t, "a", primary.ProviderUserID)

		all, err := store.FindConnections(ctx, connection.Filter{UserID: "user-1"})
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, "c", all[0].ProviderUserID)
	})

	t.Run("update replaces token fields only", func(t *testing.T) {
		ds := newDatastore(t)
		store := begin(t, ds)
		ctx := context.Background()

		created := create(t, store, connection.Connection{
			UserID:         "user-1",
			ProviderID:     "twitter",
			ProviderUserID: "1234",
			AccessToken:    "old",
			Secret:         "old-secret",
		})

		created.AccessToken = "new"
		created.Secret = "new-secret"
		created.ExpiresAt = time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		created.UserID = "someone-else"
		require.NoError(t, store.UpdateConnection(ctx, created))

		found, err := store.FindConnection(ctx, connection.Filter{ProviderID: "twitter", ProviderUserID: "1234"})
		require.NoError(t, err)
		require.Equal(t, "new", found.AccessToken)
		require.Equal(t, "new-secret", found.Secret)
		require.Equal(t, "user-1", found.UserID)
		require.True(t, created.ExpiresAt.Equal(found.ExpiresAt))
	})

	t.Run("update of unknown connection returns ErrNotFound", func(t *testing.T) {
		ds := newDatastore(t)
		store := begin(t, ds)

		err := store.UpdateConnection(context.Background(), &connection.Connection{ID: "missing", AccessToken: "x"})
		require.ErrorIs(t, err, connection.ErrNotFound)
	})

	t.Run("delete removes exactly one match", func(t *testing.T) {
		ds := newDatastore(t)
		store := begin(t, ds)
		ctx := context.Background()

		create(t, store, connection.Connection{UserID: "user-1", ProviderID: "github", ProviderUserID: "1"})
		create(t, store, connection.Connection{UserID: "user-1", ProviderID: "github", ProviderUserID: "2"})

		deleted, err := store.DeleteConnection(ctx, connection.Filter{UserID: "user-1", ProviderID: "github", ProviderUserID: "2"})
		require.NoError(t, err)
		require.True(t, deleted)

		conns, err := store.FindConnections(ctx, connection.Filter{UserID: "user-1", ProviderID: "github"})
		require.NoError(t, err)
		require.Len(t, conns, 1)
		require.Equal(t, "1", conns[0].ProviderUserID)

		deleted, err = store.DeleteConnection(ctx, connection.Filter{UserID: "user-1", ProviderID: "github", ProviderUserID: "2"})
		require.NoError(t, err)
		require.False(t, deleted)
	})

	t.Run("delete is scoped to the user", func(t *testing.T) {
		ds := newDatastore(t)
		store := begin(t, ds)
		ctx := context.Background()

		create(t, store, connection.Connection{UserID: "user-1", ProviderID: "github", ProviderUserID: "1"})

		deleted, err := store.DeleteConnection(ctx, connection.Filter{UserID: "user-2", ProviderID: "github", ProviderUserID: "1"})
		require.NoError(t, err)
		require.False(t, deleted)

		_, err = store.FindConnection(ctx, connection.Filter{ProviderID: "github", ProviderUserID: "1"})
		require.NoError(t, err)
	})

	t.Run("deleted identity can be linked again", func(t *testing.T) {
		ds := newDatastore(t)
		store := begin(t, ds)
		ctx := context.Background()

		create(t, store, connection.Connection{UserID: "user-1", ProviderID: "github", ProviderUserID: "1"})
		deleted, err := store.DeleteConnection(ctx, connection.Filter{UserID: "user-1", ProviderID: "github", ProviderUserID: "1"})
		require.NoError(t, err)
		require.True(t, deleted)

		create(t, store, connection.Connection{UserID: "user-2", ProviderID: "github", ProviderUserID: "1"})
	})

	t.Run("delete all removes every match for provider", func(t *testing.T) {
		ds := newDatastore(t)
		store := begin(t, ds)
		ctx := context.Background()

		create(t, store, connection.Connection{UserID: "user-1", ProviderID: "github", ProviderUserID: "1"})
		create(t, store, connection.Connection{UserID: "user-1", ProviderID: "github", ProviderUserID: "2"})
		create(t, store, connection.Connection{UserID: "user-1", ProviderID: "twitter", ProviderUserID: "3"})
		create(t, store, connection.Connection{UserID: "user-2", ProviderID: "github", ProviderUserID: "4"})

		deleted, err := store.DeleteConnections(ctx, connection.Filter{UserID: "user-1", ProviderID: "github"})
		require.NoError(t, err)
		require.True(t, deleted)

		left, err := store.FindConnections(ctx, connection.Filter{ProviderID: "github"})
		require.NoError(t, err)
		require.Len(t, left, 1)
		require.Equal(t, "user-2", left[0].UserID)

		_, err = store.FindConnection(ctx, connection.Filter{UserID: "user-1", ProviderID: "twitter"})
		require.NoError(t, err)

		deleted, err = store.DeleteConnections(ctx, connection.Filter{UserID: "user-1", ProviderID: "github"})
		require.NoError(t, err)
		require.False(t, deleted)
	})

	t.Run("delete rejects empty filter", func(t *testing.T) {
		ds := newDatastore(t)
		store := begin(t, ds)
		ctx := context.Background()

		_, err := store.DeleteConnection(ctx, connection.Filter{})
		require.ErrorIs(t, err, connection.ErrEmptyFilter)

		_, err = store.DeleteConnections(ctx, connection.Filter{})
		require.ErrorIs(t, err, connection.ErrEmptyFilter)
	})

	t.Run("committed writes are visible to a new unit", func(t *testing.T) {
		ds := newDatastore(t)
		ctx := context.Background()

		store := begin(t, ds)
		create(t, store, connection.Connection{UserID: "user-1", ProviderID: "vk", ProviderUserID: "42"})
		require.NoError(t, store.Commit(ctx))

		next := begin(t, ds)
		found, err := next.FindConnection(ctx, connection.Filter{ProviderID: "vk", ProviderUserID: "42"})
		require.NoError(t, err)
		require.Equal(t, "user-1", found.UserID)
	})

	t.Run("concurrent creates link an identity once", func(t *testing.T) {
		ds := newDatastore(t)
		ctx := context.Background()

		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				store, err := ds.Begin(ctx)
				if err != nil {
					return
				}
				defer func() { _ = store.Rollback(ctx) }()

				_, err = store.CreateConnection(ctx, &connection.Connection{UserID: "user-1", ProviderID: "google", ProviderUserID: "g1"})
				if err != nil {
					return
				}
				if store.Commit(ctx) == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		require.Equal(t, 1, succeeded)
	})
}
