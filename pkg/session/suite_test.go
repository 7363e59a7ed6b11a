package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/social/pkg/session"
)

func newSession(userID string, ttl time.Duration) *session.Session {
	s := session.New(uuid.NewString(), uuid.NewString(), time.Now().Add(ttl))
	s.UserID = userID
	s.IP = "203.0.113.7"
	s.UserAgent = "test-agent"
	return s
}

// runStoreSuite checks the Store contract against a fresh store per subtest.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) session.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		store := newStore(t)
		s := newSession("", time.Hour)
		s.SetValue("social_oauth_state:github", "st-1")
		require.NoError(t, store.Create(ctx, s))

		got, err := store.Get(ctx, s.Token)
		require.NoError(t, err)
		require.Equal(t, s.ID, got.ID)
		require.Equal(t, "203.0.113.7", got.IP)
		require.Equal(t, "st-1", got.Values["social_oauth_state:github"])
		require.False(t, got.IsAuthenticated())
		require.False(t, got.IsNew())
		require.False(t, got.IsDirty())
	})

	t.Run("unknown token", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "missing")
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("update with rotated token", func(t *testing.T) {
		store := newStore(t)
		s := newSession("", time.Hour)
		require.NoError(t, store.Create(ctx, s))

		oldToken := s.Token
		s.Token = uuid.NewString()
		s.SetUser("u-1")
		require.NoError(t, store.Update(ctx, s))

		_, err := store.Get(ctx, oldToken)
		require.ErrorIs(t, err, session.ErrNotFound)

		got, err := store.Get(ctx, s.Token)
		require.NoError(t, err)
		require.Equal(t, "u-1", got.UserID)
	})

	t.Run("update unknown", func(t *testing.T) {
		store := newStore(t)
		require.ErrorIs(t, store.Update(ctx, newSession("", time.Hour)), session.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		s := newSession("u-1", time.Hour)
		require.NoError(t, store.Create(ctx, s))

		require.NoError(t, store.Delete(ctx, s.ID))
		_, err := store.Get(ctx, s.Token)
		require.ErrorIs(t, err, session.ErrNotFound)

		require.NoError(t, store.Delete(ctx, s.ID), "deleting twice is not an error")
	})

	t.Run("delete by user", func(t *testing.T) {
		store := newStore(t)
		a := newSession("u-1", time.Hour)
		b := newSession("u-1", time.Hour)
		other := newSession("u-2", time.Hour)
		for _, s := range []*session.Session{a, b, other} {
			require.NoError(t, store.Create(ctx, s))
		}

		require.NoError(t, store.DeleteByUserID(ctx, "u-1"))

		for _, s := range []*session.Session{a, b} {
			_, err := store.Get(ctx, s.Token)
			require.ErrorIs(t, err, session.ErrNotFound)
		}
		_, err := store.Get(ctx, other.Token)
		require.NoError(t, err)
	})

	t.Run("touch", func(t *testing.T) {
		store := newStore(t)
		s := newSession("", time.Hour)
		require.NoError(t, store.Create(ctx, s))

		at := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Millisecond)
		require.NoError(t, store.Touch(ctx, s.ID, at))

		got, err := store.Get(ctx, s.Token)
		require.NoError(t, err)
		require.WithinDuration(t, at, got.LastActiveAt, time.Millisecond)

		require.ErrorIs(t, store.Touch(ctx, "missing", at), session.ErrNotFound)
	})
}
