package mongo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/social/pkg/mongo"
)

func TestOpen_Validation(t *testing.T) {
	t.Parallel()

	t.Run("empty URL", func(t *testing.T) {
		t.Parallel()

		_, err := mongo.Open(context.Background(), "")
		require.ErrorIs(t, err, mongo.ErrEmptyConnectionURL)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		t.Parallel()

		_, err := mongo.Open(context.Background(), "redis://localhost:6379")
		require.ErrorIs(t, err, mongo.ErrFailedToParseURL)
	})
}

func TestHealthcheck_NilClient(t *testing.T) {
	t.Parallel()

	err := mongo.Healthcheck(nil)(context.Background())
	require.ErrorIs(t, err, mongo.ErrHealthcheckFailed)
}
