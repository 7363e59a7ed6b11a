package middlewares_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/social/internal"
	"github.com/dmitrymomot/social/middlewares"
	"github.com/dmitrymomot/social/pkg/logger"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("generates a UUID", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		c := newTestContext(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		var seen string
		err := middlewares.RequestID()(func(c internal.Context) error {
			seen = middlewares.RequestIDFrom(c)
			return c.NoContent(http.StatusNoContent)
		})(c)
		require.NoError(t, err)

		_, perr := uuid.Parse(seen)
		require.NoError(t, perr)
		assert.Equal(t, seen, rec.Header().Get(middlewares.RequestIDHeader))
	})

	t.Run("reuses upstream header", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Correlation-ID", "corr-1")
		rec := httptest.NewRecorder()
		c := newTestContext(rec, req)

		var seen string
		_ = middlewares.RequestID()(func(c internal.Context) error {
			seen = middlewares.RequestIDFrom(c)
			return nil
		})(c)
		assert.Equal(t, "corr-1", seen)
		assert.Equal(t, "corr-1", rec.Header().Get("X-Request-ID"))
	})

	t.Run("custom headers and generator", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "ignored")
		c := newTestContext(httptest.NewRecorder(), req)

		mw := middlewares.RequestID(
			middlewares.WithRequestIDHeaders("X-Trace"),
			middlewares.WithRequestIDGenerator(func() string { return "fixed" }),
		)
		var seen string
		_ = mw(func(c internal.Context) error {
			seen = middlewares.RequestIDFrom(c)
			return nil
		})(c)
		assert.Equal(t, "fixed", seen)
	})

	t.Run("stamps HTTP errors", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-9")
		c := newTestContext(httptest.NewRecorder(), req)

		err := middlewares.RequestID()(func(internal.Context) error {
			return internal.ErrBadRequest("invalid oauth state")
		})(c)
		httpErr := internal.AsHTTPError(err)
		require.NotNil(t, httpErr)
		assert.Equal(t, "req-9", httpErr.RequestID)
	})
}

func TestRequestIDExtractor(t *testing.T) {
	t.Parallel()

	var logs syncBuffer
	log := slog.New(logger.WithExtractors(slog.NewJSONHandler(&logs, nil), middlewares.RequestIDExtractor()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	c := newTestContext(httptest.NewRecorder(), req).withLogger(log)

	_ = middlewares.RequestID()(func(c internal.Context) error {
		c.LogInfo("connection created")
		return nil
	})(c)
	log.InfoContext(context.Background(), "outside request")

	out := logs.String()
	assert.Contains(t, out, `"msg":"connection created","request_id":"req-42"`)
	assert.NotContains(t, out, `"msg":"outside request","request_id"`)
}
