package middlewares_test

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/social/internal"
	"github.com/dmitrymomot/social/middlewares"
)

func TestRecover(t *testing.T) {
	t.Parallel()

	t.Run("returns PanicError with stack", func(t *testing.T) {
		t.Parallel()

		var logs syncBuffer
		c := newTestContext(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)).
			withLogger(slog.New(slog.NewJSONHandler(&logs, nil)))

		err := middlewares.Recover()(func(internal.Context) error {
			panic("boom")
		})(c)

		pe, ok := middlewares.AsPanicError(err)
		require.True(t, ok)
		assert.Equal(t, "boom", pe.Value)
		assert.NotEmpty(t, pe.Stack)
		assert.Equal(t, "panic: boom", err.Error())
		assert.Contains(t, logs.String(), `"msg":"panic recovered"`)
		assert.Contains(t, logs.String(), `"stack"`)
	})

	t.Run("passes through", func(t *testing.T) {
		t.Parallel()

		c := newTestContext(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		want := errors.New("plain")
		err := middlewares.Recover()(func(internal.Context) error { return want })(c)
		assert.Same(t, want, err)
	})

	t.Run("without stack", func(t *testing.T) {
		t.Parallel()

		c := newTestContext(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		err := middlewares.Recover(middlewares.WithoutStack())(func(internal.Context) error {
			panic("boom")
		})(c)

		pe, ok := middlewares.AsPanicError(err)
		require.True(t, ok)
		assert.Nil(t, pe.Stack)
	})

	t.Run("stack size cap", func(t *testing.T) {
		t.Parallel()

		c := newTestContext(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		err := middlewares.Recover(middlewares.WithStackSize(64))(func(internal.Context) error {
			panic("boom")
		})(c)

		pe, ok := middlewares.AsPanicError(err)
		require.True(t, ok)
		assert.LessOrEqual(t, len(pe.Stack), 64)
	})

	t.Run("error values unwrap", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("nil map write")
		c := newTestContext(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		err := middlewares.Recover()(func(internal.Context) error { panic(cause) })(c)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("re-raises ErrAbortHandler", func(t *testing.T) {
		t.Parallel()

		c := newTestContext(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		h := middlewares.Recover()(func(internal.Context) error { panic(http.ErrAbortHandler) })
		assert.PanicsWithValue(t, http.ErrAbortHandler, func() { _ = h(c) })
	})
}
