package middlewares

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/social/internal"
)

// DefaultTimeout bounds a flow request when Timeout gets a non-positive value.
const DefaultTimeout = 30 * time.Second

// Timeout puts a deadline on the request context. The handler runs on the
// calling goroutine, so the datastore unit and provider calls observe the
// deadline and the response is never written concurrently. A handler that
// fails after the deadline passed yields a 504 wrapping a *TimeoutError.
func Timeout(d time.Duration) internal.Middleware {
	if d <= 0 {
		d = DefaultTimeout
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			r := c.Request()
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			c.SetRequest(r.WithContext(ctx))

			err := next(c)
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				c.LogWarn("request timeout", "timeout", d.String(), "error", err)
				return internal.NewHTTPError(http.StatusGatewayTimeout, "request timeout",
					internal.WithError(errors.Join(&TimeoutError{Duration: d}, err)))
			}
			return err
		}
	}
}
