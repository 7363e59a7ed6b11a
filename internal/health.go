package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/social/pkg/connection"
)

const (
	defaultHealthTimeout = 5 * time.Second

	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// CheckFunc is a named dependency check, such as db.Healthcheck(pool).
type CheckFunc func(ctx context.Context) error

type healthResponse struct {
	Checks map[string]healthCheck `json:"checks,omitempty"`
	Status string                 `json:"status"`
}

type healthCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// healthChecks returns the configured checks plus the datastore's own.
func (e *Extension) healthChecks() map[string]CheckFunc {
	checks := maps.Clone(e.checks)
	if checks == nil {
		checks = make(map[string]CheckFunc)
	}
	if hc, ok := e.datastore.(connection.Healthchecker); ok {
		if _, set := checks["connections"]; !set {
			checks["connections"] = hc.Healthcheck
		}
	}
	return checks
}

// Healthcheck runs every check concurrently and joins the failures.
func (e *Extension) Healthcheck(ctx context.Context) error {
	resp := e.runChecks(ctx)
	if resp.Status == statusHealthy {
		return nil
	}
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(resp.Checks)) {
		if r := resp.Checks[name]; r.Status != statusHealthy {
			errs = append(errs, fmt.Errorf("%s: %s", name, r.Error))
		}
	}
	return errors.Join(errs...)
}

func (e *Extension) runChecks(ctx context.Context) *healthResponse {
	checks := e.healthChecks()
	if len(checks) == 0 {
		return &healthResponse{Status: statusHealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, defaultHealthTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make(map[string]healthCheck, len(checks))
		status  = statusHealthy
	)
	for name, check := range checks {
		g.Go(func() error {
			result := healthCheck{Status: statusHealthy}
			if err := check(ctx); err != nil {
				result = healthCheck{Status: statusUnhealthy, Error: err.Error()}
				e.logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
			}
			mu.Lock()
			defer mu.Unlock()
			results[name] = result
			if result.Status != statusHealthy {
				status = statusUnhealthy
			}
			return nil
		})
	}
	_ = g.Wait()

	return &healthResponse{Status: status, Checks: results}
}

// HealthHandler serves the readiness of the extension's backends:
// 200 when every check passes, 503 otherwise.
func (e *Extension) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := e.runChecks(r.Context())

		code := http.StatusOK
		if resp.Status == statusUnhealthy {
			code = http.StatusServiceUnavailable
		}

		if wantsJSON(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}
		w.WriteHeader(code)
		_, _ = w.Write([]byte(http.StatusText(code)))
	}
}

func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
