// Package health aggregates named dependency checks for liveness and
// readiness probes. Checks run in parallel with a shared timeout and are
// reported per-check, so a failing dependency is visible by name.
package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTimeout bounds a single probe run.
	DefaultTimeout = 5 * time.Second

	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc probes a single dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// Checks is a map of named health check functions.
type Checks map[string]CheckFunc

// Response aggregates the outcome of a probe run.
type Response struct {
	Checks map[string]Check `json:"checks,omitempty"`
	Status string           `json:"status"`
}

// Check is the outcome of a single named check.
type Check struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Run executes all checks in parallel and aggregates the result. Individual
// check failures never abort the run; every check reports its own status.
func Run(ctx context.Context, checks Checks, timeout time.Duration) *Response {
	if len(checks) == 0 {
		return &Response{Status: StatusHealthy}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var mu sync.Mutex
	results := make(map[string]Check, len(checks))
	unhealthy := false

	g, ctx := errgroup.WithContext(ctx)
	for name, check := range checks {
		g.Go(func() error {
			result := Check{Status: StatusHealthy}
			if err := check(ctx); err != nil {
				result.Status = StatusUnhealthy
				result.Error = err.Error()
			}

			mu.Lock()
			results[name] = result
			if result.Status == StatusUnhealthy {
				unhealthy = true
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // checks never return errors through the group

	status := StatusHealthy
	if unhealthy {
		status = StatusUnhealthy
	}
	return &Response{Status: status, Checks: results}
}

// Healthy reports whether the run found no failing checks.
func (r *Response) Healthy() bool {
	return r.Status == StatusHealthy
}
