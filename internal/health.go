package internal

import (
	"net/http"
	"strings"

	"github.com/keelframework/keel/pkg/health"
)

// healthLivenessHandler always reports OK while the process is running.
func healthLivenessHandler() HandlerFunc {
	return func(c Context) error {
		if wantsJSON(c) {
			return c.JSON(http.StatusOK, &health.Response{Status: health.StatusHealthy})
		}
		return c.String(http.StatusOK, "OK")
	}
}

// healthReadinessHandler runs the configured checks and reports 503 when
// any dependency is unhealthy.
func healthReadinessHandler(checks health.Checks) HandlerFunc {
	return func(c Context) error {
		resp := health.Run(c.Context(), checks, health.DefaultTimeout)

		status := http.StatusOK
		if !resp.Healthy() {
			status = http.StatusServiceUnavailable
		}

		if wantsJSON(c) {
			return c.JSON(status, resp)
		}
		if resp.Healthy() {
			return c.String(status, "OK")
		}
		return c.String(status, "Service Unavailable")
	}
}

// wantsJSON checks if the client wants a JSON response.
func wantsJSON(c Context) bool {
	if c.Query("format") == "json" {
		return true
	}
	return strings.Contains(c.Header("Accept"), "application/json")
}
