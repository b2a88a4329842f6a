// Package middlewares provides HTTP middleware for keel applications.
//
// # Request ID
//
// RequestID assigns a unique ID to each request for tracing. It checks
// incoming headers for an upstream ID or generates a UUID:
//
//	app := keel.New(
//	    keel.WithLogger("api", middlewares.RequestIDExtractor()),
//	    keel.WithMiddleware(
//	        middlewares.RequestID(),
//	    ),
//	)
//
// # Recover
//
// Recover catches panics and converts them to typed errors for the global
// ErrorHandler:
//
//	keel.WithErrorHandler(func(c keel.Context, err error) error {
//	    if middlewares.IsPanicError(err) {
//	        return c.Error(500, "Internal Server Error")
//	    }
//	    return c.Error(500, err.Error())
//	})
//
// # Timeout
//
// Timeout enforces request timeouts and returns a typed TimeoutError. The
// handler goroutine continues after the timeout; use GetTimeoutContext for
// early termination.
//
// # Logger
//
// Logger writes one structured line per request with method, path, status,
// size, and duration.
//
// # Recommended order
//
//	keel.WithMiddleware(
//	    middlewares.RequestID(), // first: ID for all subsequent logging
//	    middlewares.Logger(),    // second: observes the full request
//	    middlewares.Recover(),   // third: catches panics from below
//	    middlewares.Timeout(5*time.Second),
//	)
//
// Cross-origin handling, security headers, CSRF, and access rules are not
// middlewares here: they run in the application's security pipeline before
// routing, configured via keel.WithCORS, keel.WithSecurityHeaders,
// keel.WithCSRF, and keel.WithAccessRules.
package middlewares
