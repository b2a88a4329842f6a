package internal

import (
	"log/slog"

	"github.com/keelframework/keel/pkg/cookie"
	"github.com/keelframework/keel/pkg/health"
	"github.com/keelframework/keel/pkg/logger"
	"github.com/keelframework/keel/pkg/session"
)

// Option configures the application.
type Option func(*App)

// WithMiddleware adds global middleware to the application.
// Middleware is applied in the order provided.
func WithMiddleware(mw ...Middleware) Option {
	return func(a *App) {
		a.middlewares = append(a.middlewares, mw...)
	}
}

// WithHandlers registers handlers that declare routes.
// Each handler's Routes method is called during setup.
func WithHandlers(h ...Handler) Option {
	return func(a *App) {
		a.handlers = append(a.handlers, h...)
	}
}

// WithErrorHandler sets a custom error handler for handler errors.
// Called when a handler returns a non-nil error.
//
// Example:
//
//	keel.WithErrorHandler(func(c keel.Context, err error) error {
//	    return c.JSON(http.StatusInternalServerError, map[string]string{
//	        "error": err.Error(),
//	    })
//	})
func WithErrorHandler(h ErrorHandler) Option {
	return func(a *App) {
		a.errorHandler = h
	}
}

// WithNotFoundHandler sets a custom 404 handler.
func WithNotFoundHandler(h HandlerFunc) Option {
	return func(a *App) {
		a.notFoundHandler = h
	}
}

// WithMethodNotAllowedHandler sets a custom 405 handler. The Allow header
// is set before the handler runs.
func WithMethodNotAllowedHandler(h HandlerFunc) Option {
	return func(a *App) {
		a.methodNotAllowedHandler = h
	}
}

// WithLogger creates a logger with a component name and optional extractors.
// The component name is added to every log entry for easy filtering.
// Extractors pull values from context (e.g., request_id, user_id).
//
// Example:
//
//	keel.New(
//	    keel.WithLogger("api", requestIDExtractor),
//	)
func WithLogger(component string, extractors ...logger.ContextExtractor) Option {
	return func(a *App) {
		a.logger = logger.New(extractors...).With("component", component)
	}
}

// WithCustomLogger sets a fully custom logger.
// Use this when you need complete control over logging configuration.
func WithCustomLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithCookieOptions configures the cookie manager.
//
// Example:
//
//	keel.New(
//	    keel.WithCookieOptions(
//	        cookie.WithSecret(os.Getenv("COOKIE_SECRET")),
//	        cookie.WithSecure(true),
//	    ),
//	)
func WithCookieOptions(opts ...cookie.Option) Option {
	return func(a *App) {
		a.cookieManager = cookie.New(opts...)
	}
}

// WithSession enables server-side session management.
// A session.Store implementation must be provided (e.g., PostgresStore).
// Sessions are loaded lazily and saved automatically before the response
// is written.
//
// Example:
//
//	store := session.NewPostgresStore(pool)
//	keel.New(
//	    keel.WithSession(store,
//	        keel.WithSessionCookieName("__sid"),
//	        keel.WithSessionTTL(30*24*time.Hour),
//	    ),
//	)
func WithSession(store session.Store, opts ...SessionOption) Option {
	return func(a *App) {
		a.sessionStore = store
		a.sessionOpts = opts
	}
}

// WithCORS enables cross-origin resource sharing with the given options.
// Preflight requests are answered before routing.
func WithCORS(opts ...CORSOption) Option {
	return func(a *App) {
		a.cors = NewCORSPolicy(opts...)
	}
}

// WithSecurityHeaders enables security response headers on every
// dispatched request.
func WithSecurityHeaders(opts ...HeadersOption) Option {
	return func(a *App) {
		a.headers = NewHeadersPolicy(opts...)
	}
}

// WithCSRF enables CSRF protection for state-changing requests.
//
// Example:
//
//	keel.New(
//	    keel.WithCSRF(
//	        keel.WithCSRFIgnorePaths("/api/webhooks/**"),
//	    ),
//	)
func WithCSRF(opts ...CSRFOption) Option {
	return func(a *App) {
		a.csrf = NewCSRFPolicy(opts...)
	}
}

// WithAuthStrategy sets the default authentication strategy backing
// RequireAuth rules that don't name one. Defaults to session-based
// authentication.
func WithAuthStrategy(s Strategy) Option {
	return func(a *App) {
		a.defaultStrategy = s
	}
}

// WithAccessRules declares the access rules guarding routes. Rules are
// evaluated in declaration order and the first match wins; once any rule
// exists, requests matching none are rejected.
//
// Example:
//
//	keel.New(
//	    keel.WithAccessRules(func(r *keel.RuleTable) {
//	        r.Route("/login").PermitAll()
//	        r.Route("/static/**").PermitAll()
//	        r.Route("/admin/**").RequireAuth().RedirectTo("/login")
//	        r.AnyRoute().RequireAuth()
//	    }),
//	)
func WithAccessRules(fn func(*RuleTable)) Option {
	return func(a *App) {
		a.rulesFn = fn
	}
}

// WithHealthChecks enables health check endpoints with optional
// configuration.
// Liveness (/health/live): always returns OK if the process is running.
// Readiness (/health/ready): runs all configured checks in parallel.
//
// Example:
//
//	keel.New(
//	    keel.WithHealthChecks(
//	        keel.WithReadinessCheck("db", db.Healthcheck(pool)),
//	        keel.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	    ),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return func(a *App) {
		cfg := &healthConfig{
			livenessPath:  defaultLivenessPath,
			readinessPath: defaultReadinessPath,
			checks:        make(health.Checks),
		}
		for _, opt := range opts {
			opt(cfg)
		}
		a.healthConfig = cfg
	}
}
