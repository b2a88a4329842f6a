package keel

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/keelframework/keel/internal"
	"github.com/keelframework/keel/pkg/config"
	"github.com/keelframework/keel/pkg/cookie"
	"github.com/keelframework/keel/pkg/health"
	"github.com/keelframework/keel/pkg/logger"
	"github.com/keelframework/keel/pkg/session"
)

// Type aliases - public API
type (
	// App orchestrates the application lifecycle.
	// It manages HTTP routing, the security pipeline, and graceful shutdown.
	App = internal.App

	// Router is the interface handlers use to declare routes.
	Router = internal.Router

	// Context provides request/response access and helper methods.
	Context = internal.Context

	// Handler declares routes on a router.
	Handler = internal.Handler

	// HandlerFunc is the signature for route handlers.
	HandlerFunc = internal.HandlerFunc

	// Middleware wraps a HandlerFunc to add cross-cutting concerns.
	Middleware = internal.Middleware

	// ErrorHandler handles errors returned from handlers.
	ErrorHandler = internal.ErrorHandler

	// HTTPError is a typed error carrying an HTTP status code.
	HTTPError = internal.HTTPError

	// HTTPErrorOption customizes an HTTPError.
	HTTPErrorOption = internal.HTTPErrorOption

	// Option configures the application.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// HealthOption configures health check endpoints.
	HealthOption = internal.HealthOption

	// RuleTable holds access rules in declaration order.
	RuleTable = internal.RuleTable

	// RuleBuilder configures a single access rule.
	RuleBuilder = internal.RuleBuilder

	// Strategy authenticates a request.
	Strategy = internal.Strategy

	// StrategyFunc adapts a function to the Strategy interface.
	StrategyFunc = internal.StrategyFunc

	// AuthResult reports the outcome of an authentication attempt.
	AuthResult = internal.AuthResult

	// TokenVerifier resolves an opaque credential to a principal ID.
	TokenVerifier = internal.TokenVerifier

	// Extractor pulls a credential string out of the request.
	Extractor = internal.Extractor

	// CORSOption customizes the CORS policy.
	CORSOption = internal.CORSOption

	// HeadersOption customizes the security headers policy.
	HeadersOption = internal.HeadersOption

	// CSRFOption customizes the CSRF policy.
	CSRFOption = internal.CSRFOption

	// ContextExtractor extracts a slog attribute from context.
	// Used with WithLogger to add request-scoped values to logs.
	ContextExtractor = logger.ContextExtractor

	// CookieOption configures the cookie manager.
	CookieOption = cookie.Option

	// SessionOption configures the session manager.
	SessionOption = internal.SessionOption

	// Session represents a user session.
	Session = session.Session

	// SessionStore defines the interface for session persistence.
	SessionStore = session.Store

	// ResponseWriter wraps http.ResponseWriter with commit tracking and
	// before-write hooks.
	ResponseWriter = internal.ResponseWriter
)

// New creates a new application with the given options.
// The App is immutable after creation.
//
// Example:
//
//	app := keel.New(
//	    keel.WithHandlers(
//	        handlers.NewAuth(repo),
//	        handlers.NewPages(repo),
//	    ),
//	    keel.WithAccessRules(func(r *keel.RuleTable) {
//	        r.Route("/login").PermitAll()
//	        r.AnyRoute().RequireAuth()
//	    }),
//	)
//
//	err := app.Run(":8080", keel.Logger(slog))
func New(opts ...Option) *App {
	return internal.New(opts...)
}

// App options

// WithMiddleware adds global middleware to the application.
// Middleware is applied in the order provided.
func WithMiddleware(mw ...Middleware) Option {
	return internal.WithMiddleware(mw...)
}

// WithHandlers registers handlers that declare routes.
// Each handler's Routes method is called during setup.
func WithHandlers(h ...Handler) Option {
	return internal.WithHandlers(h...)
}

// WithErrorHandler sets a custom error handler for handler errors.
// Called when a handler returns a non-nil error.
func WithErrorHandler(h ErrorHandler) Option {
	return internal.WithErrorHandler(h)
}

// WithNotFoundHandler sets a custom 404 handler.
func WithNotFoundHandler(h HandlerFunc) Option {
	return internal.WithNotFoundHandler(h)
}

// WithMethodNotAllowedHandler sets a custom 405 handler.
func WithMethodNotAllowedHandler(h HandlerFunc) Option {
	return internal.WithMethodNotAllowedHandler(h)
}

// WithHealthChecks enables health check endpoints with optional configuration.
// Liveness (/health/live): always returns OK if the process is running.
// Readiness (/health/ready): runs all configured checks.
//
// Example:
//
//	keel.WithHealthChecks(
//	    keel.WithReadinessCheck("db", db.Healthcheck(pool)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// WithLogger creates a logger with a component name and optional extractors.
// The component name is added to every log entry for easy filtering.
// Extractors pull values from context (e.g., request_id, user_id).
func WithLogger(component string, extractors ...ContextExtractor) Option {
	return internal.WithLogger(component, extractors...)
}

// WithCustomLogger sets a fully custom logger.
// Use this when you need complete control over logging configuration.
func WithCustomLogger(l *slog.Logger) Option {
	return internal.WithCustomLogger(l)
}

// WithCookieOptions configures the cookie manager.
//
// Example:
//
//	keel.New(
//	    keel.WithCookieOptions(
//	        keel.WithCookieSecret(os.Getenv("COOKIE_SECRET")),
//	        keel.WithCookieSecure(true),
//	    ),
//	)
func WithCookieOptions(opts ...CookieOption) Option {
	return internal.WithCookieOptions(opts...)
}

// WithSession enables server-side session management.
// A session.Store implementation must be provided (e.g., PostgresStore).
func WithSession(store SessionStore, opts ...SessionOption) Option {
	return internal.WithSession(store, opts...)
}

// WithCORS enables cross-origin resource sharing.
// Preflight requests are answered before routing.
func WithCORS(opts ...CORSOption) Option {
	return internal.WithCORS(opts...)
}

// WithSecurityHeaders enables security response headers on every
// dispatched request.
func WithSecurityHeaders(opts ...HeadersOption) Option {
	return internal.WithSecurityHeaders(opts...)
}

// WithCSRF enables CSRF protection for state-changing requests.
func WithCSRF(opts ...CSRFOption) Option {
	return internal.WithCSRF(opts...)
}

// WithAuthStrategy sets the default authentication strategy backing
// RequireAuth rules that don't name one. Defaults to session-based
// authentication.
func WithAuthStrategy(s Strategy) Option {
	return internal.WithAuthStrategy(s)
}

// WithAccessRules declares the access rules guarding routes. Rules are
// evaluated in declaration order and the first match wins; once any rule
// exists, requests matching none are rejected.
//
// Example:
//
//	keel.WithAccessRules(func(r *keel.RuleTable) {
//	    r.Route("/login").PermitAll()
//	    r.Route("/static/**").PermitAll()
//	    r.Route("/admin/**").RequireAuth().RedirectTo("/login")
//	    r.AnyRoute().RequireAuth()
//	})
func WithAccessRules(fn func(*RuleTable)) Option {
	return internal.WithAccessRules(fn)
}

// Health check options

// WithLivenessPath sets a custom liveness endpoint path.
// Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return internal.WithLivenessPath(path)
}

// WithReadinessPath sets a custom readiness endpoint path.
// Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return internal.WithReadinessPath(path)
}

// WithReadinessCheck adds a named readiness check.
// Checks run in parallel during readiness probe.
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// Run options

// Logger sets the server lifecycle logger.
// If nil, logging is disabled.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout sets the timeout for graceful shutdown.
// This applies to both the HTTP server and shutdown hooks.
// Defaults to 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// StartupHook registers a function to run before the server accepts
// requests. A failing hook aborts startup.
//
// Example:
//
//	keel.StartupHook(func(ctx context.Context) error {
//	    return db.Migrate(ctx, pool, migrations, "schema_migrations", log)
//	})
func StartupHook(fn func(context.Context) error) RunOption {
	return internal.StartupHook(fn)
}

// ShutdownHook registers a cleanup function to run during shutdown.
// Hooks are called in the order they were registered.
//
// Example:
//
//	keel.ShutdownHook(db.Shutdown(pool))
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// WithContext sets a custom base context for signal handling.
// Useful for testing or when integrating with existing context hierarchies.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// Auth strategies and extractors

// SessionAuth returns the session-backed authentication strategy.
func SessionAuth() Strategy {
	return internal.NewSessionStrategy()
}

// TokenAuth returns a strategy that validates an extracted credential with
// the verifier. With a nil extractor, the Authorization bearer header is
// used.
//
// Example:
//
//	svc, _ := jwt.New(os.Getenv("JWT_SECRET"))
//	keel.WithAccessRules(func(r *keel.RuleTable) {
//	    r.Route("/api/**").RequireAuth(keel.TokenAuth(svc, nil))
//	})
func TokenAuth(verifier TokenVerifier, extractor Extractor) Strategy {
	return internal.NewTokenStrategy(verifier, extractor)
}

// FromHeader extracts a credential from a request header.
func FromHeader(name string) Extractor { return internal.FromHeader(name) }

// FromBearerToken extracts a bearer token from the Authorization header.
func FromBearerToken() Extractor { return internal.FromBearerToken() }

// FromQuery extracts a credential from a query parameter.
func FromQuery(name string) Extractor { return internal.FromQuery(name) }

// FromForm extracts a credential from a form field.
func FromForm(name string) Extractor { return internal.FromForm(name) }

// FromParam extracts a credential from a path parameter.
func FromParam(name string) Extractor { return internal.FromParam(name) }

// FromCookie extracts a credential from a plain cookie.
func FromCookie(name string) Extractor { return internal.FromCookie(name) }

// FromCookieSigned extracts a credential from a signed cookie.
func FromCookieSigned(name string) Extractor { return internal.FromCookieSigned(name) }

// ChainExtractors tries each extractor in order and returns the first
// non-empty value.
func ChainExtractors(extractors ...Extractor) Extractor {
	return internal.ChainExtractors(extractors...)
}

// CORS policy options

// WithAllowedOrigins sets the origins allowed to make cross-origin
// requests. "*" allows any origin.
func WithAllowedOrigins(origins ...string) CORSOption {
	return internal.WithAllowedOrigins(origins...)
}

// WithAllowedMethods sets the methods advertised in preflight responses.
func WithAllowedMethods(methods ...string) CORSOption {
	return internal.WithAllowedMethods(methods...)
}

// WithAllowedHeaders sets the request headers advertised in preflight
// responses.
func WithAllowedHeaders(headers ...string) CORSOption {
	return internal.WithAllowedHeaders(headers...)
}

// WithExposedHeaders sets the response headers browsers may read.
func WithExposedHeaders(headers ...string) CORSOption {
	return internal.WithExposedHeaders(headers...)
}

// WithAllowCredentials permits credentialed cross-origin requests.
func WithAllowCredentials() CORSOption {
	return internal.WithAllowCredentials()
}

// WithMaxAge sets how long (in seconds) browsers may cache preflight
// responses.
func WithMaxAge(seconds int) CORSOption {
	return internal.WithMaxAge(seconds)
}

// Security header options

// WithFrameOptions sets the X-Frame-Options header value.
func WithFrameOptions(v string) HeadersOption {
	return internal.WithFrameOptions(v)
}

// WithReferrerPolicy sets the Referrer-Policy header value.
func WithReferrerPolicy(v string) HeadersOption {
	return internal.WithReferrerPolicy(v)
}

// WithContentSecurityPolicy sets the Content-Security-Policy header value.
func WithContentSecurityPolicy(v string) HeadersOption {
	return internal.WithContentSecurityPolicy(v)
}

// WithStrictTransportSecurity sets the Strict-Transport-Security header
// value. Only emit this on HTTPS deployments.
func WithStrictTransportSecurity(v string) HeadersOption {
	return internal.WithStrictTransportSecurity(v)
}

// CSRF policy options

// WithCSRFHeaderName sets the request header carrying the token.
func WithCSRFHeaderName(name string) CSRFOption {
	return internal.WithCSRFHeaderName(name)
}

// WithCSRFFieldName sets the form field carrying the token.
func WithCSRFFieldName(name string) CSRFOption {
	return internal.WithCSRFFieldName(name)
}

// WithCSRFCookieName sets the signed cookie used for double-submit
// validation when no session is available.
func WithCSRFCookieName(name string) CSRFOption {
	return internal.WithCSRFCookieName(name)
}

// WithCSRFIgnorePaths exempts the given paths from CSRF validation. Each
// entry is an exact path or a "/prefix/**" glob.
func WithCSRFIgnorePaths(paths ...string) CSRFOption {
	return internal.WithCSRFIgnorePaths(paths...)
}

// Session options

// WithSessionCookieName overrides the session cookie name.
func WithSessionCookieName(name string) SessionOption {
	return internal.WithSessionCookieName(name)
}

// WithSessionTTL sets how long sessions live without activity.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return internal.WithSessionTTL(ttl)
}

// WithSessionTouchInterval sets how often session activity is persisted.
func WithSessionTouchInterval(d time.Duration) SessionOption {
	return internal.WithSessionTouchInterval(d)
}

// Cookie options

// WithCookieSecret sets the secret for cookie signing.
// Must be at least 32 bytes.
func WithCookieSecret(secret string) CookieOption {
	return cookie.WithSecret(secret)
}

// WithCookieDomain sets the cookie domain.
func WithCookieDomain(domain string) CookieOption {
	return cookie.WithDomain(domain)
}

// WithCookiePath sets the cookie path.
func WithCookiePath(path string) CookieOption {
	return cookie.WithPath(path)
}

// WithCookieSecure sets the Secure flag.
func WithCookieSecure(secure bool) CookieOption {
	return cookie.WithSecure(secure)
}

// WithCookieHTTPOnly sets the HttpOnly flag.
func WithCookieHTTPOnly(httpOnly bool) CookieOption {
	return cookie.WithHTTPOnly(httpOnly)
}

// WithCookieSameSite sets the SameSite attribute.
func WithCookieSameSite(ss http.SameSite) CookieOption {
	return cookie.WithSameSite(ss)
}

// Context helpers

// ContextValue retrieves a typed value from the context.
// Returns the zero value of T if the key is not found or the type doesn't
// match.
//
// Example:
//
//	type tenantKey struct{}
//
//	tenant := keel.ContextValue[string](c, tenantKey{})
func ContextValue[T any](c Context, key any) T {
	if v, ok := c.Get(key).(T); ok {
		return v
	}
	var zero T
	return zero
}

// FromSecurityConfig translates a declarative security configuration file
// into application options. RequireAuth rules use the app's default
// strategy (see WithAuthStrategy).
//
// Example:
//
//	cfg, err := config.Load("security.yaml")
//	if err != nil {
//	    return err
//	}
//	app := keel.New(keel.FromSecurityConfig(cfg)...)
func FromSecurityConfig(cfg *config.Security) []Option {
	var opts []Option

	if cfg.CORS.Enabled {
		var corsOpts []CORSOption
		if len(cfg.CORS.AllowedOrigins) > 0 {
			corsOpts = append(corsOpts, WithAllowedOrigins(cfg.CORS.AllowedOrigins...))
		}
		if len(cfg.CORS.AllowedMethods) > 0 {
			corsOpts = append(corsOpts, WithAllowedMethods(cfg.CORS.AllowedMethods...))
		}
		if len(cfg.CORS.AllowedHeaders) > 0 {
			corsOpts = append(corsOpts, WithAllowedHeaders(cfg.CORS.AllowedHeaders...))
		}
		if len(cfg.CORS.ExposedHeaders) > 0 {
			corsOpts = append(corsOpts, WithExposedHeaders(cfg.CORS.ExposedHeaders...))
		}
		if cfg.CORS.AllowCredentials {
			corsOpts = append(corsOpts, WithAllowCredentials())
		}
		if cfg.CORS.MaxAge > 0 {
			corsOpts = append(corsOpts, WithMaxAge(cfg.CORS.MaxAge))
		}
		opts = append(opts, WithCORS(corsOpts...))
	}

	if cfg.Headers.Enabled {
		var hdrOpts []HeadersOption
		if cfg.Headers.FrameOptions != "" {
			hdrOpts = append(hdrOpts, WithFrameOptions(cfg.Headers.FrameOptions))
		}
		if cfg.Headers.ReferrerPolicy != "" {
			hdrOpts = append(hdrOpts, WithReferrerPolicy(cfg.Headers.ReferrerPolicy))
		}
		if cfg.Headers.ContentSecurityPolicy != "" {
			hdrOpts = append(hdrOpts, WithContentSecurityPolicy(cfg.Headers.ContentSecurityPolicy))
		}
		if cfg.Headers.StrictTransportSecurity != "" {
			hdrOpts = append(hdrOpts, WithStrictTransportSecurity(cfg.Headers.StrictTransportSecurity))
		}
		opts = append(opts, WithSecurityHeaders(hdrOpts...))
	}

	if cfg.CSRF.Enabled {
		var csrfOpts []CSRFOption
		if cfg.CSRF.HeaderName != "" {
			csrfOpts = append(csrfOpts, WithCSRFHeaderName(cfg.CSRF.HeaderName))
		}
		if cfg.CSRF.FieldName != "" {
			csrfOpts = append(csrfOpts, WithCSRFFieldName(cfg.CSRF.FieldName))
		}
		if cfg.CSRF.CookieName != "" {
			csrfOpts = append(csrfOpts, WithCSRFCookieName(cfg.CSRF.CookieName))
		}
		if len(cfg.CSRF.IgnorePaths) > 0 {
			csrfOpts = append(csrfOpts, WithCSRFIgnorePaths(cfg.CSRF.IgnorePaths...))
		}
		opts = append(opts, WithCSRF(csrfOpts...))
	}

	if len(cfg.Rules) > 0 {
		rules := cfg.Rules
		opts = append(opts, WithAccessRules(func(t *RuleTable) {
			for _, r := range rules {
				var b *RuleBuilder
				if r.AnyRoute {
					b = t.AnyRoute()
				} else {
					b = t.Route(r.Route)
				}
				if len(r.Methods) > 0 {
					b.Methods(r.Methods...)
				}
				if r.RedirectTo != "" {
					b.RedirectTo(r.RedirectTo)
				}
				switch r.Effect {
				case config.EffectPermit:
					b.PermitAll()
				case config.EffectDeny:
					b.DenyAll()
				case config.EffectRequireAuth:
					b.RequireAuth()
				}
			}
		}))
	}

	return opts
}
