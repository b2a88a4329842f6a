package internal

import (
	"log/slog"
	"time"

	"github.com/keelframework/keel/pkg/cookie"
	"github.com/keelframework/keel/pkg/health"
	"github.com/keelframework/keel/pkg/logger"
	"github.com/keelframework/keel/pkg/session"
)

// Default server timeouts (hardcoded, opinionated).
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// App orchestrates the application lifecycle: route registration, the
// security pipeline, and graceful shutdown. App is immutable after
// creation - all configuration is done via New().
type App struct {
	routes                  *RouteTable
	rules                   *RuleTable
	pipeline                *Pipeline
	errorHandler            ErrorHandler
	notFoundHandler         HandlerFunc
	methodNotAllowedHandler HandlerFunc
	healthConfig            *healthConfig
	logger                  *slog.Logger
	cookieManager           *cookie.Manager
	sessionManager          *SessionManager
	sessionStore            session.Store
	defaultStrategy         Strategy
	rulesFn                 func(*RuleTable)
	sessionOpts             []SessionOption
	middlewares             []Middleware
	handlers                []Handler
	cors                    CORSPolicy
	headers                 HeadersPolicy
	csrf                    CSRFPolicy
}

// New creates a new application with the given options.
// The App is immutable after creation.
//
// Example:
//
//	app := keel.New(
//	    keel.WithMiddleware(middlewares.Logger(log)),
//	    keel.WithHandlers(
//	        handlers.NewAuth(repo),
//	        handlers.NewPages(repo),
//	    ),
//	)
func New(opts ...Option) *App {
	a := &App{
		routes:        NewRouteTable(),
		logger:        logger.NewNope(), // Default: noop logger (before options)
		cookieManager: cookie.New(),     // Default: cookie manager (no secret)
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.sessionStore != nil {
		a.sessionManager = NewSessionManager(a.sessionStore, a.cookieManager, a.sessionOpts...)
	}

	if a.defaultStrategy == nil {
		a.defaultStrategy = NewSessionStrategy()
	}

	a.rules = NewRuleTable(a.defaultStrategy)
	if a.rulesFn != nil {
		a.rulesFn(a.rules)
	}

	a.pipeline = NewPipeline(a.cors, a.headers, a.csrf, a.rules)

	a.setupRoutes()
	return a
}

// Routes returns the route table. Used internally for composing
// multi-domain routing and in tests.
func (a *App) Routes() *RouteTable {
	return a.routes
}

// CSRFToken returns the CSRF token for the request, issuing one if needed.
// Embed it in forms or expose it via a header for API clients.
func (a *App) CSRFToken(c Context) (string, error) {
	return a.pipeline.CSRFToken(c)
}

// Run starts the HTTP server and blocks until shutdown. The server stops
// gracefully on SIGINT/SIGTERM or when the base context is canceled.
//
// Example:
//
//	app := keel.New(
//	    keel.WithHandlers(handlers.NewPages()),
//	)
//	err := app.Run(":8080", keel.Logger(slog))
func (a *App) Run(addr string, opts ...RunOption) error {
	cfg := buildRunConfig(opts...)

	return runServer(runtimeConfig{
		handler:         a,
		address:         addr,
		logger:          cfg.logger,
		shutdownTimeout: cfg.shutdownTimeout,
		startupHooks:    cfg.startupHooks,
		shutdownHooks:   cfg.shutdownHooks,
		baseCtx:         cfg.baseCtx,
	})
}

// setupRoutes registers health endpoints and handler routes.
func (a *App) setupRoutes() {
	if a.healthConfig != nil {
		a.mustRegister("GET", a.healthConfig.livenessPath, healthLivenessHandler())
		a.mustRegister("GET", a.healthConfig.readinessPath, healthReadinessHandler(a.healthConfig.checks))
	}

	r := &routerAdapter{table: a.routes}
	for _, h := range a.handlers {
		h.Routes(r)
	}
}

func (a *App) mustRegister(method, path string, h HandlerFunc) {
	if err := a.routes.Register(method, path, h); err != nil {
		panic(err)
	}
}

// healthConfig holds health check endpoint configuration.
type healthConfig struct {
	checks        health.Checks
	livenessPath  string
	readinessPath string
}

// Default health check paths.
const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
)

// HealthOption configures health check endpoints.
type HealthOption func(*healthConfig)

// WithLivenessPath sets a custom liveness endpoint path.
// Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath sets a custom readiness endpoint path.
// Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithReadinessCheck adds a named readiness check.
// Checks run in parallel during readiness probe.
//
// Example:
//
//	keel.WithReadinessCheck("db", db.Healthcheck(pool))
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if c.checks == nil {
			c.checks = make(health.Checks)
		}
		c.checks[name] = fn
	}
}
