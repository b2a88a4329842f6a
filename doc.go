// Package keel provides a batteries-included web framework with
// registration-order routing and a declarative security pipeline.
//
// Routes are matched in the order they were registered: the first route
// whose method and pattern both match wins, regardless of how specific a
// later route is. Patterns use {name} placeholders that capture single
// path segments:
//
//	r.GET("/users/{id}", h.showUser)
//	r.GET("/users/me", h.showSelf) // unreachable: register before {id}
//
// Every request passes through a fixed security pipeline before its
// handler runs: CORS preflight handling, security response headers, CSRF
// validation for state-changing methods, and access-rule authorization.
// Rules are declared once at startup and evaluated first-match-wins:
//
//	app := keel.New(
//	    keel.WithHandlers(handlers.NewPages(repo)),
//	    keel.WithCSRF(),
//	    keel.WithSecurityHeaders(),
//	    keel.WithAccessRules(func(r *keel.RuleTable) {
//	        r.Route("/login").PermitAll()
//	        r.Route("/static/**").PermitAll()
//	        r.Route("/admin/**").RequireAuth().RedirectTo("/login")
//	        r.AnyRoute().RequireAuth()
//	    }),
//	)
//
// Once any rule is declared, the pipeline fails closed: a request matching
// no rule is rejected.
//
// # Handlers
//
// Handlers implement the [Handler] interface to declare routes:
//
//	type AuthHandler struct {
//	    repo *repository.Queries
//	}
//
//	func (h *AuthHandler) Routes(r keel.Router) {
//	    r.GET("/login", h.showLogin)
//	    r.POST("/login", h.handleLogin)
//	    r.POST("/logout", h.handleLogout)
//	}
//
//	func (h *AuthHandler) handleLogin(c keel.Context) error {
//	    // ... verify credentials ...
//	    if err := c.AuthenticateSession(userID); err != nil {
//	        return err
//	    }
//	    return c.Redirect(http.StatusFound, "/dashboard")
//	}
//
// Handlers return errors instead of writing error responses; typed
// [HTTPError] values map to their status code and message, anything else
// becomes a logged 500.
//
// # Shutdown
//
// Run blocks until SIGINT/SIGTERM and shuts down gracefully. Cleanup runs
// through shutdown hooks:
//
//	err := app.Run(":8080",
//	    keel.Logger(slog),
//	    keel.ShutdownHook(db.Shutdown(pool)),
//	)
package keel
