// Package internal provides the core types and implementation for the keel
// framework.
//
// This package is internal and should not be used directly. Import
// "github.com/keelframework/keel" instead, which re-exports the public API.
//
// # Core Types
//
//   - App: orchestrates the application lifecycle, routing, the security
//     pipeline, and graceful shutdown
//   - Context: provides request/response access, identity, and helper methods
//   - Router: interface handlers use to declare routes with grouping
//   - Handler: interface implemented by types that declare routes
//   - HandlerFunc: signature for individual route handlers that return errors
//   - Middleware: wraps handlers to add cross-cutting concerns
//   - RouteTable: registration-order route matching with {name} parameters
//   - RuleTable: declaration-order access rules evaluated before handlers
//   - Pipeline: the per-request security stages (CORS, headers, CSRF, rules)
//
// # Routing Semantics
//
// Routes match in registration order: the first route whose method and
// pattern both match wins. A {name} placeholder captures exactly one path
// segment. Lookup paths are normalized (duplicate slashes collapsed, the
// trailing slash stripped) before matching, so /users/1 and /users/1/ hit
// the same route.
//
// # Security Pipeline
//
// Every request passes CORS preflight handling and response headers, then
// route lookup, then CSRF validation and access rules, in that order. A
// stage that answers the request commits exactly one response; later
// writes are suppressed by the ResponseWriter.
//
// # Context as context.Context
//
// Context embeds context.Context, so it can be passed directly to any
// function that expects a standard library context:
//
//	func (h *Handler) getUser(c internal.Context) error {
//	    user, err := h.repo.GetUser(c, c.Param("id"))
//	    if err != nil {
//	        return err
//	    }
//	    return c.JSON(200, user)
//	}
//
// # Identity
//
// Context provides shortcuts over the session system. They load the
// session lazily on first access and return safe defaults when no session
// is configured:
//
//   - UserID() string: the authenticated user's ID, or empty string
//   - IsAuthenticated() bool: true if a user is associated with the session
//   - IsCurrentUser(id string) bool: true if id matches the current user
//   - Principal() string: the principal set by a RequireAuth rule
//
// See the keel package documentation for the public API and usage examples.
package internal
