package internal

// Handler declares routes on a router.
//
// Example:
//
//	type AccountHandler struct {
//	    repo *repository.Queries
//	}
//
//	func (h *AccountHandler) Routes(r keel.Router) {
//	    r.GET("/account", h.show)
//	    r.POST("/account", h.update)
//	}
type Handler interface {
	Routes(r Router)
}

// HandlerFunc is the signature for route handlers.
// Returning a non-nil error triggers the application error handler.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc to add cross-cutting concerns.
// Middleware can inspect the request, short-circuit processing, or wrap
// the response.
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler handles errors returned from handlers.
type ErrorHandler func(Context, error) error
