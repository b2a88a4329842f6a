package internal

import (
	"net/http"
	"strings"
)

// ServeHTTP dispatches a request: CORS preflight and response headers run
// first, then route lookup (404 vs 405 with an Allow header), then CSRF and
// access rules, and finally the matched handler. Exactly one response is
// committed per request; the ResponseWriter suppresses later attempts.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.ToUpper(r.Method)
	path := NormalizePath(r.URL.Path)

	match, found := a.routes.Match(method, path)

	var params map[string]string
	if found {
		params = match.Params
	}
	c := newContext(w, r, a, params)

	if a.pipeline.Before(c, method) {
		return
	}

	if !found {
		a.renderNoRoute(c, path)
		return
	}

	proceed, err := a.pipeline.Enforce(c, method, path)
	if err != nil {
		a.handleError(c, err)
		return
	}
	if !proceed {
		return
	}

	handler := match.Route.handler
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		handler = a.middlewares[i](handler)
	}

	if err := handler(c); err != nil {
		a.handleError(c, err)
		return
	}

	// A handler that returns nil without writing gets an empty success.
	if !c.Written() {
		c.ResponseWriter().WriteHeader(http.StatusNoContent)
	}
}

// renderNoRoute answers requests matching no route: 405 with an Allow
// header when the path exists under other methods, 404 otherwise.
func (a *App) renderNoRoute(c Context, path string) {
	if allowed := a.routes.AllowedMethods(path); len(allowed) > 0 {
		c.SetHeader("Allow", strings.Join(allowed, ", "))
		if a.methodNotAllowedHandler != nil {
			a.runFallback(c, a.methodNotAllowedHandler)
			return
		}
		a.handleError(c, ErrMethodNotAllowed("method not allowed"))
		return
	}

	if a.notFoundHandler != nil {
		a.runFallback(c, a.notFoundHandler)
		return
	}
	a.handleError(c, ErrNotFound("not found"))
}

func (a *App) runFallback(c Context, h HandlerFunc) {
	if err := h(c); err != nil {
		a.handleError(c, err)
	}
}

// handleError renders an error through the configured error handler, or the
// default rendering: HTTPError status and message verbatim, anything else a
// generic 500 with the detail kept in the logs.
func (a *App) handleError(c Context, err error) {
	if c.Written() {
		return
	}

	if a.errorHandler != nil {
		if herr := a.errorHandler(c, err); herr == nil || c.Written() {
			return
		}
	}

	httpErr := AsHTTPError(err)
	if httpErr == nil {
		a.logger.ErrorContext(c.Context(), "unhandled error", "error", err)
		httpErr = ErrInternal("internal server error")
	}

	body := map[string]string{"error": httpErr.Message}
	if httpErr.ErrorCode != "" {
		body["code"] = httpErr.ErrorCode
	}
	if err := c.JSON(httpErr.Code, body); err != nil {
		a.logger.ErrorContext(c.Context(), "failed to render error response", "error", err)
	}
}
