package internal

import (
	"net/http"
	"slices"
	"strings"
)

// Route is an immutable (method, pattern, handler) binding.
// Routes are created during application setup and never mutated afterwards,
// so the table can be shared across request goroutines without locking.
type Route struct {
	Method  string
	Path    string
	handler HandlerFunc
	pattern *routePattern
}

// RouteMatch pairs the winning route with the path parameters extracted
// from the request path. It lives for a single request.
type RouteMatch struct {
	Route  *Route
	Params map[string]string
}

// RouteTable holds registered routes in registration order.
// Lookup scans the list front to back: the first route whose method and
// pattern both match wins, regardless of how specific later routes are.
type RouteTable struct {
	routes []*Route
}

// NewRouteTable creates an empty route table.
func NewRouteTable() *RouteTable {
	return &RouteTable{}
}

// Register compiles the path template and appends the route.
// Duplicate (method, path) pairs are not rejected; the earlier
// registration simply shadows the later one.
func (t *RouteTable) Register(method, path string, h HandlerFunc) error {
	p, err := compilePattern(path)
	if err != nil {
		return err
	}
	t.routes = append(t.routes, &Route{
		Method:  strings.ToUpper(method),
		Path:    p.raw,
		handler: h,
		pattern: p,
	})
	return nil
}

// Match returns the first registered route whose method and pattern match,
// along with the extracted path parameters. The boolean is false when no
// route matches; no error is involved in a routing miss.
func (t *RouteTable) Match(method, path string) (*RouteMatch, bool) {
	method = strings.ToUpper(method)
	path = NormalizePath(path)

	for _, rt := range t.routes {
		if rt.Method != method {
			continue
		}
		if params, ok := rt.pattern.match(path); ok {
			return &RouteMatch{Route: rt, Params: params}, true
		}
	}
	return nil, false
}

// AllowedMethods collects the methods of every route whose pattern matches
// the path, ignoring the request method. A non-empty result for an
// unmatched request distinguishes 405 from 404.
func (t *RouteTable) AllowedMethods(path string) []string {
	path = NormalizePath(path)

	var methods []string
	for _, rt := range t.routes {
		if _, ok := rt.pattern.match(path); ok && !slices.Contains(methods, rt.Method) {
			methods = append(methods, rt.Method)
		}
	}
	return methods
}

// Len returns the number of registered routes.
func (t *RouteTable) Len() int {
	return len(t.routes)
}

// Router is the interface handlers use to declare routes.
type Router interface {
	// GET registers a handler for GET requests.
	GET(path string, h HandlerFunc, mw ...Middleware)

	// POST registers a handler for POST requests.
	POST(path string, h HandlerFunc, mw ...Middleware)

	// PUT registers a handler for PUT requests.
	PUT(path string, h HandlerFunc, mw ...Middleware)

	// PATCH registers a handler for PATCH requests.
	PATCH(path string, h HandlerFunc, mw ...Middleware)

	// DELETE registers a handler for DELETE requests.
	DELETE(path string, h HandlerFunc, mw ...Middleware)

	// HEAD registers a handler for HEAD requests.
	HEAD(path string, h HandlerFunc, mw ...Middleware)

	// OPTIONS registers a handler for OPTIONS requests.
	OPTIONS(path string, h HandlerFunc, mw ...Middleware)

	// Route creates a route group with a pattern prefix.
	// All routes declared inside fn share the prefix.
	Route(prefix string, fn func(r Router))

	// Use appends middleware applied to every route declared afterwards.
	Use(mw ...Middleware)
}

// routerAdapter implements Router on top of a RouteTable, carrying the
// accumulated prefix and middleware stack for groups.
type routerAdapter struct {
	table  *RouteTable
	prefix string
	mws    []Middleware
}

func (r *routerAdapter) GET(path string, h HandlerFunc, mw ...Middleware) {
	r.register(http.MethodGet, path, h, mw)
}

func (r *routerAdapter) POST(path string, h HandlerFunc, mw ...Middleware) {
	r.register(http.MethodPost, path, h, mw)
}

func (r *routerAdapter) PUT(path string, h HandlerFunc, mw ...Middleware) {
	r.register(http.MethodPut, path, h, mw)
}

func (r *routerAdapter) PATCH(path string, h HandlerFunc, mw ...Middleware) {
	r.register(http.MethodPatch, path, h, mw)
}

func (r *routerAdapter) DELETE(path string, h HandlerFunc, mw ...Middleware) {
	r.register(http.MethodDelete, path, h, mw)
}

func (r *routerAdapter) HEAD(path string, h HandlerFunc, mw ...Middleware) {
	r.register(http.MethodHead, path, h, mw)
}

func (r *routerAdapter) OPTIONS(path string, h HandlerFunc, mw ...Middleware) {
	r.register(http.MethodOptions, path, h, mw)
}

func (r *routerAdapter) Route(prefix string, fn func(Router)) {
	fn(&routerAdapter{
		table:  r.table,
		prefix: r.prefix + prefix,
		mws:    slices.Clone(r.mws),
	})
}

func (r *routerAdapter) Use(mw ...Middleware) {
	r.mws = append(r.mws, mw...)
}

func (r *routerAdapter) register(method, path string, h HandlerFunc, mw []Middleware) {
	// Route-level middleware wraps innermost: last registered runs closest
	// to the handler.
	all := append(slices.Clone(r.mws), mw...)
	for i := len(all) - 1; i >= 0; i-- {
		h = all[i](h)
	}
	if err := r.table.Register(method, r.prefix+path, h); err != nil {
		panic(err)
	}
}
