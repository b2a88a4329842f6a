package internal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keelframework/keel/pkg/cookie"
	"github.com/keelframework/keel/pkg/session"
)

const testCookieSecret = "0123456789abcdef0123456789abcdef"

func echoRoutes(paths ...string) Handler {
	return routesFunc(func(r Router) {
		for _, p := range paths {
			p := p
			r.GET(p, func(c Context) error { return c.String(http.StatusOK, p) })
			r.POST(p, func(c Context) error { return c.String(http.StatusOK, p) })
		}
	})
}

func TestPipelineCORS(t *testing.T) {
	t.Parallel()

	t.Run("preflight is answered with 204 before routing", func(t *testing.T) {
		t.Parallel()

		app := New(WithCORS(WithAllowedOrigins("https://app.example.com")))

		// No route registered for the path: the preflight must still win.
		req := httptest.NewRequest(http.MethodOptions, "/anything", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		require.Equal(t, "Origin", rec.Header().Get("Vary"))
		require.NotEmpty(t, rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("preflight from a disallowed origin gets no CORS headers", func(t *testing.T) {
		t.Parallel()

		app := New(WithCORS(WithAllowedOrigins("https://app.example.com")))

		req := httptest.NewRequest(http.MethodOptions, "/anything", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("options without Origin falls through to routing", func(t *testing.T) {
		t.Parallel()

		app := New(WithCORS(), WithHandlers(echoRoutes("/items")))

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/items", nil))

		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("simple request gets Allow-Origin on the actual response", func(t *testing.T) {
		t.Parallel()

		app := New(
			WithCORS(WithAllowedOrigins("*"), WithExposedHeaders("X-Total-Count")),
			WithHandlers(echoRoutes("/items")),
		)

		req := httptest.NewRequest(http.MethodGet, "/items", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "X-Total-Count", rec.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("credentialed responses echo the origin", func(t *testing.T) {
		t.Parallel()

		app := New(
			WithCORS(WithAllowedOrigins("https://app.example.com"), WithAllowCredentials()),
			WithHandlers(echoRoutes("/items")),
		)

		req := httptest.NewRequest(http.MethodGet, "/items", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)

		require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("wildcard origin list never allows credentials", func(t *testing.T) {
		t.Parallel()

		// Credentials combined with the default "*" list must not echo
		// arbitrary origins back with Allow-Credentials.
		app := New(
			WithCORS(WithAllowCredentials()),
			WithHandlers(echoRoutes("/items")),
		)

		req := httptest.NewRequest(http.MethodGet, "/items", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)

		require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

		// Preflight takes the same path.
		req = httptest.NewRequest(http.MethodOptions, "/items", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec = httptest.NewRecorder()
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestPipelineSecurityHeaders(t *testing.T) {
	t.Parallel()

	t.Run("defaults applied to every dispatched request", func(t *testing.T) {
		t.Parallel()

		app := New(WithSecurityHeaders(), WithHandlers(echoRoutes("/page")))

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page", nil))

		require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		require.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	})

	t.Run("applied even when no route matches", func(t *testing.T) {
		t.Parallel()

		app := New(WithSecurityHeaders())

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("disabled by default", func(t *testing.T) {
		t.Parallel()

		app := New(WithHandlers(echoRoutes("/page")))

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page", nil))

		require.Empty(t, rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("custom CSP and HSTS", func(t *testing.T) {
		t.Parallel()

		app := New(
			WithSecurityHeaders(
				WithContentSecurityPolicy("default-src 'self'"),
				WithStrictTransportSecurity("max-age=63072000"),
			),
			WithHandlers(echoRoutes("/page")),
		)

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page", nil))

		require.Equal(t, "default-src 'self'", rec.Header().Get("Content-Security-Policy"))
		require.Equal(t, "max-age=63072000", rec.Header().Get("Strict-Transport-Security"))
	})
}

// issueCSRFCookie signs a token the way the app's cookie manager would, so
// the request carries a valid double-submit cookie.
func issueCSRFCookie(t *testing.T, req *http.Request, token string) {
	t.Helper()
	cm := cookie.New(cookie.WithSecret(testCookieSecret))
	rec := httptest.NewRecorder()
	require.NoError(t, cm.SetSigned(rec, "csrf_token", token, 0))
	for _, ck := range rec.Result().Cookies() {
		req.AddCookie(ck)
	}
}

func newCSRFApp() *App {
	return New(
		WithCookieOptions(cookie.WithSecret(testCookieSecret)),
		WithCSRF(WithCSRFIgnorePaths("/webhooks/**")),
		WithHandlers(routesFunc(func(r Router) {
			r.POST("/submit", func(c Context) error { return c.String(http.StatusOK, "submitted") })
			r.POST("/webhooks/stripe", func(c Context) error { return c.NoContent(http.StatusOK) })
			r.GET("/page", func(c Context) error { return c.String(http.StatusOK, "page") })
		})),
	)
}

func TestPipelineCSRF(t *testing.T) {
	t.Parallel()

	t.Run("safe methods are exempt", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		newCSRFApp().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("state-changing request without token is rejected", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		newCSRFApp().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submit", nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("matching header token passes", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set("X-CSRF-Token", "tok-123")
		issueCSRFCookie(t, req, "tok-123")

		rec := httptest.NewRecorder()
		newCSRFApp().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "submitted", rec.Body.String())
	})

	t.Run("matching form token passes", func(t *testing.T) {
		t.Parallel()

		form := "csrf_token=tok-456"
		req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		issueCSRFCookie(t, req, "tok-456")

		rec := httptest.NewRecorder()
		newCSRFApp().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("mismatched token is rejected", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set("X-CSRF-Token", "tok-wrong")
		issueCSRFCookie(t, req, "tok-right")

		rec := httptest.NewRecorder()
		newCSRFApp().ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("submitted token without an issued one is rejected", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set("X-CSRF-Token", "tok-forged")

		rec := httptest.NewRecorder()
		newCSRFApp().ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("ignored paths skip validation", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		newCSRFApp().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/stripe", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("token stored in the session is honored", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore()
		var app *App
		app = New(
			WithCookieOptions(cookie.WithSecret(testCookieSecret)),
			WithSession(store),
			WithCSRF(),
			WithHandlers(routesFunc(func(r Router) {
				r.GET("/form", func(c Context) error {
					if err := c.InitSession(); err != nil {
						return err
					}
					tok, err := app.CSRFToken(c)
					if err != nil {
						return err
					}
					return c.String(http.StatusOK, tok)
				})
				r.POST("/submit", func(c Context) error { return c.NoContent(http.StatusNoContent) })
			})),
		)

		// First request issues the token and the session cookie.
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/form", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		token := rec.Body.String()
		require.NotEmpty(t, token)
		cookies := rec.Result().Cookies()
		require.NotEmpty(t, cookies)

		// Replay the session cookie with the token on a state change.
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set("X-CSRF-Token", token)
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
		rec = httptest.NewRecorder()
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestPipelineAccessRules(t *testing.T) {
	t.Parallel()

	routes := routesFunc(func(r Router) {
		r.GET("/", func(c Context) error { return c.String(http.StatusOK, "home") })
		r.GET("/admin/users", func(c Context) error { return c.String(http.StatusOK, "users") })
		r.GET("/secret", func(c Context) error { return c.String(http.StatusOK, "secret") })
	})

	alwaysAuth := StrategyFunc(func(c Context) AuthResult {
		return AuthResult{PrincipalID: "user-1", Authenticated: true}
	})
	neverAuth := StrategyFunc(func(c Context) AuthResult {
		return AuthResult{}
	})

	t.Run("no rules means everything passes", func(t *testing.T) {
		t.Parallel()

		app := New(WithHandlers(routes))
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("declared rules fail closed for unmatched paths", func(t *testing.T) {
		t.Parallel()

		app := New(
			WithHandlers(routes),
			WithAccessRules(func(r *RuleTable) {
				r.Route("/").PermitAll()
			}),
		)
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("permit rule lets the request through", func(t *testing.T) {
		t.Parallel()

		app := New(
			WithHandlers(routes),
			WithAccessRules(func(r *RuleTable) {
				r.AnyRoute().PermitAll()
			}),
		)
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("deny rule rejects even before the handler", func(t *testing.T) {
		t.Parallel()

		app := New(
			WithHandlers(routes),
			WithAccessRules(func(r *RuleTable) {
				r.Route("/admin/**").DenyAll()
				r.AnyRoute().PermitAll()
			}),
		)
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.NotContains(t, rec.Body.String(), "users")
	})

	t.Run("require auth success exposes the principal", func(t *testing.T) {
		t.Parallel()

		app := New(
			WithHandlers(routesFunc(func(r Router) {
				r.GET("/me", func(c Context) error {
					return c.String(http.StatusOK, c.Principal())
				})
			})),
			WithAccessRules(func(r *RuleTable) {
				r.AnyRoute().RequireAuth(alwaysAuth)
			}),
		)
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "user-1", rec.Body.String())
	})

	t.Run("require auth failure yields 401", func(t *testing.T) {
		t.Parallel()

		app := New(
			WithHandlers(routes),
			WithAccessRules(func(r *RuleTable) {
				r.AnyRoute().RequireAuth(neverAuth)
			}),
		)
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("redirect on failure", func(t *testing.T) {
		t.Parallel()

		app := New(
			WithHandlers(routes),
			WithAccessRules(func(r *RuleTable) {
				r.Route("/login").PermitAll()
				r.AnyRoute().RedirectTo("/login").RequireAuth(neverAuth)
			}),
		)
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))
		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("custom failure handler wins over redirect", func(t *testing.T) {
		t.Parallel()

		app := New(
			WithHandlers(routes),
			WithAccessRules(func(r *RuleTable) {
				r.AnyRoute().
					RedirectTo("/login").
					OnFailure(func(c Context) error {
						return c.JSON(http.StatusPaymentRequired, map[string]string{"error": "upgrade"})
					}).
					RequireAuth(neverAuth)
			}),
		)
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))
		require.Equal(t, http.StatusPaymentRequired, rec.Code)
	})

	t.Run("first declared rule wins", func(t *testing.T) {
		t.Parallel()

		app := New(
			WithHandlers(routes),
			WithAccessRules(func(r *RuleTable) {
				r.Route("/admin/**").DenyAll()
				r.Route("/admin/users").PermitAll() // unreachable: shadowed above
			}),
		)
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rules run before the handler but after routing", func(t *testing.T) {
		t.Parallel()

		// An unknown path under declared rules is still a 404, not 403:
		// routing decides existence first.
		app := New(
			WithHandlers(routes),
			WithAccessRules(func(r *RuleTable) {
				r.AnyRoute().DenyAll()
			}),
		)
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/does/not/exist", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
