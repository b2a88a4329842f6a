package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type routesFunc func(r Router)

func (f routesFunc) Routes(r Router) { f(r) }

func TestServeHTTPDispatch(t *testing.T) {
	t.Parallel()

	t.Run("unknown path returns 404", func(t *testing.T) {
		t.Parallel()

		app := New()
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("known path wrong method returns 405 with Allow", func(t *testing.T) {
		t.Parallel()

		app := New(WithHandlers(routesFunc(func(r Router) {
			r.GET("/items", noopHandler)
			r.POST("/items", noopHandler)
		})))

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/items", nil))

		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		require.Equal(t, "GET, POST", rec.Header().Get("Allow"))
	})

	t.Run("path parameters reach the handler", func(t *testing.T) {
		t.Parallel()

		app := New(WithHandlers(routesFunc(func(r Router) {
			r.GET("/users/{id}", func(c Context) error {
				return c.String(http.StatusOK, c.Param("id"))
			})
		})))

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "42", rec.Body.String())
	})

	t.Run("request path is normalized before dispatch", func(t *testing.T) {
		t.Parallel()

		app := New(WithHandlers(routesFunc(func(r Router) {
			r.GET("/a/b", func(c Context) error {
				return c.String(http.StatusOK, "ok")
			})
		})))

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "//a//b/", nil))

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("registration order decides between overlapping routes", func(t *testing.T) {
		t.Parallel()

		app := New(WithHandlers(routesFunc(func(r Router) {
			r.GET("/files/{name}", func(c Context) error {
				return c.String(http.StatusOK, "param")
			})
			r.GET("/files/readme", func(c Context) error {
				return c.String(http.StatusOK, "literal")
			})
		})))

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/readme", nil))

		require.Equal(t, "param", rec.Body.String())
	})

	t.Run("nil return without a write commits 204", func(t *testing.T) {
		t.Parallel()

		app := New(WithHandlers(routesFunc(func(r Router) {
			r.DELETE("/items/{id}", func(c Context) error { return nil })
		})))

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/items/3", nil))

		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("http error is rendered verbatim", func(t *testing.T) {
		t.Parallel()

		app := New(WithHandlers(routesFunc(func(r Router) {
			r.GET("/teapot", func(c Context) error {
				return NewHTTPError(http.StatusTeapot, "short and stout", WithErrorCode("teapot"))
			})
		})))

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

		require.Equal(t, http.StatusTeapot, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "short and stout", body["error"])
		require.Equal(t, "teapot", body["code"])
	})

	t.Run("unknown error becomes a generic 500", func(t *testing.T) {
		t.Parallel()

		app := New(WithHandlers(routesFunc(func(r Router) {
			r.GET("/boom", func(c Context) error {
				return errors.New("connection refused to db-internal:5432")
			})
		})))

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.NotContains(t, rec.Body.String(), "db-internal", "internal detail must not leak")
	})

	t.Run("error after a committed write is suppressed", func(t *testing.T) {
		t.Parallel()

		app := New(WithHandlers(routesFunc(func(r Router) {
			r.GET("/partial", func(c Context) error {
				if err := c.String(http.StatusOK, "partial body"); err != nil {
					return err
				}
				return errors.New("too late")
			})
		})))

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/partial", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "partial body", rec.Body.String())
	})

	t.Run("custom error handler takes over", func(t *testing.T) {
		t.Parallel()

		app := New(
			WithHandlers(routesFunc(func(r Router) {
				r.GET("/boom", func(c Context) error { return errors.New("boom") })
			})),
			WithErrorHandler(func(c Context, err error) error {
				return c.String(http.StatusBadGateway, "custom: "+err.Error())
			}),
		)

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		require.Equal(t, http.StatusBadGateway, rec.Code)
		require.Equal(t, "custom: boom", rec.Body.String())
	})

	t.Run("custom 404 and 405 handlers", func(t *testing.T) {
		t.Parallel()

		app := New(
			WithHandlers(routesFunc(func(r Router) {
				r.GET("/items", noopHandler)
			})),
			WithNotFoundHandler(func(c Context) error {
				return c.String(http.StatusNotFound, "nothing here")
			}),
			WithMethodNotAllowedHandler(func(c Context) error {
				return c.String(http.StatusMethodNotAllowed, "try GET")
			}),
		)

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		require.Equal(t, "nothing here", rec.Body.String())

		rec = httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items", nil))
		require.Equal(t, "try GET", rec.Body.String())
		require.Equal(t, "GET", rec.Header().Get("Allow"))
	})

	t.Run("global middleware wraps matched handlers", func(t *testing.T) {
		t.Parallel()

		var order []string
		app := New(
			WithMiddleware(func(next HandlerFunc) HandlerFunc {
				return func(c Context) error {
					order = append(order, "mw")
					return next(c)
				}
			}),
			WithHandlers(routesFunc(func(r Router) {
				r.GET("/x", func(c Context) error {
					order = append(order, "handler")
					return c.NoContent(http.StatusOK)
				})
			})),
		)

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Equal(t, []string{"mw", "handler"}, order)
	})
}

func TestServeHTTPRespond(t *testing.T) {
	t.Parallel()

	app := New(WithHandlers(routesFunc(func(r Router) {
		r.GET("/text", func(c Context) error {
			return c.Respond(http.StatusOK, "plain words")
		})
		r.GET("/data", func(c Context) error {
			return c.Respond(http.StatusOK, map[string]int{"n": 7})
		})
	})))

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/text", nil))
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	require.Equal(t, "plain words", rec.Body.String())

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data", nil))
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	require.JSONEq(t, `{"n":7}`, rec.Body.String())
}

func TestServeHTTPHealthEndpoints(t *testing.T) {
	t.Parallel()

	app := New(WithHealthChecks())

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
