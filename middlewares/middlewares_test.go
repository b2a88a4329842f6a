package middlewares_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keelframework/keel"
	"github.com/keelframework/keel/middlewares"
)

type routesFunc func(r keel.Router)

func (f routesFunc) Routes(r keel.Router) { f(r) }

func TestRecover(t *testing.T) {
	t.Parallel()

	t.Run("panic becomes a 500", func(t *testing.T) {
		t.Parallel()

		app := keel.New(
			keel.WithMiddleware(middlewares.Recover()),
			keel.WithHandlers(routesFunc(func(r keel.Router) {
				r.GET("/boom", func(c keel.Context) error {
					panic("something broke")
				})
			})),
		)

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.NotContains(t, rec.Body.String(), "something broke")
	})

	t.Run("panic error reaches the error handler", func(t *testing.T) {
		t.Parallel()

		var captured error
		app := keel.New(
			keel.WithMiddleware(middlewares.Recover()),
			keel.WithErrorHandler(func(c keel.Context, err error) error {
				captured = err
				return c.NoContent(http.StatusServiceUnavailable)
			}),
			keel.WithHandlers(routesFunc(func(r keel.Router) {
				r.GET("/boom", func(c keel.Context) error {
					panic(42)
				})
			})),
		)

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.True(t, middlewares.IsPanicError(captured))
		pe, ok := middlewares.AsPanicError(captured)
		require.True(t, ok)
		require.Equal(t, 42, pe.Value)
		require.NotEmpty(t, pe.Stack)
	})

	t.Run("disabled stack trace", func(t *testing.T) {
		t.Parallel()

		var captured error
		app := keel.New(
			keel.WithMiddleware(middlewares.Recover(middlewares.WithRecoverDisablePrintStack())),
			keel.WithErrorHandler(func(c keel.Context, err error) error {
				captured = err
				return c.NoContent(http.StatusInternalServerError)
			}),
			keel.WithHandlers(routesFunc(func(r keel.Router) {
				r.GET("/boom", func(c keel.Context) error { panic("x") })
			})),
		)

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		pe, ok := middlewares.AsPanicError(captured)
		require.True(t, ok)
		require.Nil(t, pe.Stack)
	})

	t.Run("normal requests pass through", func(t *testing.T) {
		t.Parallel()

		app := keel.New(
			keel.WithMiddleware(middlewares.Recover()),
			keel.WithHandlers(routesFunc(func(r keel.Router) {
				r.GET("/ok", func(c keel.Context) error {
					return c.String(http.StatusOK, "fine")
				})
			})),
		)

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
		require.Equal(t, "fine", rec.Body.String())
	})
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	newApp := func(opts ...middlewares.RequestIDOption) (*keel.App, *string) {
		var seen string
		app := keel.New(
			keel.WithMiddleware(middlewares.RequestID(opts...)),
			keel.WithHandlers(routesFunc(func(r keel.Router) {
				r.GET("/", func(c keel.Context) error {
					seen = middlewares.GetRequestID(c)
					return c.NoContent(http.StatusOK)
				})
			})),
		)
		return app, &seen
	}

	t.Run("generates an id when absent", func(t *testing.T) {
		t.Parallel()

		app, seen := newApp()
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, *seen)
		require.Equal(t, *seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("preserves the upstream id", func(t *testing.T) {
		t.Parallel()

		app, seen := newApp()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Correlation-ID", "upstream-7")

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)

		require.Equal(t, "upstream-7", *seen)
		require.Equal(t, "upstream-7", rec.Header().Get("X-Request-ID"))
	})

	t.Run("custom generator and response header", func(t *testing.T) {
		t.Parallel()

		app, _ := newApp(
			middlewares.WithRequestIDGenerator(func() string { return "fixed-id" }),
			middlewares.WithRequestIDResponseHeader("X-Trace-ID"),
		)

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, "fixed-id", rec.Header().Get("X-Trace-ID"))
	})
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	t.Run("fast handler finishes normally", func(t *testing.T) {
		t.Parallel()

		app := keel.New(
			keel.WithMiddleware(middlewares.Timeout(time.Second)),
			keel.WithHandlers(routesFunc(func(r keel.Router) {
				r.GET("/", func(c keel.Context) error {
					return c.String(http.StatusOK, "done")
				})
			})),
		)

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, "done", rec.Body.String())
	})

	t.Run("slow handler yields a timeout error", func(t *testing.T) {
		t.Parallel()

		var captured error
		app := keel.New(
			keel.WithMiddleware(middlewares.Timeout(10*time.Millisecond)),
			keel.WithErrorHandler(func(c keel.Context, err error) error {
				captured = err
				return c.NoContent(http.StatusGatewayTimeout)
			}),
			keel.WithHandlers(routesFunc(func(r keel.Router) {
				r.GET("/slow", func(c keel.Context) error {
					time.Sleep(300 * time.Millisecond)
					return nil
				})
			})),
		)

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))

		require.Equal(t, http.StatusGatewayTimeout, rec.Code)
		require.True(t, middlewares.IsTimeoutError(captured))
		te, ok := middlewares.AsTimeoutError(captured)
		require.True(t, ok)
		require.Equal(t, 10*time.Millisecond, te.Duration)
	})
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	pe := &middlewares.PanicError{Value: "boom"}
	require.Equal(t, "recovered panic: boom", pe.Error())
	require.True(t, middlewares.IsPanicError(pe))

	te := &middlewares.TimeoutError{Duration: 5 * time.Second}
	require.Equal(t, "handler exceeded 5s timeout", te.Error())
	require.True(t, middlewares.IsTimeoutError(te))

	require.False(t, middlewares.IsPanicError(errors.New("plain")))
	require.False(t, middlewares.IsTimeoutError(nil))
}
