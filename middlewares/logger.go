package middlewares

import (
	"time"

	"github.com/keelframework/keel/internal"
)

// Logger returns middleware that logs one line per request: method, path,
// status, response size, and duration. Errors are logged at error level
// and re-returned for the global ErrorHandler.
func Logger() internal.Middleware {
	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			start := time.Now()
			err := next(c)
			elapsed := time.Since(start)

			attrs := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"duration", elapsed.String(),
			}
			if rw := c.ResponseWriter(); rw != nil {
				attrs = append(attrs, "status", rw.Status(), "size", rw.Size())
			}

			if err != nil {
				attrs = append(attrs, "error", err.Error())
				c.LogError("request failed", attrs...)
				return err
			}

			c.LogInfo("request completed", attrs...)
			return nil
		}
	}
}
