// Package logger extends log/slog with context-based attribute injection
// and optional Sentry error reporting.
//
// Extractors pull request-scoped values (request IDs, user IDs) out of the
// context on every log call, so handler code never threads them manually:
//
//	requestID := func(ctx context.Context) (slog.Attr, bool) {
//		if id, ok := ctx.Value(ridKey{}).(string); ok && id != "" {
//			return slog.String("request_id", id), true
//		}
//		return slog.Attr{}, false
//	}
//	log := logger.New(requestID)
//	log.InfoContext(ctx, "request processed", slog.Int("status", 200))
//
// NewWithSentry adds error tracking on top; when no DSN is configured it
// degrades to stdout-only logging, so dev and prod share one code path.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New creates a JSON-formatted stdout logger with optional context
// extractors.
func New(extractors ...ContextExtractor) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(NewContextHandler(h, extractors...))
}

// NewNope creates a no-op logger that discards all output.
// Use this as a default when logging is not configured.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
