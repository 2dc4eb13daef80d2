package logging

import (
	"context"
	"log/slog"
)

type loggerContextKey struct{}

// WithRequestID returns a context carrying a logger annotated with the
// request id. Everything logged through FromContext downstream of the HTTP
// surface then shares the id, so one request's pipeline lines correlate.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, slog.Default().With("request_id", requestID))
}

// FromContext returns the request-scoped logger, the fallback when the
// context carries none, or the process default when both are absent.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
