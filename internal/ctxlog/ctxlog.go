// Package ctxlog provides a context key for safely passing a slog.Logger
// instance through context.Context, plus trace scopes used as the
// diagnostic sink by the resolver and the route host.
package ctxlog

import (
	"context"
	"log/slog"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

// loggerKey is the key for the slog.Logger in a context.Context.
var loggerKey = key{}

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the slog.Logger from a context. If no logger is
// found, it returns the default global logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}

// Scope opens a named trace scope. The returned context carries a logger
// annotated with the scope name and the given attributes; the returned
// function closes the scope and must be called exactly once.
func Scope(ctx context.Context, name string, args ...any) (context.Context, func()) {
	logger := FromContext(ctx).With(append([]any{"scope", name}, args...)...)
	logger.Debug("Scope opened.")
	return WithLogger(ctx, logger), func() {
		logger.Debug("Scope closed.")
	}
}
