package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContext_FallsBackToDefault(t *testing.T) {
	require.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestScope_AnnotatesLogger(t *testing.T) {
	// --- Arrange ---
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := WithLogger(context.Background(), logger)

	// --- Act ---
	scoped, done := Scope(ctx, "resolve", "route", "main")
	FromContext(scoped).Info("inside")
	done()

	// --- Assert ---
	out := buf.String()
	require.Contains(t, out, "Scope opened.")
	require.Contains(t, out, "Scope closed.")
	require.Contains(t, out, "msg=inside scope=resolve route=main")
}
