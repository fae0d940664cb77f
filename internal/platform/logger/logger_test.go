package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		log, err := Setup(level)
		require.NoError(t, err, "level %q", level)
		require.NotNil(t, log)
	}

	_, err := Setup("verbose")
	require.Error(t, err)

	_, err = Setup("")
	require.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	log := slog.Default().With(slog.String("component", "test"))

	ctx := WithLogger(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	t.Parallel()

	got := FromContext(context.Background())
	require.NotNil(t, got, "missing logger must fall back, not return nil")
}

func TestFromContextOrDefault(t *testing.T) {
	t.Parallel()
	fallback := slog.Default().With(slog.String("component", "fallback"))

	assert.Same(t, fallback, FromContextOrDefault(context.Background(), fallback))

	stored := slog.Default().With(slog.String("component", "stored"))
	ctx := WithLogger(context.Background(), stored)
	assert.Same(t, stored, FromContextOrDefault(ctx, fallback))
}
