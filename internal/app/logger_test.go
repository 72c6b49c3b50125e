package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerHonorsLogLevel(t *testing.T) {
	logger := NewLogger(&Config{LogFormat: "json", LogLevel: "warn"})

	ctx := context.Background()
	require.False(t, logger.Enabled(ctx, slog.LevelInfo))
	require.True(t, logger.Enabled(ctx, slog.LevelWarn))
}

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	logger := NewLogger(nil)

	ctx := context.Background()
	require.True(t, logger.Enabled(ctx, slog.LevelInfo))
	require.False(t, logger.Enabled(ctx, slog.LevelDebug))
}
