package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_New(t *testing.T) {
	t.Parallel()

	t.Run("dev environment", func(t *testing.T) {
		l, err := New(EnvDevelopment, LevelInfo)

		require.NoError(t, err)
		require.NotNil(t, l)
	})

	t.Run("prod environment", func(t *testing.T) {
		l, err := New(EnvProduction, LevelInfo)

		require.NoError(t, err)
		require.NotNil(t, l)
	})

	t.Run("unknown environment", func(t *testing.T) {
		_, err := New("staging", LevelInfo)

		require.Error(t, err)
	})
}

func Test_parseLevelString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{"WARN", slog.LevelWarn},
		{"", slog.LevelInfo},
		{"whatever", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevelString(tt.level))
		})
	}
}

func Test_NoOpLogger(t *testing.T) {
	t.Parallel()

	l := NewNoOpLogger()

	// Must swallow everything without panics
	l.Debug("msg", "key", "value")
	l.Info("msg")
	l.Warn("msg")
	l.Error("msg", "error", "boom")
	l.With("key", "value").WithGroup("group").Info("msg")
}
