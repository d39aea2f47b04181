package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]LogLevel{
		"off":     LogLevelOff,
		"none":    LogLevelOff,
		"ERROR":   LogLevelError,
		" info ":  LogLevelInfo,
		"debug":   LogLevelDebug,
		"verbose": LogLevelError,
		"":        LogLevelError,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
	assert.Equal(t, "info", LogLevelInfo.String())
	assert.Equal(t, zap.DebugLevel, LogLevelDebug.zapLevel())
	assert.Equal(t, zap.ErrorLevel, LogLevelError.zapLevel())
}

func TestNewLogger_Off(t *testing.T) {
	t.Parallel()

	logger, closer, err := NewLogger(LoggingConfig{Level: "off", File: filepath.Join(t.TempDir(), "x.log")}, false)
	require.NoError(t, err)
	require.NoError(t, closer.Close())
	assert.False(t, logger.Core().Enabled(zap.ErrorLevel))
}

func TestNewLogger_WritesJSONFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "app", "walletcore.log")

	logger, closer, err := NewLogger(LoggingConfig{Level: "info", File: path, MaxAgeDays: 1, RotationHours: 24}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	logger.Info("session opened", zap.String("user_id", "u1"))
	require.NoError(t, logger.Sync())

	// The link always points at the current file.
	data, err := os.ReadFile(path) // #nosec G304 -- test path
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"session opened"`)
	assert.Contains(t, string(data), `"user_id":"u1"`)
}
