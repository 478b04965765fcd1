package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"fleetscan/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("Console format builds a logger", func(t *testing.T) {
		logger, err := NewLogger(config.LogConfig{Level: "info", Format: "console"})
		require.NoError(t, err)
		require.NotNil(t, logger)
	})

	t.Run("JSON format builds a logger without file logging", func(t *testing.T) {
		logger, err := NewLogger(config.LogConfig{Level: "info", Format: "json"})
		require.NoError(t, err)
		require.NotNil(t, logger)
	})

	t.Run("File logging creates the directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "log")
		logger, err := NewLogger(config.LogConfig{
			Level:              "debug",
			Format:             "json",
			FileLoggingEnabled: true,
			Directory:          dir,
			Filename:           "fleetscan.log",
			MaxSize:            1,
		})
		require.NoError(t, err)
		require.NotNil(t, logger)
		assert.DirExists(t, dir)
	})
}

func TestParseLevel(t *testing.T) {
	t.Run("Known levels parse", func(t *testing.T) {
		level, err := parseLevel("WARN")
		require.NoError(t, err)
		assert.Equal(t, zapcore.WarnLevel, level)
	})

	t.Run("Unknown level errors", func(t *testing.T) {
		_, err := parseLevel("verbose")
		assert.Error(t, err)
	})
}
