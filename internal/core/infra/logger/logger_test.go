package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribhuwan-kumar/terminator/internal/config"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/infra/logger"
)

func TestSetup_ConsoleOnly(t *testing.T) {
	t.Cleanup(func() {
		require.NoError(t, logger.Close())
	})

	err := logger.Setup(config.LoggingConfig{
		Level:              "debug",
		DisableFileLogging: true,
	})
	require.NoError(t, err)
	require.NotNil(t, logger.Get())

	// The wrappers route through the global logger without panicking.
	logger.Debug("debug line")
	logger.Info("info line")
	logger.Warn("warn line")
	logger.With().Info("derived line")
	logger.Sync()
}

func TestSetup_RejectsUnknownLevel(t *testing.T) {
	err := logger.Setup(config.LoggingConfig{
		Level:              "loud",
		DisableFileLogging: true,
	})
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeLoggingFailed))
}

func TestSetup_CreatesLogFile(t *testing.T) {
	t.Cleanup(func() {
		require.NoError(t, logger.Close())
	})

	path := filepath.Join(t.TempDir(), "logs", "core.log")

	err := logger.Setup(config.LoggingConfig{
		Level:       "info",
		FilePath:    path,
		MaxFileSize: 1,
		MaxBackups:  1,
		MaxAge:      1,
	})
	require.NoError(t, err)

	logger.Info("creates the file on first write")
	logger.Sync()

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "log file exists after a write")
}

func TestGet_FallsBackBeforeSetup(t *testing.T) {
	logger.Reset()

	assert.NotNil(t, logger.Get(), "Get never returns nil")
}

func TestClose_Idempotent(t *testing.T) {
	require.NoError(t, logger.Setup(config.LoggingConfig{DisableFileLogging: true}))
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
}
