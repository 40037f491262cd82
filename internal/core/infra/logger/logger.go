package logger

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/tribhuwan-kumar/terminator/internal/config"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logDirPerms = 0o750

// state holds the process-global logger and its rotating file sink.
type state struct {
	mu   sync.Mutex
	log  *zap.Logger
	sink *lumberjack.Logger
}

var global state

// Setup builds the global logger from the logging section of the terminator
// configuration: a console core on stderr, plus a rotating file core unless
// file logging is disabled. Calling Setup again replaces the previous logger
// and closes its file sink.
func Setup(cfg config.LoggingConfig) error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if err := global.closeSinkLocked(); err != nil {
		return err
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return derrors.Wrapf(err, derrors.CodeLoggingFailed, "unrecognized log level %q", cfg.Level)
		}

		level = parsed
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder(cfg.Structured), zapcore.AddSync(os.Stderr), level),
	}

	if !cfg.DisableFileLogging {
		fileCore, sink, err := newFileCore(cfg, level)
		if err != nil {
			return err
		}

		cores = append(cores, fileCore)
		global.sink = sink
	}

	global.log = zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	return nil
}

// consoleEncoder renders human-oriented colored output, or JSON when the
// configuration asks for structured logs.
func consoleEncoder(structured bool) zapcore.Encoder {
	if structured {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		return zapcore.NewJSONEncoder(encCfg)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	return zapcore.NewConsoleEncoder(encCfg)
}

// newFileCore opens the rotating file sink and wraps it in a color-free
// core. An empty path lands under the user's terminator state directory.
func newFileCore(
	cfg config.LoggingConfig,
	level zapcore.Level,
) (zapcore.Core, *lumberjack.Logger, error) {
	path := cfg.FilePath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, derrors.Wrap(err, derrors.CodeLoggingFailed, "cannot resolve a log file location")
		}

		path = filepath.Join(home, ".terminator", "logs", "core.log")
	}

	if err := os.MkdirAll(filepath.Dir(path), logDirPerms); err != nil {
		return nil, nil, derrors.Wrap(err, derrors.CodeLoggingFailed, "cannot create the log directory")
	}

	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxFileSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Structured {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		devCfg := zap.NewDevelopmentEncoderConfig()
		devCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		devCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(devCfg)
	}

	return zapcore.NewCore(encoder, zapcore.AddSync(sink), level), sink, nil
}

// Get returns the global logger, falling back to a development logger when
// Setup has not run.
func Get() *zap.Logger {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.log == nil {
		global.log, _ = zap.NewDevelopment()
	}

	return global.log
}

// Reset discards the global logger without touching the file sink. Tests use
// this between Setup calls.
func Reset() {
	global.mu.Lock()
	defer global.mu.Unlock()

	global.log = nil
}

// Sync flushes buffered entries. Terminal sinks routinely reject fsync, so
// console-side errors are discarded; only the file sink matters here and
// lumberjack flushes on write.
func Sync() {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.log != nil {
		_ = global.log.Sync()
	}
}

// Close flushes and tears the logger down, closing the rotating file sink.
func Close() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.log != nil {
		_ = global.log.Sync()
		global.log = nil
	}

	return global.closeSinkLocked()
}

// closeSinkLocked closes the file sink if one is open. Caller holds the lock.
func (s *state) closeSinkLocked() error {
	if s.sink == nil {
		return nil
	}

	err := s.sink.Close()
	s.sink = nil

	if err != nil {
		return derrors.Wrap(err, derrors.CodeLoggingFailed, "cannot close the log file")
	}

	return nil
}

// Package-level wrappers over the global logger, for call sites that have no
// logger of their own.

// Debug logs at debug level.
func Debug(msg string, fields ...zap.Field) {
	Get().Debug(msg, fields...)
}

// Info logs at info level.
func Info(msg string, fields ...zap.Field) {
	Get().Info(msg, fields...)
}

// Warn logs at warn level.
func Warn(msg string, fields ...zap.Field) {
	Get().Warn(msg, fields...)
}

// Error logs at error level.
func Error(msg string, fields ...zap.Field) {
	Get().Error(msg, fields...)
}

// Fatal logs at fatal level and exits.
func Fatal(msg string, fields ...zap.Field) {
	Get().Fatal(msg, fields...)
}

// With returns the global logger extended with the given fields.
func With(fields ...zap.Field) *zap.Logger {
	return Get().With(fields...)
}
