// Package logger provides structured logging for the Terminator automation core,
// using the zap logging library with file rotation support.
//
// Selectors and typed text may contain credentials; callers log them at debug
// level only. The package keeps a process-global logger so the CLI, the public
// API, and background components share one sink.
package logger
