package logger

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/handler/consolehandler"
)

var (
	defaultLogger atomic.Pointer[Logger]
	defaultOnce   sync.Once
)

// newDefault builds the logger behind the package-level functions: async
// text lines to stdout at InfoLevel.
func newDefault() *Logger {
	h, err := consolehandler.NewConsoleHandler(consolehandler.ConsoleConfig{
		Async:      true,
		BufferSize: 1000,
		Layout:     formatter.NewTextFormatter(formatter.Config{}),
	})
	if err != nil {
		// Only the built-in text format is involved.
		panic(err)
	}
	return NewBuilder().
		WithHandler(h).
		WithLevel(core.InfoLevel).
		Build()
}

// Default returns the default logger. It is created on first use unless
// SetDefault ran before.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLogger.CompareAndSwap(nil, newDefault())
	})
	return defaultLogger.Load()
}

// SetDefault replaces the default logger. The previous one is not closed.
func SetDefault(l *Logger) {
	defaultOnce.Do(func() {})
	defaultLogger.Store(l)
}

// Debug logs a debug message using the default logger
func Debug(msg string, fields ...core.Field) {
	Default().Debug(msg, fields...)
}

// Info logs an info message using the default logger
func Info(msg string, fields ...core.Field) {
	Default().Info(msg, fields...)
}

// Warn logs a warning message using the default logger
func Warn(msg string, fields ...core.Field) {
	Default().Warn(msg, fields...)
}

// Error logs an error message using the default logger
func Error(msg string, fields ...core.Field) {
	Default().Error(msg, fields...)
}

// Fatal logs a fatal message using the default logger and exits the program
func Fatal(msg string, fields ...core.Field) {
	Default().Fatal(msg, fields...)
}

// Infof logs a formatted info message using the default logger
func Infof(format string, args ...interface{}) {
	Default().Infof(format, args...)
}

// Warnf logs a formatted warning message using the default logger
func Warnf(format string, args ...interface{}) {
	Default().Warnf(format, args...)
}

// Errorf logs a formatted error message using the default logger
func Errorf(format string, args ...interface{}) {
	Default().Errorf(format, args...)
}

// With creates a new logger with additional fields
func With(fields ...core.Field) *Logger {
	return Default().With(fields...)
}

// Named creates a new named logger from the default logger
func Named(name string) *Logger {
	return Default().Named(name)
}

// Flush flushes the default logger's handler
func Flush() error {
	return Default().Flush()
}
