package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/handler"
)

// osExit is a variable to allow overriding os.Exit in tests
var osExit = os.Exit

// throwableSkip drops log and the level method from captured stacks.
const throwableSkip = 2

// Logger is the main logging interface (immutable)
type Logger struct {
	handler       handler.Handler
	name          string
	level         core.Level
	fields        []core.Field
	err           error
	includeCaller bool
	callerSkip    int
	now           func() time.Time
}

// Builder provides a fluent API for building Logger instances
type Builder struct {
	handler       handler.Handler
	name          string
	level         core.Level
	fields        []core.Field
	includeCaller bool
	callerSkip    int
	now           func() time.Time
}

// NewBuilder creates a new logger builder
func NewBuilder() *Builder {
	return &Builder{
		level:      core.InfoLevel, // Default level
		callerSkip: 3,              // Default skip for getCaller
		now:        time.Now,
	}
}

// WithHandler sets the handler
func (b *Builder) WithHandler(h handler.Handler) *Builder {
	b.handler = h
	return b
}

// WithName sets the logger name carried by every entry.
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithLevel sets the log level
func (b *Builder) WithLevel(level core.Level) *Builder {
	b.level = level
	return b
}

// WithFields adds default fields to all log entries
func (b *Builder) WithFields(fields ...core.Field) *Builder {
	b.fields = append(b.fields, fields...)
	return b
}

// WithCaller enables caller information
func (b *Builder) WithCaller(enabled bool) *Builder {
	b.includeCaller = enabled
	return b
}

// WithClock replaces time.Now as the source of entry timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.now = now
	}
	return b
}

// Build creates the Logger instance
func (b *Builder) Build() *Logger {
	return &Logger{
		handler:       b.handler,
		name:          b.name,
		level:         b.level,
		fields:        append([]core.Field(nil), b.fields...),
		includeCaller: b.includeCaller,
		callerSkip:    b.callerSkip,
		now:           b.now,
	}
}

func (l *Logger) clone() *Logger {
	c := *l
	return &c
}

// With creates a new Logger with additional fields (immutable operation)
func (l *Logger) With(fields ...core.Field) *Logger {
	newFields := make([]core.Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	c := l.clone()
	c.fields = newFields
	return c
}

// Named returns a child logger whose name is the parent's name joined
// with name by a dot.
func (l *Logger) Named(name string) *Logger {
	c := l.clone()
	switch {
	case name == "":
	case l.name == "":
		c.name = name
	default:
		c.name = l.name + "." + name
	}
	return c
}

// WithError returns a child logger that attaches err as the throwable of
// every entry it logs. A nil err clears it.
func (l *Logger) WithError(err error) *Logger {
	c := l.clone()
	c.err = err
	return c
}

// Name returns the logger name.
func (l *Logger) Name() string {
	return l.name
}

// Enabled reports whether entries at level pass the level gate.
func (l *Logger) Enabled(level core.Level) bool {
	return level >= l.level
}

// Log logs a message at the specified level
func (l *Logger) Log(level core.Level, msg string, fields ...core.Field) {
	// Level check optimization - exit early BEFORE any allocations
	if level < l.level {
		return
	}

	l.log(level, msg, fields)
}

// log is the internal logging method that takes a pre-allocated slice
func (l *Logger) log(level core.Level, msg string, fields []core.Field) {
	// Handler check - exit if no handler (avoid any work)
	if l.handler == nil {
		return
	}

	// Get entry from pool AFTER level check
	entry := core.GetEntry()
	defer core.PutEntry(entry)

	entry.Time = l.now()
	entry.Level = level
	entry.LoggerName = l.name
	entry.Message = msg

	// Add logger's default fields
	if len(l.fields) > 0 {
		entry.Fields = append(entry.Fields, l.fields...)
	}

	// Add provided fields
	if len(fields) > 0 {
		entry.Fields = append(entry.Fields, fields...)
	}

	if l.err != nil {
		entry.Throwable = core.NewThrowable(l.err, throwableSkip)
	}

	if l.includeCaller {
		entry.Caller = core.GetCaller(l.callerSkip)
	}

	// Handlers do not keep the entry, so it goes back to the pool even
	// when Handle fails.
	_ = l.handler.Handle(entry)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...core.Field) {
	if core.DebugLevel < l.level {
		return
	}
	l.log(core.DebugLevel, msg, fields)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...core.Field) {
	if core.InfoLevel < l.level {
		return
	}
	l.log(core.InfoLevel, msg, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...core.Field) {
	if core.WarnLevel < l.level {
		return
	}
	l.log(core.WarnLevel, msg, fields)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...core.Field) {
	if core.ErrorLevel < l.level {
		return
	}
	l.log(core.ErrorLevel, msg, fields)
}

// Fatal logs a fatal message, flushes the handler and exits the program
// with os.Exit(1)
func (l *Logger) Fatal(msg string, fields ...core.Field) {
	l.log(core.FatalLevel, msg, fields)
	_ = l.Flush()
	osExit(1)
}

// Panic logs a panic message, flushes the handler and panics
func (l *Logger) Panic(msg string, fields ...core.Field) {
	l.log(core.PanicLevel, msg, fields)
	_ = l.Flush()
	panic(msg)
}

// Debugf logs a debug message with formatting
func (l *Logger) Debugf(format string, args ...interface{}) {
	if core.DebugLevel < l.level {
		return
	}
	l.log(core.DebugLevel, fmt.Sprintf(format, args...), nil)
}

// Infof logs an info message with formatting
func (l *Logger) Infof(format string, args ...interface{}) {
	if core.InfoLevel < l.level {
		return
	}
	l.log(core.InfoLevel, fmt.Sprintf(format, args...), nil)
}

// Warnf logs a warning message with formatting
func (l *Logger) Warnf(format string, args ...interface{}) {
	if core.WarnLevel < l.level {
		return
	}
	l.log(core.WarnLevel, fmt.Sprintf(format, args...), nil)
}

// Errorf logs an error message with formatting
func (l *Logger) Errorf(format string, args ...interface{}) {
	if core.ErrorLevel < l.level {
		return
	}
	l.log(core.ErrorLevel, fmt.Sprintf(format, args...), nil)
}

// Fatalf logs a fatal message with formatting, flushes the handler and
// exits the program with os.Exit(1)
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(core.FatalLevel, fmt.Sprintf(format, args...), nil)
	_ = l.Flush()
	osExit(1)
}

// Panicf logs a panic message with formatting, flushes the handler and
// panics
func (l *Logger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.log(core.PanicLevel, msg, nil)
	_ = l.Flush()
	panic(msg)
}

// Flush pushes buffered entries to the handler's sink. Handlers that do
// not buffer are left alone.
func (l *Logger) Flush() error {
	if l.handler == nil {
		return nil
	}
	return handler.Flush(l.handler)
}

// Close closes the logger's handler
func (l *Logger) Close() error {
	if l.handler != nil {
		return l.handler.Close()
	}
	return nil
}
