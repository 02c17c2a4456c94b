package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/handler/consolehandler"
	"github.com/philipp01105/nlogsink/serializer/jsonser"
)

// newTestLogger returns a builder writing text lines to buf through a
// synchronous console handler.
func newTestLogger(t testing.TB, buf *bytes.Buffer) *Builder {
	t.Helper()
	h, err := consolehandler.NewConsoleHandler(consolehandler.ConsoleConfig{
		Writer: buf,
		Async:  false, // Synchronous for testing
		Layout: formatter.NewTextFormatter(formatter.Config{}),
	})
	if err != nil {
		t.Fatalf("NewConsoleHandler: %v", err)
	}
	return NewBuilder().WithHandler(h)
}

// output flushes log and returns everything written so far.
func output(t *testing.T, log *Logger, buf *bytes.Buffer) string {
	t.Helper()
	if err := log.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return buf.String()
}

func TestLogger_LevelGate(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(t, &buf).WithLevel(InfoLevel).Build()

	// Debug should not be logged (below Info level)
	logger.Debug("debug message")
	if output(t, logger, &buf) != "" {
		t.Error("Debug message was logged when level is Info")
	}

	logger.Info("info message")
	if !strings.Contains(output(t, logger, &buf), "info message") {
		t.Errorf("Expected 'info message' in output, got: %s", buf.String())
	}

	buf.Reset()
	logger.Warn("warn message")
	if !strings.Contains(output(t, logger, &buf), "warn message") {
		t.Errorf("Expected 'warn message' in output, got: %s", buf.String())
	}

	buf.Reset()
	logger.Error("error message")
	if !strings.Contains(output(t, logger, &buf), "error message") {
		t.Errorf("Expected 'error message' in output, got: %s", buf.String())
	}

	if logger.Enabled(DebugLevel) || !logger.Enabled(ErrorLevel) {
		t.Error("Enabled does not match the level gate")
	}
}

func TestLogger_BufferedUntilFlush(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(t, &buf).Build()

	logger.Info("buffered")
	if buf.Len() != 0 {
		t.Fatalf("Expected nothing before Flush, got: %s", buf.String())
	}
	if !strings.Contains(output(t, logger, &buf), "buffered") {
		t.Errorf("Expected 'buffered' after Flush, got: %s", buf.String())
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(t, &buf).
		WithLevel(InfoLevel).
		WithFields(String("app", "test")).
		Build()

	// Create child logger with additional fields
	childLogger := logger.With(String("request_id", "123"))
	childLogger.Info("test message")

	out := output(t, logger, &buf)
	if !strings.Contains(out, "app=test") {
		t.Errorf("Expected 'app=test' in output, got: %s", out)
	}
	if !strings.Contains(out, "request_id=123") {
		t.Errorf("Expected 'request_id=123' in output, got: %s", out)
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(t, &buf).Build()

	logger.Info("test",
		String("str", "value"),
		Int("int", 42),
		Bool("bool", true),
		Float64("float", 3.14),
		Duration("took", 1500*time.Millisecond),
		Err(errors.New("boom")),
	)

	out := output(t, logger, &buf)
	for _, want := range []string{"str=value", "int=42", "bool=true", "float=3.14", "took=1.5s", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output, got: %s", want, out)
		}
	}
}

func TestLogger_FormattedLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(t, &buf).Build()

	logger.Infof("User %s logged in with ID %d", "alice", 123)

	out := output(t, logger, &buf)
	if !strings.Contains(out, "User alice logged in with ID 123") {
		t.Errorf("Expected formatted message in output, got: %s", out)
	}
}

func TestLogger_ImmutableWith(t *testing.T) {
	var buf bytes.Buffer
	parent := newTestLogger(t, &buf).
		WithFields(String("parent", "value")).
		Build()

	child := parent.With(String("child", "value"))

	// Parent should only have parent field
	parent.Info("parent message")
	parentOutput := output(t, parent, &buf)
	if !strings.Contains(parentOutput, "parent=value") {
		t.Error("Parent logger should have parent field")
	}
	if strings.Contains(parentOutput, "child=value") {
		t.Error("Parent logger should not have child field")
	}

	buf.Reset()

	// Child should have both fields
	child.Info("child message")
	childOutput := output(t, child, &buf)
	if !strings.Contains(childOutput, "parent=value") {
		t.Error("Child logger should have parent field")
	}
	if !strings.Contains(childOutput, "child=value") {
		t.Error("Child logger should have child field")
	}
}

func TestLogger_Named(t *testing.T) {
	var buf bytes.Buffer
	root := newTestLogger(t, &buf).WithName("app").Build()

	db := root.Named("db")
	pool := db.Named("pool")
	if got := pool.Name(); got != "app.db.pool" {
		t.Errorf("Expected name app.db.pool, got %q", got)
	}
	if root.Name() != "app" {
		t.Errorf("Named must not change the parent, got %q", root.Name())
	}
	if db.Named("").Name() != "app.db" {
		t.Error("Named(\"\") should keep the name")
	}

	db.Info("connected")
	out := output(t, db, &buf)
	if !strings.Contains(out, "[INFO] app.db - connected") {
		t.Errorf("Expected logger name in output, got: %s", out)
	}
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(t, &buf).Build()

	logger.WithError(errors.New("connection refused")).Error("query failed")
	logger.Info("after")

	lines := strings.Split(strings.TrimSpace(output(t, logger, &buf)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], `exception="`) || !strings.Contains(lines[0], ": connection refused\"") {
		t.Errorf("Expected exception in first line, got: %s", lines[0])
	}
	if strings.Contains(lines[1], "exception=") {
		t.Errorf("WithError must not leak into the parent, got: %s", lines[1])
	}
}

// capture keeps clones of handled entries.
type capture struct {
	entries []*core.Entry
}

func (c *capture) Handle(e *core.Entry) error {
	c.entries = append(c.entries, e.Clone())
	return nil
}

func (c *capture) Close() error { return nil }

func TestLogger_EntryShape(t *testing.T) {
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &capture{}
	log := NewBuilder().
		WithHandler(c).
		WithName("svc").
		WithClock(func() time.Time { return fixed }).
		WithCaller(true).
		Build()

	log.WithError(errors.New("disk full")).Warn("retrying", Int("attempt", 2))

	if len(c.entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(c.entries))
	}
	e := c.entries[0]
	if !e.Time.Equal(fixed) || e.Level != WarnLevel || e.LoggerName != "svc" || e.Message != "retrying" {
		t.Errorf("Unexpected entry: %+v", e)
	}
	if e.Throwable == nil || e.Throwable.Message != "disk full" {
		t.Fatalf("Expected throwable, got %+v", e.Throwable)
	}
	if len(e.Throwable.Stack) == 0 || !strings.Contains(e.Throwable.Stack[0], "TestLogger_EntryShape") {
		t.Errorf("Expected stack to start at the call site, got %v", e.Throwable.Stack)
	}
	if !e.Caller.Defined || e.Caller.ShortFile != "logger_test.go" {
		t.Errorf("Expected caller in logger_test.go, got %+v", e.Caller)
	}
}

func TestLogger_JSONLinesHandler(t *testing.T) {
	var buf bytes.Buffer
	h, err := consolehandler.NewConsoleHandler(consolehandler.ConsoleConfig{
		Writer: &buf,
		Format: jsonser.FormatName,
	})
	if err != nil {
		t.Fatal(err)
	}
	log := NewBuilder().WithHandler(h).WithName("api").Build()

	log.Info("one", String("k", "v"))
	log.WithError(errors.New("bad")).Error("two")
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}

	file, err := jsonser.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(file.Events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(file.Events))
	}
	second := file.Events[1].Entry
	if second.LoggerName != "api" || second.Throwable == nil || second.Throwable.Message != "bad" {
		t.Errorf("Unexpected second entry: %+v", second)
	}
}

func TestLogger_NoHandler(t *testing.T) {
	log := NewBuilder().Build()
	log.Info("dropped")
	if err := log.Flush(); err != nil {
		t.Errorf("Flush without handler: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Errorf("Close without handler: %v", err)
	}
}

func TestLogger_Fatal(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(t, &buf).WithLevel(DebugLevel).Build()

	// Override osExit to capture exit code instead of actually exiting
	exitCode := -1
	origExit := osExit
	osExit = func(code int) { exitCode = code }
	defer func() { osExit = origExit }()

	log.Fatal("fatal error", String("key", "value"))

	if exitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", exitCode)
	}
	// Fatal flushes before exiting.
	if !strings.Contains(buf.String(), "fatal error") {
		t.Errorf("Expected 'fatal error' in output, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "FATAL") {
		t.Errorf("Expected 'FATAL' in output, got: %s", buf.String())
	}
}

func TestLogger_Panic(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(t, &buf).WithLevel(DebugLevel).Build()

	defer func() {
		r := recover()
		if r == nil {
			t.Error("Expected panic, got nil")
		}
		if r != "panic message" {
			t.Errorf("Expected panic with 'panic message', got: %v", r)
		}
		if !strings.Contains(buf.String(), "panic message") {
			t.Errorf("Expected 'panic message' in output, got: %s", buf.String())
		}
		if !strings.Contains(buf.String(), "PANIC") {
			t.Errorf("Expected 'PANIC' in output, got: %s", buf.String())
		}
	}()

	log.Panic("panic message")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"WARNING": WarnLevel,
		"FATAL":   FatalLevel,
		"PANIC":   PanicLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDefault_SetDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	c := &capture{}
	SetDefault(NewBuilder().WithHandler(c).Build())
	Named("pkg").Info("hello")
	Warnf("n=%d", 3)
	if err := Flush(); err != nil {
		t.Fatal(err)
	}

	if len(c.entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(c.entries))
	}
	if c.entries[0].LoggerName != "pkg" || c.entries[1].Message != "n=3" {
		t.Errorf("Unexpected entries: %+v %+v", c.entries[0], c.entries[1])
	}
}

func BenchmarkLogger_LevelCheck(b *testing.B) {
	logger := newTestLogger(b, &bytes.Buffer{}).WithLevel(InfoLevel).Build()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Should exit early due to level check
		logger.Debug("debug message", String("key", "value"))
	}
}

func BenchmarkLogger_InfoWithFields(b *testing.B) {
	logger := newTestLogger(b, &bytes.Buffer{}).Build()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("test message",
			String("str", "value"),
			Int("int", 42),
			Bool("bool", true),
			Float64("float", 3.14),
		)
	}
}
