package logger_test

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/handler/consolehandler"
	"github.com/philipp01105/nlogsink/logger"
)

// Use the package-level default logger for quick, no-setup logging.
func Example() {
	logger.Info("Application started")
	logger.Info("User login",
		logger.String("username", "alice"),
		logger.Int("user_id", 123),
	)
	_ = logger.Flush()
}

// Create a custom Logger with the Builder pattern.
func ExampleNewBuilder() {
	ch, err := consolehandler.NewConsoleHandler(consolehandler.ConsoleConfig{
		Writer: os.Stdout,
	})
	if err != nil {
		panic(err)
	}

	log := logger.NewBuilder().
		WithHandler(ch).
		WithName("api").
		WithLevel(logger.DebugLevel).
		WithClock(func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }).
		WithFields(logger.String("service", "api")).
		Build()

	log.Info("ready", logger.Int("port", 8080))
	log.Named("db").WithError(errors.New("timeout")).Warn("slow query")
	log.Close()
	// Output:
	// 2026-01-15T12:00:00Z [INFO] api - ready service=api port=8080
	// 2026-01-15T12:00:00Z [WARN] api.db - slow query service=api exception="errors.errorString: timeout"
}

// Use With to create a child logger with persistent context fields.
func ExampleLogger_With() {
	ch, err := consolehandler.NewConsoleHandler(consolehandler.ConsoleConfig{
		Writer: io.Discard,
		Layout: formatter.NewJSONFormatter(formatter.Config{}),
	})
	if err != nil {
		panic(err)
	}

	log := logger.NewBuilder().
		WithHandler(ch).
		Build()

	reqLog := log.With(
		logger.String("request_id", "req-12345"),
		logger.String("method", "GET"),
	)

	reqLog.Info("Processing request", logger.String("path", "/api/users"))
	reqLog.Info("Request completed", logger.Int("status", 200))
	log.Close()
}
