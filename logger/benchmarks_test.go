package logger

import (
	"io"
	"testing"

	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/handler/consolehandler"
	"github.com/philipp01105/nlogsink/serializer/container"
	"github.com/philipp01105/nlogsink/serializer/jsonser"
)

func benchLogger(b *testing.B, cfg consolehandler.ConsoleConfig) *Logger {
	b.Helper()
	cfg.Writer = io.Discard
	h, err := consolehandler.NewConsoleHandler(cfg)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = h.Close() })
	return NewBuilder().WithHandler(h).WithLevel(InfoLevel).Build()
}

// BenchmarkInfoNoFields benchmarks Info() with no fields using a discard writer.
func BenchmarkInfoNoFields(b *testing.B) {
	logger := benchLogger(b, consolehandler.ConsoleConfig{})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		logger.Info("test message")
	}
}

// BenchmarkInfoWith2Fields benchmarks Info() with 2 string fields using a discard writer.
func BenchmarkInfoWith2Fields(b *testing.B) {
	logger := benchLogger(b, consolehandler.ConsoleConfig{})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		logger.Info("test message", String("key1", "value1"), String("key2", "value2"))
	}
}

// BenchmarkFilteredDebug benchmarks Debug() when level is Info (should be filtered).
func BenchmarkFilteredDebug(b *testing.B) {
	logger := benchLogger(b, consolehandler.ConsoleConfig{})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		logger.Debug("debug message", String("key", "value"))
	}
}

// BenchmarkJSON benchmarks Info() with JSON layout on the text format.
func BenchmarkJSON(b *testing.B) {
	logger := benchLogger(b, consolehandler.ConsoleConfig{
		Layout: formatter.NewJSONFormatter(formatter.Config{}),
	})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		logger.Info("test message", String("key1", "value1"), String("key2", "value2"))
	}
}

// BenchmarkFormats compares the built-in formats behind the same logger.
func BenchmarkFormats(b *testing.B) {
	for _, format := range []string{"text", jsonser.FormatName, container.FormatName} {
		b.Run(format, func(b *testing.B) {
			logger := benchLogger(b, consolehandler.ConsoleConfig{Format: format})

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				logger.Info("test message", String("key1", "value1"), Int("n", i))
			}
		})
	}
}
