package formatter_test

import (
	"fmt"
	"time"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
)

func ExampleNewTextFormatter() {
	f := formatter.NewTextFormatter(formatter.Config{})

	entry := &core.Entry{
		Time:       time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		Level:      core.InfoLevel,
		LoggerName: "http",
		Message:    "hello world",
	}

	out, _ := f.Format(entry)
	fmt.Print(string(out))
	// Output:
	// 2026-01-15T12:00:00Z [INFO] http - hello world
}

func ExampleNewJSONFormatter() {
	f := formatter.NewJSONFormatter(formatter.Config{})

	entry := &core.Entry{
		Time:    time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		Level:   core.InfoLevel,
		Message: "request handled",
		Fields: []core.Field{
			{Key: "status", Int64: 200, Type: core.Int64Type},
		},
	}

	out, _ := f.Format(entry)
	fmt.Print(string(out))
	// Output:
	// {"time":"2026-01-15T12:00:00Z","level":"INFO","message":"request handled","status":200}
}

func ExampleParseJSON() {
	line := []byte(`{"time":"2026-01-15T12:00:00Z","level":"WARN","logger":"db","message":"slow query","ms":912}`)

	entry, err := formatter.ParseJSON(line)
	if err != nil {
		panic(err)
	}

	out, _ := formatter.NewTextFormatter(formatter.Config{}).Format(entry)
	fmt.Print(string(out))
	// Output:
	// 2026-01-15T12:00:00Z [WARN] db - slow query ms=912
}
