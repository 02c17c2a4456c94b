package serializertest

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/philipp01105/nlogsink/core"
)

var baseTime = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

// Scenario returns the four entries E1..E4 used by the ordering scenario.
func Scenario() []*core.Entry {
	return []*core.Entry{
		{Time: baseTime, Level: core.InfoLevel, LoggerName: "app", Message: "E1"},
		{Time: baseTime.Add(time.Millisecond), Level: core.WarnLevel, LoggerName: "app.db", Message: "E2",
			Fields: []core.Field{{Key: "pool", Type: core.Int64Type, Int64: 4}}},
		{Time: baseTime.Add(2 * time.Millisecond), Level: core.ErrorLevel, LoggerName: "app.db", Message: "E3",
			Throwable: &core.ThrowableInfo{Type: "net.OpError", Message: "connection reset", Stack: []string{"db.dial (conn.go:88)"}}},
		{Time: baseTime.Add(3 * time.Millisecond), Level: core.DebugLevel, LoggerName: "app", Message: "E4",
			Fields: []core.Field{{Key: "ok", Type: core.BoolType, Int64: 1}}},
	}
}

var (
	sampleLoggers  = []string{"", "app", "app.http", "app.db.pool", "ingest/worker-3"}
	sampleMessages = []string{
		"started",
		"request handled",
		`quoted "value" and \ backslash`,
		"multi\nline\r\nmessage",
		"unicode: größe 日本語 ✓",
		"",
		"tab\tseparated",
	}
)

// Entries returns n deterministic pseudo-random entries. Field values are
// limited to types that every built-in format and the JSON layout can
// restore exactly: strings, integers, booleans and non-integral floats.
func Entries(n int, seed int64) []*core.Entry {
	rng := rand.New(rand.NewSource(seed))
	out := make([]*core.Entry, n)
	for i := range out {
		e := &core.Entry{
			Time:       baseTime.Add(time.Duration(i)*time.Second + time.Duration(rng.Intn(1e9))),
			Level:      core.Level(rng.Intn(int(core.PanicLevel) + 1)),
			LoggerName: sampleLoggers[rng.Intn(len(sampleLoggers))],
			Message:    fmt.Sprintf("%s #%d", sampleMessages[rng.Intn(len(sampleMessages))], i),
		}
		for j := rng.Intn(4); j > 0; j-- {
			key := fmt.Sprintf("k%d", j)
			switch rng.Intn(4) {
			case 0:
				e.Fields = append(e.Fields, core.Field{Key: key, Type: core.StringType, Str: fmt.Sprintf("v-%d", rng.Int())})
			case 1:
				e.Fields = append(e.Fields, core.Field{Key: key, Type: core.Int64Type, Int64: rng.Int63() - rng.Int63()})
			case 2:
				e.Fields = append(e.Fields, core.Field{Key: key, Type: core.BoolType, Int64: int64(rng.Intn(2))})
			default:
				e.Fields = append(e.Fields, core.Field{Key: key, Type: core.Float64Type, Float64: float64(rng.Intn(1000)) + 0.5})
			}
		}
		if rng.Intn(5) == 0 {
			e.Throwable = &core.ThrowableInfo{
				Type:    "errors.errorString",
				Message: fmt.Sprintf("failure %d", i),
				Stack:   []string{"main.main (main.go:12)", "runtime.main (proc.go:283)"},
			}
		}
		out[i] = e
	}
	return out
}

// Canonical is the comparable projection of an entry that every format
// must preserve.
type Canonical struct {
	Time      time.Time
	Level     core.Level
	Logger    string
	Message   string
	Fields    []core.Field
	Throwable *core.ThrowableInfo
}

// Canonicalize projects entries for comparison.
func Canonicalize(entries []*core.Entry) []Canonical {
	out := make([]Canonical, len(entries))
	for i, e := range entries {
		c := Canonical{
			Time:    e.Time.UTC(),
			Level:   e.Level,
			Logger:  e.LoggerName,
			Message: e.Message,
			Fields:  core.PersistableFields(e.Fields),
		}
		if e.Throwable != nil {
			t := *e.Throwable
			if len(t.Stack) == 0 {
				t.Stack = nil
			}
			c.Throwable = &t
		}
		out[i] = c
	}
	return out
}
