package jsonser

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/serializer"
	"github.com/philipp01105/nlogsink/serializer/lifecycle"
	"github.com/philipp01105/nlogsink/serializer/serializertest"
)

func decodeEntries(data []byte) ([]*core.Entry, error) {
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return f.Entries(), nil
}

func framing(data []byte) (headers, trailers int, err error) {
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(line) > 0 && json.Get(line, "kind").ToString() == kindHeader {
			headers++
		}
	}
	return headers, 0, nil
}

func TestConformance(t *testing.T) {
	serializertest.Run(t, serializertest.Suite{
		NewBuilder: func() serializer.Builder { return Builder{} },
		Decode:     decodeEntries,
		Framing:    framing,
		HasHeader:  true,
	})
}

func TestConformance_TextLayout(t *testing.T) {
	serializertest.Run(t, serializertest.Suite{
		NewBuilder: func() serializer.Builder { return Builder{BufferSize: 32} },
		Layout:     formatter.NewTextFormatter(formatter.Config{}),
		Decode:     decodeEntries,
		Framing:    framing,
		HasHeader:  true,
	})
}

var fixed = time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)

func fixedBuilder() Builder {
	return Builder{Now: func() time.Time { return fixed }}
}

func TestHeaderAndRendered(t *testing.T) {
	var buf bytes.Buffer
	sess := lifecycle.NewSession(fixedBuilder().Build(&buf))
	require.NoError(t, sess.Create())
	require.NoError(t, sess.Write(serializertest.Scenario()[0], formatter.NewTextFormatter(formatter.Config{})))
	require.NoError(t, sess.Close())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"kind":"header","format":"json_lines","version":1,"created":"2026-05-02T08:30:00Z"}`, lines[0])

	f, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, Version, f.Header.Version)
	assert.Equal(t, fixed, f.Header.Created)
	require.Len(t, f.Events, 1)
	assert.Equal(t, "2026-04-01T09:00:00Z [INFO] app - E1", f.Events[0].Rendered)
}

func TestOpenHooksReachSink(t *testing.T) {
	var buf bytes.Buffer
	sess := lifecycle.NewSession(fixedBuilder().Build(&buf))
	require.NoError(t, sess.Create())
	assert.Equal(t, `{"kind":"header","format":"json_lines","version":1,"created":"2026-05-02T08:30:00Z"}`+"\n", buf.String())

	buf.Reset()
	sess = lifecycle.NewSession(fixedBuilder().Build(&buf))
	require.NoError(t, sess.Reopen())
	assert.Equal(t, `{"kind":"reopen","at":"2026-05-02T08:30:00Z"}`+"\n", buf.String())

	sess = lifecycle.NewSession(fixedBuilder().Build(&serializertest.FailingWriter{}))
	err := sess.Create()
	require.Error(t, err)
	assert.True(t, serializer.IsSinkErr(err))
	assert.True(t, errors.Is(err, serializertest.ErrInjected))
	assert.Equal(t, lifecycle.Failed, sess.State())
}

func TestReopenMarker(t *testing.T) {
	d := serializertest.NewMemDriver(fixedBuilder(), formatter.NewJSONFormatter(formatter.Config{}))
	entries := serializertest.Scenario()

	require.NoError(t, d.Open("app.log"))
	require.NoError(t, d.Write(entries[0]))
	require.NoError(t, d.Close())
	require.NoError(t, d.Open("app.log"))
	require.NoError(t, d.Write(entries[1]))
	require.NoError(t, d.Close())

	f, err := Decode(bytes.NewReader(d.File("app.log")))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{fixed}, f.Reopens)
	assert.Equal(t, serializertest.Canonicalize(entries[:2]), serializertest.Canonicalize(f.Entries()))
}

func TestFieldTypesSurvive(t *testing.T) {
	e := &core.Entry{
		Time:  fixed,
		Level: core.InfoLevel,
		Fields: []core.Field{
			{Key: "n", Type: core.IntType, Int64: 3},
			{Key: "f", Type: core.Float64Type, Float64: 2},
			{Key: "d", Type: core.DurationType, Int64: int64(time.Second)},
			{Key: "at", Type: core.TimeType, Int64: fixed.UnixNano()},
			{Key: "err", Type: core.ErrorType, Str: "boom"},
			{Key: "any", Type: core.AnyType, Any: []int{1, 2}},
		},
	}
	var buf bytes.Buffer
	sess := lifecycle.NewSession(Builder{}.Build(&buf))
	require.NoError(t, sess.Create())
	require.NoError(t, sess.Write(e, formatter.NewJSONFormatter(formatter.Config{})))
	require.NoError(t, sess.Close())

	got, err := decodeEntries(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.PersistableFields(e.Fields), got[0].Fields)
	assert.Equal(t, core.Field{Key: "any", Type: core.StringType, Str: "[1 2]"}, got[0].Fields[5])
}

func TestDecode_Corrupt(t *testing.T) {
	header := `{"kind":"header","format":"json_lines","version":1,"created":"2026-05-02T08:30:00Z"}`
	event := `{"kind":"event","time":"2026-05-02T08:30:00Z","level":"INFO","message":"m","rendered":"m"}`

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"event before header", event + "\n" + header + "\n"},
		{"second header", header + "\n" + event + "\n" + header + "\n"},
		{"wrong format", strings.Replace(header, "json_lines", "text", 1) + "\n"},
		{"unknown kind", header + "\n" + `{"kind":"mystery"}` + "\n"},
		{"bad level", header + "\n" + strings.Replace(event, "INFO", "LOUD", 1) + "\n"},
		{"truncated event", header + "\n" + event[:30]},
		{"bad field type", header + "\n" + strings.Replace(event, `"message"`, `"fields":[{"key":"k","type":"blob"}],"message"`, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCorrupt), "%v", err)
		})
	}
}

func TestDecode_IgnoresBlankLines(t *testing.T) {
	in := `{"kind":"header","format":"json_lines","version":1,"created":"2026-05-02T08:30:00Z"}` + "\n\n" +
		`{"kind":"event","time":"2026-05-02T08:30:00Z","level":"WARN","logger":"x","message":"m","rendered":"m"}`
	f, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, f.Events, 1)
	assert.Equal(t, core.WarnLevel, f.Events[0].Entry.Level)
	assert.Equal(t, "x", f.Events[0].Entry.LoggerName)
}
