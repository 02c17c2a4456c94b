package container

import (
	"bytes"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/serializer"
	"github.com/philipp01105/nlogsink/serializer/lifecycle"
	"github.com/philipp01105/nlogsink/serializer/serializertest"
)

func decodeEntries(data []byte) ([]*core.Entry, error) {
	f, err := Decode(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return f.Entries(), nil
}

func framing(data []byte) (int, int, error) {
	h, t := Framing(data)
	return h, t, nil
}

func TestConformance(t *testing.T) {
	serializertest.Run(t, serializertest.Suite{
		NewBuilder: func() serializer.Builder { return Builder{} },
		Decode:     decodeEntries,
		Framing:    framing,
		HasHeader:  true,
		HasTrailer: true,
	})
}

func TestConformance_SmallBlocks(t *testing.T) {
	serializertest.Run(t, serializertest.Suite{
		NewBuilder: func() serializer.Builder { return Builder{BlockRecords: 3} },
		Layout:     formatter.NewTextFormatter(formatter.Config{}),
		Decode:     decodeEntries,
		Framing:    framing,
		HasHeader:  true,
		HasTrailer: true,
	})
}

var (
	fixedTime = time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)
	fixedID   = uuid.MustParse("6f1c2a7e-3d4b-4c5a-9e8f-0a1b2c3d4e5f")
)

func fixedBuilder(block int) Builder {
	return Builder{
		BlockRecords: block,
		Now:          func() time.Time { return fixedTime },
		NewID:        func() uuid.UUID { return fixedID },
	}
}

func writeAll(t *testing.T, b Builder, entries []*core.Entry, flushAt ...int) []byte {
	t.Helper()
	var buf bytes.Buffer
	sess := lifecycle.NewSession(b.Build(&buf))
	require.NoError(t, sess.Create())
	for i, e := range entries {
		for _, f := range flushAt {
			if f == i {
				require.NoError(t, sess.Flush())
			}
		}
		require.NoError(t, sess.Write(e, formatter.NewJSONFormatter(formatter.Config{})))
	}
	require.NoError(t, sess.Close())
	return buf.Bytes()
}

func TestHeaderAndBlocks(t *testing.T) {
	data := writeAll(t, fixedBuilder(4), serializertest.Entries(10, 5), 6)

	assert.Equal(t, Magic[:], data[:4])
	assert.Equal(t, Version, data[4])
	assert.Equal(t, Magic[:], data[len(data)-4:])

	f, err := Decode(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, fixedID, f.ID)
	assert.Equal(t, fixedTime, f.Created)
	assert.Equal(t, FormatName, f.Format)
	// 4 full, then a flush after 2 more, then 4 at close.
	assert.Len(t, f.Blocks, 3)
	assert.Len(t, f.Events, 10)
	assert.Contains(t, f.Events[0].Rendered, `"level"`)
}

func TestBlockReachesSinkWhenFull(t *testing.T) {
	var buf bytes.Buffer
	s := fixedBuilder(2).Build(&buf)
	require.NoError(t, s.AfterCreate())
	headerLen := buf.Len()

	layout := formatter.NewJSONFormatter(formatter.Config{})
	entries := serializertest.Entries(3, 1)
	require.NoError(t, s.Write(entries[0], layout))
	assert.Equal(t, headerLen, buf.Len())
	require.NoError(t, s.Write(entries[1], layout))
	assert.Greater(t, buf.Len(), headerLen)

	full := buf.Len()
	require.NoError(t, s.Write(entries[2], layout))
	assert.Equal(t, full, buf.Len())
	require.NoError(t, s.Flush())
	assert.Greater(t, buf.Len(), full)

	afterFlush := buf.Len()
	require.NoError(t, s.Flush())
	assert.Equal(t, afterFlush, buf.Len(), "empty flush writes nothing")
}

func TestFieldTypesSurvive(t *testing.T) {
	e := &core.Entry{
		Time:  fixedTime,
		Level: core.ErrorLevel,
		Fields: []core.Field{
			{Key: "n", Type: core.IntType, Int64: -3},
			{Key: "f", Type: core.Float64Type, Float64: 2},
			{Key: "d", Type: core.DurationType, Int64: int64(time.Second)},
			{Key: "at", Type: core.TimeType, Int64: fixedTime.UnixNano()},
			{Key: "any", Type: core.AnyType, Any: map[string]int{"a": 1}},
		},
	}
	got, err := decodeEntries(writeAll(t, fixedBuilder(0), []*core.Entry{e}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.PersistableFields(e.Fields), got[0].Fields)
}

func TestDecode_Corrupt(t *testing.T) {
	good := writeAll(t, fixedBuilder(2), serializertest.Entries(5, 9))
	_, err := decodeEntries(good)
	require.NoError(t, err)

	f, err := Decode(bytes.NewReader(good), int64(len(good)))
	require.NoError(t, err)
	firstBlock := f.Blocks[0]

	mutate := func(fn func(b []byte) []byte) []byte {
		return fn(append([]byte(nil), good...))
	}
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", mutate(func(b []byte) []byte { b[0] = 'X'; return b })},
		{"bad version", mutate(func(b []byte) []byte { b[4] = 9; return b })},
		{"no footer", mutate(func(b []byte) []byte { return b[:firstBlock+10] })},
		{"bad trailing magic", mutate(func(b []byte) []byte { b[len(b)-1] = 'X'; return b })},
		{"footer length too large", mutate(func(b []byte) []byte {
			b[len(b)-12] = 0x7f
			return b
		})},
		{"record count zeroed", mutate(func(b []byte) []byte { b[firstBlock] = 0; return b })},
		{"extra bytes before footer", func() []byte {
			h, _ := Framing(good)
			require.Equal(t, 1, h)
			tail := 12 + int(footerLen(good))
			out := append([]byte(nil), good[:len(good)-tail]...)
			out = append(out, 0x01)
			return append(out, good[len(good)-tail:]...)
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data), int64(len(tt.data)))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCorrupt), "%v", err)
		})
	}
}

func footerLen(data []byte) uint64 {
	tail := data[len(data)-12:]
	var n uint64
	for _, b := range tail[:8] {
		n = n<<8 | uint64(b)
	}
	return n
}

func TestFraming_UnclosedFile(t *testing.T) {
	var buf bytes.Buffer
	sess := lifecycle.NewSession(Builder{}.Build(&buf))
	require.NoError(t, sess.Create())
	require.NoError(t, sess.Write(serializertest.Scenario()[0], formatter.NewJSONFormatter(formatter.Config{})))
	require.NoError(t, sess.Flush())

	h, tr := Framing(buf.Bytes())
	assert.Equal(t, 1, h)
	assert.Equal(t, 0, tr)
	_, err := decodeEntries(buf.Bytes())
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestTimesOutsideUnixNanoRange(t *testing.T) {
	times := []time.Time{
		{},
		time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1969, 12, 31, 23, 59, 59, 999999999, time.UTC),
		time.Date(2500, 6, 30, 12, 0, 0, 1, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC),
	}
	entries := make([]*core.Entry, len(times))
	for i, at := range times {
		entries[i] = &core.Entry{Time: at, Level: core.InfoLevel, Message: at.String()}
	}

	b := fixedBuilder(0)
	b.Now = func() time.Time { return time.Time{} }
	data := writeAll(t, b, entries)

	f, err := Decode(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.True(t, f.Created.IsZero(), "created %v", f.Created)
	assert.Equal(t, serializertest.Canonicalize(entries), serializertest.Canonicalize(f.Entries()))
}

func TestFraming_FooterMustFit(t *testing.T) {
	var buf bytes.Buffer
	sess := lifecycle.NewSession(Builder{}.Build(&buf))
	require.NoError(t, sess.Create())
	require.NoError(t, sess.Write(serializertest.Scenario()[0], formatter.NewJSONFormatter(formatter.Config{})))
	require.NoError(t, sess.Flush())
	unclosed := buf.Bytes()

	tests := []struct {
		name string
		tail []byte
	}{
		{"length past start of data", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
		{"zero length", []byte{0, 0, 0, 0, 0, 0, 0, 0}},
		{"body is not a footer", []byte{0xff, 0xff, 0xff, 0, 0, 0, 0, 0, 0, 0, 0, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append(append(append([]byte(nil), unclosed...), tt.tail...), Magic[:]...)
			h, tr := Framing(data)
			assert.Equal(t, 1, h)
			assert.Equal(t, 0, tr)
		})
	}

	good := writeAll(t, fixedBuilder(2), serializertest.Entries(5, 3))
	h, tr := Framing(good)
	assert.Equal(t, 1, h)
	assert.Equal(t, 1, tr)
}

func TestReopenIsRejected(t *testing.T) {
	s := Builder{}.Build(&bytes.Buffer{})
	assert.False(t, s.SupportsReopen())
	assert.True(t, errors.Is(s.AfterReopen(), serializer.ErrReopenUnsupported))
}

func BenchmarkWrite(b *testing.B) {
	s := Builder{}.Build(&bytes.Buffer{})
	_ = s.AfterCreate()
	layout := formatter.NewJSONFormatter(formatter.Config{})
	entry := serializertest.Entries(1, 1)[0]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Write(entry, layout)
	}
}
