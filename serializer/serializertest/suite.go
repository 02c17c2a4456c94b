package serializertest

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/serializer"
	"github.com/philipp01105/nlogsink/serializer/lifecycle"
)

// Suite describes a format under test.
type Suite struct {
	// NewBuilder returns the builder under test.
	NewBuilder serializer.Factory
	// Layout is passed to every Write. Defaults to a JSONFormatter.
	Layout formatter.Formatter
	// Decode reads a complete file back into entries.
	Decode func(data []byte) ([]*core.Entry, error)
	// Framing counts headers and trailers in a complete file.
	Framing func(data []byte) (headers, trailers int, err error)
	// HasHeader and HasTrailer state what Framing must find in a file
	// that was created and closed once.
	HasHeader  bool
	HasTrailer bool
}

// Run exercises the serializer contract against s.
func Run(t *testing.T, s Suite) {
	t.Helper()
	if s.Layout == nil {
		s.Layout = formatter.NewJSONFormatter(formatter.Config{})
	}
	require.NotNil(t, s.NewBuilder, "Suite.NewBuilder")
	require.NotNil(t, s.Decode, "Suite.Decode")

	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, s) })
	t.Run("Scenario", func(t *testing.T) { testScenario(t, s) })
	t.Run("HeaderReachesSink", func(t *testing.T) { testHeaderReachesSink(t, s) })
	t.Run("FlushThenClose", func(t *testing.T) { testFlushThenClose(t, s) })
	t.Run("NoFlushAfterClose", func(t *testing.T) { testNoFlushAfterClose(t, s) })
	t.Run("SupportsReopenIsPure", func(t *testing.T) { testSupportsReopenPure(t, s) })
	t.Run("Reopen", func(t *testing.T) { testReopen(t, s) })
	t.Run("IllegalTransitions", func(t *testing.T) { testIllegalTransitions(t, s) })
	t.Run("SinkFailure", func(t *testing.T) { testSinkFailure(t, s) })
}

// writeFile creates a file in buf, writes entries with flushes at the
// given indexes and closes it.
func writeFile(t *testing.T, s Suite, buf *bytes.Buffer, entries []*core.Entry, flushAt map[int]bool) {
	t.Helper()
	sess := lifecycle.NewSession(s.NewBuilder().Build(buf))
	require.NoError(t, sess.Create())
	for i, e := range entries {
		if flushAt[i] {
			require.NoError(t, sess.Flush())
		}
		require.NoError(t, sess.Write(e, s.Layout))
	}
	require.NoError(t, sess.Close())
	require.Equal(t, lifecycle.Closed, sess.State())
}

func decodeAll(t *testing.T, s Suite, data []byte) []Canonical {
	t.Helper()
	got, err := s.Decode(data)
	require.NoError(t, err)
	return Canonicalize(got)
}

func testRoundTrip(t *testing.T, s Suite) {
	for _, n := range []int{0, 1, 2, 7, 64, 65, 500} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			entries := Entries(n, int64(n)+1)
			var buf bytes.Buffer
			writeFile(t, s, &buf, entries, map[int]bool{n / 3: true, n / 2: true})
			assert.Equal(t, Canonicalize(entries), decodeAll(t, s, buf.Bytes()))
		})
	}
}

func testScenario(t *testing.T, s Suite) {
	entries := Scenario()
	var buf bytes.Buffer
	rb := NewRecordingBuilder(s.NewBuilder())

	sess := lifecycle.NewSession(rb.Build(&buf))
	require.NoError(t, sess.Create())
	for _, e := range entries[:3] {
		require.NoError(t, sess.Write(e, s.Layout))
	}
	require.NoError(t, sess.Flush())
	require.NoError(t, sess.Write(entries[3], s.Layout))
	require.NoError(t, sess.Close())

	assert.Equal(t, Canonicalize(entries), decodeAll(t, s, buf.Bytes()))
	assert.Equal(t, []lifecycle.Hook{
		lifecycle.HookAfterCreate,
		lifecycle.HookWrite, lifecycle.HookWrite, lifecycle.HookWrite,
		lifecycle.HookFlush,
		lifecycle.HookWrite,
		lifecycle.HookBeforeClose,
	}, rb.Built()[0].Calls())

	checkFraming(t, s, buf.Bytes())
}

func checkFraming(t *testing.T, s Suite, data []byte) {
	t.Helper()
	if s.Framing == nil {
		return
	}
	headers, trailers, err := s.Framing(data)
	require.NoError(t, err)
	assert.Equal(t, boolCount(s.HasHeader), headers, "headers")
	assert.Equal(t, boolCount(s.HasTrailer), trailers, "trailers")
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

func testHeaderReachesSink(t *testing.T, s Suite) {
	var buf bytes.Buffer
	sess := lifecycle.NewSession(s.NewBuilder().Build(&buf))
	require.NoError(t, sess.Create())
	if s.HasHeader {
		assert.NotZero(t, buf.Len(), "AfterCreate must write the header to the sink before returning")
	}
	if s.Framing != nil && s.HasHeader {
		headers, _, err := s.Framing(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, 1, headers, "header must be complete after AfterCreate")
	}
}

func testFlushThenClose(t *testing.T, s Suite) {
	entries := Entries(20, 99)
	var buf bytes.Buffer
	sess := lifecycle.NewSession(s.NewBuilder().Build(&buf))
	require.NoError(t, sess.Create())
	require.NoError(t, sess.Flush())
	for _, e := range entries {
		require.NoError(t, sess.Write(e, s.Layout))
	}
	require.NoError(t, sess.Flush())
	require.NoError(t, sess.Flush())
	require.NoError(t, sess.Close())

	assert.Equal(t, Canonicalize(entries), decodeAll(t, s, buf.Bytes()))
}

func testNoFlushAfterClose(t *testing.T, s Suite) {
	entries := Entries(33, 7)
	var buf bytes.Buffer
	rb := NewRecordingBuilder(s.NewBuilder())
	sess := lifecycle.NewSession(rb.Build(&buf))
	require.NoError(t, sess.Create())
	for _, e := range entries {
		require.NoError(t, sess.Write(e, s.Layout))
	}
	require.NoError(t, sess.Close())

	// Snapshot immediately: nothing may still be buffered.
	snapshot := append([]byte(nil), buf.Bytes()...)
	assert.Equal(t, Canonicalize(entries), decodeAll(t, s, snapshot))
	checkFraming(t, s, snapshot)
	assert.Zero(t, rb.Built()[0].Count(lifecycle.HookFlush))

	// And no hook may run after BeforeClose.
	err := sess.Flush()
	assert.True(t, errors.Is(err, serializer.ErrIllegalTransition))
	assert.Zero(t, rb.Built()[0].Count(lifecycle.HookFlush))
	assert.Equal(t, snapshot, buf.Bytes())
}

func testSupportsReopenPure(t *testing.T, s Suite) {
	var buf bytes.Buffer
	ser := s.NewBuilder().Build(&buf)
	first := ser.SupportsReopen()
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, ser.SupportsReopen())
	}
	assert.Zero(t, buf.Len(), "SupportsReopen must not write")
}

func testReopen(t *testing.T, s Suite) {
	rb := NewRecordingBuilder(s.NewBuilder())
	d := NewMemDriver(rb, s.Layout)
	first, second := Entries(10, 3), Entries(15, 4)

	require.NoError(t, d.Open("app.log"))
	for _, e := range first {
		require.NoError(t, d.Write(e))
	}
	require.NoError(t, d.Close())

	require.NoError(t, d.Open("app.log"))
	for _, e := range second {
		require.NoError(t, d.Write(e))
	}
	require.NoError(t, d.Close())

	built := rb.Built()
	require.NotEmpty(t, built)

	if !built[0].SupportsReopen() {
		// The driver must never have invoked AfterReopen.
		for _, r := range built {
			assert.Zero(t, r.Count(lifecycle.HookAfterReopen))
		}
		assert.Equal(t, 2, d.Files(), "finalized file must be moved aside")
		assert.Equal(t, Canonicalize(first), decodeAll(t, s, d.File("app.log.1")))
		assert.Equal(t, Canonicalize(second), decodeAll(t, s, d.File("app.log")))

		// A driver that tries anyway is rejected before the hook runs.
		probe := NewRecorder(s.NewBuilder().Build(&bytes.Buffer{}))
		sess := lifecycle.NewSession(probe)
		err := sess.Reopen()
		assert.True(t, errors.Is(err, serializer.ErrReopenUnsupported))
		assert.True(t, errors.Is(err, serializer.ErrIllegalTransition))
		assert.Zero(t, probe.Count(lifecycle.HookAfterReopen))
		assert.Equal(t, lifecycle.Unopened, sess.State())
		return
	}

	assert.Equal(t, 1, d.Files())
	assert.Equal(t, 1, built[1].Count(lifecycle.HookAfterReopen))
	assert.Zero(t, built[1].Count(lifecycle.HookAfterCreate))

	data := d.File("app.log")
	all := append(append([]*core.Entry(nil), first...), second...)
	assert.Equal(t, Canonicalize(all), decodeAll(t, s, data), "reopened file must read as one sequence")
	if s.Framing != nil {
		headers, _, err := s.Framing(data)
		require.NoError(t, err)
		assert.Equal(t, boolCount(s.HasHeader), headers, "reopen must not rewrite the header")
	}
}

func testIllegalTransitions(t *testing.T, s Suite) {
	e := Scenario()[0]

	t.Run("WriteBeforeOpen", func(t *testing.T) {
		r := NewRecorder(s.NewBuilder().Build(&bytes.Buffer{}))
		sess := lifecycle.NewSession(r)
		assert.True(t, errors.Is(sess.Write(e, s.Layout), serializer.ErrIllegalTransition))
		assert.True(t, errors.Is(sess.Flush(), serializer.ErrIllegalTransition))
		assert.True(t, errors.Is(sess.Close(), serializer.ErrIllegalTransition))
		assert.Empty(t, r.Calls())
	})

	t.Run("DoubleOpen", func(t *testing.T) {
		r := NewRecorder(s.NewBuilder().Build(&bytes.Buffer{}))
		sess := lifecycle.NewSession(r)
		require.NoError(t, sess.Create())
		assert.True(t, errors.Is(sess.Create(), serializer.ErrIllegalTransition))
		assert.True(t, errors.Is(sess.Reopen(), serializer.ErrIllegalTransition))
		assert.Equal(t, []lifecycle.Hook{lifecycle.HookAfterCreate}, r.Calls())
	})

	t.Run("AfterClose", func(t *testing.T) {
		r := NewRecorder(s.NewBuilder().Build(&bytes.Buffer{}))
		sess := lifecycle.NewSession(r)
		require.NoError(t, sess.Create())
		require.NoError(t, sess.Write(e, s.Layout))
		require.NoError(t, sess.Close())
		assert.True(t, errors.Is(sess.Write(e, s.Layout), serializer.ErrIllegalTransition))
		assert.True(t, errors.Is(sess.Close(), serializer.ErrIllegalTransition))
		assert.Equal(t, 1, r.Count(lifecycle.HookBeforeClose))
		assert.Equal(t, 1, r.Count(lifecycle.HookWrite))
	})
}

func testSinkFailure(t *testing.T, s Suite) {
	entries := Entries(200, 11)
	r := NewRecorder(s.NewBuilder().Build(&FailingWriter{Budget: 64}))
	sess := lifecycle.NewSession(r)

	var firstErr error
	step := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	step(sess.Create())
	for _, e := range entries {
		if firstErr != nil {
			break
		}
		step(sess.Write(e, s.Layout))
	}
	if firstErr == nil {
		step(sess.Close())
	}

	require.Error(t, firstErr, "a sink that refuses bytes must surface an error")
	assert.True(t, serializer.IsSinkErr(firstErr), "error should be marked as sink i/o: %v", firstErr)
	assert.True(t, errors.Is(firstErr, ErrInjected))
	assert.Equal(t, lifecycle.Failed, sess.State())

	// A failed instance accepts nothing more.
	calls := len(r.Calls())
	assert.True(t, errors.Is(sess.Write(entries[0], s.Layout), serializer.ErrIllegalTransition))
	assert.True(t, errors.Is(sess.Close(), serializer.ErrIllegalTransition))
	assert.Len(t, r.Calls(), calls)
}
