package serializertest

import (
	"io"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/serializer"
	"github.com/philipp01105/nlogsink/serializer/lifecycle"
)

// Recorder wraps a Serializer and records every hook that reaches it.
type Recorder struct {
	serializer.Serializer

	mu    sync.Mutex
	calls []lifecycle.Hook
}

// NewRecorder wraps s.
func NewRecorder(s serializer.Serializer) *Recorder {
	return &Recorder{Serializer: s}
}

// RecordingBuilder wraps every serializer produced by b in a Recorder and
// keeps them in build order.
type RecordingBuilder struct {
	b serializer.Builder

	mu    sync.Mutex
	built []*Recorder
}

// NewRecordingBuilder wraps b.
func NewRecordingBuilder(b serializer.Builder) *RecordingBuilder {
	return &RecordingBuilder{b: b}
}

// Build implements serializer.Builder.
func (rb *RecordingBuilder) Build(w io.Writer) serializer.Serializer {
	r := NewRecorder(rb.b.Build(w))
	rb.mu.Lock()
	rb.built = append(rb.built, r)
	rb.mu.Unlock()
	return r
}

// Built returns the recorders built so far.
func (rb *RecordingBuilder) Built() []*Recorder {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return append([]*Recorder(nil), rb.built...)
}

// Calls returns the hooks seen so far, in order.
func (r *Recorder) Calls() []lifecycle.Hook {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]lifecycle.Hook(nil), r.calls...)
}

// Count returns how many times h was invoked.
func (r *Recorder) Count(h lifecycle.Hook) int {
	n := 0
	for _, c := range r.Calls() {
		if c == h {
			n++
		}
	}
	return n
}

func (r *Recorder) record(h lifecycle.Hook) {
	r.mu.Lock()
	r.calls = append(r.calls, h)
	r.mu.Unlock()
}

func (r *Recorder) AfterCreate() error {
	r.record(lifecycle.HookAfterCreate)
	return r.Serializer.AfterCreate()
}

func (r *Recorder) AfterReopen() error {
	r.record(lifecycle.HookAfterReopen)
	return r.Serializer.AfterReopen()
}

func (r *Recorder) Write(entry *core.Entry, layout formatter.Formatter) error {
	r.record(lifecycle.HookWrite)
	return r.Serializer.Write(entry, layout)
}

func (r *Recorder) Flush() error {
	r.record(lifecycle.HookFlush)
	return r.Serializer.Flush()
}

func (r *Recorder) BeforeClose() error {
	r.record(lifecycle.HookBeforeClose)
	return r.Serializer.BeforeClose()
}

// ErrInjected is returned by FailingWriter.
var ErrInjected = errors.New("serializertest: injected write failure")

// FailingWriter accepts Budget bytes and then fails every write.
type FailingWriter struct {
	Budget  int
	written int
}

func (w *FailingWriter) Write(p []byte) (int, error) {
	room := w.Budget - w.written
	if room <= 0 {
		return 0, ErrInjected
	}
	if len(p) > room {
		w.written += room
		return room, ErrInjected
	}
	w.written += len(p)
	return len(p), nil
}
