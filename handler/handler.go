package handler

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"

	"github.com/philipp01105/nlogsink/core"
)

// ErrClosed is returned by handlers used after Close.
var ErrClosed = errors.New("handler: closed")

// Handler defines the interface for log handlers
type Handler interface {
	// Handle processes a log entry. Implementations must not retain entry
	// after Handle returns; handlers that queue entries copy them.
	Handle(entry *core.Entry) error

	// Close closes the handler and releases resources
	Close() error
}

// Flusher is implemented by handlers that buffer output. Flush pushes
// everything accepted so far to the underlying sink.
type Flusher interface {
	Flush() error
}

// StatsProvider is implemented by handlers that track Stats.
type StatsProvider interface {
	Stats() Snapshot
}

// Flush flushes h if it implements Flusher.
func Flush(h Handler) error {
	if f, ok := h.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// FlushAll flushes every handler that implements Flusher and combines
// the errors.
func FlushAll(handlers ...Handler) error {
	var err error
	for _, h := range handlers {
		err = multierr.Append(err, Flush(h))
	}
	return err
}
