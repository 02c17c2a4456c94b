package consolehandler

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/handler"
	"github.com/philipp01105/nlogsink/serializer"
	"github.com/philipp01105/nlogsink/serializer/formats"
	"github.com/philipp01105/nlogsink/serializer/lifecycle"
)

// ConsoleConfig holds configuration for console handler
type ConsoleConfig struct {
	// Writer to write to (default: os.Stdout). Close leaves it open.
	Writer io.Writer
	// Format is the serializer format name (default: "text")
	Format string
	// Registry resolves Format (default: formats.Default())
	Registry *serializer.Registry
	// Layout renders entries for the serializer (default: TextFormatter)
	Layout formatter.Formatter
	// Async enables asynchronous logging
	Async bool
	// BufferSize is the size of the async queue (default: 1000)
	BufferSize int
	// OverflowPolicy defines per-level overflow behavior (default: uses DefaultLevelPolicy)
	OverflowPolicy map[core.Level]handler.OverflowPolicy
	// BlockTimeout is the timeout for blocking overflow policy (default: 100ms)
	BlockTimeout time.Duration
	// DrainTimeout is the timeout for draining queue on Close (default: 5s)
	DrainTimeout time.Duration
}

// applyConsoleDefaults fills in zero-value fields with defaults.
func applyConsoleDefaults(cfg *ConsoleConfig) {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Registry == nil {
		cfg.Registry = formats.Default()
	}
	if cfg.Layout == nil {
		cfg.Layout = formatter.NewTextFormatter(formatter.Config{})
	}
}

// consoleBase owns the single serializer session on the writer. The
// session is created on the first write and never reopened.
type consoleBase struct {
	mu      sync.Mutex
	writer  io.Writer
	builder serializer.Builder
	layout  formatter.Formatter
	session *lifecycle.Session
	closed  bool
	stats   *handler.Stats
}

func (b *consoleBase) init(cfg ConsoleConfig, builder serializer.Builder) {
	b.writer = cfg.Writer
	b.builder = builder
	b.layout = cfg.Layout
	b.stats = handler.NewStats()
}

// WriteEntry writes entry through the session, creating it first if needed.
func (b *consoleBase) WriteEntry(entry *core.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return handler.ErrClosed
	}
	if b.session == nil {
		b.session = lifecycle.NewSession(b.builder.Build(b.writer))
		if err := b.session.Create(); err != nil {
			b.stats.IncrementFailed()
			return err
		}
	}
	if b.session.State() == lifecycle.Failed {
		b.stats.IncrementFailed()
		return errors.Wrap(b.session.Err(), "console: serializer failed")
	}
	if err := b.session.Write(entry, b.layout); err != nil {
		b.stats.IncrementFailed()
		return err
	}
	b.stats.IncrementProcessed()
	return nil
}

// FlushEntries flushes the session if one is open.
func (b *consoleBase) FlushEntries() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil || b.session.State().Terminal() {
		return nil
	}
	return b.session.Flush()
}

// closeSession finalizes the stream. The writer itself stays open.
func (b *consoleBase) closeSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.session == nil || b.session.State().Terminal() {
		return nil
	}
	return b.session.Close()
}

// Stats returns a snapshot of the current statistics
func (b *consoleBase) Stats() handler.Snapshot {
	return b.stats.GetSnapshot()
}

// NewConsoleHandler creates a new console handler.
// Returns a SyncConsoleHandler when Async is false, or an AsyncConsoleHandler
// when Async is true. Both implement Handler, Flusher, and StatsProvider.
func NewConsoleHandler(cfg ConsoleConfig) (handler.Handler, error) {
	applyConsoleDefaults(&cfg)
	builder, err := cfg.Registry.Builder(cfg.Format)
	if err != nil {
		return nil, err
	}
	if cfg.Async {
		return newAsyncConsoleHandler(cfg, builder), nil
	}
	return newSyncConsoleHandler(cfg, builder), nil
}

// SyncConsoleHandler writes every entry before Handle returns.
type SyncConsoleHandler struct {
	consoleBase
}

func newSyncConsoleHandler(cfg ConsoleConfig, builder serializer.Builder) *SyncConsoleHandler {
	h := &SyncConsoleHandler{}
	h.init(cfg, builder)
	return h
}

// Handle processes a log entry synchronously.
func (h *SyncConsoleHandler) Handle(entry *core.Entry) error {
	return h.WriteEntry(entry)
}

// Flush pushes buffered output to the writer.
func (h *SyncConsoleHandler) Flush() error {
	return h.FlushEntries()
}

// Close finalizes the stream; the writer is left open. Close is idempotent.
func (h *SyncConsoleHandler) Close() error {
	return h.closeSession()
}

// AsyncConsoleHandler queues entries for a background writer goroutine.
type AsyncConsoleHandler struct {
	consoleBase
	queue *handler.Queue
}

func newAsyncConsoleHandler(cfg ConsoleConfig, builder serializer.Builder) *AsyncConsoleHandler {
	h := &AsyncConsoleHandler{}
	h.init(cfg, builder)
	h.queue = handler.NewQueue(h, h.stats, handler.QueueConfig{
		Size:           cfg.BufferSize,
		OverflowPolicy: cfg.OverflowPolicy,
		BlockTimeout:   cfg.BlockTimeout,
		DrainTimeout:   cfg.DrainTimeout,
	})
	return h
}

// Handle sends a log entry to the async queue with overflow policy handling.
func (h *AsyncConsoleHandler) Handle(entry *core.Entry) error {
	return h.queue.Enqueue(entry)
}

// Flush pushes what the writer goroutine has written so far to the writer.
// Entries still queued are not waited for.
func (h *AsyncConsoleHandler) Flush() error {
	return h.FlushEntries()
}

// Close drains the queue with a timeout and finalizes the stream.
func (h *AsyncConsoleHandler) Close() error {
	h.queue.Close()
	return h.closeSession()
}
