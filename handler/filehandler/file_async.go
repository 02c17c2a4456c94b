package filehandler

import (
	"go.uber.org/zap"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/handler"
	"github.com/philipp01105/nlogsink/serializer"
)

// AsyncFileHandler queues entries for a single background writer. The
// writer flushes and syncs the file after every drained batch.
type AsyncFileHandler struct {
	fileBase
	queue *handler.Queue
}

// newAsyncFileHandler creates a new asynchronous file handler.
func newAsyncFileHandler(cfg FileConfig, builder serializer.Builder) *AsyncFileHandler {
	h := &AsyncFileHandler{}
	initFileBase(&h.fileBase, cfg, builder)
	h.queue = handler.NewQueue(h, h.stats, handler.QueueConfig{
		Size:           cfg.BufferSize,
		OverflowPolicy: cfg.OverflowPolicy,
		BlockTimeout:   cfg.BlockTimeout,
		DrainTimeout:   cfg.DrainTimeout,
		OnError: func(err error) {
			h.log.Warn("async write failed", zap.Error(err))
		},
	})
	return h
}

// Handle sends a log entry to the async queue with overflow policy handling.
func (h *AsyncFileHandler) Handle(entry *core.Entry) error {
	return h.queue.Enqueue(entry)
}

// Flush flushes what the writer goroutine has written so far and syncs
// the file. Entries still queued are not waited for.
func (h *AsyncFileHandler) Flush() error {
	return h.FlushEntries()
}

// Close drains the queue with a timeout, then closes the file.
func (h *AsyncFileHandler) Close() error {
	h.queue.Close()
	return h.shutdown()
}
