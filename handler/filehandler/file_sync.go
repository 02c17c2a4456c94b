package filehandler

import (
	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/serializer"
)

// SyncFileHandler writes each entry to the serializer before Handle
// returns. Bytes reach the file when the serializer spills its buffer, on
// Flush, every FlushEvery entries, and on Close.
type SyncFileHandler struct {
	fileBase
}

// newSyncFileHandler creates a new synchronous file handler.
func newSyncFileHandler(cfg FileConfig, builder serializer.Builder) *SyncFileHandler {
	h := &SyncFileHandler{}
	initFileBase(&h.fileBase, cfg, builder)
	return h
}

// Handle processes a log entry synchronously.
func (h *SyncFileHandler) Handle(entry *core.Entry) error {
	return h.WriteEntry(entry)
}

// Flush flushes the serializer and syncs the file.
func (h *SyncFileHandler) Flush() error {
	return h.FlushEntries()
}

// Close runs BeforeClose, then syncs and closes the file. Close is
// idempotent.
func (h *SyncFileHandler) Close() error {
	return h.shutdown()
}
