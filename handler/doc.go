// Package handler provides the Handler interface and the pieces shared by
// the built-in handlers.
//
// A Handler receives finished log entries. The stream handlers in the
// subpackages own an output (a console writer, a file) and delegate the
// encoding of entries to a serializer chosen by format name:
//
//   - consolehandler writes to any io.Writer (default: stdout).
//   - filehandler writes to a file, reopening or creating it according to
//     what the format supports, and rolls it by size or interval.
//
// MultiHandler fans out a single entry to multiple child handlers.
// SlogHandler adapts a Handler to log/slog.Handler.
//
// Async handlers queue entries in a bounded channel drained by one
// writer goroutine. When the queue is full, a per-level OverflowPolicy
// decides: DropNewest (default for Debug/Info/Warn), DropOldest, or Block
// with a timeout (default for Error and above).
//
// Handlers track dropped, blocked, processed and failed counts in Stats.
package handler
