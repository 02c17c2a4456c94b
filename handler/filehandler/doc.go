// Package filehandler writes log entries to a file through a serializer
// chosen by format name.
//
// The handler owns the file and the serializer owns the bytes inside it.
// When the handler binds a file it either creates it (AfterCreate) or,
// for a non-empty file whose format supports it, reopens it for append
// (AfterReopen). A non-empty file in a format that cannot be reopened is
// renamed with a timestamp suffix and a fresh file is created instead.
//
// Files roll by size or interval: the current file is closed through
// BeforeClose, renamed, old backups beyond MaxBackups are removed, and a
// new file is created. Flush and Close sync the file after the serializer
// has written its bytes.
//
// A failing hook or sync discards the serializer and closes the handle.
// The next entry opens the file again, retrying with exponential backoff.
// Failures are logged through zap and counted in Metrics.
package filehandler
