// Package formatter defines layouts: how a single log entry is rendered
// into bytes.
//
// A layout is chosen by the driver and handed to the serializer on every
// write; the serializer decides how the rendered bytes are framed in the
// file. Formatter returns a []byte. BufferFormatter renders into a
// caller-owned bytes.Buffer and is preferred by serializers through
// FormatInto, which saves the copy on the write path.
//
// Both built-in formatters (TextFormatter and JSONFormatter) implement
// both interfaces and always emit exactly one line terminated by '\n'.
// ParseJSON reverses JSONFormatter for readers and tests.
//
// Buffers larger than 64 KiB are not returned to the pool to prevent
// a single large log line from permanently inflating memory usage.
package formatter
