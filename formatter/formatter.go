package formatter

import (
	"bytes"
	"sync"

	"github.com/philipp01105/nlogsink/core"
)

// Formatter is a layout: a pure mapping from an entry to its textual or
// binary representation. Serializers receive it on every write and must
// not keep it between calls.
type Formatter interface {
	// Format renders a log entry into bytes
	Format(entry *core.Entry) ([]byte, error)
}

// BufferFormatter is an optional interface that formatters can implement
// to render directly into a caller-provided buffer, avoiding the copy
// Format has to make.
type BufferFormatter interface {
	// FormatEntry renders a log entry into the given buffer.
	FormatEntry(entry *core.Entry, buf *bytes.Buffer)
}

// Config holds common formatter configuration
type Config struct {
	// IncludeCaller enables caller information in log output
	IncludeCaller bool
	// TimestampFormat specifies the time format (empty for the formatter default)
	TimestampFormat string
}

// FormatInto renders entry with f into buf, using the BufferFormatter
// fast path when f provides it.
func FormatInto(f Formatter, entry *core.Entry, buf *bytes.Buffer) error {
	if bf, ok := f.(BufferFormatter); ok {
		bf.FormatEntry(entry, buf)
		return nil
	}
	data, err := f.Format(entry)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

var bufferPool = &sync.Pool{
	New: func() interface{} {
		b := new(bytes.Buffer)
		b.Grow(256)
		return b
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 64*1024 { // Don't keep very large buffers
		return
	}
	bufferPool.Put(buf)
}

// render is the shared Format implementation for BufferFormatters.
func render(f BufferFormatter, entry *core.Entry) []byte {
	buf := getBuffer()
	f.FormatEntry(entry, buf)
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	putBuffer(buf)
	return result
}
