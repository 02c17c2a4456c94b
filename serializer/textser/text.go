// Package textser implements the "text" format: one layout-rendered entry
// per line, no header, no trailer. Files can be reopened and appended to.
package textser

import (
	"bufio"
	"bytes"
	"io"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/serializer"
)

// FormatName is the registry name of this format.
const FormatName = "text"

// DefaultBufferSize is used when Builder.BufferSize is zero.
const DefaultBufferSize = 4096

// Builder builds text serializers. The zero value is ready to use.
//
// Lines are collected in a private buffer of BufferSize bytes. When a
// line does not fit, the buffer is written to the sink during Write;
// otherwise bytes reach the sink on Flush or BeforeClose.
type Builder struct {
	BufferSize int
}

// Build implements serializer.Builder.
func (b Builder) Build(w io.Writer) serializer.Serializer {
	size := b.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	s := &Serializer{bw: bufio.NewWriterSize(w, size)}
	s.line.Grow(256)
	return s
}

// Serializer is the text format serializer.
type Serializer struct {
	bw   *bufio.Writer
	line bytes.Buffer
}

// AfterCreate writes nothing; the format has no header.
func (s *Serializer) AfterCreate() error { return nil }

// AfterReopen writes nothing; appended lines simply follow earlier ones.
func (s *Serializer) AfterReopen() error { return nil }

// Write renders entry and appends it as one line.
func (s *Serializer) Write(entry *core.Entry, layout formatter.Formatter) error {
	s.line.Reset()
	if err := formatter.FormatInto(layout, entry, &s.line); err != nil {
		return err
	}
	if b := s.line.Bytes(); len(b) == 0 || b[len(b)-1] != '\n' {
		s.line.WriteByte('\n')
	}
	_, err := s.bw.Write(s.line.Bytes())
	return serializer.WrapSinkErr(err, "text: write line")
}

// Flush writes buffered lines to the sink.
func (s *Serializer) Flush() error {
	return serializer.WrapSinkErr(s.bw.Flush(), "text: flush")
}

// BeforeClose writes buffered lines to the sink.
func (s *Serializer) BeforeClose() error {
	return serializer.WrapSinkErr(s.bw.Flush(), "text: close")
}

// SupportsReopen returns true.
func (s *Serializer) SupportsReopen() bool { return true }

// ReadLines splits a text file back into its lines, without the
// terminating newlines. A final line without '\n' is still returned.
func ReadLines(r io.Reader) ([][]byte, error) {
	var lines [][]byte
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			lines = append(lines, bytes.TrimSuffix(line, []byte{'\n'}))
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
}
