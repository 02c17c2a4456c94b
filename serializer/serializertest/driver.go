package serializertest

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/serializer"
	"github.com/philipp01105/nlogsink/serializer/lifecycle"
)

// MemDriver is a minimal in-memory sink driver for conformance tests. It
// keeps named files as byte buffers and follows the same create, reopen
// and roll rules as the file driver: an existing file is reopened only
// when the format supports it, otherwise it is moved aside and a new
// file is created.
type MemDriver struct {
	Builder serializer.Builder
	Layout  formatter.Formatter

	files   map[string]*bytes.Buffer
	rolled  int
	name    string
	session *lifecycle.Session
}

// NewMemDriver returns a driver with no files.
func NewMemDriver(b serializer.Builder, layout formatter.Formatter) *MemDriver {
	return &MemDriver{Builder: b, Layout: layout, files: make(map[string]*bytes.Buffer)}
}

// Open starts writing to name, creating or reopening it.
func (d *MemDriver) Open(name string) error {
	if d.session != nil {
		return errors.Newf("memdriver: %s still open", d.name)
	}

	buf, exists := d.files[name]
	if exists && buf.Len() > 0 {
		s := lifecycle.NewSession(d.Builder.Build(buf))
		if s.SupportsReopen() {
			d.name, d.session = name, s
			return s.Reopen()
		}
		// Finalized file: discard the probe instance and move the file aside.
		d.rolled++
		d.files[fmt.Sprintf("%s.%d", name, d.rolled)] = buf
	}

	buf = &bytes.Buffer{}
	d.files[name] = buf
	d.name, d.session = name, lifecycle.NewSession(d.Builder.Build(buf))
	return d.session.Create()
}

// Write appends one entry to the open file.
func (d *MemDriver) Write(e *core.Entry) error {
	if d.session == nil {
		return errors.Wrap(serializer.ErrIllegalTransition, "memdriver: no open file")
	}
	return d.session.Write(e, d.Layout)
}

// Flush flushes the open file.
func (d *MemDriver) Flush() error {
	if d.session == nil {
		return errors.Wrap(serializer.ErrIllegalTransition, "memdriver: no open file")
	}
	return d.session.Flush()
}

// Close finishes the open file.
func (d *MemDriver) Close() error {
	if d.session == nil {
		return nil
	}
	err := d.session.Close()
	d.session = nil
	return err
}

// File returns the bytes of name.
func (d *MemDriver) File(name string) []byte {
	if b, ok := d.files[name]; ok {
		return b.Bytes()
	}
	return nil
}

// Files returns the number of files, rolled ones included.
func (d *MemDriver) Files() int {
	return len(d.files)
}
