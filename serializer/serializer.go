package serializer

import (
	"io"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
)

// Serializer owns the on-disk encoding of log entries for exactly one
// byte sink. The driver that owns the sink invokes the hooks below in a
// fixed order; the hooks are the serializer's only signal of where the
// file is in its lifecycle:
//
//	(AfterCreate | AfterReopen) Write* [Flush between writes]* BeforeClose
//
// Implementations are not safe for concurrent use. Every method may
// return an error; the driver treats any error as fatal for the current
// file and discards the instance.
type Serializer interface {
	// AfterCreate writes the format header, if any, after the file has
	// been created for the first time. It must not return until the
	// header has been handed to the sink.
	AfterCreate() error

	// AfterReopen writes whatever framing is needed to resume appending
	// to an existing file. It never rewrites the header. Drivers only
	// call it when SupportsReopen reports true.
	AfterReopen() error

	// Write renders entry with layout and appends the result. Entries
	// must reach the file in submission order, none dropped. The bytes
	// may stay in a private buffer until Flush or BeforeClose.
	Write(entry *core.Entry, layout formatter.Formatter) error

	// Flush pushes every privately buffered byte to the sink. It does not
	// make the sink durable; syncing is up to the driver.
	Flush() error

	// BeforeClose writes the trailer, if any, and leaves nothing
	// buffered: the driver may close the sink right after it returns
	// without calling Flush.
	BeforeClose() error

	// SupportsReopen reports whether a file finished by BeforeClose can
	// later be appended to through AfterReopen. It is false for formats
	// whose trailer finalizes the file.
	SupportsReopen() bool
}

// Builder binds a byte sink to a fresh, unopened Serializer. The builder
// only borrows w: the caller keeps ownership and is the one that closes
// it. Built-in builders are structs whose zero value is ready to use so
// that a Registry can create them from a format name alone.
type Builder interface {
	Build(w io.Writer) Serializer
}

// BuilderFunc adapts an ordinary function to the Builder interface.
type BuilderFunc func(w io.Writer) Serializer

// Build calls f(w).
func (f BuilderFunc) Build(w io.Writer) Serializer {
	return f(w)
}
