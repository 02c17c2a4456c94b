// Package container implements the "container" format, a binary framed
// format whose footer indexes every block of records:
//
//	"NLGC" version uvarint(len) CBOR(header)
//	block*: uvarint(count) (uvarint(len) CBOR(record))*count
//	CBOR(footer) uint64be(len(footer)) "NLGC"
//
// Block offsets are counted from the start of the file. Once the footer
// is written the file is final, so the format does not support reopen.
package container

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/serializer"
)

const (
	// FormatName is the registry name of this format.
	FormatName = "container"
	// Version is the format version byte following the magic.
	Version byte = 1
	// DefaultBlockRecords is used when Builder.BlockRecords is zero.
	DefaultBlockRecords = 64
)

// Magic opens and closes every container file.
var Magic = [4]byte{'N', 'L', 'G', 'C'}

// trailerSize is the fixed-size tail: footer length plus magic.
const trailerSize = 8 + len(Magic)

// Builder builds container serializers. The zero value is ready to use.
//
// Records are held until a block of BlockRecords is complete, then the
// block is written to the sink in one call. Flush writes a partial block;
// BeforeClose writes any partial block and the footer.
type Builder struct {
	BlockRecords int
	// Now stamps the header. Defaults to time.Now.
	Now func() time.Time
	// NewID returns the file id stored in the header. Defaults to uuid.New.
	NewID func() uuid.UUID
}

// Build implements serializer.Builder.
func (b Builder) Build(w io.Writer) serializer.Serializer {
	s := &Serializer{
		cw:     &countingWriter{w: w},
		limit:  b.BlockRecords,
		now:    b.Now,
		newID:  b.NewID,
		blocks: []int64{},
	}
	if s.limit <= 0 {
		s.limit = DefaultBlockRecords
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.New
	}
	return s
}

// countingWriter tracks the offset of the next byte written to the sink.
type countingWriter struct {
	w       io.Writer
	written int64
}

func (c *countingWriter) Write(p []byte) (n int, err error) {
	n, err = c.w.Write(p)
	c.written += int64(n)
	return
}

// Serializer is the container format serializer.
type Serializer struct {
	cw    *countingWriter
	limit int
	now   func() time.Time
	newID func() uuid.UUID

	pending  [][]byte
	blocks   []int64
	events   uint64
	scratch  bytes.Buffer
	rendered bytes.Buffer
}

// AfterCreate writes the magic, the version byte and the header.
func (s *Serializer) AfterCreate() error {
	h := fileHeader{FileID: s.newID(), Created: newStamp(s.now()), Format: FormatName}
	body, err := cbor.Marshal(&h)
	if err != nil {
		return err
	}
	s.scratch.Reset()
	s.scratch.Write(Magic[:])
	s.scratch.WriteByte(Version)
	appendUvarint(&s.scratch, uint64(len(body)))
	s.scratch.Write(body)
	_, err = s.cw.Write(s.scratch.Bytes())
	return serializer.WrapSinkErr(err, "container: write header")
}

// AfterReopen is never legal for this format; the session rejects it
// before it gets here.
func (s *Serializer) AfterReopen() error {
	return serializer.ErrReopenUnsupported
}

// Write encodes entry and adds it to the current block.
func (s *Serializer) Write(entry *core.Entry, layout formatter.Formatter) error {
	s.rendered.Reset()
	if err := formatter.FormatInto(layout, entry, &s.rendered); err != nil {
		return err
	}
	rec := newRecord(entry, bytes.TrimRight(s.rendered.Bytes(), "\r\n"))
	data, err := cbor.Marshal(&rec)
	if err != nil {
		return err
	}
	s.pending = append(s.pending, data)
	s.events++
	if len(s.pending) >= s.limit {
		return s.writeBlock()
	}
	return nil
}

// Flush writes the current partial block, if any.
func (s *Serializer) Flush() error {
	return s.writeBlock()
}

// BeforeClose writes the last block and the footer.
func (s *Serializer) BeforeClose() error {
	if err := s.writeBlock(); err != nil {
		return err
	}
	body, err := cbor.Marshal(&footer{Events: s.events, Blocks: s.blocks})
	if err != nil {
		return err
	}
	s.scratch.Reset()
	s.scratch.Write(body)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(body)))
	s.scratch.Write(n[:])
	s.scratch.Write(Magic[:])
	_, err = s.cw.Write(s.scratch.Bytes())
	return serializer.WrapSinkErr(err, "container: write footer")
}

// SupportsReopen returns false.
func (s *Serializer) SupportsReopen() bool { return false }

func (s *Serializer) writeBlock() error {
	if len(s.pending) == 0 {
		return nil
	}
	s.scratch.Reset()
	appendUvarint(&s.scratch, uint64(len(s.pending)))
	for _, rec := range s.pending {
		appendUvarint(&s.scratch, uint64(len(rec)))
		s.scratch.Write(rec)
	}
	offset := s.cw.written
	s.pending = s.pending[:0]
	if _, err := s.cw.Write(s.scratch.Bytes()); err != nil {
		return serializer.WrapSinkErr(err, "container: write block")
	}
	s.blocks = append(s.blocks, offset)
	return nil
}

func appendUvarint(buf *bytes.Buffer, v uint64) {
	buf.Write(binary.AppendUvarint(buf.AvailableBuffer(), v))
}

type fileHeader struct {
	FileID  uuid.UUID `cbor:"file_id"`
	Created stamp     `cbor:"created"`
	Format  string    `cbor:"format"`
}

type footer struct {
	Events uint64  `cbor:"events"`
	Blocks []int64 `cbor:"blocks"`
}

// stamp is a time as seconds and nanoseconds since the Unix epoch. It
// covers every time.Time value that UnixNano cannot represent.
type stamp struct {
	_    struct{} `cbor:",toarray"`
	Sec  int64
	Nsec int64
}

func newStamp(t time.Time) stamp {
	return stamp{Sec: t.Unix(), Nsec: int64(t.Nanosecond())}
}

func (s stamp) asTime() time.Time {
	return time.Unix(s.Sec, s.Nsec).UTC()
}

type record struct {
	Time      stamp      `cbor:"time"`
	Level     int8       `cbor:"level"`
	Logger    string     `cbor:"logger,omitempty"`
	Message   string     `cbor:"message"`
	Fields    []field    `cbor:"fields,omitempty"`
	Throwable *throwable `cbor:"throwable,omitempty"`
	Rendered  []byte     `cbor:"rendered,omitempty"`
}

type field struct {
	Key   string  `cbor:"k"`
	Type  uint8   `cbor:"t"`
	Str   string  `cbor:"s,omitempty"`
	Int   int64   `cbor:"i,omitempty"`
	Float float64 `cbor:"f,omitempty"`
}

type throwable struct {
	Type    string   `cbor:"type"`
	Message string   `cbor:"message"`
	Stack   []string `cbor:"stack,omitempty"`
}

func newRecord(e *core.Entry, rendered []byte) record {
	rec := record{
		Time:     newStamp(e.Time),
		Level:    int8(e.Level),
		Logger:   e.LoggerName,
		Message:  e.Message,
		Rendered: rendered,
	}
	if len(e.Fields) > 0 {
		rec.Fields = make([]field, len(e.Fields))
		for i, f := range e.Fields {
			f = f.Persistable()
			rec.Fields[i] = field{Key: f.Key, Type: uint8(f.Type), Str: f.Str, Int: f.Int64, Float: f.Float64}
		}
	}
	if t := e.Throwable; t != nil {
		rec.Throwable = &throwable{Type: t.Type, Message: t.Message, Stack: t.Stack}
	}
	return rec
}
