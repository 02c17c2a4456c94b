package container

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/philipp01105/nlogsink/core"
)

// ErrCorrupt is returned by Decode for input that is not a complete
// container file. A file whose writer never ran BeforeClose has no footer
// and is reported as corrupt.
var ErrCorrupt = errors.New("container: corrupt file")

// maxFrame bounds any single length prefix.
const maxFrame = 64 << 20

// File is a decoded container file.
type File struct {
	ID      uuid.UUID
	Created time.Time
	Format  string
	Version byte
	// Blocks holds the byte offset of every block.
	Blocks []int64
	Events []Event
}

// Event is one decoded record.
type Event struct {
	Entry    *core.Entry
	Rendered string
}

// Entries returns the decoded entries in file order.
func (f *File) Entries() []*core.Entry {
	if f == nil {
		return nil
	}
	out := make([]*core.Entry, len(f.Events))
	for i, ev := range f.Events {
		out[i] = ev.Entry
	}
	return out
}

// Decode reads and validates a complete container file of the given size.
// The header, the footer and every block offset are checked; the number
// of records must match the footer's event count.
func Decode(r io.ReaderAt, size int64) (*File, error) {
	prefix := int64(len(Magic) + 1)
	if size < prefix+int64(trailerSize) {
		return nil, errors.Wrapf(ErrCorrupt, "file too short (%d bytes)", size)
	}

	var head [len(Magic) + 1]byte
	if _, err := r.ReadAt(head[:], 0); err != nil {
		return nil, err
	}
	if !bytes.Equal(head[:len(Magic)], Magic[:]) {
		return nil, errors.Wrap(ErrCorrupt, "bad magic")
	}
	file := &File{Version: head[len(Magic)]}
	if file.Version != Version {
		return nil, errors.Wrapf(ErrCorrupt, "unsupported version %d", file.Version)
	}

	var tail [trailerSize]byte
	if _, err := r.ReadAt(tail[:], size-int64(trailerSize)); err != nil {
		return nil, err
	}
	if !bytes.Equal(tail[8:], Magic[:]) {
		return nil, errors.Wrap(ErrCorrupt, "missing footer")
	}
	footerLen := binary.BigEndian.Uint64(tail[:8])
	footerStart := size - int64(trailerSize) - int64(footerLen)
	if footerLen > maxFrame || footerStart < prefix {
		return nil, errors.Wrapf(ErrCorrupt, "bad footer length %d", footerLen)
	}

	// Header.
	hr := bufio.NewReader(io.NewSectionReader(r, prefix, footerStart-prefix))
	var h fileHeader
	headerLen, err := readFrame(hr, &h)
	if err != nil {
		return nil, errors.Wrap(err, "header")
	}
	file.ID = h.FileID
	file.Created = h.Created.asTime()
	file.Format = h.Format
	dataStart := prefix + headerLen

	// Footer.
	body := make([]byte, footerLen)
	if _, err := r.ReadAt(body, footerStart); err != nil {
		return nil, err
	}
	var ft footer
	if err := cbor.Unmarshal(body, &ft); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "footer: %v", err)
	}
	file.Blocks = ft.Blocks

	// Blocks must tile the region between header and footer.
	next := dataStart
	for i, off := range ft.Blocks {
		if off != next {
			return nil, errors.Wrapf(ErrCorrupt, "block %d at offset %d, expected %d", i, off, next)
		}
		br := &countingReader{r: bufio.NewReader(io.NewSectionReader(r, off, footerStart-off))}
		count, err := binary.ReadUvarint(br)
		if err != nil || count == 0 || count > maxFrame {
			return nil, errors.Wrapf(ErrCorrupt, "block %d: bad record count", i)
		}
		for j := uint64(0); j < count; j++ {
			var rec record
			if _, err := readFrame(br, &rec); err != nil {
				return nil, errors.Wrapf(err, "block %d record %d", i, j)
			}
			ev, err := rec.event()
			if err != nil {
				return nil, errors.Wrapf(err, "block %d record %d", i, j)
			}
			file.Events = append(file.Events, ev)
		}
		next = off + br.n
	}
	if next != footerStart {
		return nil, errors.Wrapf(ErrCorrupt, "%d unindexed bytes before footer", footerStart-next)
	}
	if uint64(len(file.Events)) != ft.Events {
		return nil, errors.Wrapf(ErrCorrupt, "footer counts %d events, blocks hold %d", ft.Events, len(file.Events))
	}
	return file, nil
}

// Framing reports how many headers and footers data carries: one of each
// for a complete file, a header without footer for one whose writer never
// closed it. A footer counts only when its length fits the data and its
// body decodes.
func Framing(data []byte) (headers, trailers int) {
	prefix := len(Magic) + 1
	if len(data) > len(Magic) && bytes.Equal(data[:len(Magic)], Magic[:]) {
		headers = 1
	}
	if len(data) < prefix+trailerSize || !bytes.HasSuffix(data, Magic[:]) {
		return headers, 0
	}
	end := len(data) - trailerSize
	n := binary.BigEndian.Uint64(data[end : end+8])
	if n == 0 || n > maxFrame || n > uint64(end-prefix) {
		return headers, 0
	}
	var ft footer
	if err := cbor.Unmarshal(data[end-int(n):end], &ft); err != nil {
		return headers, 0
	}
	if uint64(len(ft.Blocks)) > ft.Events || (len(ft.Blocks) > 0 && ft.Blocks[len(ft.Blocks)-1] >= int64(end-int(n))) {
		return headers, 0
	}
	return headers, 1
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

// readFrame reads uvarint(len) followed by a CBOR value into v and
// returns the number of bytes consumed.
func readFrame(r byteReader, v interface{}) (int64, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, errors.Wrapf(ErrCorrupt, "frame length: %v", err)
	}
	if n > maxFrame {
		return 0, errors.Wrapf(ErrCorrupt, "frame length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, errors.Wrapf(ErrCorrupt, "frame body: %v", err)
	}
	if err := cbor.Unmarshal(buf, v); err != nil {
		return 0, errors.Wrapf(ErrCorrupt, "frame body: %v", err)
	}
	return int64(uvarintLen(n)) + int64(n), nil
}

func uvarintLen(v uint64) int {
	var b [binary.MaxVarintLen64]byte
	return binary.PutUvarint(b[:], v)
}

// countingReader tracks how many bytes of a block were consumed.
type countingReader struct {
	r *bufio.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

func (rec *record) event() (Event, error) {
	level := core.Level(rec.Level)
	if level < core.DebugLevel || level > core.PanicLevel {
		return Event{}, errors.Wrapf(ErrCorrupt, "unknown level %d", rec.Level)
	}
	if rec.Time.Nsec < 0 || rec.Time.Nsec >= int64(time.Second) {
		return Event{}, errors.Wrapf(ErrCorrupt, "bad nanoseconds %d", rec.Time.Nsec)
	}
	entry := &core.Entry{
		Time:       rec.Time.asTime(),
		Level:      level,
		LoggerName: rec.Logger,
		Message:    rec.Message,
	}
	if len(rec.Fields) > 0 {
		entry.Fields = make([]core.Field, len(rec.Fields))
		for i, f := range rec.Fields {
			if core.FieldType(f.Type) > core.AnyType {
				return Event{}, errors.Wrapf(ErrCorrupt, "field %q: unknown type %d", f.Key, f.Type)
			}
			entry.Fields[i] = core.Field{Key: f.Key, Type: core.FieldType(f.Type), Str: f.Str, Int64: f.Int, Float64: f.Float}.Persistable()
		}
	}
	if t := rec.Throwable; t != nil {
		entry.Throwable = &core.ThrowableInfo{Type: t.Type, Message: t.Message, Stack: t.Stack}
	}
	return Event{Entry: entry, Rendered: string(rec.Rendered)}, nil
}
