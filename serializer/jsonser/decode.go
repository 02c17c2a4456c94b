package jsonser

import (
	"bufio"
	"bytes"
	"io"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/philipp01105/nlogsink/core"
)

// ErrCorrupt is returned by Decode for input that is not a well-formed
// json_lines file.
var ErrCorrupt = errors.New("json_lines: corrupt file")

// File is a decoded json_lines file.
type File struct {
	Header Header
	// Reopens holds the timestamp of every reopen marker, in file order.
	Reopens []time.Time
	Events  []Event
}

// Event is one decoded event line.
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

// Decode reads a complete json_lines file. The first line must be the
// only header; blank lines are ignored.
func Decode(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)
	var (
		file   File
		header bool
		lineNo int
	)
	for {
		line, readErr := br.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, readErr
		}
		lineNo++
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			kind := json.Get(line, "kind").ToString()
			switch {
			case kind == kindHeader:
				if header {
					return nil, errors.Wrapf(ErrCorrupt, "line %d: second header", lineNo)
				}
				if err := json.Unmarshal(line, &file.Header); err != nil {
					return nil, errors.Wrapf(ErrCorrupt, "line %d: %v", lineNo, err)
				}
				if file.Header.Format != FormatName {
					return nil, errors.Wrapf(ErrCorrupt, "line %d: format %q", lineNo, file.Header.Format)
				}
				header = true
			case !header:
				return nil, errors.Wrapf(ErrCorrupt, "line %d: missing header", lineNo)
			case kind == kindReopen:
				var m marker
				if err := json.Unmarshal(line, &m); err != nil {
					return nil, errors.Wrapf(ErrCorrupt, "line %d: %v", lineNo, err)
				}
				file.Reopens = append(file.Reopens, m.At)
			case kind == kindEvent:
				ev, err := decodeEvent(line)
				if err != nil {
					return nil, errors.Wrapf(err, "line %d", lineNo)
				}
				file.Events = append(file.Events, ev)
			default:
				return nil, errors.Wrapf(ErrCorrupt, "line %d: unknown kind %q", lineNo, kind)
			}
		}
		if readErr == io.EOF {
			break
		}
	}
	if !header {
		return nil, errors.Wrap(ErrCorrupt, "missing header")
	}
	return &file, nil
}

func decodeEvent(line []byte) (Event, error) {
	var ev eventLine
	if err := json.Unmarshal(line, &ev); err != nil {
		return Event{}, errors.Wrap(ErrCorrupt, err.Error())
	}
	level, ok := core.ParseLevel(ev.Level)
	if !ok {
		return Event{}, errors.Wrapf(ErrCorrupt, "unknown level %q", ev.Level)
	}
	entry := &core.Entry{
		Time:       ev.Time,
		Level:      level,
		LoggerName: ev.Logger,
		Message:    ev.Message,
	}
	if len(ev.Fields) > 0 {
		entry.Fields = make([]core.Field, len(ev.Fields))
		for i, f := range ev.Fields {
			typ, ok := fieldTypesByName[f.Type]
			if !ok {
				return Event{}, errors.Wrapf(ErrCorrupt, "field %q: unknown type %q", f.Key, f.Type)
			}
			entry.Fields[i] = core.Field{Key: f.Key, Type: typ, Str: f.Str, Int64: f.Int, Float64: f.Float}.Persistable()
		}
	}
	if t := ev.Throwable; t != nil {
		entry.Throwable = &core.ThrowableInfo{Type: t.Type, Message: t.Message, Stack: t.Stack}
	}
	return Event{Entry: entry, Rendered: ev.Rendered}, nil
}
