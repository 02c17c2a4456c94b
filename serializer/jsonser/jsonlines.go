// Package jsonser implements the "json_lines" format. Every line is one
// JSON object tagged by "kind":
//
//	{"kind":"header","format":"json_lines","version":1,"created":"..."}
//	{"kind":"event","time":"...","level":"INFO","message":"...","rendered":"..."}
//	{"kind":"reopen","at":"..."}
//
// A file carries exactly one header, written when the file is created.
// Reopening an existing file appends a reopen marker instead, so a file
// that was closed and reopened still decodes as one event sequence.
package jsonser

import (
	"bufio"
	"bytes"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/serializer"
)

const (
	// FormatName is the registry name of this format.
	FormatName = "json_lines"
	// Version is written into every header.
	Version = 1
	// DefaultBufferSize is used when Builder.BufferSize is zero.
	DefaultBufferSize = 4096
)

const (
	kindHeader = "header"
	kindReopen = "reopen"
	kindEvent  = "event"
)

// The standard-library compatible config keeps float64 values exact.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Builder builds json_lines serializers. The zero value is ready to use.
//
// Lines are collected in a private buffer of BufferSize bytes and reach
// the sink when the buffer fills, on Flush and on BeforeClose.
type Builder struct {
	BufferSize int
	// Now stamps headers and reopen markers. Defaults to time.Now.
	Now func() time.Time
}

// Build implements serializer.Builder.
func (b Builder) Build(w io.Writer) serializer.Serializer {
	size := b.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	now := b.Now
	if now == nil {
		now = time.Now
	}
	bw := bufio.NewWriterSize(w, size)
	return &Serializer{bw: bw, enc: json.NewEncoder(bw), now: now}
}

// Serializer is the json_lines format serializer.
type Serializer struct {
	bw       *bufio.Writer
	enc      *jsoniter.Encoder
	now      func() time.Time
	rendered bytes.Buffer
}

// AfterCreate writes the header line and flushes it to the sink.
func (s *Serializer) AfterCreate() error {
	h := Header{Kind: kindHeader, Format: FormatName, Version: Version, Created: s.now().UTC()}
	if err := s.enc.Encode(&h); err != nil {
		return serializer.WrapSinkErr(err, "json_lines: write header")
	}
	return serializer.WrapSinkErr(s.bw.Flush(), "json_lines: write header")
}

// AfterReopen writes a reopen marker and flushes it to the sink.
func (s *Serializer) AfterReopen() error {
	m := marker{Kind: kindReopen, At: s.now().UTC()}
	if err := s.enc.Encode(&m); err != nil {
		return serializer.WrapSinkErr(err, "json_lines: write reopen marker")
	}
	return serializer.WrapSinkErr(s.bw.Flush(), "json_lines: write reopen marker")
}

// Write appends one event line. The layout output is stored, without
// its trailing newline, in the "rendered" member.
func (s *Serializer) Write(entry *core.Entry, layout formatter.Formatter) error {
	s.rendered.Reset()
	if err := formatter.FormatInto(layout, entry, &s.rendered); err != nil {
		return err
	}
	ev := newEventLine(entry, string(bytes.TrimRight(s.rendered.Bytes(), "\r\n")))
	return serializer.WrapSinkErr(s.enc.Encode(&ev), "json_lines: write event")
}

// Flush writes buffered lines to the sink.
func (s *Serializer) Flush() error {
	return serializer.WrapSinkErr(s.bw.Flush(), "json_lines: flush")
}

// BeforeClose writes buffered lines to the sink. The format has no
// trailer.
func (s *Serializer) BeforeClose() error {
	return serializer.WrapSinkErr(s.bw.Flush(), "json_lines: close")
}

// SupportsReopen returns true.
func (s *Serializer) SupportsReopen() bool { return true }

// Header is the first line of every json_lines file.
type Header struct {
	Kind    string    `json:"kind"`
	Format  string    `json:"format"`
	Version int       `json:"version"`
	Created time.Time `json:"created"`
}

type marker struct {
	Kind string    `json:"kind"`
	At   time.Time `json:"at"`
}

type eventLine struct {
	Kind      string     `json:"kind"`
	Time      time.Time  `json:"time"`
	Level     string     `json:"level"`
	Logger    string     `json:"logger,omitempty"`
	Message   string     `json:"message"`
	Fields    []field    `json:"fields,omitempty"`
	Throwable *throwable `json:"throwable,omitempty"`
	Rendered  string     `json:"rendered"`
}

type field struct {
	Key   string  `json:"key"`
	Type  string  `json:"type"`
	Str   string  `json:"str,omitempty"`
	Int   int64   `json:"int,omitempty"`
	Float float64 `json:"float,omitempty"`
}

type throwable struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Stack   []string `json:"stack,omitempty"`
}

var fieldTypeNames = map[core.FieldType]string{
	core.StringType:   "string",
	core.IntType:      "int",
	core.Int64Type:    "int64",
	core.Float64Type:  "float64",
	core.BoolType:     "bool",
	core.TimeType:     "time",
	core.DurationType: "duration",
	core.ErrorType:    "error",
}

var fieldTypesByName = func() map[string]core.FieldType {
	m := make(map[string]core.FieldType, len(fieldTypeNames))
	for t, name := range fieldTypeNames {
		m[name] = t
	}
	return m
}()

func newEventLine(e *core.Entry, rendered string) eventLine {
	ev := eventLine{
		Kind:     kindEvent,
		Time:     e.Time.UTC(),
		Level:    e.Level.String(),
		Logger:   e.LoggerName,
		Message:  e.Message,
		Rendered: rendered,
	}
	if len(e.Fields) > 0 {
		ev.Fields = make([]field, len(e.Fields))
		for i, f := range e.Fields {
			f = f.Persistable()
			ev.Fields[i] = field{
				Key:   f.Key,
				Type:  fieldTypeNames[f.Type],
				Str:   f.Str,
				Int:   f.Int64,
				Float: f.Float64,
			}
		}
	}
	if t := e.Throwable; t != nil {
		ev.Throwable = &throwable{Type: t.Type, Message: t.Message, Stack: t.Stack}
	}
	return ev
}
