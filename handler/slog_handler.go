package handler

import (
	"context"
	"log/slog"

	"github.com/philipp01105/nlogsink/core"
)

// LoggerKey is the slog attribute whose string value becomes the entry's
// logger name instead of a field.
const LoggerKey = "logger"

// SlogHandler is an adapter that implements slog.Handler using a Handler.
// This allows the handlers to serve as a backend for log/slog.
//
// An attribute named LoggerKey sets the logger name. Without one, the
// open groups joined by "." name the logger. An error-valued attribute
// named "error" or "err" becomes the entry's throwable.
type SlogHandler struct {
	handler Handler
	level   core.Level
	attrs   []core.Field
	group   string
	logger  string
	thrown  *core.ThrowableInfo
}

// NewSlogHandler creates a new slog.Handler adapter wrapping the given Handler.
func NewSlogHandler(h Handler, level core.Level) *SlogHandler {
	return &SlogHandler{
		handler: h,
		level:   level,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (s *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return slogLevelToCore(level) >= s.level
}

// Handle converts record into an entry and passes it to the wrapped handler.
func (s *SlogHandler) Handle(_ context.Context, record slog.Record) error {
	entry := core.GetEntry()
	defer core.PutEntry(entry)

	entry.Time = record.Time
	entry.Level = slogLevelToCore(record.Level)
	entry.Message = record.Message
	entry.LoggerName = s.loggerName()
	entry.Throwable = s.thrown

	if len(s.attrs) > 0 {
		entry.Fields = append(entry.Fields, s.attrs...)
	}

	record.Attrs(func(a slog.Attr) bool {
		s.apply(entry, a)
		return true
	})

	return s.handler.Handle(entry)
}

// apply adds a record attribute to entry.
func (s *SlogHandler) apply(entry *core.Entry, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if s.group == "" {
		if name, ok := loggerAttr(a); ok {
			entry.LoggerName = name
			return
		}
		if t, ok := throwableAttr(a); ok {
			entry.Throwable = t
			return
		}
	}
	entry.Fields = appendAttr(entry.Fields, s.group, a)
}

func (s *SlogHandler) loggerName() string {
	if s.logger != "" {
		return s.logger
	}
	return s.group
}

// WithAttrs returns a new SlogHandler with additional attributes.
func (s *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := s.clone()
	next.attrs = make([]core.Field, len(s.attrs), len(s.attrs)+len(attrs))
	copy(next.attrs, s.attrs)
	for _, a := range attrs {
		a.Value = a.Value.Resolve()
		if s.group == "" {
			if name, ok := loggerAttr(a); ok {
				next.logger = name
				continue
			}
			if t, ok := throwableAttr(a); ok {
				next.thrown = t
				continue
			}
		}
		next.attrs = appendAttr(next.attrs, s.group, a)
	}
	return next
}

// WithGroup returns a new SlogHandler with the given group name.
func (s *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	next := s.clone()
	next.group = name
	if s.group != "" {
		next.group = s.group + "." + name
	}
	next.attrs = make([]core.Field, len(s.attrs))
	copy(next.attrs, s.attrs)
	return next
}

func (s *SlogHandler) clone() *SlogHandler {
	c := *s
	return &c
}

func loggerAttr(a slog.Attr) (string, bool) {
	if a.Key != LoggerKey || a.Value.Kind() != slog.KindString {
		return "", false
	}
	return a.Value.String(), true
}

func throwableAttr(a slog.Attr) (*core.ThrowableInfo, bool) {
	if a.Key != "error" && a.Key != "err" {
		return nil, false
	}
	if a.Value.Kind() != slog.KindAny {
		return nil, false
	}
	err, ok := a.Value.Any().(error)
	if !ok || err == nil {
		return nil, false
	}
	return core.NewThrowable(err, 2), true
}

// slogLevelToCore converts a slog.Level to a core.Level.
func slogLevelToCore(level slog.Level) core.Level {
	switch {
	case level >= slog.LevelError:
		return core.ErrorLevel
	case level >= slog.LevelWarn:
		return core.WarnLevel
	case level >= slog.LevelInfo:
		return core.InfoLevel
	default:
		return core.DebugLevel
	}
}

// appendAttr converts a slog.Attr to fields, prepending the group prefix
// if present. Group attributes are flattened.
func appendAttr(fields []core.Field, group string, a slog.Attr) []core.Field {
	key := a.Key
	if group != "" {
		key = group + "." + a.Key
	}

	a.Value = a.Value.Resolve()

	switch a.Value.Kind() {
	case slog.KindString:
		return append(fields, core.Field{Key: key, Type: core.StringType, Str: a.Value.String()})
	case slog.KindInt64:
		return append(fields, core.Field{Key: key, Type: core.Int64Type, Int64: a.Value.Int64()})
	case slog.KindUint64:
		return append(fields, core.Field{Key: key, Type: core.Int64Type, Int64: int64(a.Value.Uint64())})
	case slog.KindFloat64:
		return append(fields, core.Field{Key: key, Type: core.Float64Type, Float64: a.Value.Float64()})
	case slog.KindBool:
		val := int64(0)
		if a.Value.Bool() {
			val = 1
		}
		return append(fields, core.Field{Key: key, Type: core.BoolType, Int64: val})
	case slog.KindTime:
		return append(fields, core.Field{Key: key, Type: core.TimeType, Int64: a.Value.Time().UnixNano()})
	case slog.KindDuration:
		return append(fields, core.Field{Key: key, Type: core.DurationType, Int64: int64(a.Value.Duration())})
	case slog.KindGroup:
		for _, ga := range a.Value.Group() {
			fields = appendAttr(fields, key, ga)
		}
		return fields
	default:
		if err, ok := a.Value.Any().(error); ok && err != nil {
			return append(fields, core.Field{Key: key, Type: core.ErrorType, Str: err.Error()})
		}
		return append(fields, core.Field{Key: key, Type: core.AnyType, Any: a.Value.Any()})
	}
}
