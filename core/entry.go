package core

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Level represents the severity level of a log entry
type Level int8

const (
	// DebugLevel for detailed debugging information
	DebugLevel Level = iota
	// InfoLevel for general informational messages (default)
	InfoLevel
	// WarnLevel for warning messages
	WarnLevel
	// ErrorLevel for error messages
	ErrorLevel
	// FatalLevel for fatal messages
	FatalLevel
	// PanicLevel for panic messages
	PanicLevel
)

var levelNames = [...]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
	FatalLevel: "FATAL",
	PanicLevel: "PANIC",
}

// String returns the string representation of the level
func (l Level) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// ParseLevel converts a level name back into a Level. It accepts the
// names produced by String (case-insensitive) plus "WARNING".
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DebugLevel, true
	case "INFO":
		return InfoLevel, true
	case "WARN", "WARNING":
		return WarnLevel, true
	case "ERROR":
		return ErrorLevel, true
	case "FATAL":
		return FatalLevel, true
	case "PANIC":
		return PanicLevel, true
	default:
		return InfoLevel, false
	}
}

// Entry represents one log event with all its metadata
type Entry struct {
	Time       time.Time
	Level      Level
	LoggerName string
	Message    string
	Fields     []Field
	Throwable  *ThrowableInfo
	Caller     CallerInfo
}

// ThrowableInfo carries the error attached to an entry, if any.
type ThrowableInfo struct {
	Type    string
	Message string
	Stack   []string
}

// NewThrowable captures err as ThrowableInfo. The stack is the caller's
// goroutine stack at the time of the call, skipping skip frames.
func NewThrowable(err error, skip int) *ThrowableInfo {
	if err == nil {
		return nil
	}
	t := &ThrowableInfo{
		Type:    typeName(err),
		Message: err.Error(),
	}
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return t
	}
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		t.Stack = append(t.Stack, f.Function+" ("+filepath.Base(f.File)+":"+strconv.Itoa(f.Line)+")")
		if !more {
			break
		}
	}
	return t
}

func typeName(err error) string {
	type named interface{ TypeName() string }
	if n, ok := err.(named); ok {
		return n.TypeName()
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

// CallerInfo contains information about the caller
type CallerInfo struct {
	File      string
	ShortFile string
	Line      int
	Function  string
	Defined   bool
}

// Clone returns a deep copy of the entry that is safe to keep after the
// original goes back to the pool.
func (e *Entry) Clone() *Entry {
	c := *e
	if len(e.Fields) > 0 {
		c.Fields = make([]Field, len(e.Fields))
		copy(c.Fields, e.Fields)
	} else {
		c.Fields = nil
	}
	if e.Throwable != nil {
		t := *e.Throwable
		t.Stack = append([]string(nil), e.Throwable.Stack...)
		c.Throwable = &t
	}
	return &c
}

// entryPool is a pool of Entry objects to reduce allocations
var entryPool = sync.Pool{
	New: func() interface{} {
		return &Entry{
			Fields: make([]Field, 0, 8),
		}
	},
}

// GetEntry retrieves an Entry from the pool, stamped with the current time
func GetEntry() *Entry {
	e := entryPool.Get().(*Entry)
	e.Time = time.Now()
	e.Fields = e.Fields[:0]
	e.Caller = CallerInfo{}
	return e
}

// PutEntry returns an Entry to the pool
func PutEntry(e *Entry) {
	if e == nil {
		return
	}
	e.Fields = e.Fields[:0]
	e.Message = ""
	e.LoggerName = ""
	e.Throwable = nil
	e.Caller = CallerInfo{}
	entryPool.Put(e)
}

// GetCaller retrieves caller information
func GetCaller(skip int) CallerInfo {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return CallerInfo{}
	}

	var funcName string
	if fn := runtime.FuncForPC(pc); fn != nil {
		funcName = fn.Name()
	}

	return CallerInfo{
		File:      file,
		ShortFile: filepath.Base(file),
		Line:      line,
		Function:  funcName,
		Defined:   true,
	}
}
