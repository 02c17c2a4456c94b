package formatter

import (
	"bytes"
	"strconv"
	"time"

	"github.com/philipp01105/nlogsink/core"
)

// TextFormatter renders entries as a single human-readable line:
//
//	2026-02-18T13:00:00Z [INFO] app.db - connected pool=4
//
// A throwable is appended as exception="Type: message" so that the output
// always stays on one line.
type TextFormatter struct {
	Config
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(cfg Config) *TextFormatter {
	if cfg.TimestampFormat == "" {
		cfg.TimestampFormat = time.RFC3339
	}
	return &TextFormatter{Config: cfg}
}

// Format formats an entry as text
func (f *TextFormatter) Format(entry *core.Entry) ([]byte, error) {
	return render(f, entry), nil
}

// pre-formatted level strings to avoid multiple WriteString calls
var levelBrackets = [...]string{
	core.DebugLevel: " [DEBUG] ",
	core.InfoLevel:  " [INFO] ",
	core.WarnLevel:  " [WARN] ",
	core.ErrorLevel: " [ERROR] ",
	core.FatalLevel: " [FATAL] ",
	core.PanicLevel: " [PANIC] ",
}

// FormatEntry writes the formatted entry into the given buffer
func (f *TextFormatter) FormatEntry(entry *core.Entry, buf *bytes.Buffer) {
	buf.Write(entry.Time.AppendFormat(buf.AvailableBuffer(), f.TimestampFormat))

	if entry.Level >= 0 && int(entry.Level) < len(levelBrackets) {
		buf.WriteString(levelBrackets[entry.Level])
	} else {
		buf.WriteString(" [UNKNOWN] ")
	}

	if entry.LoggerName != "" {
		buf.WriteString(entry.LoggerName)
		buf.WriteString(" - ")
	}

	if f.IncludeCaller && entry.Caller.Defined {
		buf.WriteByte('[')
		buf.WriteString(entry.Caller.ShortFile)
		buf.WriteByte(':')
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), int64(entry.Caller.Line), 10))
		buf.WriteString("] ")
	}

	writeSingleLine(buf, entry.Message)

	for _, field := range entry.Fields {
		buf.WriteByte(' ')
		buf.WriteString(field.Key)
		buf.WriteByte('=')
		writeSingleLine(buf, field.StringValue())
	}

	if t := entry.Throwable; t != nil {
		buf.WriteString(` exception="`)
		writeSingleLine(buf, t.Type)
		buf.WriteString(": ")
		writeSingleLine(buf, t.Message)
		buf.WriteByte('"')
	}

	buf.WriteByte('\n')
}

// writeSingleLine escapes CR and LF so that one entry is one line.
func writeSingleLine(buf *bytes.Buffer, s string) {
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\n' && c != '\r' {
			continue
		}
		buf.WriteString(s[start:i])
		if c == '\n' {
			buf.WriteString(`\n`)
		} else {
			buf.WriteString(`\r`)
		}
		start = i + 1
	}
	buf.WriteString(s[start:])
}
