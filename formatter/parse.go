package formatter

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"

	"github.com/philipp01105/nlogsink/core"
)

// ErrMalformedLine is returned by ParseJSON for input that is not a line
// produced by JSONFormatter.
var ErrMalformedLine = errors.New("formatter: malformed JSON line")

// ParseJSON reads one line produced by a JSONFormatter using the default
// timestamp format back into an Entry. Field order is preserved. Field
// types are inferred from the JSON value: strings become StringType,
// integral numbers Int64Type, other numbers Float64Type, booleans
// BoolType. Caller information is not restored.
func ParseJSON(line []byte) (*core.Entry, error) {
	iter := jsoniter.ConfigFastest.BorrowIterator(line)
	defer jsoniter.ConfigFastest.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return nil, errors.Wrap(ErrMalformedLine, "not an object")
	}

	entry := &core.Entry{}
	var sawTime, sawLevel bool
	var parseErr error

	iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		switch key {
		case "time":
			t, err := time.Parse(time.RFC3339Nano, it.ReadString())
			if err != nil {
				parseErr = errors.Wrap(ErrMalformedLine, err.Error())
				return false
			}
			entry.Time = t
			sawTime = true
		case "level":
			name := it.ReadString()
			l, ok := core.ParseLevel(name)
			if !ok {
				parseErr = errors.Wrapf(ErrMalformedLine, "unknown level %q", name)
				return false
			}
			entry.Level = l
			sawLevel = true
		case "logger":
			entry.LoggerName = it.ReadString()
		case "message":
			entry.Message = it.ReadString()
		case "caller":
			it.Skip()
		case "exception":
			entry.Throwable = readThrowable(it)
		default:
			f, err := readField(it, key)
			if err != nil {
				parseErr = err
				return false
			}
			entry.Fields = append(entry.Fields, f)
		}
		return it.Error == nil
	})

	if parseErr != nil {
		return nil, parseErr
	}
	if iter.Error != nil {
		return nil, errors.Wrap(ErrMalformedLine, iter.Error.Error())
	}
	if !sawTime || !sawLevel {
		return nil, errors.Wrap(ErrMalformedLine, "missing time or level")
	}
	return entry, nil
}

func readThrowable(it *jsoniter.Iterator) *core.ThrowableInfo {
	t := &core.ThrowableInfo{}
	it.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		switch key {
		case "type":
			t.Type = it.ReadString()
		case "message":
			t.Message = it.ReadString()
		case "stack":
			it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
				t.Stack = append(t.Stack, it.ReadString())
				return true
			})
		default:
			it.Skip()
		}
		return true
	})
	return t
}

func readField(it *jsoniter.Iterator, key string) (core.Field, error) {
	switch it.WhatIsNext() {
	case jsoniter.StringValue:
		return core.Field{Key: key, Type: core.StringType, Str: it.ReadString()}, nil
	case jsoniter.BoolValue:
		var v int64
		if it.ReadBool() {
			v = 1
		}
		return core.Field{Key: key, Type: core.BoolType, Int64: v}, nil
	case jsoniter.NumberValue:
		num := string(it.ReadNumber())
		if n, err := strconv.ParseInt(num, 10, 64); err == nil {
			return core.Field{Key: key, Type: core.Int64Type, Int64: n}, nil
		}
		fv, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return core.Field{}, errors.Wrapf(ErrMalformedLine, "field %q: %v", key, err)
		}
		return core.Field{Key: key, Type: core.Float64Type, Float64: fv}, nil
	default:
		return core.Field{Key: key, Type: core.StringType, Str: string(it.SkipAndReturnBytes())}, nil
	}
}
