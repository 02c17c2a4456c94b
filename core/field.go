package core

import (
	"fmt"
	"strconv"
	"time"
)

// FieldType represents the type of a field value
type FieldType uint8

const (
	StringType FieldType = iota
	IntType
	Int64Type
	Float64Type
	BoolType
	TimeType
	DurationType
	ErrorType
	AnyType
)

// Field represents a key-value pair for structured logging
type Field struct {
	Key     string
	Type    FieldType
	Int64   int64
	Float64 float64
	Str     string
	Any     interface{}
}

// StringValue returns the string representation of a field's value
func (f Field) StringValue() string {
	switch f.Type {
	case StringType, ErrorType:
		return f.Str
	case IntType, Int64Type:
		return strconv.FormatInt(f.Int64, 10)
	case Float64Type:
		return strconv.FormatFloat(f.Float64, 'f', -1, 64)
	case BoolType:
		return strconv.FormatBool(f.Int64 == 1)
	case TimeType:
		return time.Unix(0, f.Int64).UTC().Format(time.RFC3339Nano)
	case DurationType:
		return time.Duration(f.Int64).String()
	case AnyType:
		return fmt.Sprintf("%v", f.Any)
	default:
		return ""
	}
}

// Persistable returns the field in a form every serializer can store and
// read back unchanged: AnyType becomes a StringType field holding its
// StringValue, and unused value slots are zeroed.
func (f Field) Persistable() Field {
	switch f.Type {
	case AnyType:
		return Field{Key: f.Key, Type: StringType, Str: f.StringValue()}
	case StringType, ErrorType:
		return Field{Key: f.Key, Type: f.Type, Str: f.Str}
	case Float64Type:
		return Field{Key: f.Key, Type: f.Type, Float64: f.Float64}
	default:
		return Field{Key: f.Key, Type: f.Type, Int64: f.Int64}
	}
}

// PersistableFields applies Persistable to every field. It returns nil
// for an empty slice.
func PersistableFields(fields []Field) []Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f.Persistable()
	}
	return out
}
