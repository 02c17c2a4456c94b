// Package core defines the event model shared by every other package.
//
// An Entry is one log occurrence: time, severity Level, the name of the
// logger that produced it, the message, structured Fields and optional
// ThrowableInfo describing an error or exception. Entries are produced by
// a source (the logger package, the slog adapter) and consumed read-only
// by layouts and serializers.
//
// Entry objects are pooled via sync.Pool. Callers get an Entry with
// GetEntry and return it with PutEntry after Handle returns. Handlers
// never keep an entry past Handle; async queues keep a Clone.
//
// Field stores numeric values in fixed-size slots (Int64, Float64) so
// that common types never escape to the heap. Serializers that need a
// lossless encoding persist Key, Type and the populated slot; AnyType
// values are stringified on the way out because their dynamic type
// cannot be reconstructed by a reader.
package core
