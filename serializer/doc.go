// Package serializer defines the contract between a sink driver, which
// owns an output stream such as a file handle, and an event serializer,
// which owns the encoding of log entries inside that stream.
//
// The contract is the Serializer interface and its six operations, plus
// Builder, which binds a byte sink to a fresh Serializer. A Registry maps
// format names to builder factories so that a driver can pick a format
// from configuration without compile-time knowledge of it.
//
// Serializers are deliberately naive: they never observe the file
// directly and rely on the order of hook calls. Package lifecycle holds
// the driver-side state machine that enforces that order.
//
// Errors returned by a sink are marked with ErrSinkIO. Out-of-order hook
// calls detected by a driver are marked with ErrIllegalTransition.
package serializer
