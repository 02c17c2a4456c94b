// Package lifecycle is the driver side of the serializer contract.
//
// A serializer has no way to observe its file; it trusts the order in
// which hooks arrive. This package turns that implicit ordering into an
// explicit state machine:
//
//	Unopened --AfterCreate--> Opened   --Write--> Writable
//	Unopened --AfterReopen--> Reopened --Write--> Writable
//	Opened|Reopened|Writable --Flush--> (same state)
//	Opened|Reopened|Writable --BeforeClose--> Closing --> Closed
//	any hook error --> Failed
//
// Next exposes the table. Session wraps one serializer, rejects calls
// that are not in the table with serializer.ErrIllegalTransition before
// they reach the serializer, and refuses AfterReopen on formats that do
// not support it with serializer.ErrReopenUnsupported.
package lifecycle
