package serializer

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrSinkIO marks a failure of the underlying byte sink. It is always
	// fatal for the current file.
	ErrSinkIO = errors.New("serializer: sink i/o failure")

	// ErrIllegalTransition marks a hook invoked out of the legal order.
	// This is a programming error in the driver.
	ErrIllegalTransition = errors.New("serializer: illegal lifecycle transition")

	// ErrReopenUnsupported is returned when a driver tries to reopen a
	// file whose format cannot be appended to after close.
	ErrReopenUnsupported = errors.Mark(
		errors.New("serializer: format does not support reopen"),
		ErrIllegalTransition,
	)

	ErrUnknownFormat   = errors.New("serializer: unknown format")
	ErrDuplicateFormat = errors.New("serializer: format already registered")
	ErrInvalidFormat   = errors.New("serializer: invalid format registration")
)

// WrapSinkErr wraps err, returned by the sink during op, so that
// errors.Is(err, ErrSinkIO) holds. It returns nil for a nil err.
func WrapSinkErr(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, "%s", op), ErrSinkIO)
}

// IsSinkErr reports whether err was produced by a failing sink.
func IsSinkErr(err error) bool {
	return errors.Is(err, ErrSinkIO)
}
