package lifecycle

import (
	"github.com/cockroachdb/errors"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/serializer"
)

// Session drives one Serializer through its lifecycle on behalf of a
// driver. It holds the enumerated state, checks every call against the
// transition table before touching the serializer, and moves to Failed
// on the first hook error.
//
// A Session is not safe for concurrent use; drivers serialize access the
// same way they serialize access to the sink.
type Session struct {
	ser    serializer.Serializer
	state  State
	events uint64
	err    error
}

// NewSession wraps s, which must be freshly built and unopened.
func NewSession(s serializer.Serializer) *Session {
	return &Session{ser: s, state: Unopened}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Events returns how many entries were written successfully.
func (s *Session) Events() uint64 { return s.events }

// Err returns the error that moved the session to Failed, if any.
func (s *Session) Err() error { return s.err }

// SupportsReopen forwards to the serializer.
func (s *Session) SupportsReopen() bool { return s.ser.SupportsReopen() }

// Create runs AfterCreate on a new file.
func (s *Session) Create() error {
	return s.invoke(HookAfterCreate, s.ser.AfterCreate)
}

// Reopen runs AfterReopen on an existing file. It refuses, without
// calling the serializer, when the format cannot be reopened.
func (s *Session) Reopen() error {
	if _, ok := Next(s.state, HookAfterReopen); ok && !s.ser.SupportsReopen() {
		return errors.Wrapf(serializer.ErrReopenUnsupported, "state %s", s.state)
	}
	return s.invoke(HookAfterReopen, s.ser.AfterReopen)
}

// Write hands one entry to the serializer.
func (s *Session) Write(entry *core.Entry, layout formatter.Formatter) error {
	err := s.invoke(HookWrite, func() error { return s.ser.Write(entry, layout) })
	if err == nil {
		s.events++
	}
	return err
}

// Flush pushes the serializer's private buffers to the sink.
func (s *Session) Flush() error {
	return s.invoke(HookFlush, s.ser.Flush)
}

// Close runs BeforeClose. After it returns successfully the driver may
// close the sink without any further call.
func (s *Session) Close() error {
	return s.invoke(HookBeforeClose, s.ser.BeforeClose)
}

// Abandon marks the session failed without invoking any hook. Drivers
// use it when the sink itself failed outside a hook.
func (s *Session) Abandon(cause error) {
	if s.state.Terminal() {
		return
	}
	s.state = Failed
	s.err = cause
}

func (s *Session) invoke(h Hook, fn func() error) error {
	to, ok := Next(s.state, h)
	if !ok {
		return errors.Wrapf(serializer.ErrIllegalTransition, "%s in state %s", h, s.state)
	}

	s.state = to
	if err := fn(); err != nil {
		s.state = Failed
		s.err = errors.Wrapf(err, "%s", h)
		return s.err
	}
	if to == Closing {
		s.state = Closed
	}
	return nil
}
