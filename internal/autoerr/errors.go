// Package autoerr defines the error taxonomy shared by every control loop:
// recoverable errors are logged and the loop tries again on its next tick;
// fatal errors propagate to logg.Fatal and the process exits so that the
// orchestrator can restart it with a clean state.
package autoerr

import (
	"errors"
	"fmt"
)

// Recoverable wraps a transient error (HTTP/DB transport failure, exhausted
// retry budget) that the enclosing loop should log and skip past rather than
// crash on.
type Recoverable struct {
	Op  string
	Err error
}

func (e *Recoverable) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
}

func (e *Recoverable) Unwrap() error { return e.Err }

// WrapRecoverable builds a *Recoverable error, or returns nil if err is nil.
func WrapRecoverable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Recoverable{Op: op, Err: err}
}

// IsRecoverable reports whether err (or something it wraps) is a Recoverable.
func IsRecoverable(err error) bool {
	var r *Recoverable
	return errors.As(err, &r)
}

// Fatal wraps a programming-invariant violation or numerical miscalibration
// that must terminate the process: mismatched experience-buffer lengths, an
// overflowed price multiplier, an unknown factory key, a missing required
// configuration option.
type Fatal struct {
	Op  string
	Err error
}

func (e *Fatal) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
}

func (e *Fatal) Unwrap() error { return e.Err }

// WrapFatal builds a *Fatal error, or returns nil if err is nil.
func WrapFatal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Fatal{Op: op, Err: err}
}

// IsFatal reports whether err (or something it wraps) is a Fatal.
func IsFatal(err error) bool {
	var f *Fatal
	return errors.As(err, &f)
}

// ErrBufferInconsistent means the action, log-prob and reward buffers of a
// bandit's experience diverged in length — a bug in the bandit loop, not
// something retrying will fix.
var ErrBufferInconsistent = errors.New("bandit: action/log-prob/reward buffers have inconsistent lengths")

// ErrOverflow means the scaled action mapping overflowed float64 range,
// which means the underlying policy has diverged.
var ErrOverflow = errors.New("policy: scaled action overflowed")
