package middlewares

import (
	"errors"
	"fmt"
	"time"
)

// PanicError is what Recover hands to the error handler in place of a
// panic. Value carries the original panic value and Stack the captured
// trace, nil when stack printing is disabled.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("recovered panic: %v", e.Value)
}

// TimeoutError is returned by the Timeout middleware when a handler
// outlives its deadline. Duration is the configured limit, not the time
// the handler actually took.
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("handler exceeded %s timeout", e.Duration)
}

// IsPanicError reports whether err wraps a recovered panic.
func IsPanicError(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

// IsTimeoutError reports whether err wraps a handler timeout.
func IsTimeoutError(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// AsPanicError unwraps err to a PanicError where error handlers need the
// panic value or stack.
func AsPanicError(err error) (*PanicError, bool) {
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// AsTimeoutError unwraps err to a TimeoutError.
func AsTimeoutError(err error) (*TimeoutError, bool) {
	var te *TimeoutError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
