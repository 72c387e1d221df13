package exception

import (
	"fmt"

	"github.com/yanun0323/errors"
)

var _ error = (*publicError)(nil)

// publicError attaches a message that is safe to show to end users.
type publicError struct {
	err error
	msg string
}

func (e *publicError) Error() string {
	return e.msg + ", err: " + e.err.Error()
}

func (e *publicError) Unwrap() error {
	return e.err
}

// Public wraps err with a user-facing message. The message must not contain internals.
func Public(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &publicError{err: err, msg: fmt.Sprintf(format, args...)}
}

// Invalid is shorthand for Public(ErrInvalidArgument, ...).
func Invalid(format string, args ...any) error {
	return Public(ErrInvalidArgument, format, args...)
}

// NotFound is shorthand for Public(ErrNotFound, ...).
func NotFound(format string, args ...any) error {
	return Public(ErrNotFound, format, args...)
}

// PublicMessage returns the user-facing message of err, falling back to the
// generic message of its code.
func PublicMessage(err error) string {
	var pub *publicError
	if errors.As(err, &pub) {
		return pub.msg
	}
	var rej *RejectedError
	if errors.As(err, &rej) {
		return "order rejected by the trading service: " + rej.Reason
	}
	return CodeOf(err).Message()
}
