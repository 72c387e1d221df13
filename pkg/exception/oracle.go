package exception

import "github.com/yanun0323/errors"

// Oracle errors. Every oracle client maps its transport failures to exactly one of these.
var (
	ErrUnavailable = errors.New("oracle: unavailable")
	ErrAuthFailure = errors.New("oracle: authentication failed")
	ErrRejected    = errors.New("oracle: rejected")
)

var _ error = (*RejectedError)(nil)

// RejectedError is a business refusal by the oracle, e.g. a halted symbol.
type RejectedError struct {
	Reason string
}

// Rejected builds a business refusal carrying the oracle's reason.
func Rejected(reason string) error {
	if reason == "" {
		reason = "n/a"
	}
	return &RejectedError{Reason: reason}
}

func (e *RejectedError) Error() string {
	return ErrRejected.Error() + ": " + e.Reason
}

func (e *RejectedError) Unwrap() error {
	return ErrRejected
}
