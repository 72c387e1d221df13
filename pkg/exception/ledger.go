package exception

import "github.com/yanun0323/errors"

// Ledger errors
var (
	ErrInsufficientFunds    = errors.New("ledger: insufficient funds")
	ErrInsufficientHoldings = errors.New("ledger: insufficient holdings")
	ErrVolumeNotInitialized = errors.New("ledger: bank volume not initialized")
	ErrCompensationFailed   = errors.New("ledger: compensation failed")
)

var _ error = (*CompensationError)(nil)

// CompensationError reports a ledger step that failed after the oracle executed
// and whose undo failed as well. It unwraps to the original cause and matches
// ErrCompensationFailed.
type CompensationError struct {
	Cause   error
	UndoErr error
}

func (e *CompensationError) Error() string {
	return e.Cause.Error() + ", " + ErrCompensationFailed.Error() + ": " + e.UndoErr.Error()
}

func (e *CompensationError) Unwrap() error {
	return e.Cause
}

func (e *CompensationError) Is(target error) bool {
	return target == ErrCompensationFailed
}
