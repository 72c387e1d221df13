/*
Package ledger owns the two balances a trade touches.

# Module
  - volume ledger: the single shared bank capital value, debit/credit never drives it below zero
  - depot ledger: per customer holdings, symbol -> quantity, zero positions are removed

Every check-then-act runs inside one critical section of the owning ledger, so
callers never see a stale "funds sufficient" answer.
*/
package ledger

import (
	"context"

	"bank/internal/model"
	"bank/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

// VolumeLedger owns the bank volume.
type VolumeLedger interface {
	// Debit subtracts amount if enough capital is available, otherwise it fails
	// with exception.ErrInsufficientFunds and leaves the ledger unchanged.
	Debit(ctx context.Context, amount decimal.Decimal) error
	// Credit adds amount. There is no upper bound.
	Credit(ctx context.Context, amount decimal.Decimal) error
	Volume(ctx context.Context) (model.BankVolume, error)
}

// DepotLedger owns the holdings of every customer.
type DepotLedger interface {
	Credit(ctx context.Context, customerID int64, symbol, name string, quantity int64) error
	// Debit fails with exception.ErrInsufficientHoldings when less than quantity is held.
	Debit(ctx context.Context, customerID int64, symbol string, quantity int64) error
	Held(ctx context.Context, customerID int64, symbol string) (int64, error)
	// Snapshot returns the positions of a customer sorted by symbol.
	Snapshot(ctx context.Context, customerID int64) ([]model.DepotPosition, error)
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return exception.Invalid("amount must be greater than zero, got %s", amount.String())
	}
	return nil
}

// ValidateQuantity rejects zero and negative quantities.
func ValidateQuantity(quantity int64) error {
	if quantity <= 0 {
		return exception.Invalid("quantity must be greater than zero, got %d", quantity)
	}
	return nil
}

// InsufficientFunds is the error every VolumeLedger returns for an uncovered debit.
func InsufficientFunds(available, requested decimal.Decimal) error {
	return errors.Wrapf(exception.ErrInsufficientFunds, "available %s, requested %s", available.String(), requested.String())
}

// InsufficientHoldings is the error every DepotLedger returns for an uncovered debit.
func InsufficientHoldings(symbol string, held, requested int64) error {
	return errors.Wrapf(exception.ErrInsufficientHoldings, "symbol %s, held %d, requested %d", symbol, held, requested)
}
