package oracle

import (
	"context"

	"github.com/shopspring/decimal"
)

// Quote is a quote as the oracle reports it. Company name and price may be missing.
type Quote struct {
	Symbol         string              `json:"symbol"`
	CompanyName    string              `json:"companyName,omitempty"`
	LastTradePrice decimal.NullDecimal `json:"lastTradePrice"`
}

// Oracle is the external quote/execution service. Implementations classify
// their failures at the edge: exception.ErrAuthFailure, exception.ErrUnavailable,
// exception.ErrNotFound or *exception.RejectedError.
type Oracle interface {
	Quotes(ctx context.Context, symbols []string) ([]Quote, error)
	FindByName(ctx context.Context, term string) ([]Quote, error)
	// Buy executes a buy and returns the price per share.
	Buy(ctx context.Context, symbol string, quantity int64) (decimal.Decimal, error)
	// Sell executes a sell and returns the price per share.
	Sell(ctx context.Context, symbol string, quantity int64) (decimal.Decimal, error)
}
