package model

import (
	"strings"
	"time"

	"bank/internal/model/enum"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeOrder is a single buy or sell request for one customer.
type TradeOrder struct {
	CustomerID int64
	Symbol     string
	Quantity   int64
	Side       enum.Side

	// IdempotencyKey is optional. Orders sharing a key execute at most once.
	IdempotencyKey string
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ExecutedOrder is returned for every committed trade.
type ExecutedOrder struct {
	ID             uuid.UUID       `json:"id"`
	CustomerID     int64           `json:"customerId"`
	CustomerNumber string          `json:"customerNumber"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Side           enum.Side       `json:"side"`
	Quantity       int64           `json:"quantity"`
	PricePerShare  decimal.Decimal `json:"pricePerShare"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
	ExecutedAt     time.Time       `json:"executedAt"`
}
