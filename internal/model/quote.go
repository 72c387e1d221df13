package model

import (
	"bank/internal/model/enum"

	"github.com/shopspring/decimal"
)

// StockQuote is a transient price snapshot, fetched fresh per request.
type StockQuote struct {
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

// SearchResult tags quotes with their origin so degraded placeholders are never
// mistaken for real prices.
type SearchResult struct {
	Quotes []StockQuote     `json:"quotes"`
	Source enum.QuoteSource `json:"source"`
}

func (r SearchResult) IsDegraded() bool {
	return r.Source == enum.QuoteSourceDegraded
}
