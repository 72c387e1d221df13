package model

import "github.com/shopspring/decimal"

// BankVolume is the singleton pool of investable bank capital.
type BankVolume struct {
	Available decimal.Decimal `json:"available"`
	Initial   decimal.Decimal `json:"initial"`
	Currency  string          `json:"currency"`
}

// DepotPosition is one holding of a customer. Zero quantities are never stored.
type DepotPosition struct {
	CustomerID int64  `json:"customerId"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Quantity   int64  `json:"quantity"`
}

// DepotLine is a valued depot position.
type DepotLine struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Quantity     int64           `json:"quantity"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
}

// Depot is the valued view of all holdings of a customer.
type Depot struct {
	CustomerID     int64           `json:"customerId"`
	CustomerNumber string          `json:"customerNumber"`
	Positions      []DepotLine     `json:"positions"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
}
