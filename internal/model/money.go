package model

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the only currency the bank trades in.
const DefaultCurrency = "USD"

// CurrencyScale returns the number of fraction digits of an ISO currency code.
// Unknown codes fall back to 2.
func CurrencyScale(code string) int32 {
	cur := money.GetCurrency(code)
	if cur == nil {
		return 2
	}
	return int32(cur.Fraction)
}

// RoundAmount rounds an amount to the scale of its currency.
func RoundAmount(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Round(CurrencyScale(code))
}

// Notional is price per share times quantity, rounded to the currency scale.
func Notional(pricePerShare decimal.Decimal, quantity int64, code string) decimal.Decimal {
	return RoundAmount(pricePerShare.Mul(decimal.NewFromInt(quantity)), code)
}

// FormatAmount renders an amount with the currency grapheme, e.g. "$1,600.00".
func FormatAmount(amount decimal.Decimal, code string) string {
	scale := CurrencyScale(code)
	minor := amount.Shift(scale).Round(0).IntPart()
	return money.New(minor, code).Display()
}
