package trade

import (
	"testing"

	"bank/internal/customer"
	"bank/internal/ledger"
	"bank/internal/model"
	"bank/internal/quote"
	"bank/internal/quote/oracle"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

// With fixed prices, cash plus the value of all holdings never changes, and
// neither the volume nor any position goes negative.
func TestProperty_TradesConserveValue(t *testing.T) {
	listings := oracle.DefaultListings()
	prices := make(map[string]decimal.Decimal, len(listings))
	symbols := make([]string, 0, len(listings))
	for _, l := range listings {
		prices[l.Symbol] = l.Price
		symbols = append(symbols, l.Symbol)
	}
	ctx := t.Context()

	rapid.Check(t, func(t *rapid.T) {
		initial := decimal.NewFromInt(rapid.Int64Range(0, 20_000).Draw(t, "initial"))
		volume := ledger.NewMemoryVolume(initial, "USD")
		depot := ledger.NewMemoryDepot()
		c, err := NewCoordinator(Config{
			Gateway:   quote.NewGateway(oracle.NewPaper(listings...), quote.Config{}, nil),
			Volume:    volume,
			Depot:     depot,
			Customers: customer.NewMemory(model.Customer{ID: 1, Number: "C-1"}),
		})
		if err != nil {
			t.Fatalf("new coordinator: %v", err)
		}

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			order := model.TradeOrder{
				CustomerID: 1,
				Symbol:     rapid.SampledFrom(symbols).Draw(t, "symbol"),
				Quantity:   rapid.Int64Range(1, 40).Draw(t, "qty"),
			}
			if rapid.Bool().Draw(t, "buy") {
				_, _ = c.Buy(ctx, order)
			} else {
				_, _ = c.Sell(ctx, order)
			}

			vol, _ := volume.Volume(ctx)
			if vol.Available.IsNegative() {
				t.Fatalf("available volume is negative: %s", vol.Available)
			}
			positions, _ := depot.Snapshot(ctx, 1)
			worth := vol.Available
			for _, p := range positions {
				if p.Quantity <= 0 {
					t.Fatalf("position %s has quantity %d", p.Symbol, p.Quantity)
				}
				worth = worth.Add(prices[p.Symbol].Mul(decimal.NewFromInt(p.Quantity)))
			}
			if !worth.Equal(initial) {
				t.Fatalf("value not conserved: got %s want %s", worth, initial)
			}
		}
	})
}
