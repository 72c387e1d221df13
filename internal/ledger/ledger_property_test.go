package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

// Random debit/credit sequences never drive the volume below zero and failed
// debits leave it untouched.
func TestProperty_VolumeNeverNegative(t *testing.T) {
	ctx := t.Context()
	rapid.Check(t, func(t *rapid.T) {
		initial := decimal.NewFromInt(rapid.Int64Range(0, 10_000).Draw(t, "initial"))
		v := NewMemoryVolume(initial, "USD")
		expected := initial

		steps := rapid.IntRange(1, 50).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			amount := decimal.New(rapid.Int64Range(1, 500_00).Draw(t, "cents"), -2)
			if rapid.Bool().Draw(t, "debit") {
				err := v.Debit(ctx, amount)
				if expected.LessThan(amount) {
					if err == nil {
						t.Fatalf("debit %s succeeded with only %s available", amount, expected)
					}
				} else {
					if err != nil {
						t.Fatalf("debit %s failed with %s available: %v", amount, expected, err)
					}
					expected = expected.Sub(amount)
				}
			} else {
				if err := v.Credit(ctx, amount); err != nil {
					t.Fatalf("credit %s: %v", amount, err)
				}
				expected = expected.Add(amount)
			}

			vol, _ := v.Volume(ctx)
			if vol.Available.IsNegative() {
				t.Fatalf("available volume is negative: %s", vol.Available)
			}
			if !vol.Available.Equal(expected) {
				t.Fatalf("available mismatch: got %s want %s", vol.Available, expected)
			}
		}
	})
}

// Random credit/debit sequences never leave a negative or zero-quantity position.
func TestProperty_DepotNeverNegative(t *testing.T) {
	symbols := []string{"AAPL", "MSFT", "GOOGL"}
	ctx := t.Context()

	rapid.Check(t, func(t *rapid.T) {
		d := NewMemoryDepot()
		expected := map[string]int64{}

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			sym := rapid.SampledFrom(symbols).Draw(t, "symbol")
			qty := rapid.Int64Range(1, 20).Draw(t, "qty")
			if rapid.Bool().Draw(t, "credit") {
				if err := d.Credit(ctx, 1, sym, sym, qty); err != nil {
					t.Fatalf("credit: %v", err)
				}
				expected[sym] += qty
			} else {
				err := d.Debit(ctx, 1, sym, qty)
				if expected[sym] < qty {
					if err == nil {
						t.Fatalf("debit %d %s succeeded while holding %d", qty, sym, expected[sym])
					}
				} else {
					if err != nil {
						t.Fatalf("debit %d %s: %v", qty, sym, err)
					}
					expected[sym] -= qty
				}
			}
		}

		positions, _ := d.Snapshot(ctx, 1)
		seen := map[string]bool{}
		for _, p := range positions {
			if p.Quantity <= 0 {
				t.Fatalf("position %s retained with quantity %d", p.Symbol, p.Quantity)
			}
			if p.Quantity != expected[p.Symbol] {
				t.Fatalf("position %s: got %d want %d", p.Symbol, p.Quantity, expected[p.Symbol])
			}
			seen[p.Symbol] = true
		}
		for sym, qty := range expected {
			if qty > 0 && !seen[sym] {
				t.Fatalf("position %s missing, want %d", sym, qty)
			}
		}
	})
}
