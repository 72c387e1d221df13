package ledger

import (
	"context"
	"sync"

	"bank/internal/model"

	"github.com/shopspring/decimal"
)

var _ VolumeLedger = (*MemoryVolume)(nil)

// MemoryVolume keeps the bank volume in process memory behind one mutex.
type MemoryVolume struct {
	mu        sync.RWMutex
	available decimal.Decimal
	initial   decimal.Decimal
	currency  string
}

// NewMemoryVolume creates a ledger holding initial as both initial and available volume.
func NewMemoryVolume(initial decimal.Decimal, currency string) *MemoryVolume {
	if currency == "" {
		currency = model.DefaultCurrency
	}
	return &MemoryVolume{
		available: initial,
		initial:   initial,
		currency:  currency,
	}
}

func (v *MemoryVolume) Debit(_ context.Context, amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.available.LessThan(amount) {
		return InsufficientFunds(v.available, amount)
	}
	v.available = v.available.Sub(amount)
	return nil
}

func (v *MemoryVolume) Credit(_ context.Context, amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}

	v.mu.Lock()
	v.available = v.available.Add(amount)
	v.mu.Unlock()
	return nil
}

func (v *MemoryVolume) Volume(_ context.Context) (model.BankVolume, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return model.BankVolume{
		Available: v.available,
		Initial:   v.initial,
		Currency:  v.currency,
	}, nil
}
