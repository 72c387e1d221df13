package ledger

import (
	"context"
	"sort"
	"sync"

	"bank/internal/model"
)

var _ DepotLedger = (*MemoryDepot)(nil)

// MemoryDepot keeps holdings in process memory. Each customer has its own book
// and lock, so customers never contend with each other.
type MemoryDepot struct {
	mu    sync.RWMutex
	books map[int64]*depotBook
}

type depotBook struct {
	mu        sync.Mutex
	positions map[string]*model.DepotPosition
}

// NewMemoryDepot creates an empty depot ledger.
func NewMemoryDepot() *MemoryDepot {
	return &MemoryDepot{books: make(map[int64]*depotBook)}
}

func (d *MemoryDepot) book(customerID int64, create bool) *depotBook {
	d.mu.RLock()
	b, ok := d.books[customerID]
	d.mu.RUnlock()
	if ok || !create {
		return b
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok = d.books[customerID]; ok {
		return b
	}
	b = &depotBook{positions: make(map[string]*model.DepotPosition)}
	d.books[customerID] = b
	return b
}

func (d *MemoryDepot) Credit(_ context.Context, customerID int64, symbol, name string, quantity int64) error {
	if err := ValidateQuantity(quantity); err != nil {
		return err
	}
	symbol = model.NormalizeSymbol(symbol)

	b := d.book(customerID, true)
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.positions[symbol]; ok {
		p.Quantity += quantity
		return nil
	}
	if name == "" {
		name = symbol
	}
	b.positions[symbol] = &model.DepotPosition{
		CustomerID: customerID,
		Symbol:     symbol,
		Name:       name,
		Quantity:   quantity,
	}
	return nil
}

func (d *MemoryDepot) Debit(_ context.Context, customerID int64, symbol string, quantity int64) error {
	if err := ValidateQuantity(quantity); err != nil {
		return err
	}
	symbol = model.NormalizeSymbol(symbol)

	b := d.book(customerID, false)
	if b == nil {
		return InsufficientHoldings(symbol, 0, quantity)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.positions[symbol]
	if !ok || p.Quantity < quantity {
		var held int64
		if ok {
			held = p.Quantity
		}
		return InsufficientHoldings(symbol, held, quantity)
	}
	p.Quantity -= quantity
	if p.Quantity == 0 {
		delete(b.positions, symbol)
	}
	return nil
}

func (d *MemoryDepot) Held(_ context.Context, customerID int64, symbol string) (int64, error) {
	b := d.book(customerID, false)
	if b == nil {
		return 0, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.positions[model.NormalizeSymbol(symbol)]; ok {
		return p.Quantity, nil
	}
	return 0, nil
}

func (d *MemoryDepot) Snapshot(_ context.Context, customerID int64) ([]model.DepotPosition, error) {
	b := d.book(customerID, false)
	if b == nil {
		return []model.DepotPosition{}, nil
	}
	b.mu.Lock()
	entries := make([]model.DepotPosition, 0, len(b.positions))
	for _, p := range b.positions {
		entries = append(entries, *p)
	}
	b.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Symbol < entries[j].Symbol
	})
	return entries, nil
}
