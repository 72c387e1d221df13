package oracle

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"bank/internal/model"
	"bank/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

// Listing is one tradable stock of the paper oracle.
type Listing struct {
	Symbol string
	Name   string
	Price  decimal.Decimal
}

// DefaultListings is the price table used by `serve -paper`.
func DefaultListings() []Listing {
	return []Listing{
		{Symbol: "AAPL", Name: "Apple Inc.", Price: decimal.RequireFromString("150.00")},
		{Symbol: "MSFT", Name: "Microsoft Corporation", Price: decimal.RequireFromString("410.25")},
		{Symbol: "GOOGL", Name: "Alphabet Inc.", Price: decimal.RequireFromString("172.80")},
		{Symbol: "AMZN", Name: "Amazon.com, Inc.", Price: decimal.RequireFromString("185.10")},
	}
}

var _ Oracle = (*Paper)(nil)

// Paper simulates the trading service with an in-memory price table.
type Paper struct {
	mu       sync.RWMutex
	listings map[string]Listing
	halted   map[string]string

	authFailure atomic.Bool
	unavailable atomic.Bool
	executions  atomic.Int64
}

// NewPaper creates a paper oracle trading the given listings.
func NewPaper(listings ...Listing) *Paper {
	p := &Paper{
		listings: make(map[string]Listing, len(listings)),
		halted:   make(map[string]string),
	}
	for _, l := range listings {
		p.SetListing(l)
	}
	return p
}

// SetListing adds or replaces a listing.
func (p *Paper) SetListing(l Listing) {
	l.Symbol = model.NormalizeSymbol(l.Symbol)
	p.mu.Lock()
	p.listings[l.Symbol] = l
	p.mu.Unlock()
}

// Delist removes a listing. Held positions in it no longer get a quote.
func (p *Paper) Delist(symbol string) {
	p.mu.Lock()
	delete(p.listings, model.NormalizeSymbol(symbol))
	p.mu.Unlock()
}

// SetPrice updates the price of an existing listing or creates a bare one.
func (p *Paper) SetPrice(symbol string, price decimal.Decimal) {
	symbol = model.NormalizeSymbol(symbol)
	p.mu.Lock()
	l, ok := p.listings[symbol]
	if !ok {
		l = Listing{Symbol: symbol}
	}
	l.Price = price
	p.listings[symbol] = l
	p.mu.Unlock()
}

// Halt makes executions of symbol fail with a business fault.
func (p *Paper) Halt(symbol, reason string) {
	p.mu.Lock()
	p.halted[model.NormalizeSymbol(symbol)] = reason
	p.mu.Unlock()
}

// Resume lifts a halt.
func (p *Paper) Resume(symbol string) {
	p.mu.Lock()
	delete(p.halted, model.NormalizeSymbol(symbol))
	p.mu.Unlock()
}

// SetAuthFailure makes every call fail as if the bank's credentials were rejected.
func (p *Paper) SetAuthFailure(fail bool) {
	p.authFailure.Store(fail)
}

// SetUnavailable makes every call fail as if the service could not be reached.
func (p *Paper) SetUnavailable(fail bool) {
	p.unavailable.Store(fail)
}

// Executions returns how many buys and sells were executed.
func (p *Paper) Executions() int64 {
	return p.executions.Load()
}

func (p *Paper) check() error {
	if p.authFailure.Load() {
		return errors.Wrap(exception.ErrAuthFailure, "paper oracle: credentials rejected")
	}
	if p.unavailable.Load() {
		return errors.Wrap(exception.ErrUnavailable, "paper oracle: unreachable")
	}
	return nil
}

func (p *Paper) Quotes(_ context.Context, symbols []string) ([]Quote, error) {
	if err := p.check(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	quotes := make([]Quote, 0, len(symbols))
	for _, sym := range symbols {
		if l, ok := p.listings[model.NormalizeSymbol(sym)]; ok {
			quotes = append(quotes, l.quote())
		}
	}
	return quotes, nil
}

func (p *Paper) FindByName(_ context.Context, term string) ([]Quote, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(term))

	p.mu.RLock()
	quotes := make([]Quote, 0, len(p.listings))
	for _, l := range p.listings {
		if strings.Contains(strings.ToLower(l.Name), needle) || strings.Contains(strings.ToLower(l.Symbol), needle) {
			quotes = append(quotes, l.quote())
		}
	}
	p.mu.RUnlock()

	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].Symbol < quotes[j].Symbol
	})
	return quotes, nil
}

func (p *Paper) Buy(_ context.Context, symbol string, quantity int64) (decimal.Decimal, error) {
	return p.execute(symbol, quantity)
}

func (p *Paper) Sell(_ context.Context, symbol string, quantity int64) (decimal.Decimal, error) {
	return p.execute(symbol, quantity)
}

func (p *Paper) execute(symbol string, quantity int64) (decimal.Decimal, error) {
	if err := p.check(); err != nil {
		return decimal.Zero, err
	}
	if quantity <= 0 {
		return decimal.Zero, exception.Rejected("quantity must be positive")
	}
	symbol = model.NormalizeSymbol(symbol)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if reason, ok := p.halted[symbol]; ok {
		return decimal.Zero, exception.Rejected(reason)
	}
	l, ok := p.listings[symbol]
	if !ok {
		return decimal.Zero, exception.Rejected("unknown symbol " + symbol)
	}
	p.executions.Add(1)
	return l.Price, nil
}

func (l Listing) quote() Quote {
	return Quote{
		Symbol:         l.Symbol,
		CompanyName:    l.Name,
		LastTradePrice: decimal.NewNullDecimal(l.Price),
	}
}
