package quote

import (
	"context"
	"strings"
	"time"

	"bank/internal/model"
	"bank/internal/model/enum"
	"bank/internal/obs"
	"bank/internal/quote/oracle"
	"bank/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// DefaultSymbols are searched when no term is given and back the degraded search.
var DefaultSymbols = []string{"AAPL", "MSFT", "GOOGL", "AMZN"}

// Config configures the quote gateway.
type Config struct {
	DefaultSymbols []string
	Currency       string
}

// Gateway is the single entry point of the core into the trading service.
type Gateway struct {
	oracle  oracle.Oracle
	cfg     Config
	metrics *obs.Metrics
}

// NewGateway wraps an oracle. Metrics may be nil.
func NewGateway(o oracle.Oracle, cfg Config, metrics *obs.Metrics) *Gateway {
	if len(cfg.DefaultSymbols) == 0 {
		cfg.DefaultSymbols = DefaultSymbols
	}
	symbols := make([]string, 0, len(cfg.DefaultSymbols))
	for _, s := range cfg.DefaultSymbols {
		if s = model.NormalizeSymbol(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	cfg.DefaultSymbols = symbols
	if cfg.Currency == "" {
		cfg.Currency = model.DefaultCurrency
	}
	return &Gateway{oracle: o, cfg: cfg, metrics: metrics}
}

// Quote returns the current quote of one symbol.
func (g *Gateway) Quote(ctx context.Context, symbol string) (model.StockQuote, error) {
	symbol = model.NormalizeSymbol(symbol)
	if symbol == "" {
		return model.StockQuote{}, exception.Invalid("symbol must not be blank")
	}

	quotes, err := g.Quotes(ctx, []string{symbol})
	if err != nil {
		return model.StockQuote{}, err
	}
	for _, q := range quotes {
		if q.Symbol == symbol {
			return q, nil
		}
	}
	return model.StockQuote{}, exception.NotFound("no quote for symbol %s", symbol)
}

// Quotes returns current quotes of the given symbols in one round trip.
// Symbols the oracle does not know are absent from the result.
func (g *Gateway) Quotes(ctx context.Context, symbols []string) ([]model.StockQuote, error) {
	if len(symbols) == 0 {
		return []model.StockQuote{}, nil
	}

	normalized := make([]string, 0, len(symbols))
	for _, s := range symbols {
		normalized = append(normalized, model.NormalizeSymbol(s))
	}

	start := time.Now()
	raw, err := g.oracle.Quotes(ctx, normalized)
	g.metrics.ObserveOracle(time.Since(start))
	if err != nil {
		return nil, g.classify(err, "quotes")
	}
	return g.convert(raw), nil
}

// Search finds stocks by company name. An empty term lists the default symbols.
// When the oracle refuses the bank's credentials, a degraded result built from the
// default symbols is returned instead of an error.
func (g *Gateway) Search(ctx context.Context, term string) (model.SearchResult, error) {
	term = strings.TrimSpace(term)

	var (
		raw []oracle.Quote
		err error
	)
	start := time.Now()
	if term == "" {
		raw, err = g.oracle.Quotes(ctx, g.cfg.DefaultSymbols)
	} else {
		raw, err = g.oracle.FindByName(ctx, term)
	}
	g.metrics.ObserveOracle(time.Since(start))

	if err != nil {
		err = g.classify(err, "search")
		switch {
		case errors.Is(err, exception.ErrAuthFailure):
			logs.Warnf("quote gateway: search %q degraded, err: %+v", term, err)
			g.metrics.IncDegradedSearch()
			return g.degraded(term), nil
		case errors.Is(err, exception.ErrRejected), errors.Is(err, exception.ErrNotFound):
			return model.SearchResult{Quotes: []model.StockQuote{}, Source: enum.QuoteSourceLive}, nil
		default:
			return model.SearchResult{}, err
		}
	}

	return model.SearchResult{Quotes: g.convert(raw), Source: enum.QuoteSourceLive}, nil
}

// Execute places a market order and returns the executed price per share.
func (g *Gateway) Execute(ctx context.Context, symbol string, quantity int64, side enum.Side) (decimal.Decimal, error) {
	symbol = model.NormalizeSymbol(symbol)

	var (
		price decimal.Decimal
		err   error
	)
	start := time.Now()
	switch side {
	case enum.SideBuy:
		price, err = g.oracle.Buy(ctx, symbol, quantity)
	case enum.SideSell:
		price, err = g.oracle.Sell(ctx, symbol, quantity)
	default:
		return decimal.Zero, exception.Invalid("unsupported side %d", side)
	}
	g.metrics.ObserveOracle(time.Since(start))

	if err != nil {
		return decimal.Zero, g.classify(err, "execute "+side.String())
	}
	if !price.IsPositive() {
		return decimal.Zero, errors.Wrapf(exception.ErrUnavailable, "oracle returned price %s for %s", price.String(), symbol)
	}
	return price, nil
}

func (g *Gateway) classify(err error, op string) error {
	err = oracle.Classify(err)
	if errors.Is(err, exception.ErrAuthFailure) {
		logs.Errorf("quote gateway: %s, oracle refused the bank's credentials, err: %+v", op, err)
	}
	return err
}

func (g *Gateway) degraded(term string) model.SearchResult {
	needle := strings.ToLower(term)
	quotes := make([]model.StockQuote, 0, len(g.cfg.DefaultSymbols))
	for _, s := range g.cfg.DefaultSymbols {
		if needle != "" && !strings.Contains(strings.ToLower(s), needle) {
			continue
		}
		quotes = append(quotes, model.StockQuote{
			Symbol:   s,
			Name:     s,
			Price:    decimal.Zero,
			Currency: g.cfg.Currency,
		})
	}
	return model.SearchResult{Quotes: quotes, Source: enum.QuoteSourceDegraded}
}

func (g *Gateway) convert(raw []oracle.Quote) []model.StockQuote {
	quotes := make([]model.StockQuote, 0, len(raw))
	for _, q := range raw {
		symbol := model.NormalizeSymbol(q.Symbol)
		if symbol == "" {
			continue
		}
		name := strings.TrimSpace(q.CompanyName)
		if name == "" {
			name = symbol
		}
		price := decimal.Zero
		if q.LastTradePrice.Valid {
			price = q.LastTradePrice.Decimal
		}
		quotes = append(quotes, model.StockQuote{
			Symbol:   symbol,
			Name:     name,
			Price:    price,
			Currency: g.cfg.Currency,
		})
	}
	return quotes
}
