package quote

import (
	"context"
	"testing"

	"bank/internal/model/enum"
	"bank/internal/obs"
	"bank/internal/quote/oracle"
	"bank/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

type stubOracle struct {
	oracle.Oracle
	err   error
	price decimal.Decimal
}

func (s stubOracle) Quotes(context.Context, []string) ([]oracle.Quote, error) {
	return nil, s.err
}

func (s stubOracle) FindByName(context.Context, string) ([]oracle.Quote, error) {
	return nil, s.err
}

func (s stubOracle) Buy(context.Context, string, int64) (decimal.Decimal, error) {
	return s.price, s.err
}

func newPaperGateway(t *testing.T) (*Gateway, *oracle.Paper, *obs.Metrics) {
	t.Helper()
	paper := oracle.NewPaper(oracle.DefaultListings()...)
	metrics := obs.NewMetrics()
	return NewGateway(paper, Config{}, metrics), paper, metrics
}

func TestGatewayQuote(t *testing.T) {
	ctx := t.Context()
	g, _, metrics := newPaperGateway(t)

	q, err := g.Quote(ctx, " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "Apple Inc.", q.Name)
	assert.Equal(t, "150", q.Price.String())
	assert.Equal(t, "USD", q.Currency)
	assert.Equal(t, uint64(1), metrics.Snapshot().OracleLatency.Count)

	_, err = g.Quote(ctx, "NOPE")
	assert.True(t, errors.Is(err, exception.ErrNotFound))

	_, err = g.Quote(ctx, "  ")
	assert.True(t, errors.Is(err, exception.ErrInvalidArgument))
}

func TestGatewayQuotesBatch(t *testing.T) {
	g, _, _ := newPaperGateway(t)

	quotes, err := g.Quotes(t.Context(), []string{"msft", "AAPL", "UNKNOWN"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "MSFT", quotes[0].Symbol)
	assert.Equal(t, "AAPL", quotes[1].Symbol)

	quotes, err = g.Quotes(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestGatewaySearchLive(t *testing.T) {
	ctx := t.Context()
	g, _, _ := newPaperGateway(t)

	res, err := g.Search(ctx, "  micro ")
	require.NoError(t, err)
	assert.False(t, res.IsDegraded())
	require.Len(t, res.Quotes, 1)
	assert.Equal(t, "MSFT", res.Quotes[0].Symbol)

	res, err = g.Search(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, enum.QuoteSourceLive, res.Source)
	assert.Len(t, res.Quotes, 4)
}

func TestGatewaySearchDegradedOnAuthFailure(t *testing.T) {
	ctx := t.Context()
	g, paper, metrics := newPaperGateway(t)
	paper.SetAuthFailure(true)

	res, err := g.Search(ctx, "goo")
	require.NoError(t, err)
	assert.True(t, res.IsDegraded())
	require.Len(t, res.Quotes, 1)
	assert.Equal(t, "GOOGL", res.Quotes[0].Symbol)
	assert.Equal(t, "GOOGL", res.Quotes[0].Name)
	assert.True(t, res.Quotes[0].Price.IsZero())

	res, err = g.Search(ctx, "")
	require.NoError(t, err)
	assert.True(t, res.IsDegraded())
	assert.Len(t, res.Quotes, 4)
	assert.Equal(t, uint64(2), metrics.Snapshot().DegradedSearches)
}

func TestGatewaySearchUnavailablePropagates(t *testing.T) {
	g, paper, _ := newPaperGateway(t)
	paper.SetUnavailable(true)

	_, err := g.Search(t.Context(), "apple")
	assert.True(t, errors.Is(err, exception.ErrUnavailable))
}

func TestGatewaySearchRejectedIsEmpty(t *testing.T) {
	g := NewGateway(stubOracle{err: exception.Rejected("term too short")}, Config{}, nil)

	res, err := g.Search(t.Context(), "a")
	require.NoError(t, err)
	assert.False(t, res.IsDegraded())
	assert.Empty(t, res.Quotes)
}

func TestGatewaySearchClassifiesForeignErrors(t *testing.T) {
	foreign := errors.Wrap(errors.New("upstream said 401 unauthorized"), "soap call")
	g := NewGateway(stubOracle{err: foreign}, Config{DefaultSymbols: []string{"ibm", "sap"}}, nil)

	res, err := g.Search(t.Context(), "")
	require.NoError(t, err)
	assert.True(t, res.IsDegraded())
	require.Len(t, res.Quotes, 2)
	assert.Equal(t, "IBM", res.Quotes[0].Symbol)
}

func TestGatewayExecute(t *testing.T) {
	ctx := t.Context()
	g, paper, _ := newPaperGateway(t)

	price, err := g.Execute(ctx, "aapl", 10, enum.SideBuy)
	require.NoError(t, err)
	assert.Equal(t, "150", price.String())

	paper.Halt("AAPL", "trading halted")
	_, err = g.Execute(ctx, "AAPL", 10, enum.SideSell)
	var rejected *exception.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "trading halted", rejected.Reason)

	paper.SetAuthFailure(true)
	_, err = g.Execute(ctx, "MSFT", 1, enum.SideBuy)
	assert.True(t, errors.Is(err, exception.ErrAuthFailure))

	_, err = g.Execute(ctx, "MSFT", 1, enum.Side(0))
	assert.True(t, errors.Is(err, exception.ErrInvalidArgument))
}

func TestGatewayExecuteRejectsNonPositivePrice(t *testing.T) {
	g := NewGateway(stubOracle{price: decimal.Zero}, Config{}, nil)

	_, err := g.Execute(t.Context(), "AAPL", 1, enum.SideBuy)
	assert.True(t, errors.Is(err, exception.ErrUnavailable))
}
