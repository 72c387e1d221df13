package ledger

import (
	"sync"
	"testing"

	"bank/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func TestMemoryDepotCreditAndDebit(t *testing.T) {
	d := NewMemoryDepot()
	ctx := t.Context()

	require.NoError(t, d.Credit(ctx, 1, "aapl", "Apple Inc.", 10))
	require.NoError(t, d.Credit(ctx, 1, "AAPL", "ignored on existing position", 5))

	held, err := d.Held(ctx, 1, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(15), held)

	require.NoError(t, d.Debit(ctx, 1, "AAPL", 5))
	positions, err := d.Snapshot(ctx, 1)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "AAPL", positions[0].Symbol)
	assert.Equal(t, "Apple Inc.", positions[0].Name)
	assert.Equal(t, int64(10), positions[0].Quantity)
}

func TestMemoryDepotRemovesZeroPositions(t *testing.T) {
	d := NewMemoryDepot()
	ctx := t.Context()

	require.NoError(t, d.Credit(ctx, 1, "AAPL", "Apple Inc.", 10))
	require.NoError(t, d.Debit(ctx, 1, "AAPL", 10))

	positions, err := d.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, positions)

	held, err := d.Held(ctx, 1, "AAPL")
	require.NoError(t, err)
	assert.Zero(t, held)
}

func TestMemoryDepotInsufficientHoldings(t *testing.T) {
	d := NewMemoryDepot()
	ctx := t.Context()

	err := d.Debit(ctx, 7, "AAPL", 1)
	assert.True(t, errors.Is(err, exception.ErrInsufficientHoldings), "unknown customer: %+v", err)

	require.NoError(t, d.Credit(ctx, 7, "AAPL", "Apple Inc.", 10))
	err = d.Debit(ctx, 7, "AAPL", 15)
	assert.True(t, errors.Is(err, exception.ErrInsufficientHoldings))

	held, _ := d.Held(ctx, 7, "AAPL")
	assert.Equal(t, int64(10), held)
}

func TestMemoryDepotValidatesQuantity(t *testing.T) {
	d := NewMemoryDepot()
	assert.True(t, errors.Is(d.Credit(t.Context(), 1, "AAPL", "", 0), exception.ErrInvalidArgument))
	assert.True(t, errors.Is(d.Debit(t.Context(), 1, "AAPL", -1), exception.ErrInvalidArgument))
}

func TestMemoryDepotSnapshotSorted(t *testing.T) {
	d := NewMemoryDepot()
	ctx := t.Context()
	for _, sym := range []string{"MSFT", "AAPL", "GOOGL"} {
		require.NoError(t, d.Credit(ctx, 3, sym, "", 1))
	}
	require.NoError(t, d.Credit(ctx, 4, "AMZN", "", 1))

	positions, err := d.Snapshot(ctx, 3)
	require.NoError(t, err)
	require.Len(t, positions, 3)
	assert.Equal(t, []string{"AAPL", "GOOGL", "MSFT"}, []string{positions[0].Symbol, positions[1].Symbol, positions[2].Symbol})
	assert.Equal(t, "MSFT", positions[2].Name, "name falls back to symbol")
}

func TestMemoryDepotConcurrentDebits(t *testing.T) {
	d := NewMemoryDepot()
	ctx := t.Context()
	require.NoError(t, d.Credit(ctx, 1, "AAPL", "Apple Inc.", 100))

	var wg sync.WaitGroup
	for range 120 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Debit(ctx, 1, "AAPL", 1)
		}()
	}
	wg.Wait()

	held, err := d.Held(ctx, 1, "AAPL")
	require.NoError(t, err)
	assert.Zero(t, held)
	positions, _ := d.Snapshot(ctx, 1)
	assert.Empty(t, positions)
}

func TestKeyedMutex(t *testing.T) {
	var k KeyedMutex
	counter := 0

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("1/AAPL")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Zero(t, k.Len())
}
