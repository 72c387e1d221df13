package risk

import (
	"testing"
	"time"

	"bank/internal/model"
	"bank/internal/model/enum"
	"bank/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func order(qty int64) model.TradeOrder {
	return orderFor(1, qty)
}

func orderFor(customerID, qty int64) model.TradeOrder {
	return model.TradeOrder{CustomerID: customerID, Symbol: "AAPL", Quantity: qty, Side: enum.SideBuy}
}

func TestEngineAllowsWithoutLimits(t *testing.T) {
	e := NewEngine(Config{})
	d := e.Evaluate(order(1_000_000), decimal.RequireFromString("150"), 0)
	assert.True(t, d.Allowed)
	assert.NoError(t, d.Err())
}

func TestEngineKillSwitch(t *testing.T) {
	e := NewEngine(Config{KillSwitch: true, Version: 3})
	d := e.Evaluate(order(1), decimal.Zero, 0)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonKillSwitch, d.Reason)
	assert.Equal(t, uint16(3), d.Version)

	assert.True(t, errors.Is(d.Err(), exception.ErrTradingHalted))
	assert.False(t, errors.Is(d.Err(), exception.ErrRejected))
	assert.Equal(t, exception.CodeTradingHalted, exception.CodeOf(d.Err()))
	assert.NotContains(t, d.Err().Error(), "oracle")
	assert.Equal(t, "trading is halted, no orders are accepted", exception.PublicMessage(d.Err()))
}

func TestEngineMaxQty(t *testing.T) {
	e := NewEngine(Config{MaxOrderQty: 100})
	assert.True(t, e.Evaluate(order(100), decimal.Zero, 0).Allowed)

	d := e.Evaluate(order(101), decimal.Zero, 0)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonMaxQty, d.Reason)
	assert.True(t, errors.Is(d.Err(), exception.ErrInvalidArgument))
	assert.Equal(t, "quantity exceeds the limit of 100 shares per order", exception.PublicMessage(d.Err()))
}

func TestEngineMaxNotional(t *testing.T) {
	e := NewEngine(Config{MaxOrderNotional: decimal.RequireFromString("1500")})
	price := decimal.RequireFromString("150")

	assert.True(t, e.Evaluate(order(10), price, 0).Allowed)
	assert.True(t, e.Evaluate(order(11), decimal.Zero, 0).Allowed)

	d := e.Evaluate(order(11), price, 0)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonMaxNotional, d.Reason)
}

func TestEngineRateLimit(t *testing.T) {
	e := NewEngine(Config{OrderRateLimit: 2, OrderRateWindow: time.Second})
	base := time.Now().UnixNano()

	assert.True(t, e.Evaluate(order(1), decimal.Zero, base).Allowed)
	assert.True(t, e.Evaluate(order(1), decimal.Zero, base+1).Allowed)
	d := e.Evaluate(order(1), decimal.Zero, base+2)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonRateLimit, d.Reason)
	assert.True(t, errors.Is(d.Err(), exception.ErrRateLimited))
	assert.Equal(t, exception.CodeRateLimited, exception.CodeOf(d.Err()))
	assert.Equal(t, "more than 2 orders per 1s, please retry later", exception.PublicMessage(d.Err()))

	assert.True(t, e.Evaluate(order(1), decimal.Zero, base+int64(time.Second)).Allowed)
}

func TestEngineRateLimitIsPerCustomer(t *testing.T) {
	e := NewEngine(Config{OrderRateLimit: 2, OrderRateWindow: time.Minute})
	base := time.Now().UnixNano()

	assert.True(t, e.Evaluate(orderFor(1, 1), decimal.Zero, base).Allowed)
	assert.True(t, e.Evaluate(orderFor(1, 1), decimal.Zero, base+1).Allowed)
	assert.False(t, e.Evaluate(orderFor(1, 1), decimal.Zero, base+2).Allowed)

	d := e.Evaluate(orderFor(2, 1), decimal.Zero, base+3)
	assert.True(t, d.Allowed)
	assert.NoError(t, d.Err())
	assert.True(t, e.Evaluate(orderFor(2, 1), decimal.Zero, base+4).Allowed)
	assert.False(t, e.Evaluate(orderFor(2, 1), decimal.Zero, base+5).Allowed)
}

func TestEngineDeniedOrdersDoNotUseRateBudget(t *testing.T) {
	e := NewEngine(Config{OrderRateLimit: 1, OrderRateWindow: time.Minute, MaxOrderQty: 10})
	base := time.Now().UnixNano()

	for i := range 5 {
		d := e.Evaluate(order(11), decimal.Zero, base+int64(i))
		require.False(t, d.Allowed)
		assert.Equal(t, ReasonMaxQty, d.Reason)
	}
	assert.True(t, e.Evaluate(order(10), decimal.Zero, base+10).Allowed)
	assert.Equal(t, ReasonRateLimit, e.Evaluate(order(10), decimal.Zero, base+11).Reason)
}

func TestEngineEvictsExpiredWindows(t *testing.T) {
	e := NewEngine(Config{OrderRateLimit: 5, OrderRateWindow: time.Second})
	base := time.Now().UnixNano()

	for id := range int64(10) {
		require.True(t, e.Evaluate(orderFor(id, 1), decimal.Zero, base).Allowed)
	}
	assert.Equal(t, 10, e.Tracked())

	require.True(t, e.Evaluate(orderFor(99, 1), decimal.Zero, base+int64(2*time.Second)).Allowed)
	assert.Equal(t, 1, e.Tracked())

	e.Update(Config{OrderRateLimit: 1, OrderRateWindow: time.Second})
	assert.Equal(t, 0, e.Tracked())
}

func TestEngineUpdate(t *testing.T) {
	e := NewEngine(Config{KillSwitch: true})
	assert.False(t, e.Evaluate(order(1), decimal.Zero, 0).Allowed)

	e.Update(Config{Version: 2})
	assert.True(t, e.Evaluate(order(1), decimal.Zero, 0).Allowed)
	assert.Equal(t, uint16(2), e.Config().Version)
}

func TestNilEngineAllows(t *testing.T) {
	var e *Engine
	assert.True(t, e.Evaluate(order(1), decimal.Zero, 0).Allowed)
}
