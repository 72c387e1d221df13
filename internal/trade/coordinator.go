/*
Package trade executes buy and sell orders against the oracle and the two ledgers.

# Flow

	buy:  validate -> quote -> execute -> debit volume -> credit depot
	sell: validate -> held check -> execute -> debit depot -> credit volume

The oracle is called before any ledger is touched and no ledger lock is held
while it runs. When the second ledger step fails, the first one is undone and
the error of the second step is returned.
*/
package trade

import (
	"context"
	"time"

	"bank/internal/customer"
	"bank/internal/idempotency"
	"bank/internal/ledger"
	"bank/internal/model"
	"bank/internal/model/enum"
	"bank/internal/obs"
	"bank/internal/risk"
	"bank/pkg/exception"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Gateway is the part of the quote gateway the coordinator needs.
type Gateway interface {
	Quote(ctx context.Context, symbol string) (model.StockQuote, error)
	Execute(ctx context.Context, symbol string, quantity int64, side enum.Side) (decimal.Decimal, error)
}

// Config wires the coordinator. Risk, Idempotency and Metrics are optional.
type Config struct {
	Gateway     Gateway
	Volume      ledger.VolumeLedger
	Depot       ledger.DepotLedger
	Customers   customer.Directory
	Risk        *risk.Engine
	Idempotency idempotency.Store
	Metrics     *obs.Metrics
	Currency    string
}

// Coordinator runs trade orders.
type Coordinator struct {
	gateway   Gateway
	volume    ledger.VolumeLedger
	depot     ledger.DepotLedger
	customers customer.Directory
	risk      *risk.Engine
	idem      idempotency.Store
	metrics   *obs.Metrics
	currency  string
	now       func() time.Time
}

// NewCoordinator validates the wiring. Without an idempotency store an
// in-process one is used.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	switch {
	case cfg.Gateway == nil:
		return nil, errors.Wrap(exception.ErrNilInstance, "gateway")
	case cfg.Volume == nil:
		return nil, errors.Wrap(exception.ErrNilInstance, "volume ledger")
	case cfg.Depot == nil:
		return nil, errors.Wrap(exception.ErrNilInstance, "depot ledger")
	case cfg.Customers == nil:
		return nil, errors.Wrap(exception.ErrNilInstance, "customer directory")
	}
	if cfg.Idempotency == nil {
		cfg.Idempotency = idempotency.NewMemory(0)
	}
	if cfg.Currency == "" {
		cfg.Currency = model.DefaultCurrency
	}
	return &Coordinator{
		gateway:   cfg.Gateway,
		volume:    cfg.Volume,
		depot:     cfg.Depot,
		customers: cfg.Customers,
		risk:      cfg.Risk,
		idem:      cfg.Idempotency,
		metrics:   cfg.Metrics,
		currency:  cfg.Currency,
		now:       time.Now,
	}, nil
}

// Buy buys shares for a customer, paid from the bank volume.
func (c *Coordinator) Buy(ctx context.Context, order model.TradeOrder) (model.ExecutedOrder, error) {
	order.Side = enum.SideBuy
	return c.run(ctx, order, c.buy)
}

// Sell sells shares of a customer, the proceeds go to the bank volume.
func (c *Coordinator) Sell(ctx context.Context, order model.TradeOrder) (model.ExecutedOrder, error) {
	order.Side = enum.SideSell
	return c.run(ctx, order, c.sell)
}

type step func(ctx context.Context, flow *Flow, cus model.Customer, order model.TradeOrder) (model.ExecutedOrder, error)

func (c *Coordinator) run(ctx context.Context, order model.TradeOrder, exec step) (result model.ExecutedOrder, err error) {
	start := c.now()
	defer func() {
		c.metrics.ObserveTrade(order.Side, err, c.now().Sub(start))
	}()

	flow := NewFlow(order.Side, order.Symbol)
	cus, order, err := c.validate(ctx, order)
	if err != nil {
		return model.ExecutedOrder{}, flow.Fail(err)
	}
	if err := flow.Advance(StageValidated); err != nil {
		return model.ExecutedOrder{}, err
	}

	if order.IdempotencyKey == "" {
		result, err = exec(ctx, flow, cus, order)
		return result, c.logOutcome(flow, cus, order, err)
	}

	key, err := idempotency.Key(cus.ID, order.Side.String(), order.IdempotencyKey)
	if err != nil {
		return model.ExecutedOrder{}, flow.Fail(err)
	}
	stored, done, err := c.idem.Claim(ctx, key, idempotency.Fingerprint(order.Symbol, order.Quantity))
	if err != nil {
		return model.ExecutedOrder{}, flow.Fail(err)
	}
	if done {
		c.metrics.IncReplay()
		logs.Infof("trade: replay %s order %s for customer %s, key %s", order.Side, stored.ID, cus.Number, order.IdempotencyKey)
		return stored, nil
	}

	result, err = exec(ctx, flow, cus, order)
	err = c.logOutcome(flow, cus, order, err)

	detached := context.WithoutCancel(ctx)
	if err != nil {
		if relErr := c.idem.Release(detached, key); relErr != nil {
			logs.Errorf("trade: release idempotency key %s, err: %+v", key, relErr)
		}
		return model.ExecutedOrder{}, err
	}
	if compErr := c.idem.Complete(detached, key, result); compErr != nil {
		// the trade is committed, a lost key only allows a second execution on retry
		logs.Errorf("trade: store idempotency result %s for order %s, err: %+v", key, result.ID, compErr)
	}
	return result, nil
}

func (c *Coordinator) validate(ctx context.Context, order model.TradeOrder) (model.Customer, model.TradeOrder, error) {
	order.Symbol = model.NormalizeSymbol(order.Symbol)
	if order.Symbol == "" {
		return model.Customer{}, order, exception.Invalid("symbol must not be blank")
	}
	if err := ledger.ValidateQuantity(order.Quantity); err != nil {
		return model.Customer{}, order, err
	}
	cus, err := c.customers.FindByID(ctx, order.CustomerID)
	if err != nil {
		return model.Customer{}, order, err
	}
	return cus, order, nil
}

func (c *Coordinator) checkRisk(order model.TradeOrder, referencePrice decimal.Decimal) error {
	decision := c.risk.Evaluate(order, referencePrice, c.now().UnixNano())
	if decision.Allowed {
		return nil
	}
	logs.Warnf("trade: %s %d %s denied by risk, reason: %s, version: %d", order.Side, order.Quantity, order.Symbol, decision.Reason, decision.Version)
	return decision.Err()
}

func (c *Coordinator) buy(ctx context.Context, flow *Flow, cus model.Customer, order model.TradeOrder) (model.ExecutedOrder, error) {
	quote, err := c.gateway.Quote(ctx, order.Symbol)
	if err != nil {
		return model.ExecutedOrder{}, flow.Fail(err)
	}
	if model.Notional(quote.Price, order.Quantity, c.currency).IsZero() {
		return model.ExecutedOrder{}, flow.Fail(exception.Invalid("order value of %d %s rounds to zero %s", order.Quantity, order.Symbol, c.currency))
	}
	if err := c.checkRisk(order, quote.Price); err != nil {
		return model.ExecutedOrder{}, flow.Fail(err)
	}

	price, err := c.gateway.Execute(ctx, order.Symbol, order.Quantity, enum.SideBuy)
	if err != nil {
		return model.ExecutedOrder{}, flow.Fail(err)
	}
	if err := flow.Advance(StagePriced); err != nil {
		return model.ExecutedOrder{}, err
	}
	total := model.Notional(price, order.Quantity, c.currency)

	// a total rounding to zero moves shares only
	if !total.IsZero() {
		if err := c.volume.Debit(ctx, total); err != nil {
			return model.ExecutedOrder{}, flow.Fail(err)
		}
	}
	if err := flow.Advance(StageLedgerChecked); err != nil {
		return model.ExecutedOrder{}, err
	}

	if err := c.depot.Credit(ctx, cus.ID, order.Symbol, quote.Name, order.Quantity); err != nil {
		if total.IsZero() {
			return model.ExecutedOrder{}, flow.Fail(err)
		}
		return model.ExecutedOrder{}, flow.Fail(c.compensate(ctx, flow, err, "credit volume "+total.String(), func(ctx context.Context) error {
			return c.volume.Credit(ctx, total)
		}))
	}
	if err := flow.Advance(StageCommitted); err != nil {
		return model.ExecutedOrder{}, err
	}

	return c.executed(cus, order, quote.Name, price, total), nil
}

func (c *Coordinator) sell(ctx context.Context, flow *Flow, cus model.Customer, order model.TradeOrder) (model.ExecutedOrder, error) {
	name, err := c.heldName(ctx, cus.ID, order)
	if err != nil {
		return model.ExecutedOrder{}, flow.Fail(err)
	}
	if err := c.checkRisk(order, decimal.Zero); err != nil {
		return model.ExecutedOrder{}, flow.Fail(err)
	}

	price, err := c.gateway.Execute(ctx, order.Symbol, order.Quantity, enum.SideSell)
	if err != nil {
		return model.ExecutedOrder{}, flow.Fail(err)
	}
	if err := flow.Advance(StagePriced); err != nil {
		return model.ExecutedOrder{}, err
	}
	total := model.Notional(price, order.Quantity, c.currency)

	if err := c.depot.Debit(ctx, cus.ID, order.Symbol, order.Quantity); err != nil {
		return model.ExecutedOrder{}, flow.Fail(err)
	}
	if err := flow.Advance(StageLedgerChecked); err != nil {
		return model.ExecutedOrder{}, err
	}

	if err := c.creditProceeds(ctx, total); err != nil {
		return model.ExecutedOrder{}, flow.Fail(c.compensate(ctx, flow, err, "credit depot "+order.Symbol, func(ctx context.Context) error {
			return c.depot.Credit(ctx, cus.ID, order.Symbol, name, order.Quantity)
		}))
	}
	if err := flow.Advance(StageCommitted); err != nil {
		return model.ExecutedOrder{}, err
	}

	return c.executed(cus, order, name, price, total), nil
}

func (c *Coordinator) creditProceeds(ctx context.Context, total decimal.Decimal) error {
	if total.IsZero() {
		return nil
	}
	return c.volume.Credit(ctx, total)
}

// heldName checks the customer holds enough shares and returns the position name.
func (c *Coordinator) heldName(ctx context.Context, customerID int64, order model.TradeOrder) (string, error) {
	positions, err := c.depot.Snapshot(ctx, customerID)
	if err != nil {
		return "", err
	}
	for _, p := range positions {
		if p.Symbol != order.Symbol {
			continue
		}
		if p.Quantity < order.Quantity {
			return "", ledger.InsufficientHoldings(order.Symbol, p.Quantity, order.Quantity)
		}
		return p.Name, nil
	}
	return "", ledger.InsufficientHoldings(order.Symbol, 0, order.Quantity)
}

// compensate undoes the first ledger step after the second one failed. The undo
// runs even when the request was cancelled. cause is always returned, wrapped
// in a CompensationError when the undo failed too.
func (c *Coordinator) compensate(ctx context.Context, flow *Flow, cause error, action string, undo func(context.Context) error) error {
	logs.Warnf("trade: %s %s failed after execution at stage %s, compensate: %s, err: %+v", flow.Side, flow.Symbol, flow.Stage(), action, cause)

	if err := undo(context.WithoutCancel(ctx)); err != nil {
		c.metrics.IncCompensation(false)
		logs.Errorf("trade: compensation %s for %s %s failed, ledgers need manual reconciliation, cause: %+v, err: %+v", action, flow.Side, flow.Symbol, cause, err)
		return &exception.CompensationError{Cause: cause, UndoErr: err}
	}
	c.metrics.IncCompensation(true)
	return cause
}

func (c *Coordinator) executed(cus model.Customer, order model.TradeOrder, name string, price, total decimal.Decimal) model.ExecutedOrder {
	return model.ExecutedOrder{
		ID:             uuid.New(),
		CustomerID:     cus.ID,
		CustomerNumber: cus.Number,
		Symbol:         order.Symbol,
		Name:           name,
		Side:           order.Side,
		Quantity:       order.Quantity,
		PricePerShare:  price,
		Total:          total,
		Currency:       c.currency,
		ExecutedAt:     c.now().UTC(),
	}
}

func (c *Coordinator) logOutcome(flow *Flow, cus model.Customer, order model.TradeOrder, err error) error {
	if err != nil {
		logs.Warnf("trade: %s %d %s for customer %s failed at stage %s, code: %s, err: %+v",
			order.Side, order.Quantity, order.Symbol, cus.Number, flow.FailedAt(), exception.CodeOf(err), err)
		return err
	}
	logs.Infof("trade: %s %d %s for customer %s committed", order.Side, order.Quantity, order.Symbol, cus.Number)
	return nil
}
