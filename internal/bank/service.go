package bank

import (
	"context"

	"bank/internal/customer"
	"bank/internal/ledger"
	"bank/internal/model"
	"bank/internal/obs"
	"bank/internal/trade"
	"bank/pkg/exception"

	"github.com/shopspring/decimal"
)

// Quotes is the part of the quote gateway the service reads from.
type Quotes interface {
	Quotes(ctx context.Context, symbols []string) ([]model.StockQuote, error)
	Search(ctx context.Context, term string) (model.SearchResult, error)
}

// Service exposes the operations of the bank to the outer surfaces.
type Service struct {
	coordinator *trade.Coordinator
	quotes      Quotes
	volume      ledger.VolumeLedger
	depot       ledger.DepotLedger
	customers   customer.Directory
	metrics     *obs.Metrics
	currency    string
}

// NewService builds the facade. metrics may be nil.
func NewService(coordinator *trade.Coordinator, quotes Quotes, volume ledger.VolumeLedger, depot ledger.DepotLedger, customers customer.Directory, metrics *obs.Metrics, currency string) *Service {
	if currency == "" {
		currency = model.DefaultCurrency
	}
	return &Service{
		coordinator: coordinator,
		quotes:      quotes,
		volume:      volume,
		depot:       depot,
		customers:   customers,
		metrics:     metrics,
		currency:    currency,
	}
}

// Buy buys quantity shares of symbol for the customer with the given number.
func (s *Service) Buy(ctx context.Context, customerNumber, symbol string, quantity int64, idempotencyKey string) (model.ExecutedOrder, error) {
	cus, err := s.customers.FindByNumber(ctx, customerNumber)
	if err != nil {
		return model.ExecutedOrder{}, err
	}
	return s.coordinator.Buy(ctx, model.TradeOrder{
		CustomerID:     cus.ID,
		Symbol:         symbol,
		Quantity:       quantity,
		IdempotencyKey: idempotencyKey,
	})
}

// Sell sells quantity shares of symbol from the depot of the customer with the given number.
func (s *Service) Sell(ctx context.Context, customerNumber, symbol string, quantity int64, idempotencyKey string) (model.ExecutedOrder, error) {
	cus, err := s.customers.FindByNumber(ctx, customerNumber)
	if err != nil {
		return model.ExecutedOrder{}, err
	}
	return s.coordinator.Sell(ctx, model.TradeOrder{
		CustomerID:     cus.ID,
		Symbol:         symbol,
		Quantity:       quantity,
		IdempotencyKey: idempotencyKey,
	})
}

// GetDepot values every position of a customer at the current price.
// Positions without a current quote are listed at a price of zero.
func (s *Service) GetDepot(ctx context.Context, customerNumber string) (model.Depot, error) {
	cus, err := s.customers.FindByNumber(ctx, customerNumber)
	if err != nil {
		return model.Depot{}, err
	}

	positions, err := s.depot.Snapshot(ctx, cus.ID)
	if err != nil {
		return model.Depot{}, err
	}

	depot := model.Depot{
		CustomerID:     cus.ID,
		CustomerNumber: cus.Number,
		Positions:      make([]model.DepotLine, 0, len(positions)),
		Total:          decimal.Zero,
		Currency:       s.currency,
	}
	if len(positions) == 0 {
		return depot, nil
	}

	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}
	quotes, err := s.quotes.Quotes(ctx, symbols)
	if err != nil {
		return model.Depot{}, err
	}
	prices := make(map[string]decimal.Decimal, len(quotes))
	for _, q := range quotes {
		prices[q.Symbol] = q.Price
	}

	for _, p := range positions {
		// a symbol the oracle no longer quotes is valued at zero
		price, ok := prices[p.Symbol]
		if !ok {
			price = decimal.Zero
		}
		line := model.DepotLine{
			Symbol:       p.Symbol,
			Name:         p.Name,
			Quantity:     p.Quantity,
			CurrentPrice: price,
			LineTotal:    model.Notional(price, p.Quantity, s.currency),
		}
		depot.Positions = append(depot.Positions, line)
		depot.Total = depot.Total.Add(line.LineTotal)
	}
	return depot, nil
}

// ListCustomers returns every customer of the bank.
func (s *Service) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	return s.customers.List(ctx)
}

// SearchCustomers finds customers whose full name contains name.
func (s *Service) SearchCustomers(ctx context.Context, name string) ([]model.Customer, error) {
	return s.customers.SearchByName(ctx, name)
}

func (s *Service) GetCustomer(ctx context.Context, number string) (model.Customer, error) {
	return s.customers.FindByNumber(ctx, number)
}

func (s *Service) CreateCustomer(ctx context.Context, c model.Customer) (model.Customer, error) {
	return s.customers.Create(ctx, c)
}

func (s *Service) UpdateCustomer(ctx context.Context, c model.Customer) (model.Customer, error) {
	return s.customers.Update(ctx, c)
}

// DeleteCustomer removes a customer whose depot is empty.
func (s *Service) DeleteCustomer(ctx context.Context, number string) error {
	cus, err := s.customers.FindByNumber(ctx, number)
	if err != nil {
		return err
	}
	positions, err := s.depot.Snapshot(ctx, cus.ID)
	if err != nil {
		return err
	}
	if len(positions) > 0 {
		return exception.Public(exception.ErrConflict, "customer %s still holds %d positions, sell them first", cus.Number, len(positions))
	}
	return s.customers.Delete(ctx, cus.Number)
}

// SearchStocks finds stocks by company name.
func (s *Service) SearchStocks(ctx context.Context, term string) (model.SearchResult, error) {
	return s.quotes.Search(ctx, term)
}

// GetBankVolume returns the current bank volume.
func (s *Service) GetBankVolume(ctx context.Context) (model.BankVolume, error) {
	return s.volume.Volume(ctx)
}

// Metrics returns the counters of the engine.
func (s *Service) Metrics() obs.Snapshot {
	return s.metrics.Snapshot()
}
