package repository

import (
	"context"
	"strconv"

	"bank/internal/ledger"
	"bank/internal/model"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ ledger.DepotLedger = (*DepotLedger)(nil)

// DepotLedger keeps customer holdings in depot_position, one row per
// (customer, symbol). Rows reaching zero are deleted.
type DepotLedger struct {
	db   *gorm.DB
	keys ledger.KeyedMutex
}

func NewDepotLedger(db *gorm.DB) *DepotLedger {
	return &DepotLedger{db: db}
}

func positionKey(customerID int64, symbol string) string {
	return strconv.FormatInt(customerID, 10) + "/" + symbol
}

func (l *DepotLedger) Credit(ctx context.Context, customerID int64, symbol, name string, quantity int64) error {
	if err := ledger.ValidateQuantity(quantity); err != nil {
		return err
	}
	symbol = model.NormalizeSymbol(symbol)
	if name == "" {
		name = symbol
	}

	unlock := l.keys.Lock(positionKey(customerID, symbol))
	defer unlock()

	row := depotPositionRow{CustomerID: customerID, Symbol: symbol, Name: name, Quantity: quantity}
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "customer_id"}, {Name: "symbol"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("depot_position.quantity + excluded.quantity"),
			"updated_at": gorm.Expr("now()"),
		}),
	}).Create(&row).Error
	if err != nil {
		return errors.Wrap(err, "upsert depot position "+symbol).With("customer", customerID)
	}
	return nil
}

func (l *DepotLedger) Debit(ctx context.Context, customerID int64, symbol string, quantity int64) error {
	if err := ledger.ValidateQuantity(quantity); err != nil {
		return err
	}
	symbol = model.NormalizeSymbol(symbol)

	unlock := l.keys.Lock(positionKey(customerID, symbol))
	defer unlock()

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row depotPositionRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("customer_id = ? AND symbol = ?", customerID, symbol).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.InsufficientHoldings(symbol, 0, quantity)
		}
		if err != nil {
			return errors.Wrap(err, "lock depot position")
		}
		if row.Quantity < quantity {
			return ledger.InsufficientHoldings(symbol, row.Quantity, quantity)
		}

		if row.Quantity == quantity {
			if err := tx.Delete(&depotPositionRow{}, row.ID).Error; err != nil {
				return errors.Wrap(err, "delete depot position")
			}
			return nil
		}
		if err := tx.Model(&row).Update("quantity", row.Quantity-quantity).Error; err != nil {
			return errors.Wrap(err, "update depot position")
		}
		return nil
	})
}

func (l *DepotLedger) Held(ctx context.Context, customerID int64, symbol string) (int64, error) {
	var rows []depotPositionRow
	err := l.db.WithContext(ctx).
		Where("customer_id = ? AND symbol = ?", customerID, model.NormalizeSymbol(symbol)).
		Limit(1).Find(&rows).Error
	if err != nil {
		return 0, errors.Wrap(err, "load depot position")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Quantity, nil
}

func (l *DepotLedger) Snapshot(ctx context.Context, customerID int64) ([]model.DepotPosition, error) {
	var rows []depotPositionRow
	if err := l.db.WithContext(ctx).Where("customer_id = ?", customerID).Order("symbol").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load depot").With("customer", customerID)
	}

	positions := make([]model.DepotPosition, 0, len(rows))
	for _, r := range rows {
		positions = append(positions, model.DepotPosition{
			CustomerID: r.CustomerID,
			Symbol:     r.Symbol,
			Name:       r.Name,
			Quantity:   r.Quantity,
		})
	}
	return positions, nil
}
