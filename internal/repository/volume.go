package repository

import (
	"context"
	"sync"

	"bank/internal/ledger"
	"bank/internal/model"
	"bank/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ ledger.VolumeLedger = (*VolumeLedger)(nil)

// VolumeLedger keeps the bank volume in the singleton bank_volume row. Every
// mutation locks the row, so processes sharing the database stay linearized.
type VolumeLedger struct {
	db *gorm.DB
	mu sync.Mutex
}

func NewVolumeLedger(db *gorm.DB) *VolumeLedger {
	return &VolumeLedger{db: db}
}

// Init creates the volume row on first startup. An existing row is left untouched.
func (l *VolumeLedger) Init(ctx context.Context, initial decimal.Decimal, currency string) (model.BankVolume, error) {
	if initial.IsNegative() {
		return model.BankVolume{}, exception.Invalid("initial volume must not be negative, got %s", initial.String())
	}
	if currency == "" {
		currency = model.DefaultCurrency
	}
	initial = model.RoundAmount(initial, currency)

	row := bankVolumeRow{ID: volumeRowID, Available: initial, Initial: initial, Currency: currency}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return model.BankVolume{}, errors.Wrap(err, "init bank volume")
	}
	return l.Volume(ctx)
}

func (l *VolumeLedger) Debit(ctx context.Context, amount decimal.Decimal) error {
	if err := ledger.ValidateAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockVolume(tx)
		if err != nil {
			return err
		}
		if row.Available.LessThan(amount) {
			return ledger.InsufficientFunds(row.Available, amount)
		}
		return updateAvailable(tx, row.Available.Sub(amount))
	})
}

func (l *VolumeLedger) Credit(ctx context.Context, amount decimal.Decimal) error {
	if err := ledger.ValidateAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockVolume(tx)
		if err != nil {
			return err
		}
		return updateAvailable(tx, row.Available.Add(amount))
	})
}

func (l *VolumeLedger) Volume(ctx context.Context) (model.BankVolume, error) {
	var row bankVolumeRow
	if err := l.db.WithContext(ctx).First(&row, volumeRowID).Error; err != nil {
		return model.BankVolume{}, volumeErr(err)
	}
	return model.BankVolume{Available: row.Available, Initial: row.Initial, Currency: row.Currency}, nil
}

func lockVolume(tx *gorm.DB) (bankVolumeRow, error) {
	var row bankVolumeRow
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, volumeRowID).Error; err != nil {
		return bankVolumeRow{}, volumeErr(err)
	}
	return row, nil
}

func updateAvailable(tx *gorm.DB, available decimal.Decimal) error {
	err := tx.Model(&bankVolumeRow{}).Where("id = ?", volumeRowID).Update("available", available).Error
	if err != nil {
		return errors.Wrap(err, "update bank volume")
	}
	return nil
}

func volumeErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(exception.ErrVolumeNotInitialized, "bank_volume row missing")
	}
	return errors.Wrap(err, "load bank volume")
}
