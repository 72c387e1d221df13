package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/gorm"
)

const volumeRowID = 1

type bankVolumeRow struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement:false"`
	Available decimal.Decimal `gorm:"column:available;type:numeric(24,4);not null"`
	Initial   decimal.Decimal `gorm:"column:initial;type:numeric(24,4);not null"`
	Currency  string          `gorm:"column:currency;type:varchar(3);not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (bankVolumeRow) TableName() string {
	return "bank_volume"
}

type depotPositionRow struct {
	ID         int64     `gorm:"column:id;primaryKey"`
	CustomerID int64     `gorm:"column:customer_id;not null;uniqueIndex:uq_depot_position_customer_symbol,priority:1"`
	Symbol     string    `gorm:"column:symbol;type:varchar(16);not null;uniqueIndex:uq_depot_position_customer_symbol,priority:2"`
	Name       string    `gorm:"column:name;type:varchar(255);not null"`
	Quantity   int64     `gorm:"column:quantity;not null;check:chk_depot_position_quantity,quantity > 0"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (depotPositionRow) TableName() string {
	return "depot_position"
}

type customerRow struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Number    string    `gorm:"column:number;type:varchar(64);not null;uniqueIndex"`
	FirstName string    `gorm:"column:first_name;type:varchar(128)"`
	LastName  string    `gorm:"column:last_name;type:varchar(128)"`
	Email     string    `gorm:"column:email;type:varchar(255)"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (customerRow) TableName() string {
	return "customer"
}

// Migrate creates or updates the tables of the bank.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&bankVolumeRow{}, &customerRow{}, &depotPositionRow{}); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}
