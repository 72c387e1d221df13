package repository

import (
	"context"
	"strings"

	"bank/internal/customer"
	"bank/internal/model"
	"bank/pkg/exception"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
)

var _ customer.Directory = (*CustomerDirectory)(nil)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// CustomerDirectory keeps customers in the customer table.
type CustomerDirectory struct {
	db *gorm.DB
}

func NewCustomerDirectory(db *gorm.DB) *CustomerDirectory {
	return &CustomerDirectory{db: db}
}

func (d *CustomerDirectory) FindByNumber(ctx context.Context, number string) (model.Customer, error) {
	number, err := customer.NormalizeNumber(number)
	if err != nil {
		return model.Customer{}, err
	}

	var row customerRow
	err = d.db.WithContext(ctx).Where("number = ?", number).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Customer{}, exception.NotFound("customer %s not found", number)
	}
	if err != nil {
		return model.Customer{}, errors.Wrap(err, "find customer by number")
	}
	return row.model(), nil
}

func (d *CustomerDirectory) FindByID(ctx context.Context, id int64) (model.Customer, error) {
	var row customerRow
	err := d.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Customer{}, exception.NotFound("customer %d not found", id)
	}
	if err != nil {
		return model.Customer{}, errors.Wrap(err, "find customer by id")
	}
	return row.model(), nil
}

// Create stores a new customer and returns it with its ID.
func (d *CustomerDirectory) Create(ctx context.Context, c model.Customer) (model.Customer, error) {
	number, err := customer.NormalizeNumber(c.Number)
	if err != nil {
		return model.Customer{}, err
	}

	row := customerRow{
		Number:    number,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
	}
	err = d.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return model.Customer{}, exception.Public(exception.ErrConflict, "customer %s already exists", number)
	}
	if err != nil {
		return model.Customer{}, errors.Wrap(err, "create customer")
	}
	return row.model(), nil
}

func (d *CustomerDirectory) List(ctx context.Context) ([]model.Customer, error) {
	var rows []customerRow
	if err := d.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list customers")
	}
	return customers(rows), nil
}

func (d *CustomerDirectory) SearchByName(ctx context.Context, name string) ([]model.Customer, error) {
	name, err := customer.NormalizeName(name)
	if err != nil {
		return nil, err
	}

	pattern := "%" + likeEscaper.Replace(strings.ToLower(name)) + "%"
	var rows []customerRow
	err = d.db.WithContext(ctx).
		Where("LOWER(TRIM(first_name || ' ' || last_name)) LIKE ?", pattern).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "search customers by name")
	}
	return customers(rows), nil
}

func (d *CustomerDirectory) Update(ctx context.Context, c model.Customer) (model.Customer, error) {
	number, err := customer.NormalizeNumber(c.Number)
	if err != nil {
		return model.Customer{}, err
	}

	var row customerRow
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("number = ?", number).First(&row).Error; err != nil {
			return err
		}
		return tx.Model(&row).Select("first_name", "last_name", "email").Updates(customerRow{
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Email:     c.Email,
		}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Customer{}, exception.NotFound("customer %s not found", number)
	}
	if err != nil {
		return model.Customer{}, errors.Wrap(err, "update customer")
	}
	row.FirstName, row.LastName, row.Email = c.FirstName, c.LastName, c.Email
	return row.model(), nil
}

func (d *CustomerDirectory) Delete(ctx context.Context, number string) error {
	number, err := customer.NormalizeNumber(number)
	if err != nil {
		return err
	}

	res := d.db.WithContext(ctx).Where("number = ?", number).Delete(&customerRow{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete customer")
	}
	if res.RowsAffected == 0 {
		return exception.NotFound("customer %s not found", number)
	}
	return nil
}

func customers(rows []customerRow) []model.Customer {
	out := make([]model.Customer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out
}

func (r customerRow) model() model.Customer {
	return model.Customer{
		ID:        r.ID,
		Number:    r.Number,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
	}
}
