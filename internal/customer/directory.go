package customer

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"bank/internal/model"
	"bank/pkg/exception"

	"github.com/yanun0323/errors"
)

// Directory resolves and manages customers. Implementations return exception.ErrNotFound
// for unknown customers and exception.ErrConflict for a customer number already taken.
type Directory interface {
	FindByNumber(ctx context.Context, number string) (model.Customer, error)
	FindByID(ctx context.Context, id int64) (model.Customer, error)
	// List returns all customers ordered by ID.
	List(ctx context.Context) ([]model.Customer, error)
	// SearchByName returns the customers whose full name contains name, ignoring case.
	SearchByName(ctx context.Context, name string) ([]model.Customer, error)
	// Create stores a new customer under a fresh ID.
	Create(ctx context.Context, c model.Customer) (model.Customer, error)
	// Update replaces the names and email of the customer with c.Number.
	Update(ctx context.Context, c model.Customer) (model.Customer, error)
	Delete(ctx context.Context, number string) error
}

// NormalizeNumber trims a customer number and rejects blank ones.
func NormalizeNumber(number string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", exception.Invalid("customer number must not be blank")
	}
	return number, nil
}

// NormalizeName trims a name search term and rejects blank ones.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", exception.Invalid("customer name must not be blank")
	}
	return name, nil
}

// FullName is the text SearchByName matches against.
func FullName(c model.Customer) string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

var _ Directory = (*Memory)(nil)

// Memory is an in-process customer directory.
type Memory struct {
	mu       sync.RWMutex
	byID     map[int64]model.Customer
	byNumber map[string]int64
	nextID   int64
}

// NewMemory creates a directory holding the given customers. Customers without an ID get one.
func NewMemory(customers ...model.Customer) *Memory {
	m := &Memory{
		byID:     make(map[int64]model.Customer, len(customers)),
		byNumber: make(map[string]int64, len(customers)),
	}
	for _, c := range customers {
		if _, err := m.Add(c); err != nil {
			panic(err)
		}
	}
	return m
}

// Add registers a customer and returns it with its ID set.
func (m *Memory) Add(c model.Customer) (model.Customer, error) {
	number, err := NormalizeNumber(c.Number)
	if err != nil {
		return model.Customer{}, err
	}
	c.Number = number

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byNumber[number]; ok {
		return model.Customer{}, exception.Public(exception.ErrConflict, "customer %s already exists", number)
	}
	if c.ID == 0 {
		m.nextID++
		c.ID = m.nextID
	} else if c.ID > m.nextID {
		m.nextID = c.ID
	}
	if _, ok := m.byID[c.ID]; ok {
		return model.Customer{}, errors.Wrapf(exception.ErrConflict, "customer id %d already exists", c.ID)
	}
	m.byID[c.ID] = c
	m.byNumber[number] = c.ID
	return c, nil
}

func (m *Memory) FindByNumber(_ context.Context, number string) (model.Customer, error) {
	number, err := NormalizeNumber(number)
	if err != nil {
		return model.Customer{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byNumber[number]
	if !ok {
		return model.Customer{}, exception.NotFound("customer %s not found", number)
	}
	return m.byID[id], nil
}

func (m *Memory) FindByID(_ context.Context, id int64) (model.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.byID[id]
	if !ok {
		return model.Customer{}, exception.NotFound("customer %d not found", id)
	}
	return c, nil
}

func (m *Memory) List(_ context.Context) ([]model.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Customer, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, c)
	}
	sortByID(out)
	return out, nil
}

func (m *Memory) SearchByName(_ context.Context, name string) ([]model.Customer, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	term := strings.ToLower(name)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Customer, 0)
	for _, c := range m.byID {
		if strings.Contains(strings.ToLower(FullName(c)), term) {
			out = append(out, c)
		}
	}
	sortByID(out)
	return out, nil
}

func (m *Memory) Create(_ context.Context, c model.Customer) (model.Customer, error) {
	c.ID = 0
	return m.Add(c)
}

func (m *Memory) Update(_ context.Context, c model.Customer) (model.Customer, error) {
	number, err := NormalizeNumber(c.Number)
	if err != nil {
		return model.Customer{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byNumber[number]
	if !ok {
		return model.Customer{}, exception.NotFound("customer %s not found", number)
	}
	cur := m.byID[id]
	cur.FirstName = c.FirstName
	cur.LastName = c.LastName
	cur.Email = c.Email
	m.byID[id] = cur
	return cur, nil
}

func (m *Memory) Delete(_ context.Context, number string) error {
	number, err := NormalizeNumber(number)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byNumber[number]
	if !ok {
		return exception.NotFound("customer %s not found", number)
	}
	delete(m.byNumber, number)
	delete(m.byID, id)
	return nil
}

func sortByID(customers []model.Customer) {
	slices.SortFunc(customers, func(a, b model.Customer) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
