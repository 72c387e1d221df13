package chaos

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"bank/internal/quote/oracle"
	"bank/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

var _ oracle.Oracle = (*Oracle)(nil)

// Config controls fault injection in front of the oracle.
type Config struct {
	Seed int64 `json:"seed"`
	// FailRate is the share of calls failing as unreachable.
	FailRate float64 `json:"failRate"`
	// AuthFailRate is the share of calls failing as rejected credentials.
	AuthFailRate float64       `json:"authFailRate"`
	MaxDelay     time.Duration `json:"maxDelay"`
}

// Enabled reports whether any fault would ever be injected.
func (c Config) Enabled() bool {
	return c.FailRate > 0 || c.AuthFailRate > 0 || c.MaxDelay > 0
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	if c.FailRate < 0 || c.FailRate > 1 {
		return errors.New("failRate must be between 0 and 1")
	}
	if c.AuthFailRate < 0 || c.AuthFailRate > 1 {
		return errors.New("authFailRate must be between 0 and 1")
	}
	if c.FailRate+c.AuthFailRate > 1 {
		return errors.New("failRate and authFailRate must not add up to more than 1")
	}
	if c.MaxDelay < 0 {
		return errors.New("maxDelay must be >= 0")
	}
	return nil
}

// Oracle wraps another oracle and fails or delays calls at random.
// Faults are injected before the call reaches the wrapped oracle, so a failed
// Buy or Sell never executes.
type Oracle struct {
	next oracle.Oracle
	cfg  Config

	mu  sync.Mutex
	rng *rand.Rand
}

// Wrap creates a fault injecting oracle with validation.
func Wrap(next oracle.Oracle, cfg Config) (*Oracle, error) {
	if next == nil {
		return nil, exception.ErrNilInstance
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Oracle{
		next: next,
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func (o *Oracle) Quotes(ctx context.Context, symbols []string) ([]oracle.Quote, error) {
	if err := o.inject(ctx, "quotes"); err != nil {
		return nil, err
	}
	return o.next.Quotes(ctx, symbols)
}

func (o *Oracle) FindByName(ctx context.Context, term string) ([]oracle.Quote, error) {
	if err := o.inject(ctx, "find by name"); err != nil {
		return nil, err
	}
	return o.next.FindByName(ctx, term)
}

func (o *Oracle) Buy(ctx context.Context, symbol string, quantity int64) (decimal.Decimal, error) {
	if err := o.inject(ctx, "buy"); err != nil {
		return decimal.Zero, err
	}
	return o.next.Buy(ctx, symbol, quantity)
}

func (o *Oracle) Sell(ctx context.Context, symbol string, quantity int64) (decimal.Decimal, error) {
	if err := o.inject(ctx, "sell"); err != nil {
		return decimal.Zero, err
	}
	return o.next.Sell(ctx, symbol, quantity)
}

func (o *Oracle) inject(ctx context.Context, op string) error {
	roll, delay := o.draw()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return errors.Wrap(exception.ErrUnavailable, "chaos: "+op+" canceled while delayed")
		case <-timer.C:
		}
	}

	switch {
	case roll < o.cfg.AuthFailRate:
		return errors.Wrap(exception.ErrAuthFailure, "chaos: "+op+" credentials rejected")
	case roll < o.cfg.AuthFailRate+o.cfg.FailRate:
		return errors.Wrap(exception.ErrUnavailable, "chaos: "+op+" dropped")
	}
	return nil
}

func (o *Oracle) draw() (float64, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	roll := o.rng.Float64()
	var delay time.Duration
	if maxDelay := o.cfg.MaxDelay.Nanoseconds(); maxDelay > 0 {
		delay = time.Duration(o.rng.Int63n(maxDelay + 1))
	}
	return roll, delay
}
