package risk

import (
	"sync"
	"time"

	"bank/internal/model"
	"bank/pkg/exception"

	"github.com/shopspring/decimal"
)

// Config defines simple pre-trade limits. Zero values disable a limit.
type Config struct {
	Version          uint16          `json:"version"`
	KillSwitch       bool            `json:"killSwitch"`
	MaxOrderQty      int64           `json:"maxOrderQty"`
	MaxOrderNotional decimal.Decimal `json:"maxOrderNotional"`
	OrderRateLimit   int             `json:"orderRateLimit"`
	OrderRateWindow  time.Duration   `json:"orderRateWindow"`
}

// Reason tells why an order was denied.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonKillSwitch
	ReasonRateLimit
	ReasonMaxQty
	ReasonMaxNotional
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonKillSwitch:
		return "kill switch"
	case ReasonRateLimit:
		return "rate limit"
	case ReasonMaxQty:
		return "max order quantity"
	case ReasonMaxNotional:
		return "max order notional"
	default:
		return "unknown"
	}
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Allowed bool
	Reason  Reason
	Version uint16
	Limit   string

	rateLimit int
}

// Err converts a denial into the error reported to the caller, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonKillSwitch:
		return exception.Public(exception.ErrTradingHalted, "trading is halted, no orders are accepted")
	case ReasonRateLimit:
		return exception.Public(exception.ErrRateLimited, "more than %d orders per %s, please retry later", d.rateLimit, d.Limit)
	case ReasonMaxQty:
		return exception.Invalid("quantity exceeds the limit of %s shares per order", d.Limit)
	case ReasonMaxNotional:
		return exception.Invalid("order value exceeds the limit of %s", d.Limit)
	default:
		return exception.Invalid("order denied")
	}
}

// rateWindow counts the orders of one customer in a fixed window.
type rateWindow struct {
	start int64
	count int
}

// Engine evaluates risk decisions. It is safe for concurrent use and its
// limits can be replaced at runtime. Rate limits apply per customer.
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	windows   map[int64]*rateWindow
	lastSweep int64
}

// NewEngine creates a risk engine with the given limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, windows: make(map[int64]*rateWindow)}
}

// Config returns the active limits.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Update swaps the limits. Rate windows restart when the rate settings change.
func (e *Engine) Update(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cfg.OrderRateLimit != e.cfg.OrderRateLimit || cfg.OrderRateWindow != e.cfg.OrderRateWindow {
		clear(e.windows)
	}
	e.cfg = cfg
}

// Evaluate applies the limits to an order. referencePrice is the latest known
// price per share, zero skips the notional check. now is unix nanos, zero means
// the current time. Only orders passing every other limit count against the
// rate limit of their customer.
func (e *Engine) Evaluate(order model.TradeOrder, referencePrice decimal.Decimal, now int64) Decision {
	if e == nil {
		return Decision{Allowed: true}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	decision := Decision{Allowed: true, Reason: ReasonNone, Version: e.cfg.Version}
	deny := func(reason Reason, limit string) Decision {
		decision.Allowed = false
		decision.Reason = reason
		decision.Limit = limit
		return decision
	}

	if now == 0 {
		now = time.Now().UTC().UnixNano()
	}

	if e.cfg.KillSwitch {
		return deny(ReasonKillSwitch, "")
	}

	if e.cfg.MaxOrderQty > 0 && order.Quantity > e.cfg.MaxOrderQty {
		return deny(ReasonMaxQty, decimal.NewFromInt(e.cfg.MaxOrderQty).String())
	}

	if e.cfg.MaxOrderNotional.IsPositive() && referencePrice.IsPositive() {
		notional := referencePrice.Mul(decimal.NewFromInt(order.Quantity))
		if notional.GreaterThan(e.cfg.MaxOrderNotional) {
			return deny(ReasonMaxNotional, e.cfg.MaxOrderNotional.String())
		}
	}

	if e.cfg.OrderRateLimit > 0 && e.cfg.OrderRateWindow > 0 {
		window := int64(e.cfg.OrderRateWindow)
		e.sweep(now, window)

		w, ok := e.windows[order.CustomerID]
		if !ok || now-w.start >= window {
			w = &rateWindow{start: now}
			e.windows[order.CustomerID] = w
		}
		if w.count >= e.cfg.OrderRateLimit {
			decision.rateLimit = e.cfg.OrderRateLimit
			return deny(ReasonRateLimit, e.cfg.OrderRateWindow.String())
		}
		w.count++
	}

	return decision
}

// sweep drops expired windows, at most once per window length.
func (e *Engine) sweep(now, window int64) {
	if now-e.lastSweep < window {
		return
	}
	e.lastSweep = now
	for id, w := range e.windows {
		if now-w.start >= window {
			delete(e.windows, id)
		}
	}
}

// Tracked returns the number of customers with a live rate window.
func (e *Engine) Tracked() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.windows)
}
