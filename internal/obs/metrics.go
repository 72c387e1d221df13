package obs

import (
	"sync/atomic"
	"time"

	"bank/internal/model/enum"
	"bank/pkg/exception"
)

// outcomes lists every trade outcome tracked, index 0 is success.
var outcomes = [...]exception.Code{
	"OK",
	exception.CodeInvalidArgument,
	exception.CodeNotFound,
	exception.CodeInsufficientFunds,
	exception.CodeInsufficientHoldings,
	exception.CodeUnavailable,
	exception.CodeAuthFailure,
	exception.CodeRejected,
	exception.CodeConflict,
	exception.CodeForbidden,
	exception.CodeTradingHalted,
	exception.CodeRateLimited,
	exception.CodeInternal,
}

const maxSide = int(enum.SideSell)

// Metrics collects lightweight counters and latency stats of the trading engine.
type Metrics struct {
	tradeCounts          [maxSide + 1][len(outcomes)]uint64
	compensations        uint64
	compensationFailures uint64
	degradedSearches     uint64
	replays              uint64

	oracleLatency LatencyStats
	tradeLatency  LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64        `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Trades               map[string]map[exception.Code]uint64 `json:"trades"`
	Compensations        uint64                               `json:"compensations"`
	CompensationFailures uint64                               `json:"compensationFailures"`
	DegradedSearches     uint64                               `json:"degradedSearches"`
	IdempotentReplays    uint64                               `json:"idempotentReplays"`
	OracleLatency        LatencySnapshot                      `json:"oracleLatency"`
	TradeLatency         LatencySnapshot                      `json:"tradeLatency"`
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveTrade counts a finished trade by side and outcome and records its latency.
func (m *Metrics) ObserveTrade(side enum.Side, err error, d time.Duration) {
	if m == nil {
		return
	}
	s := int(side)
	if s < 0 || s > maxSide {
		return
	}
	atomic.AddUint64(&m.tradeCounts[s][outcomeIndex(err)], 1)
	m.tradeLatency.Observe(d)
}

// ObserveOracle records the latency of one oracle call.
func (m *Metrics) ObserveOracle(d time.Duration) {
	if m == nil {
		return
	}
	m.oracleLatency.Observe(d)
}

// IncCompensation records a compensating ledger action and whether it succeeded.
func (m *Metrics) IncCompensation(ok bool) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.compensations, 1)
	if !ok {
		atomic.AddUint64(&m.compensationFailures, 1)
	}
}

// IncDegradedSearch records a search answered from fallback symbols.
func (m *Metrics) IncDegradedSearch() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.degradedSearches, 1)
}

// IncReplay records an order answered from its idempotency key.
func (m *Metrics) IncReplay() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.replays, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	trades := make(map[string]map[exception.Code]uint64)
	for s := range m.tradeCounts {
		side := enum.Side(s)
		if !side.IsAvailable() {
			continue
		}
		for i, code := range outcomes {
			v := atomic.LoadUint64(&m.tradeCounts[s][i])
			if v == 0 {
				continue
			}
			if trades[side.String()] == nil {
				trades[side.String()] = make(map[exception.Code]uint64)
			}
			trades[side.String()][code] = v
		}
	}
	return Snapshot{
		Trades:               trades,
		Compensations:        atomic.LoadUint64(&m.compensations),
		CompensationFailures: atomic.LoadUint64(&m.compensationFailures),
		DegradedSearches:     atomic.LoadUint64(&m.degradedSearches),
		IdempotentReplays:    atomic.LoadUint64(&m.replays),
		OracleLatency:        m.oracleLatency.Snapshot(),
		TradeLatency:         m.tradeLatency.Snapshot(),
	}
}

func outcomeIndex(err error) int {
	if err == nil {
		return 0
	}
	code := exception.CodeOf(err)
	for i := 1; i < len(outcomes); i++ {
		if outcomes[i] == code {
			return i
		}
	}
	return len(outcomes) - 1
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(sum / count),
	}
}
