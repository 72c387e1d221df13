package obs

import (
	"strconv"
	"sync/atomic"
	"time"
)

// RequestIDs creates monotonically increasing request IDs used to correlate log lines.
type RequestIDs struct {
	next uint64
}

// NewRequestIDs returns a generator seeded with the given value, or with the clock when zero.
func NewRequestIDs(seed uint64) *RequestIDs {
	if seed == 0 {
		seed = uint64(time.Now().UTC().UnixNano())
	}
	return &RequestIDs{next: seed}
}

// Next returns the next request ID in base 36.
func (g *RequestIDs) Next() string {
	if g == nil {
		return ""
	}
	return strconv.FormatUint(atomic.AddUint64(&g.next, 1), 36)
}
