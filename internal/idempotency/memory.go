package idempotency

import (
	"context"
	"sync"
	"time"

	"bank/internal/model"
)

var _ Store = (*Memory)(nil)

type memoryEntry struct {
	done      bool
	order     model.ExecutedOrder
	expiresAt time.Time
}

// Memory is an in-process Store. Keys do not survive a restart.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an in-process store. A ttl of zero uses DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Claim(_ context.Context, key, fingerprint string) (model.ExecutedOrder, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		if !e.done {
			return model.ExecutedOrder{}, false, inFlight(key)
		}
		return replay(key, fingerprint, e.order)
	}

	m.evictExpired(now)
	m.entries[key] = memoryEntry{expiresAt: now.Add(m.ttl)}
	return model.ExecutedOrder{}, false, nil
}

func (m *Memory) Complete(_ context.Context, key string, order model.ExecutedOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{done: true, order: order, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Len returns the number of live keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictExpired(m.now())
	return len(m.entries)
}

func (m *Memory) evictExpired(now time.Time) {
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
