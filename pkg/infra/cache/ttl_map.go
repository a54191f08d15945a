package cache

import (
	"sync"
	"time"
)

// TTLEntry represents an entry in TTLMap
type TTLEntry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// TTLMap is a thread-safe map with TTL for each entry
type TTLMap[V any] struct {
	data map[string]*TTLEntry[V]
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
}

type TTLMapOption[V any] func(*TTLMap[V])

// WithClock replaces time.Now, mostly for tests.
func WithClock[V any](now func() time.Time) TTLMapOption[V] {
	return func(m *TTLMap[V]) {
		m.now = now
	}
}

// NewTTLMap creates a new TTLMap with the specified TTL
func NewTTLMap[V any](ttl time.Duration, opts ...TTLMapOption[V]) *TTLMap[V] {
	m := &TTLMap[V]{
		data: make(map[string]*TTLEntry[V]),
		ttl:  ttl,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Compute replaces the entry under key while holding the write lock. An expired
// entry is reported as absent. A zero expiresAt returned by fn falls back to the map TTL.
func (m *TTLMap[V]) Compute(key string, fn func(value V, expiresAt time.Time, found bool) (V, time.Time)) V {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var (
		current   V
		expiresAt time.Time
		found     bool
	)
	if entry, ok := m.data[key]; ok && now.Before(entry.ExpiresAt) {
		current, expiresAt, found = entry.Value, entry.ExpiresAt, true
	}

	next, nextExpiry := fn(current, expiresAt, found)
	if nextExpiry.IsZero() {
		nextExpiry = now.Add(m.ttl)
	}
	m.data[key] = &TTLEntry[V]{Value: next, ExpiresAt: nextExpiry}
	return next
}

// Sweep drops every expired entry and returns how many were removed.
func (m *TTLMap[V]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, e := range m.data {
		if !now.Before(e.ExpiresAt) {
			delete(m.data, k)
			removed++
		}
	}
	return removed
}
