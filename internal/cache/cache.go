package cache

import (
	"sync"
)

// DefaultSize bounds a Memo when the caller passes a non-positive limit
const DefaultSize = 1024

// Memo is a concurrency-safe lookup cache with a fixed capacity.
// When full, the oldest inserted key is evicted first.
type Memo[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
	order   []K
	limit   int
}

// NewMemo creates a Memo holding at most limit entries
func NewMemo[K comparable, V any](limit int) *Memo[K, V] {
	if limit <= 0 {
		limit = DefaultSize
	}
	return &Memo[K, V]{
		entries: make(map[K]V),
		limit:   limit,
	}
}

// Get returns the cached value for key
func (m *Memo[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

// Put stores value under key, evicting the oldest entry if the memo is full
func (m *Memo[K, V]) Put(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		m.entries[key] = value
		return
	}

	for len(m.order) >= m.limit {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}

	m.entries[key] = value
	m.order = append(m.order, key)
}

// GetOrCompute returns the cached value or computes and stores it.
// compute runs outside the lock; concurrent misses on the same key may both compute.
func (m *Memo[K, V]) GetOrCompute(key K, compute func() V) V {
	if v, ok := m.Get(key); ok {
		return v
	}
	v := compute()
	m.Put(key, v)
	return v
}
