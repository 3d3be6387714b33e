package cache

import "sync"

// DefaultCapacity is the capacity used when NewBounded is given a
// non-positive capacity.
const DefaultCapacity = 100

// Bounded is a capacity-limited key/value cache. When an insert would
// exceed the capacity the whole cache is dropped rather than evicting a
// single entry. Recomputing a dropped value is idempotent for every use
// in this codebase, so the cache is a latency optimization only and the
// wholesale flush keeps the bookkeeping trivial.
type Bounded[K comparable, V any] struct {
	mu       sync.RWMutex
	capacity int
	entries  map[K]V
}

// NewBounded creates a cache holding at most capacity entries.
func NewBounded[K comparable, V any](capacity int) *Bounded[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bounded[K, V]{
		capacity: capacity,
		entries:  make(map[K]V),
	}
}

// Get returns the cached value for key and whether it was present.
func (c *Bounded[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.entries[key]
	return v, ok
}

// Put stores value under key. If the cache is at capacity and key is not
// already present, all existing entries are discarded first.
func (c *Bounded[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.entries = make(map[K]V)
	}
	c.entries[key] = value
}

// Delete removes key from the cache if present.
func (c *Bounded[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len returns the number of cached entries.
func (c *Bounded[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Clear discards all entries. Called on shutdown and when a consumer
// wants a cold cache.
func (c *Bounded[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]V)
}
