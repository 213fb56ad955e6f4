package cache

import (
	"sync"
	"time"

	"github.com/gcbaptista/tagsearch/internal/metrics"
)

type stamped[V any] struct {
	value    V
	storedAt time.Time
}

// TTL is an LRU whose entries are only served while younger than ttl.
//
// Expired entries are not purged on read. They are replaced by the next Set for the
// same key or fall out under capacity pressure like any other entry, so a fresh
// entry can still be evicted for being least recently used.
//
// mu makes the freshness check and promotion in Get atomic with respect to Set.
type TTL[K comparable, V any] struct {
	mu      sync.Mutex
	entries *LRU[K, stamped[V]]
	ttl     time.Duration
	now     func() time.Time
}

// NewTTL creates a named TTL cache holding at most size entries.
func NewTTL[K comparable, V any](name string, size int, ttl time.Duration) (*TTL[K, V], error) {
	entries, err := NewLRU[K, stamped[V]](name, size)
	if err != nil {
		return nil, err
	}
	return &TTL[K, V]{entries: entries, ttl: ttl, now: time.Now}, nil
}

func (c *TTL[K, V]) Name() string { return c.entries.Name() }

// TTL returns the freshness window.
func (c *TTL[K, V]) TTL() time.Duration { return c.ttl }

// Get returns the value if present and no older than the TTL.
// A stale entry is reported as a miss and left in place without being promoted.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Peek(key)
	if !ok || c.now().Sub(e.storedAt) > c.ttl {
		metrics.CacheMisses.WithLabelValues(c.Name()).Inc()
		return zero, false
	}

	// promote
	c.entries.inner.Get(key)
	metrics.CacheHits.WithLabelValues(c.Name()).Inc()
	return e.value, true
}

// Set stores value stamped with the current time.
func (c *TTL[K, V]) Set(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Set(key, stamped[V]{value: value, storedAt: c.now()})
}

// Contains reports whether an entry is held, fresh or not.
func (c *TTL[K, V]) Contains(key K) bool {
	return c.entries.Contains(key)
}

func (c *TTL[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(key)
}

func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Clear()
}

func (c *TTL[K, V]) Len() int {
	return c.entries.Len()
}
