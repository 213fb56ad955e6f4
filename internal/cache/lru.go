// Package cache provides the bounded containers used to memoize tag identifiers,
// post sets and computed responses. Instances are constructed explicitly, owned by
// the serving component, and reset together through a Registry.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gcbaptista/tagsearch/internal/metrics"
)

// LRU is a fixed-size least-recently-used cache. Get promotes the entry; Set on a
// full cache evicts exactly the least recently used entry, never the one being added.
//
// lru.Cache serializes every operation internally, so LRU is safe for concurrent use.
type LRU[K comparable, V any] struct {
	name  string
	size  int
	inner *lru.Cache[K, V]
}

// NewLRU creates a named LRU holding at most size entries.
func NewLRU[K comparable, V any](name string, size int) (*LRU[K, V], error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache %s: size must be positive, got %d", name, size)
	}
	inner, err := lru.New[K, V](size)
	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", name, err)
	}
	return &LRU[K, V]{name: name, size: size, inner: inner}, nil
}

// Name returns the instance name used for metrics and the registry.
func (c *LRU[K, V]) Name() string { return c.name }

// Cap returns the maximum number of entries.
func (c *LRU[K, V]) Cap() int { return c.size }

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	v, ok := c.inner.Get(key)
	if ok {
		metrics.CacheHits.WithLabelValues(c.name).Inc()
	} else {
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
	}
	return v, ok
}

// Peek returns the value for key without touching recency.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	return c.inner.Peek(key)
}

// Set stores value under key. Reports whether an older entry was evicted.
func (c *LRU[K, V]) Set(key K, value V) bool {
	evicted := c.inner.Add(key, value)
	if evicted {
		metrics.CacheEvictions.WithLabelValues(c.name).Inc()
	}
	return evicted
}

// Contains reports presence without touching recency.
func (c *LRU[K, V]) Contains(key K) bool {
	return c.inner.Contains(key)
}

func (c *LRU[K, V]) Remove(key K) {
	c.inner.Remove(key)
}

// Clear drops every entry.
func (c *LRU[K, V]) Clear() {
	c.inner.Purge()
}

func (c *LRU[K, V]) Len() int {
	return c.inner.Len()
}
