package cache

import (
	"sort"
	"sync"

	"github.com/gcbaptista/tagsearch/internal/metrics"
)

// Resettable is any cache instance the registry can clear.
type Resettable interface {
	Name() string
	Clear()
	Len() int
}

// Registry tracks named cache instances so a bulk mutation can invalidate all of them at once.
type Registry struct {
	mu     sync.RWMutex
	caches map[string]Resettable
}

func NewRegistry() *Registry {
	return &Registry{caches: make(map[string]Resettable)}
}

// Register adds c under its name, replacing any instance with the same name.
func (r *Registry) Register(c Resettable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caches[c.Name()] = c
}

// ResetAll clears every registered cache. Call it after any bulk write that can
// stale cached identifiers, post sets or results.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.caches {
		c.Clear()
	}
	metrics.CacheResets.Inc()
}

// Sizes returns the current entry count per cache name.
func (r *Registry) Sizes() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sizes := make(map[string]int, len(r.caches))
	for name, c := range r.caches {
		sizes[name] = c.Len()
	}
	return sizes
}

// Names returns the registered cache names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
