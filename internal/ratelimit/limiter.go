// Package ratelimit implements a per-key sliding-window-log limiter.
package ratelimit

import (
	"sync"
	"time"

	"github.com/gcbaptista/tagsearch/config"
)

// Limiter admits at most limit events per key within any trailing window. Keys
// idle for a whole window are dropped during a sweep that runs inline, at most
// once per cleanup interval; there is no background goroutine.
type Limiter struct {
	limit           int
	window          time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	mu        sync.Mutex
	logs      map[string][]time.Time
	lastSweep time.Time
}

// New creates a Limiter. Non-positive arguments fall back to the config defaults.
func New(limit int, window, cleanupInterval time.Duration) *Limiter {
	defaults := config.Default().RateLimit
	if limit <= 0 {
		limit = defaults.Requests
	}
	if window <= 0 {
		window = defaults.Window
	}
	if cleanupInterval <= 0 {
		cleanupInterval = defaults.CleanupInterval
	}
	return &Limiter{
		limit:           limit,
		window:          window,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		logs:            make(map[string][]time.Time),
	}
}

// Allow records an event for key and reports whether it fits in the window.
// Rejected events are not recorded.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.Reserve(key)
	return ok
}

// Reserve is Allow that also returns, on rejection, how long until the oldest
// event in the window expires.
func (l *Limiter) Reserve(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybeSweep(now)

	log := trim(l.logs[key], now.Add(-l.window))
	if len(log) >= l.limit {
		l.logs[key] = log
		return false, log[0].Add(l.window).Sub(now)
	}
	l.logs[key] = append(log, now)
	return true, 0
}

// Keys returns how many keys are currently tracked.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.logs)
}

// maybeSweep drops keys with no event inside the window. Caller holds mu.
func (l *Limiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.cleanupInterval {
		return
	}
	l.lastSweep = now
	cutoff := now.Add(-l.window)
	for key, log := range l.logs {
		if len(log) == 0 || !log[len(log)-1].After(cutoff) {
			delete(l.logs, key)
		}
	}
}

// trim drops events at or before cutoff. log is in ascending time order.
func trim(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return log
	}
	// copy down so the backing array does not grow without bound
	n := copy(log, log[i:])
	return log[:n]
}
