package chatbot

import (
	"sync"
	"time"
)

// RateLimiter is a per-key sliding-window counter: at most limit requests per
// window. Keys are typically client IPs. The clock is injectable for tests.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records a request for key and reports whether it is within the limit.
// Denied requests are not recorded.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	recent := r.prune(key)
	if len(recent) >= r.limit {
		return false
	}
	r.hits[key] = append(recent, r.now())
	return true
}

// Status reports requests used and remaining in the current window.
func (r *RateLimiter) Status(key string) (used, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recent := r.prune(key)
	used = len(recent)
	remaining = r.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return used, remaining
}

func (r *RateLimiter) Limit() int { return r.limit }

func (r *RateLimiter) Window() time.Duration { return r.window }

// prune drops timestamps older than the window and removes the key entirely
// once it has none left, so the map does not grow with idle clients.
// Caller holds the lock.
func (r *RateLimiter) prune(key string) []time.Time {
	cutoff := r.now().Add(-r.window)
	var recent []time.Time
	for _, t := range r.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) == 0 {
		delete(r.hits, key)
	} else {
		r.hits[key] = recent
	}
	return recent
}
