package ratelimiter

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// FixedWindowRateLimiter allows limit requests per key per window. Each key's
// window starts at its first request.
type FixedWindowRateLimiter struct {
	sync.Mutex
	clients   map[string]*window
	limit     int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewFixedWindowLimiter(limit int, w time.Duration) *FixedWindowRateLimiter {
	return &FixedWindowRateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		window:  w,
		now:     time.Now,
	}
}

func (rl *FixedWindowRateLimiter) Allow(key string) (bool, time.Duration) {
	rl.Lock()
	defer rl.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(now)
	}

	c, ok := rl.clients[key]
	if !ok || now.Sub(c.start) >= rl.window {
		c = &window{start: now}
		rl.clients[key] = c
	}

	if c.count < rl.limit {
		c.count++
		return true, 0
	}
	return false, c.start.Add(rl.window).Sub(now)
}

// sweep drops expired windows so the map does not grow with every client
// ever seen. Allow runs it at most once per window.
func (rl *FixedWindowRateLimiter) sweep(now time.Time) {
	rl.lastSweep = now
	for k, c := range rl.clients {
		if now.Sub(c.start) >= rl.window {
			delete(rl.clients, k)
		}
	}
}
