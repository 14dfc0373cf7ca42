package relay

import (
	"sync"
	"time"
)

// RateLimiter caps inbound events per identity with a fixed one-minute
// window. The limit is deliberately generous: typing indicators are chatty
// and the relay must never debounce them itself, this only stops runaway
// clients.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	clients map[string]*clientWindow
}

type clientWindow struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a limiter allowing limit events per user per
// minute. A limit of zero or less disables limiting.
func NewRateLimiter(limit int) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		clients: make(map[string]*clientWindow),
	}
}

// Allow reports whether the user may send another event.
func (rl *RateLimiter) Allow(userID string) bool {
	if rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	w, exists := rl.clients[userID]
	if !exists {
		rl.clients[userID] = &clientWindow{count: 1, windowStart: now}
		return true
	}

	if now.Sub(w.windowStart) >= time.Minute {
		w.count = 1
		w.windowStart = now
		return true
	}

	if w.count >= rl.limit {
		return false
	}

	w.count++
	return true
}

// Cleanup removes entries idle for several windows to bound memory.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for userID, w := range rl.clients {
		if now.Sub(w.windowStart) > 5*time.Minute {
			delete(rl.clients, userID)
		}
	}
}
