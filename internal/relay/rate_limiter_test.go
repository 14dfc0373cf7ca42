package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_EnforcesLimit(t *testing.T) {
	req := require.New(t)
	rl := NewRateLimiter(3)

	req.True(rl.Allow("alice"))
	req.True(rl.Allow("alice"))
	req.True(rl.Allow("alice"))
	req.False(rl.Allow("alice"))

	// Limits are per identity.
	req.True(rl.Allow("bob"))
}

func TestRateLimiter_ZeroDisables(t *testing.T) {
	rl := NewRateLimiter(0)
	for i := 0; i < 1000; i++ {
		require.True(t, rl.Allow("alice"))
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	req := require.New(t)
	rl := NewRateLimiter(1)

	req.True(rl.Allow("alice"))
	req.False(rl.Allow("alice"))

	// Age the window out instead of sleeping through it.
	rl.mu.Lock()
	rl.clients["alice"].windowStart = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	req.True(rl.Allow("alice"))
}

func TestRateLimiter_CleanupDropsStaleEntries(t *testing.T) {
	req := require.New(t)
	rl := NewRateLimiter(10)

	req.True(rl.Allow("alice"))
	req.True(rl.Allow("bob"))

	rl.mu.Lock()
	rl.clients["alice"].windowStart = time.Now().Add(-10 * time.Minute)
	rl.mu.Unlock()

	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	req.NotContains(rl.clients, "alice")
	req.Contains(rl.clients, "bob")
}
