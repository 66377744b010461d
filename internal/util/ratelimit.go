package util

import (
	"context"
	"sync"
	"time"
)

const minPause = 10 * time.Millisecond

// RateLimiter paces outbound requests with a single-token bucket that
// refills at a fixed rate. A nil *RateLimiter never blocks.
type RateLimiter struct {
	mu     sync.Mutex
	perSec float64
	tokens float64
	last   time.Time
}

// NewRateLimiter allows perMinute operations per minute. It returns nil when
// perMinute is zero or negative, which disables pacing.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &RateLimiter{perSec: float64(perMinute) / 60, tokens: 1, last: time.Now()}
}

// reserve takes a token if one is available, otherwise it reports how long
// until the next one.
func (rl *RateLimiter) reserve(now time.Time) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.tokens = min(1, rl.tokens+now.Sub(rl.last).Seconds()*rl.perSec)
	rl.last = now
	if rl.tokens >= 1 {
		rl.tokens--
		return 0
	}
	return max(minPause, time.Duration((1-rl.tokens)/rl.perSec*float64(time.Second)))
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return ctx.Err()
	}
	for {
		pause := rl.reserve(time.Now())
		if pause == 0 {
			return nil
		}
		t := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
