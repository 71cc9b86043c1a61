package gateway

import (
	"context"
	"sync"
	"time"
)

// rateLimiter is a token bucket allowing at most rpm requests per minute.
// A nil limiter never blocks.
type rateLimiter struct {
	rpm      int
	mu       sync.Mutex
	tokens   int
	lastFill time.Time
}

func newRateLimiter(rpm int) *rateLimiter {
	if rpm <= 0 {
		return nil
	}
	return &rateLimiter{
		rpm:      rpm,
		tokens:   rpm,
		lastFill: time.Now(),
	}
}

func (r *rateLimiter) wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	for {
		r.mu.Lock()
		now := time.Now()
		refill := int(now.Sub(r.lastFill).Seconds() * float64(r.rpm) / 60.0)
		if refill > 0 {
			r.tokens += refill
			if r.tokens > r.rpm {
				r.tokens = r.rpm
			}
			r.lastFill = now
		}

		if r.tokens > 0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
