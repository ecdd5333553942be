package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tmarback/interact"
)

// DefaultRateLimitIdleTTL is how long a user's limiter survives without
// activity before it is dropped.
const DefaultRateLimitIdleTTL = 10 * time.Minute

// RateLimit returns middleware that limits handler executions per user
// using a token bucket. Each user gets an independent limiter, created
// lazily on first call and dropped again after [DefaultRateLimitIdleTTL]
// without activity, so the per-user state stays bounded by the set of
// recently active users. When a user exceeds the limit the chain is
// short-circuited with an error wrapping [interact.ErrRateLimited].
func RateLimit(limit rate.Limit, burst int) Middleware {
	return RateLimitWithIdleTTL(limit, burst, DefaultRateLimitIdleTTL)
}

// RateLimitWithIdleTTL is RateLimit with an explicit idle TTL. A dropped
// limiter is recreated with a full bucket on the user's next call, so the
// TTL should comfortably exceed the time the bucket takes to refill.
func RateLimitWithIdleTTL(limit rate.Limit, burst int, idle time.Duration) Middleware {
	type entry struct {
		lim      *rate.Limiter
		lastSeen time.Time
	}

	var mu sync.Mutex
	limiters := make(map[string]*entry)
	lastSweep := time.Now()

	return func(ctx context.Context, c *Call, next Handler) error {
		now := time.Now()

		mu.Lock()
		if now.Sub(lastSweep) > idle {
			for id, e := range limiters {
				if now.Sub(e.lastSeen) > idle {
					delete(limiters, id)
				}
			}
			lastSweep = now
		}
		e, ok := limiters[c.UserID]
		if !ok {
			e = &entry{lim: rate.NewLimiter(limit, burst)}
			limiters[c.UserID] = e
		}
		e.lastSeen = now
		mu.Unlock()

		if !e.lim.Allow() {
			return fmt.Errorf("%w: user %s", interact.ErrRateLimited, c.UserID)
		}
		return next(ctx)
	}
}
