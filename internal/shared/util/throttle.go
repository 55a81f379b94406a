package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces out repeated runs, such as watch mode re-checks, to at most
// one per interval after an initial burst.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle returns a throttle allowing burst runs at once and one more per
// interval. A zero interval never blocks.
func NewThrottle(interval time.Duration, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until the next run may start and reports how long it waited.
func (t *Throttle) Wait(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		return time.Since(start), err
	}
	return time.Since(start), nil
}
