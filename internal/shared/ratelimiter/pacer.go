package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum delay between consecutive requests to one exchange.
// It is safe for concurrent use; callers queue in arrival order.
type Pacer struct {
	limiter *rate.Limiter
}

var _ Limiter = (*Pacer)(nil)

// NewPacer returns a Pacer allowing one request per delay.
// A non-positive delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	if delay <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the next request slot or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
