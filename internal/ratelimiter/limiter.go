package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles calls to the user info endpoint with a token bucket.
// Burst equals the rate so no saved-up burst above the per-second maximum
// is ever granted. A nil *Limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter allowing ratePerSec calls per second.
// It returns nil when ratePerSec <= 0, which disables throttling.
func New(ratePerSec int) *Limiter {
	if ratePerSec <= 0 {
		return nil
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)}
}

// Wait blocks until a token is available.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
