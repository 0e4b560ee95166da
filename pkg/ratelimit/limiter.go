package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket pacing outgoing requests.
// It is safe for concurrent use.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter allowing ratePerSecond requests with the
// given burst. A non-positive rate disables pacing.
//
// The public Graph API tolerates roughly one request per second without a
// key; keyed clients usually get ten.
func NewLimiter(ratePerSecond float64, burst int) *Limiter {
	limit := rate.Limit(ratePerSecond)
	if ratePerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a request is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow consumes a token if one is available without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
