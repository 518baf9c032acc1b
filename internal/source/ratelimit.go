package source

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/donaldgifford/pricely/internal/metrics"
)

// RateLimiter spaces out requests to a single source using a token bucket.
type RateLimiter struct {
	source  string
	limiter *rate.Limiter
	calls   atomic.Int64
	waits   atomic.Int64
}

// NewRateLimiter creates a limiter allowing perSecond requests with the
// given burst. A non-positive rate disables limiting.
func NewRateLimiter(source string, perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		source:  source,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Wait blocks until a request may proceed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r.limiter.Allow() {
		r.calls.Add(1)
		return nil
	}

	r.waits.Add(1)
	metrics.SourceRateLimitWaitsTotal.WithLabelValues(r.source).Inc()

	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	r.calls.Add(1)
	return nil
}

// Calls returns how many requests have been let through.
func (r *RateLimiter) Calls() int64 {
	return r.calls.Load()
}

// Waits returns how many requests had to wait for a token.
func (r *RateLimiter) Waits() int64 {
	return r.waits.Load()
}
