package seo

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/rankwatch/seo-checker/internal/metrics"
)

// Limiter throttles requests against a single provider with a token bucket.
type Limiter struct {
	provider string
	limiter  *rate.Limiter
}

// NewLimiter creates a Limiter for the named provider. A non-positive rps
// disables throttling.
func NewLimiter(provider string, rps float64, burst int) *Limiter {
	r := rate.Limit(rps)
	if rps <= 0 {
		r = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		provider: provider,
		limiter:  rate.NewLimiter(r, burst),
	}
}

// Wait blocks until a token is available, respecting the context.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	// Sub-millisecond waits are noise; only record real throttling.
	if duration := time.Since(start); duration > time.Millisecond {
		metrics.ObserveRateLimitDelay(l.provider, duration)
	}
	return nil
}
