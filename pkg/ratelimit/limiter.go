// Package ratelimit paces outgoing requests with a token bucket.
//
// A nil *Limiter is valid and never blocks, so callers can hold an optional
// limiter without nil checks.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var (
	waitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ree_rate_limit_waits_total",
		Help: "Total number of requests that had to wait for a rate limit token",
	})

	waitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ree_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a rate limit token",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})
)

// Limiter gates requests to at most RPS per second with the given burst.
type Limiter struct {
	limiter *rate.Limiter
}

// New returns a limiter allowing rps requests per second. It returns nil
// (unlimited) when rps <= 0. A burst below 1 is raised to 1.
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	// Fast path: token available now.
	if l.limiter.Allow() {
		return nil
	}

	start := time.Now()
	waitsTotal.Inc()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	waitSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// Limit reports the configured requests per second, 0 for unlimited.
func (l *Limiter) Limit() float64 {
	if l == nil {
		return 0
	}
	return float64(l.limiter.Limit())
}
