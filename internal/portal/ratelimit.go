package portal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/donaldgifford/einvoice-tracker/internal/metrics"
)

// RateLimiter paces portal API calls with a token bucket and caps the
// number of calls within a rolling 24-hour window. The window opens at the
// first call after the previous one expired.
type RateLimiter struct {
	limiter *rate.Limiter
	max     int64
	now     func() time.Time

	mu      sync.Mutex
	used    int64
	resetAt time.Time
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterClock overrides the time source.
func WithRateLimiterClock(now func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.now = now
	}
}

// NewRateLimiter creates a limiter allowing perSecond calls with the given
// burst and at most maxDaily calls per window. A non-positive maxDaily
// disables the daily cap.
func NewRateLimiter(perSecond float64, burst int, maxDaily int64, opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		max:     maxDaily,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Wait reserves one call, blocking until the token bucket allows it.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.reserve(); err != nil {
		return err
	}
	if err := r.limiter.Wait(ctx); err != nil {
		r.release()
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

// Remaining returns the calls left in the current window.
func (r *RateLimiter) Remaining() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollLocked()
	if r.max <= 0 {
		return -1
	}
	return max(r.max-r.used, 0)
}

// ResetAt returns when the current window expires. It is zero before the
// first call.
func (r *RateLimiter) ResetAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetAt
}

func (r *RateLimiter) reserve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rollLocked()
	if r.resetAt.IsZero() {
		r.resetAt = r.now().Add(24 * time.Hour)
	}
	if r.max > 0 && r.used >= r.max {
		metrics.PortalDailyLimitHits.Inc()
		return fmt.Errorf("%w (%d/%d, resets %s)",
			ErrDailyLimitReached, r.used, r.max, r.resetAt.Format(time.RFC3339))
	}
	r.used++
	metrics.PortalDailyUsage.Set(float64(r.used))
	return nil
}

func (r *RateLimiter) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used > 0 {
		r.used--
		metrics.PortalDailyUsage.Set(float64(r.used))
	}
}

func (r *RateLimiter) rollLocked() {
	if !r.resetAt.IsZero() && r.now().After(r.resetAt) {
		r.used = 0
		r.resetAt = time.Time{}
	}
}
