package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ternarybob/forager/internal/common"
)

// RateLimiter enforces a minimum inter-request interval per domain. The
// per-domain clock is the only state shared across concurrently running
// site crawls; it has a single mutually-exclusive update path per domain key.
type RateLimiter struct {
	limiters        map[string]*rate.Limiter
	mu              sync.Mutex
	defaultInterval time.Duration
}

// NewRateLimiter creates a rate limiter with the specified default interval.
func NewRateLimiter(defaultInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters:        make(map[string]*rate.Limiter),
		defaultInterval: defaultInterval,
	}
}

// Wait blocks the caller until the domain's interval has elapsed since the
// previous request, or until the context is cancelled. Requests are never
// dropped, only delayed.
func (rl *RateLimiter) Wait(ctx context.Context, rawURL string) error {
	domain := common.Domain(rawURL)
	if domain == "" || rl.defaultInterval <= 0 {
		return nil
	}

	rl.mu.Lock()
	limiter, exists := rl.limiters[domain]
	if !exists {
		limiter = rate.NewLimiter(rate.Every(rl.defaultInterval), 1)
		rl.limiters[domain] = limiter
	}
	rl.mu.Unlock()

	return limiter.Wait(ctx)
}

// SetDomainInterval sets a custom interval for a specific domain.
func (rl *RateLimiter) SetDomainInterval(domain string, interval time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[domain]; exists {
		limiter.SetLimit(rate.Every(interval))
		return
	}
	rl.limiters[domain] = rate.NewLimiter(rate.Every(interval), 1)
}
