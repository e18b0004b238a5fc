package portfolio_contact

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nazarhussain/portfolio-contact/internal/ratestore"
)

// OpenStore builds the rate-limit store selected by RATE_LIMIT_BACKEND.
func OpenStore(ctx context.Context, c *Config) (ratestore.Store, error) {
	var (
		store ratestore.Store
		err   error
	)
	switch c.RateLimitBackend {
	case BackendMemory:
		return ratestore.NewMemory(), nil
	case BackendFile:
		path := c.RateLimitFile
		if path == "" {
			path = filepath.Join(c.LogDir, rateLimitFileName)
		}
		store, err = ratestore.NewFile(path)
	case BackendRedis:
		store, err = ratestore.DialRedis(ctx, c.RateLimitRedisURL, c.RateLimitRedisPrefix)
	case BackendSQL:
		store, err = ratestore.OpenSQL(c.RateLimitDSN)
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", c.RateLimitBackend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Limiter applies the per-IP cooldown on top of a store.
type Limiter struct {
	store  ratestore.Store
	window time.Duration
}

func NewLimiter(store ratestore.Store, window time.Duration) *Limiter {
	return &Limiter{store: store, window: window}
}

// Allow records now for ip unless ip submitted less than one window ago.
func (l *Limiter) Allow(ctx context.Context, ip string, now time.Time) error {
	d, err := l.store.Allow(ctx, ip, now, l.window)
	if err != nil {
		return wrapFailure(KindGeneralError, fmt.Errorf("rate limit: %w", err))
	}
	if !d.Allowed {
		rateLimitedTotal.Inc()
		return &SubmissionError{Kind: KindRateLimited, RetryAfter: d.RetryAfter}
	}
	return nil
}
