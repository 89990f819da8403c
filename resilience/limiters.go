package resilience

import (
	"context"
	"time"
)

// Limiter names, used as metric labels and log fields.
const (
	LimiterAPI   = "api"
	LimiterAuth  = "auth"
	LimiterAdmin = "admin"
)

// LimitersConfig holds the window and limit of each traffic class.
type LimitersConfig struct {
	API   RateLimiterConfig
	Auth  RateLimiterConfig
	Admin RateLimiterConfig
}

// DefaultLimitersConfig returns 100 per minute for the API, 5 per 15 minutes
// for authentication and 50 per minute for admin traffic.
func DefaultLimitersConfig() LimitersConfig {
	return LimitersConfig{
		API:   RateLimiterConfig{Window: time.Minute, MaxRequests: 100},
		Auth:  RateLimiterConfig{Window: 15 * time.Minute, MaxRequests: 5},
		Admin: RateLimiterConfig{Window: time.Minute, MaxRequests: 50},
	}
}

// Limiters is the set of rate limiters applied at the HTTP boundary.
type Limiters struct {
	API   *RateLimiter
	Auth  *RateLimiter
	Admin *RateLimiter
}

// NewLimiters creates one independent limiter per traffic class.
func NewLimiters(cfg LimitersConfig) *Limiters {
	return &Limiters{
		API:   NewRateLimiter(cfg.API),
		Auth:  NewRateLimiter(cfg.Auth),
		Admin: NewRateLimiter(cfg.Admin),
	}
}

// Cleanup removes expired windows from every limiter.
func (l *Limiters) Cleanup() int {
	return l.API.Cleanup() + l.Auth.Cleanup() + l.Admin.Cleanup()
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (l *Limiters) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}
