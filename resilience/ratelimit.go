package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiterConfig configures a fixed-window rate limiter.
type RateLimiterConfig struct {
	// Window is the length of a counting window.
	// Default: 1 minute
	Window time.Duration

	// MaxRequests is the number of requests allowed per window.
	// Default: 100
	MaxRequests int

	// Now returns the current time. Default: time.Now
	Now func() time.Time
}

// Validate rejects negative settings. Zero values take defaults.
func (c RateLimiterConfig) Validate() error {
	if c.Window < 0 {
		return fmt.Errorf("%w: window %v", ErrInvalidConfig, c.Window)
	}
	if c.MaxRequests < 0 {
		return fmt.Errorf("%w: max requests %d", ErrInvalidConfig, c.MaxRequests)
	}
	return nil
}

type window struct {
	count     int
	resetTime time.Time
}

// RateLimiter counts requests per identifier in fixed windows.
//
// Contract:
//   - Concurrency: safe for concurrent use; IsRateLimited is an atomic
//     check-and-increment.
//   - Memory: one entry per identifier seen in an unexpired window plus
//     expired entries not yet removed by Cleanup.
type RateLimiter struct {
	config RateLimiterConfig

	mu      sync.Mutex
	windows map[string]*window
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = 100
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &RateLimiter{
		config:  config,
		windows: make(map[string]*window),
	}
}

// IsRateLimited records a request from id and reports whether it must be
// rejected. A rejected request does not count against the window.
func (rl *RateLimiter) IsRateLimited(id string) bool {
	now := rl.config.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[id]
	if !ok || now.After(w.resetTime) {
		rl.windows[id] = &window{count: 1, resetTime: now.Add(rl.config.Window)}
		return false
	}

	if w.count >= rl.config.MaxRequests {
		return true
	}

	w.count++
	return false
}

// Remaining returns how many more requests id may make in its current
// window, or MaxRequests when id has no window.
func (rl *RateLimiter) Remaining(id string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[id]
	if !ok {
		return rl.config.MaxRequests
	}
	return max(0, rl.config.MaxRequests-w.count)
}

// ResetTime returns when id's current window ends, or the zero time when
// id has no window.
func (rl *RateLimiter) ResetTime(id string) time.Time {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if w, ok := rl.windows[id]; ok {
		return w.resetTime
	}
	return time.Time{}
}

// Cleanup removes every expired window and returns how many were removed.
func (rl *RateLimiter) Cleanup() int {
	now := rl.config.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for id, w := range rl.windows {
		if now.After(w.resetTime) {
			delete(rl.windows, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identifiers, expired or not.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Config returns the limiter configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (rl *RateLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}
