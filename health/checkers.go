package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/postboard/resilience"
)

// Pinger is a dependency that can be pinged. *store.BadgerStore implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker reports the store unhealthy when it does not answer a ping.
type StoreChecker struct {
	db Pinger
}

// NewStoreChecker creates a StoreChecker.
func NewStoreChecker(db Pinger) *StoreChecker {
	return &StoreChecker{db: db}
}

// Name returns "store".
func (c *StoreChecker) Name() string { return "store" }

// Check pings the store.
func (c *StoreChecker) Check(ctx context.Context) Result {
	if err := c.db.Ping(ctx); err != nil {
		return Unhealthy("store unreachable", err)
	}
	return Healthy("store reachable")
}

// Sizer reports a number of tracked entries. *cache.MemoryCache implements it.
type Sizer interface {
	Len() int
}

// CacheChecker reports the cache degraded once it is full, since every new
// entry then evicts a live one.
type CacheChecker struct {
	cache      Sizer
	maxEntries int
}

// NewCacheChecker creates a CacheChecker. maxEntries <= 0 disables the
// capacity check.
func NewCacheChecker(c Sizer, maxEntries int) *CacheChecker {
	return &CacheChecker{cache: c, maxEntries: maxEntries}
}

// Name returns "cache".
func (c *CacheChecker) Name() string { return "cache" }

// Check compares the entry count with the capacity.
func (c *CacheChecker) Check(_ context.Context) Result {
	n := c.cache.Len()
	details := map[string]any{"entries": n, "max_entries": c.maxEntries}

	if c.maxEntries > 0 && n >= c.maxEntries {
		return Degraded(fmt.Sprintf("cache full: %d entries", n)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%d entries", n)).WithDetails(details)
}

// LimiterChecker reports the rate limiters degraded when they track more
// identifiers than expected, which means cleanup is not keeping up.
type LimiterChecker struct {
	limiters   *resilience.Limiters
	maxTracked int
}

// NewLimiterChecker creates a LimiterChecker. maxTracked <= 0 disables the
// threshold.
func NewLimiterChecker(l *resilience.Limiters, maxTracked int) *LimiterChecker {
	return &LimiterChecker{limiters: l, maxTracked: maxTracked}
}

// Name returns "ratelimit".
func (c *LimiterChecker) Name() string { return "ratelimit" }

// Check sums the tracked identifiers of every limiter.
func (c *LimiterChecker) Check(_ context.Context) Result {
	api, auth, admin := c.limiters.API.Len(), c.limiters.Auth.Len(), c.limiters.Admin.Len()
	total := api + auth + admin
	details := map[string]any{
		resilience.LimiterAPI:   api,
		resilience.LimiterAuth:  auth,
		resilience.LimiterAdmin: admin,
	}

	if c.maxTracked > 0 && total > c.maxTracked {
		return Degraded(fmt.Sprintf("tracking %d identifiers", total)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("tracking %d identifiers", total)).WithDetails(details)
}

var (
	_ Checker = (*StoreChecker)(nil)
	_ Checker = (*CacheChecker)(nil)
	_ Checker = (*LimiterChecker)(nil)
)
