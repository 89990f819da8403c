package cache

import "time"

// Policy bounds how long query results are cached.
type Policy struct {
	// DefaultTTL is used when a query does not set Revalidate.
	// If zero, such queries are not cached.
	DefaultTTL time.Duration

	// MaxTTL clamps every TTL. Zero means no maximum.
	MaxTTL time.Duration
}

// DefaultPolicy returns DefaultTTL 5m and MaxTTL 1h.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     1 * time.Hour,
	}
}

// NoCachePolicy disables caching of queries without an explicit Revalidate.
func NoCachePolicy() Policy {
	return Policy{}
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
