// Package resilience protects the server from abusive traffic and the store
// from transient write conflicts.
//
// # Rate limiting
//
// RateLimiter is a fixed-window counter keyed by an identifier, usually the
// client IP. The first request from an identifier opens a window of
// RateLimiterConfig.Window; up to MaxRequests requests are allowed inside it
// and later ones are rejected without being counted. The first request after
// the window ends opens a new one.
//
// A client can send MaxRequests at the end of one window and MaxRequests again
// at the start of the next, so up to twice the limit may pass in a short span.
//
// Three limiters with independent state cover the traffic classes:
//
//	lims := resilience.NewLimiters(resilience.DefaultLimitersConfig())
//	r.Use(resilience.Guard(lims, metrics))
//
// ClientIP trusts X-Forwarded-For, X-Real-IP and X-Client-IP. Deploy behind a
// reverse proxy that overwrites those headers, or clients can pick their own
// identifier.
//
// Expired windows are only dropped by Cleanup; run RunCleanup in the
// background so the identifier map does not grow without bound.
//
// # Retry
//
// Retry re-runs an operation with exponential backoff while RetryIf accepts
// its error.
package resilience
