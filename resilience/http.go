package resilience

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/jonwraymond/postboard/observe"
)

// LoopbackIP is the identifier used when no client IP header is present.
const LoopbackIP = "127.0.0.1"

// ClientIP returns the first X-Forwarded-For entry, then X-Real-IP, then
// X-Client-IP, falling back to LoopbackIP. RemoteAddr is ignored.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Client-IP"); ip != "" {
		return ip
	}
	return LoopbackIP
}

// RateLimitedBody is the JSON body of a 429 response.
type RateLimitedBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter"`
}

// RetryAfterSeconds returns the whole seconds until resetTime, rounded up.
func RetryAfterSeconds(resetTime, now time.Time) int64 {
	d := resetTime.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}

// WriteRateLimited writes a 429 response telling the client when to retry.
func WriteRateLimited(w http.ResponseWriter, resetTime time.Time, remaining int, now time.Time) {
	retryAfter := RetryAfterSeconds(resetTime, now)

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.UnixMilli(), 10))
	h.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	w.WriteHeader(http.StatusTooManyRequests)

	_ = json.NewEncoder(w).Encode(RateLimitedBody{
		Error:      "Too Many Requests",
		Message:    fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
		RetryAfter: retryAfter,
	})
}

// KeyFunc derives the rate limit identifier of a request.
type KeyFunc func(r *http.Request) string

// Limit returns middleware that rejects requests over l's limit. A nil keyFn
// uses ClientIP.
func Limit(l *RateLimiter, keyFn KeyFunc) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := keyFn(r)
			if l.IsRateLimited(id) {
				WriteRateLimited(w, l.ResetTime(id), l.Remaining(id), l.config.Now())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type classifiedLimiter struct {
	name    string
	limiter *RateLimiter
	applies func(path string) bool
}

// Guard returns middleware that applies every limiter whose traffic class
// matches the request path, keyed by ClientIP:
//   - API: paths under /api/
//   - Auth: paths containing /auth
//   - Admin: paths under /admin or containing /api/admin
//
// Each matching limiter consumes a slot. The first rejection ends the request.
// A nil m records nothing.
func Guard(l *Limiters, m observe.Metrics) func(http.Handler) http.Handler {
	if m == nil {
		m = observe.NopMetrics()
	}
	classes := []classifiedLimiter{
		{LimiterAPI, l.API, func(p string) bool { return strings.HasPrefix(p, "/api/") }},
		{LimiterAuth, l.Auth, func(p string) bool { return strings.Contains(p, "/auth") }},
		{LimiterAdmin, l.Admin, func(p string) bool {
			return strings.HasPrefix(p, "/admin") || strings.Contains(p, "/api/admin")
		}},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			for _, c := range classes {
				if !c.applies(r.URL.Path) {
					continue
				}
				limited := c.limiter.IsRateLimited(ip)
				m.RecordRateLimit(r.Context(), c.name, limited)
				if limited {
					WriteRateLimited(w, c.limiter.ResetTime(ip), c.limiter.Remaining(ip), c.limiter.config.Now())
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
