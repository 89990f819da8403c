package resilience

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func BenchmarkRateLimiter_IsRateLimited(b *testing.B) {
	rl := NewRateLimiter(RateLimiterConfig{Window: time.Minute, MaxRequests: 1 << 30})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rl.IsRateLimited("203.0.113.7")
	}
}

func BenchmarkRateLimiter_ManyIdentifiers(b *testing.B) {
	rl := NewRateLimiter(RateLimiterConfig{Window: time.Minute, MaxRequests: 100})
	ids := make([]string, 1024)
	for i := range ids {
		ids[i] = "10.0." + strconv.Itoa(i/256) + "." + strconv.Itoa(i%256)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rl.IsRateLimited(ids[i%len(ids)])
	}
}

func BenchmarkRateLimiter_Parallel(b *testing.B) {
	rl := NewRateLimiter(RateLimiterConfig{Window: time.Minute, MaxRequests: 1 << 30})

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			rl.IsRateLimited("shared")
		}
	})
}

func BenchmarkRateLimiter_Cleanup(b *testing.B) {
	now := time.Now()
	rl := NewRateLimiter(RateLimiterConfig{
		Window:      time.Minute,
		MaxRequests: 100,
		Now:         func() time.Time { return now },
	})
	for i := 0; i < 10000; i++ {
		rl.IsRateLimited(strconv.Itoa(i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rl.Cleanup()
	}
}

func BenchmarkGuard(b *testing.B) {
	h := Guard(NewLimiters(LimitersConfig{
		API:   RateLimiterConfig{MaxRequests: 1 << 30},
		Auth:  RateLimiterConfig{MaxRequests: 1 << 30},
		Admin: RateLimiterConfig{MaxRequests: 1 << 30},
	}), nil)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/admin/roles", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
