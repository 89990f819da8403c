package health

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
)

func BenchmarkChecker_Check(b *testing.B) {
	checker := NewCheckerFunc("bench", func(ctx context.Context) Result {
		return Healthy("ok")
	})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = checker.Check(ctx)
	}
}

func BenchmarkCacheChecker_Check(b *testing.B) {
	checker := NewCacheChecker(fixedSize(500), 1000)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = checker.Check(ctx)
	}
}

func BenchmarkAggregator_CheckAll(b *testing.B) {
	for _, n := range []int{1, 5, 10} {
		b.Run(fmt.Sprintf("checkers=%d", n), func(b *testing.B) {
			agg := NewAggregator()
			for i := 0; i < n; i++ {
				name := fmt.Sprintf("check-%d", i)
				agg.Register(name, NewCheckerFunc(name, func(ctx context.Context) Result {
					return Healthy("ok")
				}))
			}
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = agg.CheckAll(ctx)
			}
		})
	}
}

func BenchmarkOverallStatus(b *testing.B) {
	results := map[string]Result{
		"store": Healthy("ok"),
		"cache": Degraded("full"),
		"rate":  Healthy("ok"),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = OverallStatus(results)
	}
}

func BenchmarkDetailedHandler_ServeHTTP(b *testing.B) {
	agg := NewAggregator()
	agg.Register("store", NewCheckerFunc("store", func(ctx context.Context) Result {
		return Healthy("ok").WithDetails(map[string]any{"entries": 10})
	}))
	handler := DetailedHandler(agg)
	req := httptest.NewRequest("GET", "/health", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		handler(rec, req)
	}
}

func BenchmarkConcurrent_Aggregator(b *testing.B) {
	agg := NewAggregator()
	agg.Register("store", NewCheckerFunc("store", func(ctx context.Context) Result {
		return Healthy("ok")
	}))
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = agg.CheckAll(ctx)
		}
	})
}
