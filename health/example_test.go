package health_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/postboard/cache"
	"github.com/jonwraymond/postboard/health"
)

func ExampleNewCheckerFunc() {
	dbChecker := health.NewCheckerFunc("database", func(ctx context.Context) health.Result {
		return health.Healthy("database connected")
	})

	result := dbChecker.Check(context.Background())

	fmt.Println("Checker name:", dbChecker.Name())
	fmt.Println("Status:", result.Status.String())
	fmt.Println("Message:", result.Message)
	// Output:
	// Checker name: database
	// Status: healthy
	// Message: database connected
}

func ExampleUnhealthy() {
	result := health.Unhealthy("database unreachable", errors.New("connection refused"))

	fmt.Println("Status:", result.Status.String())
	fmt.Println("HTTP:", result.Status.HTTPStatus())
	fmt.Println("Has error:", result.Error != nil)
	// Output:
	// Status: unhealthy
	// HTTP: 503
	// Has error: true
}

func ExampleNewCacheChecker() {
	mc := cache.NewMemoryCache(cache.MemoryConfig{MaxEntries: 1})
	checker := health.NewCacheChecker(mc, 1)

	ctx := context.Background()
	fmt.Println("Empty:", checker.Check(ctx).Status)

	_ = mc.Set(ctx, "posts:all", []byte("[]"), time.Minute, nil)
	fmt.Println("Full:", checker.Check(ctx).Status)
	// Output:
	// Empty: healthy
	// Full: degraded
}

func ExampleAggregator_CheckAll() {
	agg := health.NewAggregator()
	agg.Register("store", health.NewCheckerFunc("store", func(ctx context.Context) health.Result {
		return health.Healthy("store reachable")
	}))
	agg.Register("cache", health.NewCheckerFunc("cache", func(ctx context.Context) health.Result {
		return health.Degraded("cache full")
	}))

	results := agg.CheckAll(context.Background())

	fmt.Println("Store:", results["store"].Status)
	fmt.Println("Cache:", results["cache"].Status)
	fmt.Println("Overall:", health.OverallStatus(results))
	// Output:
	// Store: healthy
	// Cache: degraded
	// Overall: degraded
}

func ExampleMount() {
	agg := health.NewAggregator()
	agg.Register("store", health.NewCheckerFunc("store", func(ctx context.Context) health.Result {
		return health.Unhealthy("store unreachable", nil)
	}))

	r := chi.NewRouter()
	health.Mount(r, agg)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		fmt.Println(path, rec.Code, rec.Body.String())
	}
	// Output:
	// /healthz 200 OK
	// /readyz 503 UNHEALTHY
}
