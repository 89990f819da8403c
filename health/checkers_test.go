package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/postboard/cache"
	"github.com/jonwraymond/postboard/resilience"
	"github.com/jonwraymond/postboard/store"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixedSize int

func (n fixedSize) Len() int { return int(n) }

func TestStoreChecker(t *testing.T) {
	db, err := store.Open(store.Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	checker := NewStoreChecker(db)
	if checker.Name() != "store" {
		t.Errorf("Name() = %v, want store", checker.Name())
	}

	if got := checker.Check(context.Background()).Status; got != StatusHealthy {
		t.Errorf("open store Status = %v, want StatusHealthy", got)
	}

	_ = db.Close()

	result := checker.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("closed store Status = %v, want StatusUnhealthy", result.Status)
	}
	if !errors.Is(result.Error, store.ErrClosed) {
		t.Errorf("closed store Error = %v, want store.ErrClosed", result.Error)
	}
}

func TestStoreChecker_PingError(t *testing.T) {
	boom := errors.New("boom")
	checker := NewStoreChecker(pingFunc(func(context.Context) error { return boom }))

	result := checker.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want StatusUnhealthy", result.Status)
	}
	if !errors.Is(result.Error, boom) {
		t.Errorf("Error = %v, want %v", result.Error, boom)
	}
}

func TestCacheChecker(t *testing.T) {
	tests := []struct {
		name string
		size int
		max  int
		want Status
	}{
		{"empty", 0, 10, StatusHealthy},
		{"below capacity", 9, 10, StatusHealthy},
		{"full", 10, 10, StatusDegraded},
		{"unbounded", 1000, 0, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewCacheChecker(fixedSize(tt.size), tt.max).Check(context.Background())
			if result.Status != tt.want {
				t.Errorf("Status = %v, want %v", result.Status, tt.want)
			}
			if result.Details["entries"] != tt.size {
				t.Errorf("Details[entries] = %v, want %v", result.Details["entries"], tt.size)
			}
		})
	}
}

func TestCacheChecker_MemoryCache(t *testing.T) {
	mc := cache.NewMemoryCache(cache.MemoryConfig{MaxEntries: 2})
	checker := NewCacheChecker(mc, 2)

	if checker.Name() != "cache" {
		t.Errorf("Name() = %v, want cache", checker.Name())
	}

	ctx := context.Background()
	_ = mc.Set(ctx, "a", []byte("1"), time.Minute, nil)
	if got := checker.Check(ctx).Status; got != StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy", got)
	}

	_ = mc.Set(ctx, "b", []byte("2"), time.Minute, nil)
	if got := checker.Check(ctx).Status; got != StatusDegraded {
		t.Errorf("Status = %v, want StatusDegraded", got)
	}
}

func TestLimiterChecker(t *testing.T) {
	limiters := resilience.NewLimiters(resilience.DefaultLimitersConfig())
	checker := NewLimiterChecker(limiters, 2)

	if checker.Name() != "ratelimit" {
		t.Errorf("Name() = %v, want ratelimit", checker.Name())
	}

	limiters.API.IsRateLimited("10.0.0.1")
	limiters.Auth.IsRateLimited("10.0.0.1")

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy", result.Status)
	}
	if result.Details[resilience.LimiterAPI] != 1 {
		t.Errorf("Details[api] = %v, want 1", result.Details[resilience.LimiterAPI])
	}

	limiters.Admin.IsRateLimited("10.0.0.2")
	if got := checker.Check(context.Background()).Status; got != StatusDegraded {
		t.Errorf("Status = %v, want StatusDegraded", got)
	}
}
