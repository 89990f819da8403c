package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumWhere totals the int64 data points carrying attr.
func sumWhere(t *testing.T, m *metricdata.Metrics, attr attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
			total += dp.Value
		}
	}
	return total
}

func TestMetrics_CacheLookupOutcomes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCacheLookup(ctx, "posts", true)
	m.RecordCacheLookup(ctx, "posts", true)
	m.RecordCacheLookup(ctx, "posts", false)

	found := findMetric(collect(t, reader), "cache.lookups")
	if found == nil {
		t.Fatal("cache.lookups metric not found")
	}
	if got := sumWhere(t, found, attribute.String("cache.outcome", "hit")); got != 2 {
		t.Errorf("hits = %d, want 2", got)
	}
	if got := sumWhere(t, found, attribute.String("cache.outcome", "miss")); got != 1 {
		t.Errorf("misses = %d, want 1", got)
	}
}

func TestMetrics_FetchErrorsCountedSeparately(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFetch(ctx, "user", 10*time.Millisecond, nil)
	m.RecordFetch(ctx, "user", 20*time.Millisecond, errors.New("boom"))

	rm := collect(t, reader)
	total := findMetric(rm, "cache.fetch.total")
	if total == nil {
		t.Fatal("cache.fetch.total not found")
	}
	if got := sumWhere(t, total, attribute.String("cache.query", "user")); got != 2 {
		t.Errorf("fetch total = %d, want 2", got)
	}

	errs := findMetric(rm, "cache.fetch.errors")
	if errs == nil {
		t.Fatal("cache.fetch.errors not found")
	}
	if got := sumWhere(t, errs, attribute.String("cache.query", "user")); got != 1 {
		t.Errorf("fetch errors = %d, want 1", got)
	}

	hist := findMetric(rm, "cache.fetch.duration_ms")
	if hist == nil {
		t.Fatal("cache.fetch.duration_ms not found")
	}
	h, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", hist.Data)
	}
	if len(h.DataPoints) == 0 || h.DataPoints[0].Count != 2 {
		t.Errorf("histogram datapoints = %+v, want count 2", h.DataPoints)
	}
}

func TestMetrics_InvalidationUsesTagFamily(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordInvalidation(ctx, "post-comments-1", nil)
	m.RecordInvalidation(ctx, "post-comments-2", nil)
	m.RecordInvalidation(ctx, "posts", nil)

	found := findMetric(collect(t, reader), "cache.invalidations")
	if found == nil {
		t.Fatal("cache.invalidations not found")
	}
	if got := sumWhere(t, found, attribute.String("cache.tag_family", "post-comments")); got != 2 {
		t.Errorf("post-comments family = %d, want 2", got)
	}
	if got := sumWhere(t, found, attribute.String("cache.tag_family", "posts")); got != 1 {
		t.Errorf("posts family = %d, want 1", got)
	}
}

func TestMetrics_RateLimitDecisions(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRateLimit(ctx, "auth", false)
	m.RecordRateLimit(ctx, "auth", true)

	found := findMetric(collect(t, reader), "ratelimit.decisions")
	if found == nil {
		t.Fatal("ratelimit.decisions not found")
	}
	if got := sumWhere(t, found, attribute.String("ratelimit.outcome", "limited")); got != 1 {
		t.Errorf("limited = %d, want 1", got)
	}
}

func TestTagFamily(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"posts", "posts"},
		{"posts-published", "posts-published"},
		{"post-abc", "post"},
		{"post-comments-abc", "post-comments"},
		{"user-posts-u1", "user-posts"},
		{"user-u1", "user"},
		{"comment-replies-c1", "comment-replies"},
		{"path:/posts/x", "path"},
	}
	for _, tc := range tests {
		if got := tagFamily(tc.tag); got != tc.want {
			t.Errorf("tagFamily(%q) = %q, want %q", tc.tag, got, tc.want)
		}
	}
}

func TestNopMetrics_DoesNotPanic(t *testing.T) {
	m := NopMetrics()
	ctx := context.Background()
	m.RecordCacheLookup(ctx, "q", true)
	m.RecordFetch(ctx, "q", time.Second, errors.New("x"))
	m.RecordInvalidation(ctx, "t", nil)
	m.RecordRateLimit(ctx, "api", true)
}
