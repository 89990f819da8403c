package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache and rate limiter activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCacheLookup counts a cache read for the named query.
	RecordCacheLookup(ctx context.Context, query string, hit bool)

	// RecordFetch records an underlying data fetch after a miss.
	RecordFetch(ctx context.Context, query string, duration time.Duration, err error)

	// RecordInvalidation counts a tag revalidation.
	RecordInvalidation(ctx context.Context, tag string, err error)

	// RecordRateLimit counts a limiter decision.
	RecordRateLimit(ctx context.Context, limiter string, limited bool)
}

type metricsImpl struct {
	lookups       metric.Int64Counter
	fetches       metric.Int64Counter
	fetchErrors   metric.Int64Counter
	fetchDuration metric.Float64Histogram
	invalidations metric.Int64Counter
	invalidErrors metric.Int64Counter
	rateDecisions metric.Int64Counter
}

// NewMetrics creates a Metrics instance backed by meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	lookups, err := meter.Int64Counter(
		"cache.lookups",
		metric.WithDescription("Cache reads by query and outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	fetches, err := meter.Int64Counter(
		"cache.fetch.total",
		metric.WithDescription("Underlying data fetches after a cache miss"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	fetchErrors, err := meter.Int64Counter(
		"cache.fetch.errors",
		metric.WithDescription("Underlying data fetches that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"cache.fetch.duration_ms",
		metric.WithDescription("Underlying data fetch duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter(
		"cache.invalidations",
		metric.WithDescription("Tag revalidations issued by mutations"),
		metric.WithUnit("{tag}"),
	)
	if err != nil {
		return nil, err
	}

	invalidErrors, err := meter.Int64Counter(
		"cache.invalidation.errors",
		metric.WithDescription("Tag revalidations the store failed to apply"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	rateDecisions, err := meter.Int64Counter(
		"ratelimit.decisions",
		metric.WithDescription("Rate limiter decisions by limiter and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		lookups:       lookups,
		fetches:       fetches,
		fetchErrors:   fetchErrors,
		fetchDuration: fetchDuration,
		invalidations: invalidations,
		invalidErrors: invalidErrors,
		rateDecisions: rateDecisions,
	}, nil
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, query string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.query", query),
		attribute.String("cache.outcome", outcome),
	))
}

func (m *metricsImpl) RecordFetch(ctx context.Context, query string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("cache.query", query))

	m.fetches.Add(ctx, 1, opt)
	if err != nil {
		m.fetchErrors.Add(ctx, 1, opt)
	}
	m.fetchDuration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordInvalidation(ctx context.Context, tag string, err error) {
	// Per-id tags would explode cardinality; record the tag family only.
	opt := metric.WithAttributes(attribute.String("cache.tag_family", tagFamily(tag)))

	m.invalidations.Add(ctx, 1, opt)
	if err != nil {
		m.invalidErrors.Add(ctx, 1, opt)
	}
}

func (m *metricsImpl) RecordRateLimit(ctx context.Context, limiter string, limited bool) {
	outcome := "allowed"
	if limited {
		outcome = "limited"
	}
	m.rateDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("ratelimit.limiter", limiter),
		attribute.String("ratelimit.outcome", outcome),
	))
}

// tagFamily strips the id suffix: "user-posts-42" -> "user-posts".
func tagFamily(tag string) string {
	if len(tag) > 5 && tag[:5] == "path:" {
		return "path"
	}
	for _, fam := range tagFamilies {
		if len(tag) > len(fam) && tag[:len(fam)] == fam && tag[len(fam)] == '-' {
			return fam
		}
	}
	return tag
}

// Longest prefixes first so "post-comments" wins over "post".
var tagFamilies = []string{
	"comment-replies",
	"category-posts",
	"post-comments",
	"user-profile",
	"user-posts",
	"user-stats",
	"comment",
	"post",
	"user",
}

type noopMetrics struct{}

// NopMetrics returns a Metrics implementation that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordCacheLookup(context.Context, string, bool) {}
func (noopMetrics) RecordFetch(context.Context, string, time.Duration, error) {}
func (noopMetrics) RecordInvalidation(context.Context, string, error) {}
func (noopMetrics) RecordRateLimit(context.Context, string, bool) {}
