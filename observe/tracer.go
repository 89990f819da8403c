package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Operation describes a traced unit of work: a cached query, a mutation or
// an invalidation.
type Operation struct {
	Kind string   // "query", "mutation", "invalidate"
	Name string   // e.g. "posts", "create_post"
	Key  string   // cache key, if any
	Tags []string // cache tags touched (optional)
}

// SpanName returns the deterministic span name: <kind>.<name>.
func (o Operation) SpanName() string {
	if o.Kind == "" {
		return o.Name
	}
	return o.Kind + "." + o.Name
}

// Tracer wraps OpenTelemetry tracing for Operations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("op.kind", op.Kind),
		attribute.String("op.name", op.Name),
		attribute.Bool("op.error", false),
	}
	if op.Key != "" {
		attrs = append(attrs, attribute.String("cache.key", op.Key))
	}
	if len(op.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("cache.tags", op.Tags))
	}

	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("op.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NopTracer returns a tracer whose spans are never recorded.
func NopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	return t.noop.Start(ctx, op.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
