package observe

import (
	"context"
	"time"
)

// Middleware bundles the tracer, metrics and logger handed to the cache,
// mutation and rate limiting layers.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Tracer returns the wrapped tracer.
func (m *Middleware) Tracer() Tracer { return m.tracer }

// Metrics returns the wrapped metrics recorder.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the wrapped logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Run executes fn inside a span for op and logs the outcome at debug level,
// or at error level on failure. The error from fn is returned unchanged.
func (m *Middleware) Run(ctx context.Context, op Operation, fn func(ctx context.Context) error) error {
	ctx, span := m.tracer.StartSpan(ctx, op)

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	m.tracer.EndSpan(span, err)

	fields := []Field{
		F("op", op.SpanName()),
		F("duration_ms", duration),
	}
	if op.Key != "" {
		fields = append(fields, F("key", op.Key))
	}

	if err != nil {
		fields = append(fields, Err(err))
		m.logger.Error(ctx, "operation failed", fields...)
	} else {
		m.logger.Debug(ctx, "operation completed", fields...)
	}

	return err
}
