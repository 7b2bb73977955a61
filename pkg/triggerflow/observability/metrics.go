package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records triggerflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records one callback invocation with its duration and error status.
	RecordDispatch(ctx context.Context, handler, phase string, duration time.Duration, err error)

	// RecordSuppressed records a run skipped because the handler was bypassed.
	RecordSuppressed(ctx context.Context, handler, phase string)

	// RecordRecursionExceeded records a run refused by the recursion guard.
	RecordRecursionExceeded(ctx context.Context, handler, phase string, limit int)

	// RecordLimit records one platform resource usage counter from a diagnostics report.
	RecordLimit(ctx context.Context, handler, name string, used, limit int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	dispatches      metric.Int64Counter
	dispatchLatency metric.Float64Histogram
	dispatchErrors  metric.Int64Counter
	suppressed      metric.Int64Counter
	recursion       metric.Int64Counter
	limitUsed       metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.Meter(instrumentationName))
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates the triggerflow instruments on meter.
func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	dispatches, err := meter.Int64Counter("triggerflow.dispatch.count",
		metric.WithDescription("Number of handler callbacks invoked"),
	)
	if err != nil {
		return nil, err
	}

	dispatchLatency, err := meter.Float64Histogram("triggerflow.dispatch.latency_ms",
		metric.WithDescription("Handler callback latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	dispatchErrors, err := meter.Int64Counter("triggerflow.dispatch.errors",
		metric.WithDescription("Number of handler callbacks that failed"),
	)
	if err != nil {
		return nil, err
	}

	suppressed, err := meter.Int64Counter("triggerflow.run.suppressed",
		metric.WithDescription("Number of runs skipped because the handler was bypassed"),
	)
	if err != nil {
		return nil, err
	}

	recursion, err := meter.Int64Counter("triggerflow.recursion.exceeded",
		metric.WithDescription("Number of runs refused by the recursion guard"),
	)
	if err != nil {
		return nil, err
	}

	limitUsed, err := meter.Int64Histogram("triggerflow.limit.used",
		metric.WithDescription("Platform resource usage reported after a run"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		dispatches:      dispatches,
		dispatchLatency: dispatchLatency,
		dispatchErrors:  dispatchErrors,
		suppressed:      suppressed,
		recursion:       recursion,
		limitUsed:       limitUsed,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// NewMetricsRecorderFromProvider returns a MetricsRecorder whose instruments
// are created on mp instead of the global provider. Unlike
// NewMetricsRecorder it reports instrument errors to the caller.
func NewMetricsRecorderFromProvider(mp metric.MeterProvider) (MetricsRecorder, error) {
	m, err := newOtelMetrics(mp.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}
	return m, nil
}

func handlerAttrs(handler, phase string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("handler", handler),
		attribute.String("phase", phase),
	)
}

// RecordDispatch records a callback invocation.
func (m *otelMetrics) RecordDispatch(ctx context.Context, handler, phase string, duration time.Duration, err error) {
	attrs := handlerAttrs(handler, phase)
	m.dispatches.Add(ctx, 1, attrs)
	m.dispatchLatency.Record(ctx, Milliseconds(duration), attrs)
	if err != nil {
		m.dispatchErrors.Add(ctx, 1, attrs)
	}
}

// RecordSuppressed records a bypassed run.
func (m *otelMetrics) RecordSuppressed(ctx context.Context, handler, phase string) {
	m.suppressed.Add(ctx, 1, handlerAttrs(handler, phase))
}

// RecordRecursionExceeded records a refused run.
func (m *otelMetrics) RecordRecursionExceeded(ctx context.Context, handler, phase string, limit int) {
	m.recursion.Add(ctx, 1, metric.WithAttributes(
		attribute.String("handler", handler),
		attribute.String("phase", phase),
		attribute.Int("max_loop_count", limit),
	))
}

// RecordLimit records a resource usage counter.
func (m *otelMetrics) RecordLimit(ctx context.Context, handler, name string, used, limit int64) {
	m.limitUsed.Record(ctx, used, metric.WithAttributes(
		attribute.String("handler", handler),
		attribute.String("limit", name),
		attribute.Int64("max", limit),
	))
}
