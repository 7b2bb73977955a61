package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "triggerflow"

// Tracer is the triggerflow tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer(instrumentationName)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRunSpan starts a span for one supervised handler run.
	// Nested runs become child spans of the run that caused them.
	StartRunSpan(ctx context.Context, unitID, handler, phase string, outer bool) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry. A nil tracer
// means the package-level global tracer.
type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// NewSpanManagerFromProvider returns a SpanManager that starts spans on tp
// instead of the global provider.
func NewSpanManagerFromProvider(tp trace.TracerProvider) SpanManager {
	return &otelSpanManager{tracer: tp.Tracer(instrumentationName)}
}

// StartRunSpan starts a span for one handler run.
func (m *otelSpanManager) StartRunSpan(ctx context.Context, unitID, handler, phase string, outer bool) (context.Context, trace.Span) {
	if m.tracer == nil {
		return StartRunSpan(ctx, unitID, handler, phase, outer)
	}
	return startRunSpan(ctx, m.tracer, unitID, handler, phase, outer)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// Convenience functions that operate on the global tracer.
// These are useful for simple cases where you don't need the interface.

// StartRunSpan starts a span named "triggerflow.run".
// Uses the global OTel tracer.
func StartRunSpan(ctx context.Context, unitID, handler, phase string, outer bool) (context.Context, trace.Span) {
	return startRunSpan(ctx, tracer, unitID, handler, phase, outer)
}

func startRunSpan(ctx context.Context, t trace.Tracer, unitID, handler, phase string, outer bool) (context.Context, trace.Span) {
	return t.Start(ctx, "triggerflow.run",
		trace.WithAttributes(
			attribute.String("unit.id", unitID),
			attribute.String("handler.name", handler),
			attribute.String("handler.phase", phase),
			attribute.Bool("handler.outer", outer),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
