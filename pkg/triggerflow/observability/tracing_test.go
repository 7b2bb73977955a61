package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest creates a test tracer provider with an in-memory span recorder.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	// Update the package-level tracer
	tracer = otel.Tracer("triggerflow")

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	}

	return exporter, cleanup
}

func spanAttr(s tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, attr := range s.Attributes {
		if string(attr.Key) == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartRunSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	t.Run("creates span with correct name and attributes", func(t *testing.T) {
		_, span := StartRunSpan(context.Background(), "uow-1", "AccountHandler", "after_update", true)
		require.NotNil(t, span)
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)

		s := spans[0]
		assert.Equal(t, "triggerflow.run", s.Name)

		v, ok := spanAttr(s, "unit.id")
		require.True(t, ok)
		assert.Equal(t, "uow-1", v.AsString())

		v, ok = spanAttr(s, "handler.name")
		require.True(t, ok)
		assert.Equal(t, "AccountHandler", v.AsString())

		v, ok = spanAttr(s, "handler.phase")
		require.True(t, ok)
		assert.Equal(t, "after_update", v.AsString())

		v, ok = spanAttr(s, "handler.outer")
		require.True(t, ok)
		assert.True(t, v.AsBool())
	})

	t.Run("nested runs are child spans", func(t *testing.T) {
		exporter.Reset()

		ctx, outer := StartRunSpan(context.Background(), "uow", "A", "after_update", true)
		_, inner := StartRunSpan(ctx, "uow", "A", "before_update", false)
		inner.End()
		outer.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 2)
		assert.True(t, spans[0].Parent.IsValid(), "inner span ends first and has a parent")
		assert.False(t, spans[1].Parent.IsValid())
	})
}

func TestEndSpanWithError(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	t.Run("sets OK status for nil error", func(t *testing.T) {
		_, span := StartRunSpan(context.Background(), "uow", "A", "before_insert", true)

		EndSpanWithError(span, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)
	})

	t.Run("sets Error status and records error", func(t *testing.T) {
		exporter.Reset()
		_, span := StartRunSpan(context.Background(), "uow", "A", "before_insert", true)

		EndSpanWithError(span, errors.New("something went wrong"))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)

		s := spans[0]
		assert.Equal(t, codes.Error, s.Status.Code)
		assert.Equal(t, "something went wrong", s.Status.Description)

		found := false
		for _, event := range s.Events {
			if event.Name == "exception" {
				found = true
			}
		}
		assert.True(t, found, "Expected exception event")
	})

	t.Run("nil span does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			EndSpanWithError(nil, errors.New("test"))
		})
	})
}

func TestAddSpanEvent(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	t.Run("adds event to recording span", func(t *testing.T) {
		ctx, span := StartRunSpan(context.Background(), "uow", "A", "after_insert", true)
		AddSpanEvent(ctx, "limits.reported", attribute.Int("count", 2))
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		require.Len(t, spans[0].Events, 1)
		assert.Equal(t, "limits.reported", spans[0].Events[0].Name)
	})

	t.Run("no span in context does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			AddSpanEvent(context.Background(), "ignored")
		})
	})
}

func TestSpanManager(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()
	ctx, span := sm.StartRunSpan(context.Background(), "uow", "A", "after_delete", false)
	sm.AddSpanEvent(ctx, "checked")
	sm.EndSpanWithError(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "triggerflow.run", spans[0].Name)
	assert.Len(t, spans[0].Events, 1)
}

func TestNewSpanManagerFromProvider(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	sm := NewSpanManagerFromProvider(tp)
	_, span := sm.StartRunSpan(context.Background(), "uow-2", "B", "before_update", true)
	sm.EndSpanWithError(span, errors.New("boom"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	outer, ok := spanAttr(spans[0], "handler.outer")
	require.True(t, ok)
	assert.True(t, outer.AsBool())
}
