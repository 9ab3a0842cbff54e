package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTraceFieldsWithoutSpan(t *testing.T) {
	assert.Empty(t, TraceFields(context.Background()))
}

func TestWithTrace(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	core, logs := observer.New(zap.DebugLevel)
	WithTrace(ctx, zap.New(core)).Info("refreshing")

	entry := logs.All()[0]
	assert.Equal(t, span.SpanContext().TraceID().String(), entry.ContextMap()["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry.ContextMap()["span_id"])
}
