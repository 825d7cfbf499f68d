package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"newsletter-go/internal/config"
)

func TestInitTracingWithoutExporter(t *testing.T) {
	tp, err := InitTracing("newsletter-test", "0.0.1", config.Telemetry{Exporter: "none", SampleRatio: 1})
	require.NoError(t, err)
	defer func() { _ = ShutdownTracing(context.Background(), tp) }()

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.SpanContext().IsSampled())
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing("newsletter-test", "0.0.1", config.Telemetry{Exporter: "zipkin", SampleRatio: 1})
	assert.Error(t, err)
}

func TestSpanRecorder(t *testing.T) {
	recorder := NewSpanRecorder()
	tp := InitTestTracing(recorder)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := otel.Tracer("test")
	_, write := tracer.Start(context.Background(), "write")
	write.SetAttributes(attribute.String("operation", "database.write"))
	write.End()

	_, other := tracer.Start(context.Background(), "other")
	other.End()

	assert.Len(t, recorder.Spans(), 2)
	assert.Len(t, recorder.SpansByName("write"), 1)

	writes := recorder.SpansByOperation("database.write")
	require.Len(t, writes, 1)

	v, ok := Attribute(writes[0], "operation")
	assert.True(t, ok)
	assert.Equal(t, "database.write", v.AsString())

	_, ok = Attribute(writes[0], "missing")
	assert.False(t, ok)

	recorder.Clear()
	assert.Empty(t, recorder.Spans())
}
