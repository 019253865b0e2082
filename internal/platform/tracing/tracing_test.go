package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestStartEnd_NoProvider(t *testing.T) {
	ctx, span := Start(context.Background(), "draw.generate", attribute.Int("participants", 3))
	assert.NotNil(t, span)
	assert.False(t, span.IsRecording())
	assert.NotNil(t, trace.SpanFromContext(ctx))

	assert.NotPanics(t, func() { End(span, errors.New("boom")) })
}

func TestInstalledProviderRecords(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp, err := NewProvider(context.Background(), Config{ServiceName: "toolbox-test"},
		sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	Install(tp)
	t.Cleanup(func() { Install(noop.NewTracerProvider()) })

	_, span := Start(context.Background(), "credits.debit", attribute.Int("credits.amount", 2))
	assert.True(t, span.IsRecording())
	End(span, errors.New("connection reset"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	got := ended[0]
	assert.Equal(t, "credits.debit", got.Name())
	assert.Contains(t, got.Attributes(), attribute.Int("credits.amount", 2))
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "connection reset", got.Status().Description)
	assert.Contains(t, got.Resource().Attributes(), semconv.ServiceName("toolbox-test"))
}

func TestNewProvider_OTLPExporter(t *testing.T) {
	tp, err := NewProvider(context.Background(), Config{
		ServiceName:  "toolbox-test",
		OTLPEndpoint: "http://127.0.0.1:4318/",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, tp.Shutdown(ctx))
}
