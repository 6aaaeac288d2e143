package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_NoTracer(t *testing.T) {
	SetTracer(nil)

	ctx, span := StartSpan(context.Background(), "noop")
	require.NotNil(t, span)
	span.End()

	assert.Nil(t, GetActiveSpan(ctx))
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))
	assert.Empty(t, GetTraceParent(ctx))
}

func TestStartSpan_WithTracer(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	SetTracer(provider.Tracer("test"))
	t.Cleanup(func() { SetTracer(nil) })

	ctx, span := StartSpan(context.Background(), "work")
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.NotEmpty(t, GetSpanID(ctx))
	assert.Contains(t, GetTraceParent(ctx), GetTraceID(ctx))

	RecordError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "work", ended[0].Name())
	assert.Equal(t, "boom", ended[0].Status().Description)
}

func TestSetup(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})

	t.Run("none", func(t *testing.T) {
		shutdown, err := Setup(context.Background(), logger, ProviderConfig{Exporter: ExporterNone})
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	})

	t.Run("console", func(t *testing.T) {
		shutdown, err := Setup(context.Background(), logger, ProviderConfig{ServiceName: "test", Exporter: ExporterConsole})
		require.NoError(t, err)

		ctx, span := StartSpan(context.Background(), "console")
		assert.NotEmpty(t, GetTraceID(ctx))
		span.End()

		assert.NoError(t, shutdown(context.Background()))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Setup(context.Background(), logger, ProviderConfig{Exporter: "zipkin"})
		assert.Error(t, err)
	})
}
