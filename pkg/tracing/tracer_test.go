package tracing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"inventory/pkg/tracing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracer(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := tracing.InitTracer("inventory-test", sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tracing.Shutdown(context.Background(), tp) })

	assert.Same(t, tp, otel.GetTracerProvider())

	_, span := otel.Tracer("test").Start(context.Background(), "work")
	assert.True(t, span.SpanContext().IsSampled())
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "work", spans[0].Name())

	var found bool
	for _, kv := range spans[0].Resource().Attributes() {
		if kv.Key == "service.name" {
			found = true
			assert.Equal(t, "inventory-test", kv.Value.AsString())
		}
	}
	assert.True(t, found)

	carrier := propagation.MapCarrier{}
	ctx, parent := otel.Tracer("test").Start(context.Background(), "outbound")
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	parent.End()
	assert.Contains(t, carrier.Get("traceparent"), parent.SpanContext().TraceID().String())
}

func TestShutdownIgnoresForeignProviders(t *testing.T) {
	assert.NoError(t, tracing.Shutdown(context.Background(), nil))
}

func TestOTLPExporterPostsSpans(t *testing.T) {
	var (
		mu          sync.Mutex
		paths       []string
		contentType string
	)
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, r.URL.Path)
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	exporter, err := tracing.NewOTLPExporter(context.Background(), collector.URL)
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	_, span := tp.Tracer("test").Start(context.Background(), "exported")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, paths)
	assert.Equal(t, "/v1/traces", paths[0])
	assert.Equal(t, "application/x-protobuf", contentType)
}

func TestOTLPExporterRejectsBadEndpoints(t *testing.T) {
	for _, endpoint := range []string{"collector:4318", "://nope", "http://"} {
		_, err := tracing.NewOTLPExporter(context.Background(), endpoint)
		assert.Error(t, err, endpoint)
	}
}
