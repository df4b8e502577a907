package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer for the gateway's three dispatch
// points: provider infer/infer_stream, OLAP query execution, and dataset
// materialization. Exporting spans to a collector is an external-collaborator
// concern (out of scope); this wraps only span creation and propagation so
// callers get a uniform instrumentation surface regardless of what, if
// anything, is wired to receive the spans.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// TraceConfig configures the tracer.
type TraceConfig struct {
	ServiceName string
	// SpanProcessors lets callers attach exporters (otlp, in-memory test
	// recorders) without this package depending on any specific exporter.
	SpanProcessors []sdktrace.SpanProcessor
}

// NewTracer creates a tracer. Callers that need spans exported somewhere
// attach a sdktrace.SpanProcessor via TraceConfig.SpanProcessors (e.g. an
// in-memory recorder in tests, an OTLP batch processor in production).
func NewTracer(config TraceConfig) *Tracer {
	opts := make([]sdktrace.TracerProviderOption, 0, len(config.SpanProcessors))
	for _, sp := range config.SpanProcessors {
		opts = append(opts, sdktrace.WithSpanProcessor(sp))
	}
	provider := sdktrace.NewTracerProvider(opts...)

	name := config.ServiceName
	if name == "" {
		name = "llmgateway"
	}
	return &Tracer{provider: provider, tracer: provider.Tracer(name)}
}

// Start begins a span and returns the derived context plus the span handle.
func (t *Tracer) Start(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError marks the span as errored and attaches the error message.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Shutdown flushes and stops the underlying tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

// ProviderSpanAttrs builds the standard attribute set for a provider dispatch span.
func ProviderSpanAttrs(provider, model string, streaming bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("gateway.provider", provider),
		attribute.String("gateway.model", model),
		attribute.Bool("gateway.streaming", streaming),
	}
}

// QuerySpanAttrs builds the standard attribute set for an OLAP query span.
func QuerySpanAttrs(operation string, paramCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("gateway.olap.operation", operation),
		attribute.Int("gateway.olap.param_count", paramCount),
	}
}
