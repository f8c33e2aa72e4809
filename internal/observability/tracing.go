package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TraceConfig selects where spans are exported. An empty Endpoint disables
// export; spans are then created against the global no-op provider.
type TraceConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"-"`
	Environment    string `yaml:"environment"`

	// Endpoint is an OTLP/gRPC collector address such as "localhost:4317".
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`

	// SamplingRate is the fraction of root spans kept. Zero means 1; a
	// negative rate drops everything.
	SamplingRate float64 `yaml:"sampling_rate"`

	Attributes map[string]string `yaml:"attributes"`
}

// Tracer creates the spans sitechat emits around ingestion, retrieval,
// generation and message handling. A nil *Tracer is valid and produces
// non-recording spans.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TraceConfig
}

// NewTracer builds a Tracer and the function that flushes it on shutdown.
// Exporter failures degrade to an unexported tracer rather than an error.
func NewTracer(config TraceConfig) (*Tracer, func(context.Context) error) {
	if config.ServiceName == "" {
		config.ServiceName = "sitechat"
	}
	t := &Tracer{tracer: otel.Tracer(config.ServiceName), config: config}
	noShutdown := func(context.Context) error { return nil }
	if config.Endpoint == "" {
		return t, noShutdown
	}

	clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(clientOpts...))
	if err != nil {
		return t, noShutdown
	}

	t.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(serviceResource(config)),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(config.SamplingRate))),
	)
	t.tracer = t.provider.Tracer(config.ServiceName)
	otel.SetTracerProvider(t.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, t.provider.Shutdown
}

func serviceResource(config TraceConfig) *resource.Resource {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	}
	if config.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(config.Environment))
	}
	for k, v := range config.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		return resource.Default()
	}
	return res
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate == 0 || rate >= 1:
		return sdktrace.AlwaysSample()
	case rate < 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Start opens a span; the caller ends it.
func (t *Tracer) Start(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, name, trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
}

// RecordError marks span failed with err. A nil err is ignored.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceIngest covers extracting and chunking one source.
func (t *Tracer) TraceIngest(ctx context.Context, origin string) (context.Context, trace.Span) {
	return t.Start(ctx, "kb.ingest", trace.SpanKindInternal, attribute.String("kb.origin", origin))
}

// TraceRetrieval covers one knowledge base query.
func (t *Tracer) TraceRetrieval(ctx context.Context, topK int) (context.Context, trace.Span) {
	return t.Start(ctx, "kb.query", trace.SpanKindInternal, attribute.Int("kb.top_k", topK))
}

// TraceGeneration covers a model call, retries included.
func (t *Tracer) TraceGeneration(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return t.Start(ctx, "llm."+provider, trace.SpanKindClient,
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
}

// TraceMessage covers answering one chat message.
func (t *Tracer) TraceMessage(ctx context.Context, channel, kind string) (context.Context, trace.Span) {
	return t.Start(ctx, "chat.message", trace.SpanKindServer,
		attribute.String("chat.channel", channel),
		attribute.String("chat.kind", kind),
	)
}

// TraceID returns the trace ID active in ctx, or "" outside a sampled span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
