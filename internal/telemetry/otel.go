package telemetry

import (
	"context"
	"fmt"

	"github.com/benvon/quicknode/internal/quickinput"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer used for quicknode spans
const InstrumentationName = "github.com/benvon/quicknode"

// SpanParse is the span wrapping one quick-input parse
const SpanParse = "quickinput.parse"

// InitTracer initializes the OpenTelemetry tracer provider and installs it globally
func InitTracer(ctx context.Context, serviceName, endpoint string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}

// Shutdown gracefully shuts down the tracer provider
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// Tracer returns the quicknode tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// StartParseSpan opens a quickinput.parse span. The text itself is not recorded.
func StartParseSpan(ctx context.Context, source string, textLen int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, SpanParse, trace.WithAttributes(
		attribute.String("quickinput.source", source),
		attribute.Int("quickinput.text_length", textLen),
	))
}

// RecordParseResult annotates span with the pattern counts of result
func RecordParseResult(span trace.Span, result quickinput.ParseResult) {
	counts := make(map[quickinput.PatternKind]int)
	for _, p := range result.Patterns {
		counts[p.Type]++
	}

	attrs := []attribute.KeyValue{
		attribute.Int("quickinput.pattern_count", len(result.Patterns)),
		attribute.Int("quickinput.content_length", len(result.Content)),
	}
	for _, kind := range quickinput.Kinds {
		if n := counts[kind]; n > 0 {
			attrs = append(attrs, attribute.Int("quickinput.patterns."+string(kind), n))
		}
	}
	span.SetAttributes(attrs...)
}
