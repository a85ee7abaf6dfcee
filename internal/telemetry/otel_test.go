package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/benvon/quicknode/internal/quickinput"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		endpoint    string
		wantErr     bool
	}{
		{
			name:        "valid configuration",
			serviceName: "quicknode-test",
			endpoint:    "localhost:4318",
		},
		{
			name:        "empty service name",
			serviceName: "",
			endpoint:    "localhost:4318",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tp, err := InitTracer(ctx, tt.serviceName, tt.endpoint)
			if (err != nil) != tt.wantErr {
				t.Errorf("InitTracer() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tp != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := Shutdown(shutdownCtx, tp); err != nil {
					t.Errorf("Shutdown() error = %v", err)
				}
			}
		})
	}
}

func TestShutdown_NilProvider(t *testing.T) {
	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown() with nil provider should not error, got: %v", err)
	}
}

func TestRecordParseResult(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	result := quickinput.ParseInput("Ship it #high [a, b] [release] @sam")

	_, span := tp.Tracer(InstrumentationName).Start(context.Background(), SpanParse)
	RecordParseResult(span, result)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range spans[0].Attributes {
		attrs[kv.Key] = kv.Value
	}

	if got := attrs["quickinput.pattern_count"].AsInt64(); got != 4 {
		t.Errorf("Expected pattern_count 4, got %d", got)
	}
	if got := attrs["quickinput.patterns.tag"].AsInt64(); got != 2 {
		t.Errorf("Expected 2 tag patterns, got %d", got)
	}
	if _, ok := attrs["quickinput.patterns.date"]; ok {
		t.Error("Expected no date attribute when no date was matched")
	}
}
