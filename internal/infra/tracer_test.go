package infra

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"aes128-service/config"
)

func TestInitTracer_Disabled(t *testing.T) {
	tp, err := InitTracer(context.Background(), &config.Config{OtelEnabled: false})
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	if tp != nil {
		t.Error("want nil provider when otel is disabled")
	}
}

func TestNewTracerProvider_Resource(t *testing.T) {
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()
	cfg := &config.Config{
		OtelServiceName:    "aes128-service",
		OtelSamplingRate:   1.0,
		GoogleCloudProject: "crypto-prod",
	}

	tp, err := newTracerProvider(ctx, cfg, exporter)
	if err != nil {
		t.Fatalf("newTracerProvider failed: %v", err)
	}
	t.Cleanup(func() { _ = tp.Shutdown(ctx) })

	_, span := tp.Tracer("test").Start(ctx, "EncryptBlock")
	span.End()
	if err := tp.ForceFlush(ctx); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("want 1 span, got %d", len(spans))
	}

	got := make(map[attribute.Key]string)
	for _, kv := range spans[0].Resource.Attributes() {
		got[kv.Key] = kv.Value.Emit()
	}
	want := map[attribute.Key]string{
		"service.name":     "aes128-service",
		"cipher.algorithm": "AES-128",
		"cloud.provider":   "gcp",
		"cloud.account.id": "crypto-prod",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("resource %s: want %q, got %q", k, v, got[k])
		}
	}
}

func TestNewTracerProvider_SamplingRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want int
	}{
		{"always", 1.0, 10},
		{"above one", 5, 10},
		{"never", 0, 0},
		{"negative", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			exporter := tracetest.NewInMemoryExporter()
			tp, err := newTracerProvider(ctx, &config.Config{OtelServiceName: "svc", OtelSamplingRate: tt.rate}, exporter)
			if err != nil {
				t.Fatalf("newTracerProvider failed: %v", err)
			}
			t.Cleanup(func() { _ = tp.Shutdown(ctx) })

			for i := 0; i < 10; i++ {
				_, span := tp.Tracer("test").Start(ctx, "op")
				span.End()
			}
			if err := tp.ForceFlush(ctx); err != nil {
				t.Fatalf("ForceFlush failed: %v", err)
			}
			if got := len(exporter.GetSpans()); got != tt.want {
				t.Errorf("want %d spans, got %d", tt.want, got)
			}
		})
	}
}
