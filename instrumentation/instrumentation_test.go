package instrumentation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantHandler bool
	}{
		{
			name:        "disabled",
			config:      Config{Enabled: false},
			wantHandler: false,
		},
		{
			name:        "prometheus exporter",
			config:      Config{Enabled: true, ServiceName: "test-service", ServiceVersion: "1.0.0"},
			wantHandler: true,
		},
		{
			name:        "custom reader has no handler",
			config:      Config{Enabled: true, MetricReader: sdkmetric.NewManualReader()},
			wantHandler: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := New(tt.config)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer func() { _ = inst.Shutdown(context.Background()) }()

			if inst.Metrics() == nil {
				t.Error("Metrics() returned nil")
			}
			if inst.Tracer("server") == nil {
				t.Error("Tracer() returned nil")
			}
			if inst.MeterProvider() == nil || inst.TracerProvider() == nil {
				t.Error("providers should not be nil")
			}
			if got := inst.MetricsHandler() != nil; got != tt.wantHandler {
				t.Errorf("MetricsHandler() present = %v, want %v", got, tt.wantHandler)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if inst.config.ServiceName != DefaultServiceName {
		t.Errorf("ServiceName = %q, want %q", inst.config.ServiceName, DefaultServiceName)
	}
	if inst.config.ServiceVersion != DefaultServiceVersion {
		t.Errorf("ServiceVersion = %q, want %q", inst.config.ServiceVersion, DefaultServiceVersion)
	}
}

func TestMetricsHandler_ExposesRecordedMetrics(t *testing.T) {
	inst, err := New(Config{Enabled: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = inst.Shutdown(context.Background()) }()

	inst.Metrics().RecordExchange(context.Background(), ExchangeOutcomeSuccess, 12.5)

	srv := httptest.NewServer(inst.MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "relay_exchanges_total") {
		t.Errorf("exposition missing relay_exchanges_total:\n%s", body)
	}
}

func TestNilInstrumentation(t *testing.T) {
	var inst *Instrumentation

	inst.Metrics().RecordExchange(context.Background(), "internal", 1)
	inst.RecordAuditEvent("exchange_failed")
	if inst.MetricsHandler() != nil {
		t.Error("nil instrumentation should have no metrics handler")
	}
	_, span := inst.Tracer("server").Start(context.Background(), "noop")
	span.End()
	if err := inst.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestInstrumentation_ConcurrentAccess(t *testing.T) {
	inst, err := New(Config{Enabled: true, SpanExporter: tracetest.NewInMemoryExporter()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = inst.Shutdown(context.Background()) }()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, span := inst.Tracer("server").Start(context.Background(), SpanExchangeAndConnect)
			inst.Metrics().RecordHTTPRequest(ctx, http.MethodPost, "/api/twitter/exchange-and-connect", 200, 5)
			span.End()
		}()
	}
	wg.Wait()
}

func TestShutdown_Idempotent(t *testing.T) {
	inst, err := New(Config{Enabled: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := inst.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown() error = %v", err)
	}
	if err := inst.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}
}

func BenchmarkMetrics_RecordHTTPRequest(b *testing.B) {
	inst, _ := New(Config{Enabled: true, MetricReader: sdkmetric.NewManualReader()})
	defer func() { _ = inst.Shutdown(context.Background()) }()
	metrics := inst.Metrics()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		metrics.RecordHTTPRequest(ctx, "POST", "/api/twitter/exchange-and-connect", 200, 123.45)
	}
}

func BenchmarkMetrics_RecordHTTPRequest_NoOp(b *testing.B) {
	inst, _ := New(Config{Enabled: false})
	metrics := inst.Metrics()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		metrics.RecordHTTPRequest(ctx, "POST", "/api/twitter/exchange-and-connect", 200, 123.45)
	}
}
