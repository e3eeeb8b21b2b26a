package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestInstrumentation(t *testing.T) (*Instrumentation, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	inst, err := New(Config{Enabled: true, MetricReader: reader})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = inst.Shutdown(context.Background()) })
	return inst, reader
}

// counterValue sums the data points of an int64 counter whose attributes
// contain key=value. An empty key matches all points.
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name, key, value string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is %T, want Sum[int64]", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if key == "" {
					total += dp.Value
					continue
				}
				if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.Emit() == value {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	inst, reader := newTestInstrumentation(t)
	ctx := context.Background()

	inst.Metrics().RecordHTTPRequest(ctx, "POST", "/api/twitter/exchange-and-connect", 200, 12)
	inst.Metrics().RecordHTTPRequest(ctx, "POST", "/api/twitter/exchange-and-connect", 400, 3)
	inst.Metrics().RecordHTTPRequest(ctx, "GET", "/health", 200, 1)

	if got := counterValue(t, reader, MetricHTTPRequestsTotal, "", ""); got != 3 {
		t.Errorf("requests total = %d, want 3", got)
	}
	if got := counterValue(t, reader, MetricHTTPRequestsTotal, "status", "400"); got != 1 {
		t.Errorf("requests with status 400 = %d, want 1", got)
	}
}

func TestMetrics_RecordExchange(t *testing.T) {
	inst, reader := newTestInstrumentation(t)
	ctx := context.Background()

	inst.Metrics().RecordExchange(ctx, ExchangeOutcomeSuccess, 100)
	inst.Metrics().RecordExchange(ctx, "upstream_auth", 50)
	inst.Metrics().RecordExchange(ctx, "upstream_auth", 60)

	if got := counterValue(t, reader, MetricExchangesTotal, "outcome", "upstream_auth"); got != 2 {
		t.Errorf("upstream_auth exchanges = %d, want 2", got)
	}
	if got := counterValue(t, reader, MetricExchangesTotal, "outcome", ExchangeOutcomeSuccess); got != 1 {
		t.Errorf("successful exchanges = %d, want 1", got)
	}
}

func TestMetrics_RecordProviderAPICall(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		err           error
		wantErrorType string
	}{
		{name: "success", statusCode: 200},
		{name: "client error", statusCode: 400, err: errors.New("invalid_grant"), wantErrorType: "client_error"},
		{name: "server error", statusCode: 503, err: errors.New("unavailable"), wantErrorType: "server_error"},
		{name: "transport error", statusCode: 0, err: errors.New("dial tcp"), wantErrorType: "transport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, reader := newTestInstrumentation(t)
			inst.Metrics().RecordProviderAPICall(context.Background(), "twitter", "exchange_code", tt.statusCode, 10, tt.err)

			if got := counterValue(t, reader, MetricProviderAPICallsTotal, "provider", "twitter"); got != 1 {
				t.Errorf("calls = %d, want 1", got)
			}
			wantErrors := int64(0)
			if tt.err != nil {
				wantErrors = 1
			}
			if got := counterValue(t, reader, MetricProviderAPIErrors, "", ""); got != wantErrors {
				t.Errorf("errors = %d, want %d", got, wantErrors)
			}
			if tt.wantErrorType != "" {
				if got := counterValue(t, reader, MetricProviderAPIErrors, "error_type", tt.wantErrorType); got != 1 {
					t.Errorf("errors of type %s = %d, want 1", tt.wantErrorType, got)
				}
			}
		})
	}
}

func TestMetrics_RecordDownstreamCall(t *testing.T) {
	inst, reader := newTestInstrumentation(t)
	ctx := context.Background()

	inst.Metrics().RecordDownstreamCall(ctx, "firestarter", 200, 20, nil)
	inst.Metrics().RecordDownstreamCall(ctx, "firestarter", 404, 5, errors.New("not found"))

	if got := counterValue(t, reader, MetricDownstreamCallsTotal, "connector", "firestarter"); got != 2 {
		t.Errorf("downstream calls = %d, want 2", got)
	}
	if got := counterValue(t, reader, MetricDownstreamErrors, "error_type", "client_error"); got != 1 {
		t.Errorf("downstream client errors = %d, want 1", got)
	}
}

func TestMetrics_RecordAuditEvent(t *testing.T) {
	inst, reader := newTestInstrumentation(t)

	inst.RecordAuditEvent("exchange_failed")
	inst.RecordAuditEvent("exchange_failed")
	inst.RecordAuditEvent("debug_access_denied")

	if got := counterValue(t, reader, MetricAuditEventsTotal, "event_type", "exchange_failed"); got != 2 {
		t.Errorf("exchange_failed events = %d, want 2", got)
	}
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "GET", "/health", 200, 1)
	m.RecordExchange(ctx, ExchangeOutcomeSuccess, 1)
	m.RecordProviderAPICall(ctx, "twitter", "exchange_code", 500, 1, errors.New("boom"))
	m.RecordDownstreamCall(ctx, "mock", 500, 1, errors.New("boom"))
	m.RecordAuditEvent(ctx, "exchange_failed")
}
