package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricHTTPRequestsTotal     = "relay.http.requests.total"
	MetricHTTPRequestDuration   = "relay.http.request.duration"
	MetricExchangesTotal        = "relay.exchanges.total"
	MetricExchangeDuration      = "relay.exchange.duration"
	MetricProviderAPICallsTotal = "relay.provider.api.calls.total"
	MetricProviderAPIDuration   = "relay.provider.api.duration"
	MetricProviderAPIErrors     = "relay.provider.api.errors"
	MetricDownstreamCallsTotal  = "relay.downstream.calls.total"
	MetricDownstreamDuration    = "relay.downstream.duration"
	MetricDownstreamErrors      = "relay.downstream.errors"
	MetricAuditEventsTotal      = "relay.audit.events.total"
)

// ExchangeOutcomeSuccess is the outcome label of a successful exchange.
// Failed exchanges are labelled with their error kind.
const ExchangeOutcomeSuccess = "success"

// Metrics holds all metric instruments for the relay
type Metrics struct {
	// HTTP Layer Metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Exchange Metrics
	ExchangesTotal   metric.Int64Counter
	ExchangeDuration metric.Float64Histogram

	// Provider Metrics
	ProviderAPICallsTotal metric.Int64Counter
	ProviderAPIDuration   metric.Float64Histogram
	ProviderAPIErrors     metric.Int64Counter

	// Downstream Metrics
	DownstreamCallsTotal metric.Int64Counter
	DownstreamDuration   metric.Float64Histogram
	DownstreamErrors     metric.Int64Counter

	// Audit Metrics
	AuditEventsTotal metric.Int64Counter
}

type counterSpec struct {
	dst         *metric.Int64Counter
	name, desc  string
	unit, scope string
}

type histogramSpec struct {
	dst        *metric.Float64Histogram
	name, desc string
	scope      string
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}

	counters := []counterSpec{
		{&m.HTTPRequestsTotal, MetricHTTPRequestsTotal, "Total number of HTTP requests", "{request}", "http"},
		{&m.ExchangesTotal, MetricExchangesTotal, "Exchange-and-connect operations by outcome", "{exchange}", "server"},
		{&m.ProviderAPICallsTotal, MetricProviderAPICallsTotal, "Token endpoint calls", "{call}", "provider"},
		{&m.ProviderAPIErrors, MetricProviderAPIErrors, "Failed token endpoint calls", "{error}", "provider"},
		{&m.DownstreamCallsTotal, MetricDownstreamCallsTotal, "Downstream connect calls", "{call}", "downstream"},
		{&m.DownstreamErrors, MetricDownstreamErrors, "Failed downstream connect calls", "{error}", "downstream"},
		{&m.AuditEventsTotal, MetricAuditEventsTotal, "Security audit events logged", "{event}", "security"},
	}
	for _, c := range counters {
		counter, err := inst.Meter(c.scope).Int64Counter(c.name,
			metric.WithDescription(c.desc),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	histograms := []histogramSpec{
		{&m.HTTPRequestDuration, MetricHTTPRequestDuration, "HTTP request duration in milliseconds", "http"},
		{&m.ExchangeDuration, MetricExchangeDuration, "Exchange-and-connect duration in milliseconds", "server"},
		{&m.ProviderAPIDuration, MetricProviderAPIDuration, "Token endpoint call duration in milliseconds", "provider"},
		{&m.DownstreamDuration, MetricDownstreamDuration, "Downstream connect call duration in milliseconds", "downstream"},
	}
	for _, h := range histograms {
		histogram, err := inst.Meter(h.scope).Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s histogram: %w", h.name, err)
		}
		*h.dst = histogram
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, endpoint string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("endpoint", endpoint),
		attribute.Int("status", statusCode),
	))
	m.HTTPRequestDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
	))
}

// RecordExchange records the outcome of an exchange-and-connect operation.
// outcome is ExchangeOutcomeSuccess or the failure kind.
func (m *Metrics) RecordExchange(ctx context.Context, outcome string, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.ExchangesTotal.Add(ctx, 1, attrs)
	m.ExchangeDuration.Record(ctx, durationMs, attrs)
}

// RecordProviderAPICall records a token endpoint call
func (m *Metrics) RecordProviderAPICall(ctx context.Context, provider, operation string, statusCode int, durationMs float64, err error) {
	if m == nil {
		return
	}
	m.ProviderAPICallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.Int("status", statusCode),
	))
	m.ProviderAPIDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	))

	if err != nil {
		m.ProviderAPIErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("operation", operation),
			attribute.String("error_type", errorType(statusCode)),
		))
	}
}

// RecordDownstreamCall records a downstream connect call
func (m *Metrics) RecordDownstreamCall(ctx context.Context, connector string, statusCode int, durationMs float64, err error) {
	if m == nil {
		return
	}
	m.DownstreamCallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("connector", connector),
		attribute.Int("status", statusCode),
	))
	m.DownstreamDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("connector", connector),
	))

	if err != nil {
		m.DownstreamErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("connector", connector),
			attribute.String("error_type", errorType(statusCode)),
		))
	}
}

// RecordAuditEvent records an audit event
func (m *Metrics) RecordAuditEvent(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.AuditEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

// errorType buckets a failed call by HTTP status. Status 0 means no response.
func errorType(statusCode int) string {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	case statusCode == 0:
		return "transport"
	default:
		return "unknown"
	}
}
