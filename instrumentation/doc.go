// Package instrumentation provides OpenTelemetry metrics and tracing for the relay.
//
// Metrics are collected by an sdk/metric MeterProvider and exposed in the
// Prometheus text format through MetricsHandler. Tracing is opt-in: spans are
// exported over OTLP/HTTP when an endpoint is configured, otherwise a no-op
// tracer provider is used.
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceVersion: version,
//		Enabled:        true,
//		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
//	})
//	if err != nil {
//		return err
//	}
//	defer inst.Shutdown(context.Background())
//
//	mux.Handle("/metrics", inst.MetricsHandler())
//
// # Available Metrics
//
//   - relay.http.requests.total{method, endpoint, status}
//   - relay.http.request.duration{endpoint}
//   - relay.exchanges.total{outcome}, relay.exchange.duration{outcome}
//   - relay.provider.api.calls.total{provider, operation, status}
//   - relay.provider.api.duration{provider, operation}
//   - relay.provider.api.errors{provider, operation, error_type}
//   - relay.downstream.calls.total{connector, status}
//   - relay.downstream.duration{connector}
//   - relay.downstream.errors{connector, error_type}
//   - relay.audit.events.total{event_type}
//
// # Spans
//
//   - exchange_and_connect: the whole operation
//   - provider.exchange_code: the token endpoint call
//   - downstream.connect: the downstream connect call
//
// Credentials never appear in metric labels or span attributes.
// A nil *Instrumentation and a nil *Metrics are valid and record nothing.
package instrumentation
