package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names
const (
	SpanExchangeAndConnect = "exchange_and_connect"
	SpanProviderExchange   = "provider.exchange_code"
	SpanDownstreamConnect  = "downstream.connect"
)

// Span attribute keys
//
// SECURITY WARNING: Never put authorization codes, PKCE verifiers, access tokens
// or client secrets on spans. Only metadata (lengths, presence, status codes).
const (
	AttrWalletAddress = "relay.wallet_address" // public identifier
	AttrRedirectURI   = "oauth.redirect_uri"
	AttrCodeLength    = "oauth.code.length"
	AttrErrorKind     = "relay.error.kind"
	AttrRequestID     = "relay.request_id"

	AttrProviderName      = "provider.name"
	AttrProviderOperation = "provider.operation"
	AttrProviderStatus    = "provider.status"

	AttrDownstreamName   = "downstream.name"
	AttrDownstreamURL    = "downstream.url"
	AttrDownstreamStatus = "downstream.status"

	AttrClientIP       = "security.client_ip"
	AttrHTTPEndpoint   = "http.endpoint"
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe)
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddExchangeAttributes adds the non-secret request fields to a span (nil-safe)
func AddExchangeAttributes(span trace.Span, walletAddress, redirectURI string, codeLength int) {
	SetSpanAttributes(span,
		attribute.String(AttrWalletAddress, walletAddress),
		attribute.String(AttrRedirectURI, redirectURI),
		attribute.Int(AttrCodeLength, codeLength),
	)
}

// AddProviderAttributes adds provider attributes to a span (nil-safe)
func AddProviderAttributes(span trace.Span, providerName, operation string) {
	SetSpanAttributes(span,
		attribute.String(AttrProviderName, providerName),
		attribute.String(AttrProviderOperation, operation),
	)
}

// AddDownstreamAttributes adds downstream connector attributes to a span (nil-safe)
func AddDownstreamAttributes(span trace.Span, connectorName, baseURL string) {
	SetSpanAttributes(span,
		attribute.String(AttrDownstreamName, connectorName),
		attribute.String(AttrDownstreamURL, baseURL),
	)
}

// AddHTTPAttributes adds HTTP request attributes to a span (nil-safe)
func AddHTTPAttributes(span trace.Span, method, endpoint string, statusCode int) {
	SetSpanAttributes(span,
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPEndpoint, endpoint),
		attribute.Int(AttrHTTPStatusCode, statusCode),
	)
}
