package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/twitter-connect-relay/instrumentation"
	"github.com/giantswarm/twitter-connect-relay/security"
	"github.com/giantswarm/twitter-connect-relay/server"
)

// Routes served by the relay
const (
	PathExchangeAndConnect = "/api/twitter/exchange-and-connect"
	PathHealth             = "/health"
	PathDebugConfig        = "/debug/config"
	PathMetrics            = "/metrics"
)

const defaultCORSMaxAge = 3600 // 1 hour default for preflight cache

// Handler is the HTTP surface of the relay
type Handler struct {
	server      *server.Server
	config      Config
	logger      *slog.Logger
	ipExtractor security.ClientIPExtractor
	tracer      trace.Tracer
}

// NewHandler creates a new HTTP handler around the exchange server
func NewHandler(srv *server.Server, config Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		server: srv,
		config: config,
		logger: logger,
		ipExtractor: security.ClientIPExtractor{
			TrustProxy:        config.Security.TrustProxy,
			TrustedProxyCount: config.Security.TrustedProxyCount,
		},
		tracer: srv.Instrumentation.Tracer("http"),
	}
}

// RegisterRoutes registers all relay endpoints on mux.
// The debug endpoint is only registered when a debug token hash is configured,
// and /metrics only when metrics are served through Prometheus.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(PathExchangeAndConnect, h.ServeExchangeAndConnect)
	mux.HandleFunc(PathHealth, h.ServeHealth)

	if h.config.Security.DebugTokenHash != "" {
		mux.HandleFunc(PathDebugConfig, h.ServeDebugConfig)
	}

	if metrics := h.server.Instrumentation.MetricsHandler(); metrics != nil {
		mux.Handle(PathMetrics, metrics)
	}
}

// Routes returns the relay endpoints wrapped with request ID and security
// header middleware
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return security.RequestIDMiddleware(security.SecurityHeadersMiddleware(mux))
}

// ServeExchangeAndConnect handles POST /api/twitter/exchange-and-connect
func (h *Handler) ServeExchangeAndConnect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := h.serveExchangeAndConnect(w, r)
	h.recordHTTPMetrics(r.Context(), PathExchangeAndConnect, r.Method, status, start)
}

func (h *Handler) serveExchangeAndConnect(w http.ResponseWriter, r *http.Request) int {
	h.setCORSHeaders(w, r)

	if r.Method == http.MethodOptions {
		return h.ServePreflightRequest(w, r)
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		return writeError(w, http.StatusMethodNotAllowed, MessageMethodNotAllowed, nil)
	}

	ctx, span := h.tracer.Start(r.Context(), "http.exchange_and_connect")
	defer span.End()

	clientIP := h.ipExtractor.ClientIP(r)
	requestID := security.GetRequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxRequestSize)
	var req server.ExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.logger.Warn("Request body too large", "request_id", requestID, "limit", maxBytesErr.Limit)
			return h.finishSpan(span, writeError(w, http.StatusRequestEntityTooLarge, MessageBodyTooLarge, nil))
		}
		h.logger.Warn("Invalid JSON request body", "request_id", requestID, "error", err)
		return h.finishSpan(span, writeError(w, http.StatusBadRequest, MessageInvalidJSON, nil))
	}

	result, err := h.server.ExchangeAndConnect(ctx, req)
	if err != nil {
		var exErr *server.ExchangeError
		if !errors.As(err, &exErr) {
			exErr = &server.ExchangeError{
				Kind:    server.KindInternal,
				Status:  http.StatusInternalServerError,
				Message: server.MessageUnexpectedInternal,
				Detail:  err.Error(),
				Err:     err,
			}
		}
		h.server.Auditor.LogExchangeFailed(req.WalletAddress, clientIP, requestID, string(exErr.Kind), exErr.Status)
		return h.finishSpan(span, writeError(w, exErr.Status, exErr.Message, exErr.Detail))
	}

	h.server.Auditor.LogExchangeSucceeded(req.WalletAddress, clientIP, requestID)
	writeJSON(w, http.StatusOK, ExchangeResponse{
		Success: true,
		Message: MessageConnected,
		Data:    result.Data,
	})
	return h.finishSpan(span, http.StatusOK)
}

// ServeHealth handles GET /health
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.setCORSHeaders(w, r)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		h.recordHTTPMetrics(r.Context(), PathHealth, r.Method, writeError(w, http.StatusMethodNotAllowed, MessageMethodNotAllowed, nil), start)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "OK",
		Message:   MessageHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	h.recordHTTPMetrics(r.Context(), PathHealth, r.Method, http.StatusOK, start)
}

// ServeDebugConfig handles GET /debug/config. It requires the bearer token
// whose bcrypt hash is configured and returns the configuration with
// secrets reduced to their presence.
func (h *Handler) ServeDebugConfig(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := h.serveDebugConfig(w, r)
	h.recordHTTPMetrics(r.Context(), PathDebugConfig, r.Method, status, start)
}

func (h *Handler) serveDebugConfig(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		return writeError(w, http.StatusMethodNotAllowed, MessageMethodNotAllowed, nil)
	}

	if err := security.VerifyDebugToken(h.config.Security.DebugTokenHash, security.BearerToken(r)); err != nil {
		clientIP := h.ipExtractor.ClientIP(r)
		h.logger.Warn("Debug endpoint access denied", "ip", clientIP, "error", err)
		h.server.Auditor.LogDebugAccessDenied(clientIP, security.GetRequestID(r.Context()), err.Error())
		w.Header().Set("WWW-Authenticate", "Bearer")
		return writeError(w, http.StatusUnauthorized, MessageUnauthorized, nil)
	}

	writeJSON(w, http.StatusOK, h.config.Redacted())
	return http.StatusOK
}

// ServePreflightRequest answers a CORS preflight request
func (h *Handler) ServePreflightRequest(w http.ResponseWriter, r *http.Request) int {
	origin := r.Header.Get("Origin")
	if origin != "" && !h.isAllowedOrigin(origin) {
		h.logger.Debug("CORS preflight from disallowed origin", "origin", origin)
		w.WriteHeader(http.StatusForbidden)
		return http.StatusForbidden
	}
	w.WriteHeader(http.StatusNoContent)
	return http.StatusNoContent
}

// setCORSHeaders sets CORS headers for allowed browser origins
func (h *Handler) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	// Skip if CORS not configured
	if len(h.config.CORS.AllowedOrigins) == 0 {
		return
	}

	// Skip if not a browser CORS request (no Origin header)
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	if !h.isAllowedOrigin(origin) {
		h.logger.Debug("CORS request from disallowed origin", "origin", origin)
		return
	}

	// Echo back the specific origin rather than "*"
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Add("Vary", "Origin")

	if h.config.CORS.AllowCredentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}

	maxAge := h.config.CORS.MaxAge
	if maxAge <= 0 {
		maxAge = defaultCORSMaxAge
	}

	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+security.RequestIDHeader)
	w.Header().Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
}

// isAllowedOrigin checks origin against the configured list
func (h *Handler) isAllowedOrigin(origin string) bool {
	for _, allowed := range h.config.CORS.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// finishSpan annotates the request span with the response status
func (h *Handler) finishSpan(span trace.Span, status int) int {
	instrumentation.AddHTTPAttributes(span, http.MethodPost, PathExchangeAndConnect, status)
	if status >= http.StatusBadRequest {
		instrumentation.SetSpanError(span, http.StatusText(status))
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	return status
}

// recordHTTPMetrics records HTTP request metrics
func (h *Handler) recordHTTPMetrics(ctx context.Context, endpoint, method string, status int, startTime time.Time) {
	duration := time.Since(startTime).Seconds() * 1000 // convert to milliseconds
	h.server.Instrumentation.Metrics().RecordHTTPRequest(ctx, method, endpoint, status, duration)
}
