package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/twitter-connect-relay/downstream"
	"github.com/giantswarm/twitter-connect-relay/instrumentation"
	"github.com/giantswarm/twitter-connect-relay/internal/testutil"
	"github.com/giantswarm/twitter-connect-relay/security"
)

const validBody = `{"authorizationCode":"AC1","codeVerifier":"V1","walletAddress":"0xABC"}`

// testEnv wires a relay against a fake token endpoint and a fake downstream API.
type testEnv struct {
	handler       http.Handler
	tokenEndpoint *testutil.TokenEndpoint
	api           *testutil.DownstreamAPI
}

func setupTestEnv(t *testing.T, extra map[string]string, inst *instrumentation.Instrumentation) *testEnv {
	t.Helper()

	tokenEndpoint := testutil.NewTokenEndpoint(t, "TOK1")
	api := testutil.NewDownstreamAPI(t, http.StatusOK, `{"success":true,"data":{"twitterHandle":"abc","walletAddress":"0xABC"}}`)

	environment := map[string]string{
		"TWITTER_CLIENT_ID":        "client-id",
		"TWITTER_CLIENT_SECRET":    "client-secret",
		"TWITTER_TOKEN_URL":        tokenEndpoint.URL(),
		"FIRESTARTER_API_BASE_URL": api.BaseURL(),
		"CORS_ORIGINS":             "https://app.example.com",
		"REQUEST_TIMEOUT_MS":       "5000",
	}
	for k, v := range extra {
		environment[k] = v
	}

	cfg, err := LoadConfig(environment)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	logger := testutil.DiscardLogger()
	srv, err := NewServer(cfg, logger, inst)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	return &testEnv{
		handler:       NewHandler(srv, cfg, logger).Routes(),
		tokenEndpoint: tokenEndpoint,
		api:           api,
	}
}

func decodeBody(t *testing.T, body io.Reader) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&m); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return m
}

func TestHandler_ExchangeAndConnect_Success(t *testing.T) {
	env := setupTestEnv(t, nil, nil)

	rr := testutil.NewHTTPRequest(http.MethodPost, PathExchangeAndConnect).
		WithJSONBody(validBody).
		Do(env.handler)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp ExchangeResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Message != MessageConnected {
		t.Errorf("response = %+v", resp)
	}
	if string(resp.Data) != env.api.Body {
		t.Errorf("data = %s, want %s", resp.Data, env.api.Body)
	}

	tokenReqs := env.tokenEndpoint.Requests()
	if len(tokenReqs) != 1 {
		t.Fatalf("token requests = %d, want 1", len(tokenReqs))
	}
	if got := tokenReqs[0].Form.Get("code"); got != "AC1" {
		t.Errorf("code = %q, want AC1", got)
	}
	if got := tokenReqs[0].Form.Get("code_verifier"); got != "V1" {
		t.Errorf("code_verifier = %q, want V1", got)
	}
	if got := tokenReqs[0].Form.Get("redirect_uri"); got != "https://localhost:5173/auth/twitter/callback" {
		t.Errorf("redirect_uri = %q", got)
	}

	connectReqs := env.api.Requests()
	if len(connectReqs) != 1 || connectReqs[0] != (downstream.ConnectRequest{AccessToken: "TOK1", WalletAddress: "0xABC"}) {
		t.Errorf("connect requests = %+v", connectReqs)
	}
}

func TestHandler_ExchangeAndConnect_RequestRedirectURI(t *testing.T) {
	env := setupTestEnv(t, nil, nil)

	rr := testutil.NewHTTPRequest(http.MethodPost, PathExchangeAndConnect).
		WithJSONBody(`{"authorizationCode":"AC1","codeVerifier":"V1","walletAddress":"0xABC","redirectUri":"https://other.example.com/cb"}`).
		Do(env.handler)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := env.tokenEndpoint.Requests()[0].Form.Get("redirect_uri"); got != "https://other.example.com/cb" {
		t.Errorf("redirect_uri = %q, want request value", got)
	}
}

func TestHandler_ExchangeAndConnect_Failures(t *testing.T) {
	tests := []struct {
		name              string
		env               map[string]string
		body              string
		tokenStatus       int
		tokenBody         string
		downstreamStatus  int
		downstreamBody    string
		wantStatus        int
		wantMessage       string
		wantError         string
		wantTokenCalls    int
		wantDownstreamHit bool
	}{
		{
			name:        "missing fields",
			body:        `{"authorizationCode":"AC1"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Missing required fields: codeVerifier, walletAddress",
		},
		{
			name:        "missing configuration",
			env:         map[string]string{"TWITTER_CLIENT_SECRET": ""},
			body:        validBody,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Server misconfiguration: required settings are missing",
		},
		{
			name:           "no access token",
			body:           validBody,
			tokenStatus:    http.StatusOK,
			tokenBody:      `{"token_type":"bearer"}`,
			wantStatus:     http.StatusInternalServerError,
			wantMessage:    "Failed to obtain an access token from Twitter",
			wantTokenCalls: 1,
		},
		{
			name:           "token endpoint rejects code",
			body:           validBody,
			tokenStatus:    http.StatusBadRequest,
			tokenBody:      `{"error":"invalid_request","error_description":"Value passed for the authorization code was invalid."}`,
			wantStatus:     http.StatusBadRequest,
			wantMessage:    "Token exchange with Twitter failed",
			wantError:      `{"error":"invalid_request","error_description":"Value passed for the authorization code was invalid."}`,
			wantTokenCalls: 1,
		},
		{
			name:              "downstream rejects connect",
			body:              validBody,
			downstreamStatus:  http.StatusConflict,
			downstreamBody:    `{"success":false,"message":"already linked"}`,
			wantStatus:        http.StatusConflict,
			wantMessage:       "Failed to connect with the FireStarter API",
			wantError:         `{"success":false,"message":"already linked"}`,
			wantTokenCalls:    1,
			wantDownstreamHit: true,
		},
		{
			name:        "malformed JSON",
			body:        `{"authorizationCode":`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: MessageInvalidJSON,
		},
		{
			name:        "body too large",
			env:         map[string]string{"MAX_REQUEST_SIZE": "16"},
			body:        validBody,
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantMessage: MessageBodyTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t, tt.env, nil)
			if tt.tokenStatus != 0 {
				env.tokenEndpoint.Status = tt.tokenStatus
				env.tokenEndpoint.Body = tt.tokenBody
			}
			if tt.downstreamStatus != 0 {
				env.api.Status = tt.downstreamStatus
				env.api.Body = tt.downstreamBody
			}

			rr := testutil.NewHTTPRequest(http.MethodPost, PathExchangeAndConnect).
				WithJSONBody(tt.body).
				Do(env.handler)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}

			body := decodeBody(t, rr.Body)
			if string(body["success"]) != "false" {
				t.Errorf("success = %s, want false", body["success"])
			}
			var message string
			_ = json.Unmarshal(body["message"], &message)
			if message != tt.wantMessage {
				t.Errorf("message = %q, want %q", message, tt.wantMessage)
			}
			if tt.wantError == "" {
				if _, ok := body["error"]; ok {
					t.Errorf("unexpected error field: %s", body["error"])
				}
			} else if string(body["error"]) != tt.wantError {
				t.Errorf("error = %s, want %s", body["error"], tt.wantError)
			}

			if got := len(env.tokenEndpoint.Requests()); got != tt.wantTokenCalls {
				t.Errorf("token calls = %d, want %d", got, tt.wantTokenCalls)
			}
			if got := len(env.api.Requests()) > 0; got != tt.wantDownstreamHit {
				t.Errorf("downstream called = %v, want %v", got, tt.wantDownstreamHit)
			}
		})
	}
}

func TestHandler_ExchangeAndConnect_MethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t, nil, nil)

	rr := testutil.NewHTTPRequest(http.MethodGet, PathExchangeAndConnect).Do(env.handler)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
	if allow := rr.Header().Get("Allow"); allow != "POST, OPTIONS" {
		t.Errorf("Allow = %q", allow)
	}
}

func TestHandler_CORS(t *testing.T) {
	env := setupTestEnv(t, nil, nil)

	tests := []struct {
		name       string
		method     string
		origin     string
		body       string
		wantStatus int
		wantOrigin string
	}{
		{
			name:       "preflight from allowed origin",
			method:     http.MethodOptions,
			origin:     "https://app.example.com",
			wantStatus: http.StatusNoContent,
			wantOrigin: "https://app.example.com",
		},
		{
			name:       "preflight from disallowed origin",
			method:     http.MethodOptions,
			origin:     "https://evil.example.com",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "post from allowed origin",
			method:     http.MethodPost,
			origin:     "https://app.example.com",
			body:       validBody,
			wantStatus: http.StatusOK,
			wantOrigin: "https://app.example.com",
		},
		{
			name:       "post without origin",
			method:     http.MethodPost,
			body:       validBody,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewHTTPRequest(tt.method, PathExchangeAndConnect)
			if tt.origin != "" {
				req.WithHeader("Origin", tt.origin)
			}
			if tt.body != "" {
				req.WithJSONBody(tt.body)
			}
			rr := req.Do(env.handler)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin != "" {
				if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
					t.Errorf("Access-Control-Allow-Methods = %q", got)
				}
				if got := rr.Header().Get("Access-Control-Max-Age"); got != "3600" {
					t.Errorf("Access-Control-Max-Age = %q", got)
				}
			}
		})
	}
}

func TestHandler_ServeHealth(t *testing.T) {
	env := setupTestEnv(t, nil, nil)

	rr := testutil.NewHTTPRequest(http.MethodGet, PathHealth).Do(env.handler)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "OK" || resp.Message != MessageHealthy || resp.Timestamp == "" {
		t.Errorf("response = %+v", resp)
	}

	rr = testutil.NewHTTPRequest(http.MethodPost, PathHealth).Do(env.handler)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandler_ServeDebugConfig(t *testing.T) {
	t.Run("not registered without hash", func(t *testing.T) {
		env := setupTestEnv(t, nil, nil)
		rr := testutil.NewHTTPRequest(http.MethodGet, PathDebugConfig).Do(env.handler)
		if rr.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
		}
	})

	hash, err := security.HashDebugToken("debug-token")
	if err != nil {
		t.Fatalf("HashDebugToken() error = %v", err)
	}
	env := setupTestEnv(t, map[string]string{"DEBUG_TOKEN_HASH": hash}, nil)

	tests := []struct {
		name       string
		auth       string
		wantStatus int
	}{
		{name: "missing token", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", auth: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", auth: "Basic debug-token", wantStatus: http.StatusUnauthorized},
		{name: "valid token", auth: "Bearer debug-token", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewHTTPRequest(http.MethodGet, PathDebugConfig)
			if tt.auth != "" {
				req.WithHeader("Authorization", tt.auth)
			}
			rr := req.Do(env.handler)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if got := rr.Header().Get("WWW-Authenticate"); got != "Bearer" {
					t.Errorf("WWW-Authenticate = %q", got)
				}
				return
			}

			body := rr.Body.String()
			testutil.AssertStringNotContains(t, body, "client-secret")
			testutil.AssertStringContains(t, body, `"twitterClientSecret":"set"`)
			testutil.AssertStringContains(t, body, `"twitterClientId":"client-id"`)
		})
	}
}

func TestHandler_Routes_Middleware(t *testing.T) {
	env := setupTestEnv(t, nil, nil)

	rr := testutil.NewHTTPRequest(http.MethodGet, PathHealth).
		WithHeader(security.RequestIDHeader, "req-123").
		Do(env.handler)

	if got := rr.Header().Get(security.RequestIDHeader); got != "req-123" {
		t.Errorf("%s = %q, want req-123", security.RequestIDHeader, got)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Errorf("Cache-Control = %q", got)
	}

	rr = testutil.NewHTTPRequest(http.MethodGet, PathHealth).Do(env.handler)
	if rr.Header().Get(security.RequestIDHeader) == "" {
		t.Error("expected a generated request ID")
	}
}

func TestHandler_Metrics(t *testing.T) {
	inst, err := instrumentation.New(instrumentation.Config{Enabled: true})
	if err != nil {
		t.Fatalf("instrumentation.New() error = %v", err)
	}
	t.Cleanup(func() { _ = inst.Shutdown(context.Background()) })

	env := setupTestEnv(t, nil, inst)

	rr := testutil.NewHTTPRequest(http.MethodPost, PathExchangeAndConnect).
		WithJSONBody(validBody).
		Do(env.handler)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	rr = testutil.NewHTTPRequest(http.MethodGet, PathMetrics).Do(env.handler)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	testutil.AssertStringContains(t, body, "relay_http_requests_total")
	testutil.AssertStringContains(t, body, "relay_exchanges_total")
	testutil.AssertStringContains(t, body, "relay_audit_events_total")
}

func TestHandler_Metrics_NotRegisteredWhenDisabled(t *testing.T) {
	env := setupTestEnv(t, nil, nil)

	rr := testutil.NewHTTPRequest(http.MethodGet, PathMetrics).Do(env.handler)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandler_Metrics_UseRequestContext(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	inst, err := instrumentation.New(instrumentation.Config{Enabled: true, MetricReader: reader})
	if err != nil {
		t.Fatalf("instrumentation.New() error = %v", err)
	}
	t.Cleanup(func() { _ = inst.Shutdown(context.Background()) })

	env := setupTestEnv(t, nil, inst)

	traceID := trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36}
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), parent)

	rr := testutil.NewHTTPRequest(http.MethodGet, PathHealth).WithContext(ctx).Do(env.handler)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != instrumentation.MetricHTTPRequestsTotal {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric is %T, want Sum[int64]", m.Data)
			}
			for _, dp := range sum.DataPoints {
				for _, ex := range dp.Exemplars {
					if string(ex.TraceID) == string(traceID[:]) {
						found = true
					}
				}
			}
		}
	}
	if !found {
		t.Error("expected an HTTP request exemplar carrying the request trace ID")
	}
}

func TestHandler_ExchangeAndConnect_RejectsFormBody(t *testing.T) {
	env := setupTestEnv(t, nil, nil)

	req := testutil.NewHTTPRequest(http.MethodPost, PathExchangeAndConnect).
		WithHeader("Content-Type", "application/x-www-form-urlencoded")
	req.Body = "authorizationCode=AC1&codeVerifier=V1&walletAddress=0xABC"
	rr := req.Do(env.handler)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	testutil.AssertStringContains(t, rr.Body.String(), MessageInvalidJSON)
	if got := len(env.tokenEndpoint.Requests()); got != 0 {
		t.Errorf("token endpoint calls = %d, want 0", got)
	}
}
