package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/giantswarm/twitter-connect-relay/downstream"
)

// TokenRequest is one request received by a TokenEndpoint
type TokenRequest struct {
	Form         url.Values
	BasicUser    string
	BasicPass    string
	HasBasicAuth bool
	ContentType  string
}

// TokenEndpoint is a fake OAuth token endpoint.
// It answers every request with Status and Body.
type TokenEndpoint struct {
	Server *httptest.Server
	Status int
	Body   string

	mu       sync.Mutex
	requests []TokenRequest
}

// NewTokenEndpoint starts a token endpoint that returns access token accessToken.
// The server is closed when the test ends.
func NewTokenEndpoint(t *testing.T, accessToken string) *TokenEndpoint {
	t.Helper()
	body, _ := json.Marshal(map[string]any{
		"access_token": accessToken,
		"token_type":   "bearer",
		"expires_in":   7200,
		"scope":        "tweet.read users.read",
	})
	te := &TokenEndpoint{Status: http.StatusOK, Body: string(body)}
	te.Server = httptest.NewServer(http.HandlerFunc(te.serve))
	t.Cleanup(te.Server.Close)
	return te
}

// URL returns the token endpoint URL
func (te *TokenEndpoint) URL() string {
	return te.Server.URL + "/2/oauth2/token"
}

// Requests returns the requests received so far
func (te *TokenEndpoint) Requests() []TokenRequest {
	te.mu.Lock()
	defer te.mu.Unlock()
	return append([]TokenRequest(nil), te.requests...)
}

func (te *TokenEndpoint) serve(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	user, pass, ok := r.BasicAuth()

	te.mu.Lock()
	te.requests = append(te.requests, TokenRequest{
		Form:         r.PostForm,
		BasicUser:    user,
		BasicPass:    pass,
		HasBasicAuth: ok,
		ContentType:  r.Header.Get("Content-Type"),
	})
	status, body := te.Status, te.Body
	te.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// DownstreamAPI is a fake social-connect API mounted under BasePath.
type DownstreamAPI struct {
	Server *httptest.Server
	Status int
	Body   string

	mu       sync.Mutex
	requests []downstream.ConnectRequest
	paths    []string
}

// DownstreamBasePath is the path prefix the fake downstream API is mounted on
const DownstreamBasePath = "/api/v1/trustcore"

// NewDownstreamAPI starts a downstream API answering with status and body.
// The server is closed when the test ends.
func NewDownstreamAPI(t *testing.T, status int, body string) *DownstreamAPI {
	t.Helper()
	d := &DownstreamAPI{Status: status, Body: body}
	d.Server = httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(d.Server.Close)
	return d
}

// BaseURL returns the downstream base URL
func (d *DownstreamAPI) BaseURL() string {
	return d.Server.URL + DownstreamBasePath
}

// Requests returns the decoded connect requests received so far
func (d *DownstreamAPI) Requests() []downstream.ConnectRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]downstream.ConnectRequest(nil), d.requests...)
}

// Paths returns the request paths received so far
func (d *DownstreamAPI) Paths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.paths...)
}

func (d *DownstreamAPI) serve(w http.ResponseWriter, r *http.Request) {
	var req downstream.ConnectRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.paths = append(d.paths, r.URL.Path)
	status, body := d.Status, d.Body
	d.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// ConnectCall records the arguments of one FakeConnector.Connect call
type ConnectCall struct {
	AccessToken   string
	WalletAddress string
}

// FakeConnector is an in-memory downstream.Connector
type FakeConnector struct {
	URL         string
	ConnectFunc func(ctx context.Context, accessToken, walletAddress string) (*downstream.ConnectResult, error)

	mu    sync.Mutex
	calls []ConnectCall
}

var _ downstream.Connector = (*FakeConnector)(nil)

// NewFakeConnector returns a connector that succeeds with data
func NewFakeConnector(baseURL string, data string) *FakeConnector {
	return &FakeConnector{
		URL: baseURL,
		ConnectFunc: func(context.Context, string, string) (*downstream.ConnectResult, error) {
			return &downstream.ConnectResult{Success: true, Data: json.RawMessage(data)}, nil
		},
	}
}

// Name returns the connector name
func (f *FakeConnector) Name() string { return "fake" }

// BaseURL returns the configured base URL
func (f *FakeConnector) BaseURL() string { return f.URL }

// Connect records the call and delegates to ConnectFunc
func (f *FakeConnector) Connect(ctx context.Context, accessToken, walletAddress string) (*downstream.ConnectResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ConnectCall{AccessToken: accessToken, WalletAddress: walletAddress})
	fn := f.ConnectFunc
	f.mu.Unlock()
	return fn(ctx, accessToken, walletAddress)
}

// Calls returns the Connect calls made so far
func (f *FakeConnector) Calls() []ConnectCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ConnectCall(nil), f.calls...)
}
