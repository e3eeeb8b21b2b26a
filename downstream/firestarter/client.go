// Package firestarter implements the downstream Connector for the FireStarter
// social-connect API.
package firestarter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/giantswarm/twitter-connect-relay/downstream"
	"github.com/giantswarm/twitter-connect-relay/internal/util"
)

// Compile-time check that Client implements the downstream.Connector interface.
var _ downstream.Connector = (*Client)(nil)

const (
	connectorName = "firestarter"

	defaultRequestTimeout = 30 * time.Second

	// defaultMaxResponseBytes caps how much of a downstream response is buffered.
	defaultMaxResponseBytes int64 = 10 << 20 // 10 MiB
)

// Config holds FireStarter client configuration.
type Config struct {
	// BaseURL is the API base, e.g. "https://api.example.com/api/v1/trustcore" (required).
	BaseURL string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client

	// RequestTimeout is the timeout for connect calls (default: 30s).
	RequestTimeout time.Duration

	// MaxResponseBytes limits the buffered response size (default: 10 MiB).
	MaxResponseBytes int64
}

// Client calls the FireStarter social-connect endpoint over HTTP.
type Client struct {
	baseURL          string
	connectURL       string
	httpClient       *http.Client
	requestTimeout   time.Duration
	maxResponseBytes int64
}

// NewClient creates a new FireStarter client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: requestTimeout,
		}
	}

	maxResponseBytes := cfg.MaxResponseBytes
	if maxResponseBytes <= 0 {
		maxResponseBytes = defaultMaxResponseBytes
	}

	baseURL := util.NormalizeURL(cfg.BaseURL)
	return &Client{
		baseURL:          baseURL,
		connectURL:       util.JoinURL(baseURL, downstream.ConnectPath),
		httpClient:       httpClient,
		requestTimeout:   requestTimeout,
		maxResponseBytes: maxResponseBytes,
	}, nil
}

// Name returns the connector name.
func (c *Client) Name() string {
	return connectorName
}

// BaseURL returns the normalized API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ensureContextTimeout ensures the context has a deadline, adding one if needed.
func (c *Client) ensureContextTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

// Connect posts {accessToken, walletAddress} to <base>/social/connect/twitter.
// Any non-2xx status is returned as *downstream.CallError with the response body.
func (c *Client) Connect(ctx context.Context, accessToken, walletAddress string) (*downstream.ConnectResult, error) {
	ctx, cancel := c.ensureContextTimeout(ctx)
	defer cancel()

	payload, err := json.Marshal(downstream.ConnectRequest{
		AccessToken:   accessToken,
		WalletAddress: walletAddress,
	})
	if err != nil {
		return nil, c.callError(0, nil, fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.connectURL, bytes.NewReader(payload))
	if err != nil {
		return nil, c.callError(0, nil, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.callError(0, nil, fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, c.callError(resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err))
	}
	if int64(len(body)) > c.maxResponseBytes {
		return nil, c.callError(resp.StatusCode, nil, fmt.Errorf("response body exceeds limit of %d bytes", c.maxResponseBytes))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.callError(resp.StatusCode, body, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return &downstream.ConnectResult{
		Success: true,
		Data:    asJSON(body),
	}, nil
}

func (c *Client) callError(status int, body []byte, err error) *downstream.CallError {
	return &downstream.CallError{
		URL:        c.connectURL,
		StatusCode: status,
		Body:       body,
		Err:        err,
	}
}

// asJSON returns body unchanged when it is valid JSON, otherwise as a JSON string.
// An empty body becomes JSON null.
func asJSON(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return json.RawMessage("null")
	}
	return quoted
}
