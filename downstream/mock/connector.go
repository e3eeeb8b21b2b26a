package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/giantswarm/twitter-connect-relay/downstream"
	"github.com/giantswarm/twitter-connect-relay/internal/util"
)

// Compile-time check that Connector implements the downstream.Connector interface.
var _ downstream.Connector = (*Connector)(nil)

// DefaultBaseURL is reported by a Connector created without a base URL.
const DefaultBaseURL = "http://localhost:3002" + DefaultPathPrefix

// Connector is an in-process downstream.Connector backed by a mock Service.
// It behaves like the HTTP client talking to the mock, without the network hop.
type Connector struct {
	service    *Service
	baseURL    string
	connectURL string
}

// NewConnector returns a Connector serving calls from svc.
// baseURL is only used to attribute failures; it is never dialled.
func NewConnector(svc *Service, baseURL string) *Connector {
	if svc == nil {
		svc = NewService(Config{})
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = util.NormalizeURL(baseURL)
	return &Connector{
		service:    svc,
		baseURL:    baseURL,
		connectURL: util.JoinURL(baseURL, downstream.ConnectPath),
	}
}

// Name returns the connector name.
func (c *Connector) Name() string {
	return "mock"
}

// BaseURL returns the base URL failures are attributed to.
func (c *Connector) BaseURL() string {
	return c.baseURL
}

// Connect runs the mock connect logic in-process.
func (c *Connector) Connect(ctx context.Context, accessToken, walletAddress string) (*downstream.ConnectResult, error) {
	status, resp, err := c.service.connect(ctx, downstream.ConnectRequest{
		AccessToken:   accessToken,
		WalletAddress: walletAddress,
	})
	if err != nil {
		return nil, &downstream.CallError{URL: c.connectURL, Err: fmt.Errorf("request failed: %w", err)}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return nil, &downstream.CallError{URL: c.connectURL, Err: fmt.Errorf("failed to encode response: %w", err)}
	}

	if status != http.StatusOK {
		return nil, &downstream.CallError{
			URL:        c.connectURL,
			StatusCode: status,
			Body:       body,
			Err:        fmt.Errorf("unexpected status %d", status),
		}
	}

	return &downstream.ConnectResult{Success: true, Data: body}, nil
}
