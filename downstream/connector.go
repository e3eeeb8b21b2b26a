package downstream

import (
	"context"
	"encoding/json"
	"fmt"
)

// ConnectPath is appended to the downstream base URL for the Twitter connect call.
const ConnectPath = "/social/connect/twitter"

// Connector links a Twitter access token to a wallet address.
// Implementations must be safe for concurrent use.
type Connector interface {
	// Name returns the connector name used in logs and metrics
	Name() string

	// BaseURL returns the base URL calls are sent to.
	// Used to attribute failed calls to the connector.
	BaseURL() string

	// Connect sends the access token and wallet address downstream.
	// Failures that reached the downstream service are returned as *CallError.
	Connect(ctx context.Context, accessToken, walletAddress string) (*ConnectResult, error)
}

// ConnectRequest is the JSON body sent to the connect endpoint
type ConnectRequest struct {
	AccessToken   string `json:"accessToken"`
	WalletAddress string `json:"walletAddress"`
}

// ConnectResult is the outcome of a successful connect call
type ConnectResult struct {
	// Success is true when the downstream call completed with a 2xx status
	Success bool

	// Data is the downstream response body, untouched
	Data json.RawMessage
}

// CallError describes a failed call to the downstream service.
type CallError struct {
	// URL is the endpoint the request was sent to
	URL string

	// StatusCode is the HTTP status returned downstream (0 if no response)
	StatusCode int

	// Body is the raw response body (nil if no response)
	Body []byte

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("downstream connect failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("downstream connect failed: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *CallError) Unwrap() error {
	return e.Err
}

// TargetURL returns the URL the failed request was directed at
func (e *CallError) TargetURL() string {
	return e.URL
}

// HTTPStatus returns the downstream HTTP status code, or 0 if none was received
func (e *CallError) HTTPStatus() int {
	return e.StatusCode
}

// ResponseBody returns the downstream response body, or nil if none was received
func (e *CallError) ResponseBody() []byte {
	return e.Body
}
