package relay

import "encoding/json"

// ExchangeResponse is the body of a successful exchange-and-connect call.
type ExchangeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	// Data is the downstream response body, relayed verbatim
	Data json.RawMessage `json:"data"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	// Error carries upstream error details: the provider's JSON body,
	// its raw text, or an error message. Omitted when there is nothing to relay.
	Error any `json:"error,omitempty"`
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
