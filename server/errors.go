package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an exchange failure.
type Kind string

// Failure kinds
const (
	// KindInvalidRequest is a caller error: required fields are missing
	KindInvalidRequest Kind = "invalid_request"

	// KindConfiguration is a deployment error: required settings are missing
	KindConfiguration Kind = "configuration_error"

	// KindUpstreamAuth means the token endpoint rejected the code or returned no usable token
	KindUpstreamAuth Kind = "upstream_auth_error"

	// KindDownstreamConnect means the social-connect call failed
	KindDownstreamConnect Kind = "downstream_connect_error"

	// KindInternal is any failure that cannot be attributed to either upstream
	KindInternal Kind = "internal_error"
)

// Caller-facing messages
const (
	MessageMissingFields      = "Missing required fields"
	MessageMisconfiguration   = "Server misconfiguration: required settings are missing"
	MessageNoAccessToken      = "Failed to obtain an access token from Twitter"
	MessageTokenExchange      = "Token exchange with Twitter failed"
	MessageDownstreamConnect  = "Failed to connect with the FireStarter API"
	MessageUnexpectedInternal = "Unexpected server error"
)

// ExchangeError is the error returned by ExchangeAndConnect.
type ExchangeError struct {
	// Kind classifies the failure
	Kind Kind

	// Status is the HTTP status to report to the caller
	Status int

	// Message is a human-readable summary safe to return to the caller
	Message string

	// Detail is the upstream error body (json.RawMessage when it is JSON,
	// a string otherwise) or the underlying error message. Nil when there
	// is nothing to relay.
	Detail any

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *ExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// ErrInvalidRequest reports missing request fields
func ErrInvalidRequest(missing []string) *ExchangeError {
	msg := MessageMissingFields
	if len(missing) > 0 {
		msg = fmt.Sprintf("%s: %s", MessageMissingFields, strings.Join(missing, ", "))
	}
	return &ExchangeError{
		Kind:    KindInvalidRequest,
		Status:  http.StatusBadRequest,
		Message: msg,
	}
}

// ErrConfiguration reports missing settings. The setting names are kept in
// Err for logs and never reach the caller.
func ErrConfiguration(err error) *ExchangeError {
	return &ExchangeError{
		Kind:    KindConfiguration,
		Status:  http.StatusInternalServerError,
		Message: MessageMisconfiguration,
		Err:     err,
	}
}

// ErrNoAccessToken reports a token response without an access token
func ErrNoAccessToken() *ExchangeError {
	return &ExchangeError{
		Kind:    KindUpstreamAuth,
		Status:  http.StatusInternalServerError,
		Message: MessageNoAccessToken,
	}
}

// errorDetail picks what to relay to the caller about a failed upstream call:
// the response body (verbatim when JSON), else the error message.
func errorDetail(body []byte, err error) any {
	if len(body) > 0 {
		if json.Valid(body) {
			return json.RawMessage(body)
		}
		return string(body)
	}
	if err != nil {
		return err.Error()
	}
	return nil
}

// statusOrDefault mirrors an upstream status, defaulting to 500.
func statusOrDefault(status int) int {
	if status <= 0 {
		return http.StatusInternalServerError
	}
	return status
}

