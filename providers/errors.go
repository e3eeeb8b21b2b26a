package providers

import (
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"
)

// ErrMissingAccessToken is wrapped by exchange errors for token responses
// that succeeded without an access_token.
var ErrMissingAccessToken = errors.New("token response did not contain an access token")

// ExchangeError describes a failed call to a provider's token endpoint.
// It records where the call was sent so callers can attribute the failure,
// and keeps the provider's status code and response body when one was received.
type ExchangeError struct {
	// Provider is the provider name
	Provider string

	// URL is the token endpoint the request was sent to
	URL string

	// StatusCode is the HTTP status returned by the provider (0 if no response)
	StatusCode int

	// Body is the raw response body (nil if no response)
	Body []byte

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *ExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s token exchange failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s token exchange failed: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error
func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// TargetURL returns the URL the failed request was directed at
func (e *ExchangeError) TargetURL() string {
	return e.URL
}

// HTTPStatus returns the provider's HTTP status code, or 0 if none was received
func (e *ExchangeError) HTTPStatus() int {
	return e.StatusCode
}

// ResponseBody returns the provider's response body, or nil if none was received
func (e *ExchangeError) ResponseBody() []byte {
	return e.Body
}

// NewExchangeError wraps err as an ExchangeError for the given provider and endpoint.
// Status and body are taken from an *oauth2.RetrieveError when present. For transport
// failures the URL recorded by net/http is preferred over endpoint.
func NewExchangeError(provider, endpoint string, err error) *ExchangeError {
	exErr := &ExchangeError{
		Provider: provider,
		URL:      endpoint,
		Err:      err,
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil {
			exErr.StatusCode = retrieveErr.Response.StatusCode
		}
		exErr.Body = retrieveErr.Body
		return exErr
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.URL != "" {
		exErr.URL = urlErr.URL
	}

	return exErr
}
