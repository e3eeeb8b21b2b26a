package server

import (
	"fmt"
	"strings"
	"time"
)

// DefaultRequestTimeout bounds each outbound call when Config.RequestTimeout is unset.
const DefaultRequestTimeout = 30 * time.Second

// Config is the configuration of the exchange operation.
// It is built once at start-up and passed by value.
type Config struct {
	// ClientID is the Twitter/X OAuth 2.0 client ID (required)
	ClientID string

	// ClientSecret is the Twitter/X OAuth 2.0 client secret (required)
	ClientSecret string

	// DefaultRedirectURI is used when a request carries no redirectUri (required)
	DefaultRedirectURI string

	// DownstreamBaseURL is the social-connect API base URL (required)
	DownstreamBaseURL string

	// TokenEndpointURL is the OAuth token endpoint
	TokenEndpointURL string

	// RequestTimeout bounds each outbound call (default: 30s)
	RequestTimeout time.Duration
}

// MissingFields returns the names of required settings that are empty.
func (c Config) MissingFields() []string {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "ClientID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "ClientSecret")
	}
	if c.DefaultRedirectURI == "" {
		missing = append(missing, "DefaultRedirectURI")
	}
	if c.DownstreamBaseURL == "" {
		missing = append(missing, "DownstreamBaseURL")
	}
	return missing
}

// Validate returns an error naming the missing required settings, if any.
func (c Config) Validate() error {
	if missing := c.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// requestTimeout returns the effective per-call timeout.
func (c Config) requestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return c.RequestTimeout
}
