package providers

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenProvider exchanges OAuth authorization codes for access tokens.
// Implementations must be safe for concurrent use.
type TokenProvider interface {
	// Name returns the provider name (e.g., "twitter")
	Name() string

	// TokenEndpoint returns the URL the code exchange is sent to.
	// Used to attribute failed calls to the provider.
	TokenEndpoint() string

	// ExchangeCode exchanges an authorization code for tokens.
	// codeVerifier is the PKCE verifier bound to the code, and redirectURI must be
	// the exact value used when the code was issued.
	ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*oauth2.Token, error)
}
