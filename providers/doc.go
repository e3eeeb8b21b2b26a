// Package providers defines the token provider interface consumed by the
// exchange-and-connect flow, plus the shared helpers and error type used by
// provider implementations.
//
// Implementations are provided in subpackages:
//   - providers/twitter: Twitter/X OAuth 2.0 token endpoint (PKCE, confidential client)
//   - providers/mock: Mock provider for testing
//
// Provider implementations handle exactly one thing: exchanging an authorization
// code and its PKCE verifier for an access token. Tokens are never stored.
//
// Example usage:
//
//	provider, err := twitter.NewProvider(&twitter.Config{
//	    ClientID:     os.Getenv("TWITTER_CLIENT_ID"),
//	    ClientSecret: os.Getenv("TWITTER_CLIENT_SECRET"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	token, err := provider.ExchangeCode(ctx, code, verifier, "https://app.example.com/callback")
package providers
