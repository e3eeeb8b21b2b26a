package providers

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// CodeExchanger is satisfied by *oauth2.Config. Providers depend on it rather
// than the concrete type so the exchange helper can be tested in isolation.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// ExchangeCodeWithPKCE redeems code at the exchanger's token endpoint.
//
// A non-empty verifier is sent as code_verifier. httpClient, when set, is
// used for the token request instead of http.DefaultClient. extra carries
// provider-specific form parameters. The caller owns the deadline on ctx.
func ExchangeCodeWithPKCE(ctx context.Context, exchanger CodeExchanger, httpClient *http.Client, code, verifier string, extra ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	opts = append(opts, extra...)

	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}

	token, err := exchanger.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return token, nil
}
