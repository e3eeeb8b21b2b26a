package twitter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/giantswarm/twitter-connect-relay/providers"
)

// Compile-time check that Provider implements the providers.TokenProvider interface.
var _ providers.TokenProvider = (*Provider)(nil)

// providerName is the name returned by Provider.Name().
const providerName = "twitter"

// DefaultTokenURL is the Twitter/X OAuth 2.0 token endpoint.
const DefaultTokenURL = "https://api.x.com/2/oauth2/token"

// defaultRequestTimeout bounds a single token exchange when no timeout is configured.
const defaultRequestTimeout = 30 * time.Second

// Provider implements the providers.TokenProvider interface for Twitter/X.
type Provider struct {
	config         oauth2.Config
	httpClient     *http.Client
	requestTimeout time.Duration
}

// Config holds Twitter OAuth configuration.
type Config struct {
	// ClientID is the Twitter OAuth 2.0 client ID.
	ClientID string

	// ClientSecret is the Twitter OAuth 2.0 client secret.
	ClientSecret string

	// TokenURL overrides the token endpoint (default: DefaultTokenURL).
	TokenURL string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client

	// RequestTimeout is the timeout for token endpoint calls (default: 30s).
	RequestTimeout time.Duration
}

// NewProvider creates a new Twitter OAuth provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if u, err := url.Parse(tokenURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid token URL %q", tokenURL)
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

	return &Provider{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL: tokenURL,
				// Basic auth with client_id:client_secret, never the secret in the body.
				// Both parts are form-encoded before base64 (RFC 6749 section 2.3.1),
				// so a secret containing "+" or "/" does not arrive as raw RFC 7617 text.
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// TokenEndpoint returns the configured token endpoint URL.
func (p *Provider) TokenEndpoint() string {
	return p.config.Endpoint.TokenURL
}

// ensureContextTimeout ensures the context has a deadline, adding one if needed.
// Returns a new context with timeout and a cancel function that should be deferred.
// If the context already has a deadline, returns the original context with a no-op cancel.
func (p *Provider) ensureContextTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.requestTimeout)
}

// ExchangeCode exchanges an authorization code for tokens using the PKCE verifier.
// The form body carries grant_type, code, redirect_uri, client_id and code_verifier.
// Failures are returned as *providers.ExchangeError.
func (p *Provider) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*oauth2.Token, error) {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	// Per-call copy: the redirect URI is request scoped.
	conf := p.config
	conf.RedirectURL = redirectURI

	token, err := providers.ExchangeCodeWithPKCE(ctx, &conf, p.httpClient, code, codeVerifier,
		oauth2.SetAuthURLParam("client_id", conf.ClientID),
	)
	if err != nil {
		if isMissingAccessToken(err) {
			err = fmt.Errorf("%w: %w", providers.ErrMissingAccessToken, err)
		}
		return nil, providers.NewExchangeError(providerName, p.TokenEndpoint(), err)
	}

	return token, nil
}

// isMissingAccessToken matches the error x/oauth2 returns for a 2xx token
// response without access_token. The library exports no sentinel for it.
func isMissingAccessToken(err error) bool {
	return strings.Contains(err.Error(), "server response missing access_token")
}
