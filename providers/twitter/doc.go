// Package twitter implements the token provider interface for Twitter/X OAuth 2.0.
//
// Twitter/X issues authorization codes bound to a PKCE code challenge. The relay
// acts as a confidential client: the code is exchanged at the token endpoint with
// HTTP Basic client authentication (client ID and secret) and the PKCE
// code_verifier in the form body. The client_id is also sent in the body, which
// Twitter accepts and some proxies in front of it require.
//
// # Redirect URI
//
// The redirect_uri sent with the exchange must match the one used when the
// authorization code was issued, byte for byte. The provider therefore takes the
// redirect URI per call rather than fixing it at construction time.
//
// # Example Usage
//
//	provider, err := twitter.NewProvider(&twitter.Config{
//	    ClientID:       os.Getenv("TWITTER_CLIENT_ID"),
//	    ClientSecret:   os.Getenv("TWITTER_CLIENT_SECRET"),
//	    RequestTimeout: 30 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
package twitter
