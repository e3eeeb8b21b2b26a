// Package server implements the exchange-and-connect operation: it trades a
// Twitter/X authorization code and PKCE verifier for an access token and
// forwards that token with a wallet address to the downstream social-connect
// service.
//
// The operation is a strict sequence with no retries:
//
//  1. Validate the request (authorizationCode, codeVerifier, walletAddress).
//  2. Validate the configuration (client credentials, default redirect URI,
//     downstream base URL). Nothing is sent when either check fails.
//  3. Exchange the code at the token endpoint.
//  4. Connect the access token to the wallet downstream.
//
// Every failure is returned as an *ExchangeError whose Kind tells callers
// whether the OAuth code was rejected (KindUpstreamAuth), the connect step
// failed (KindDownstreamConnect) or something else broke (KindInternal).
// Attribution is decided by the URL the failed call was sent to, see Classify.
package server
