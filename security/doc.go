// Package security provides the security plumbing around the relay endpoints:
// response security headers, request ID propagation, client IP extraction,
// audit logging, credential redaction for logs, and bcrypt-based verification
// of the debug endpoint token.
//
// # Redaction Boundary
//
// Credentials handled by the relay (client secret, authorization codes, PKCE
// verifiers, access tokens, Basic auth headers) must never reach logs, traces
// or metrics in full. The helpers in redact.go define what may be emitted:
//
//   - RedactSecret: presence only ("set"/"not set"). Used for the client secret.
//   - RedactToken: the first 8 bytes followed by "..." and the length.
//     Used for codes, verifiers and access tokens, which are single use.
//   - Fingerprint: a truncated SHA-256 hex digest for correlating values
//     across log lines without revealing them.
//
// Wallet addresses, redirect URIs and client IDs are public identifiers and may
// be logged verbatim.
//
// # Example Usage
//
//	handler := security.RequestIDMiddleware(mux)
//
//	auditor := security.NewAuditor(logger, true)
//	auditor.LogExchangeSucceeded(walletAddress, clientIP, requestID)
//
//	logger.Info("Exchanging code", "code", security.RedactToken(code))
package security
