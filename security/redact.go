package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/giantswarm/twitter-connect-relay/internal/util"
)

// tokenPrefixLen is the number of leading bytes RedactToken keeps.
const tokenPrefixLen = 8

// RedactToken returns a log-safe form of a single-use credential
// (authorization code, PKCE verifier, access token): the first 8 bytes,
// "..." and the total length. Values of 8 bytes or fewer are fully masked.
func RedactToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	if len(token) <= tokenPrefixLen {
		return fmt.Sprintf("[REDACTED len=%d]", len(token))
	}
	return fmt.Sprintf("%s...(len=%d)", util.SafeTruncate(token, tokenPrefixLen), len(token))
}

// RedactSecret reports only whether a secret is configured.
func RedactSecret(secret string) string {
	if secret == "" {
		return "not set"
	}
	return "set"
}

// Fingerprint returns a short SHA-256 fingerprint of value for log correlation.
func Fingerprint(value string) string {
	if value == "" {
		return "<empty>"
	}
	sum := sha256.Sum256([]byte(value))
	return "sha256:" + hex.EncodeToString(sum[:])[:16]
}
