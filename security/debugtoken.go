package security

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMissingBearerToken is returned when no bearer token is present
	ErrMissingBearerToken = errors.New("missing bearer token")

	// ErrInvalidDebugToken is returned when the token does not match the configured hash
	ErrInvalidDebugToken = errors.New("invalid debug token")
)

// HashDebugToken hashes a debug token for use as DEBUG_TOKEN_HASH.
func HashDebugToken(token string) (string, error) {
	if token == "" {
		return "", errors.New("debug token cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash debug token: %w", err)
	}
	return string(hash), nil
}

// VerifyDebugToken checks token against a bcrypt hash.
// Comparison is constant time in the token value.
func VerifyDebugToken(hash, token string) error {
	if token == "" {
		return ErrMissingBearerToken
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return ErrInvalidDebugToken
	}
	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
