// Package util provides common utility functions used across the relay.
// These utilities handle string manipulation and URL handling that don't fit
// into domain-specific packages.
package util

import "strings"

// SafeTruncate safely truncates a string to maxLen bytes without panicking.
// Returns the original string if it's shorter than maxLen, otherwise returns
// the first maxLen bytes. Used when only a prefix of a credential may be logged.
//
// If maxLen is negative, it's treated as 0 and returns an empty string.
//
// Example:
//
//	SafeTruncate("very-long-token-abc123", 8) // Returns: "very-lon"
//	SafeTruncate("short", 10)                  // Returns: "short"
//	SafeTruncate("test", -1)                   // Returns: ""
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// NormalizeURL normalizes a URL for comparison by removing trailing slashes.
//
// Example:
//
//	NormalizeURL("https://example.com/api/")   // Returns: "https://example.com/api"
//	NormalizeURL("https://example.com///")     // Returns: "https://example.com"
func NormalizeURL(url string) string {
	return strings.TrimRight(url, "/")
}

// JoinURL appends path to base, making sure exactly one slash separates them.
//
// Example:
//
//	JoinURL("http://localhost:3002/api/v1/", "/social/connect/twitter")
//	// Returns: "http://localhost:3002/api/v1/social/connect/twitter"
func JoinURL(base, path string) string {
	return NormalizeURL(base) + "/" + strings.TrimLeft(path, "/")
}

// HasURLPrefix reports whether target points at base or at a path below it.
// Both values are normalized first, and the match must end on a path boundary
// so that "https://api.example.com/v1" does not match "https://api.example.com/v10".
// An empty base never matches.
func HasURLPrefix(target, base string) bool {
	base = NormalizeURL(base)
	if base == "" {
		return false
	}
	target = NormalizeURL(target)
	if !strings.HasPrefix(target, base) {
		return false
	}
	rest := target[len(base):]
	return rest == "" || rest[0] == '/' || rest[0] == '?'
}
