// Package util provides small helpers shared across the relay packages.
//
// Key utilities:
//   - SafeTruncate: Safely truncates strings for logging sensitive data
//   - NormalizeURL / JoinURL: base URL handling for outbound endpoints
//   - HasURLPrefix: matches a request target against a configured base URL
package util
