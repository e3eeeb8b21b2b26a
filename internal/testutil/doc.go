// Package testutil provides test doubles and helpers shared by the relay's
// tests: fake token endpoint and downstream servers built on httptest, a
// recording downstream connector, PKCE fixtures, and assertion helpers.
package testutil
