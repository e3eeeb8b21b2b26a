// Package mock provides a mock implementation of the TokenProvider interface for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/giantswarm/twitter-connect-relay/providers"
)

// Compile-time check that MockProvider implements the providers.TokenProvider interface.
var _ providers.TokenProvider = (*MockProvider)(nil)

// DefaultTokenEndpoint is the token endpoint reported by a new MockProvider.
const DefaultTokenEndpoint = "https://mock.example.com/oauth2/token"

// ExchangeCall records the arguments of one ExchangeCode invocation
type ExchangeCall struct {
	Code         string
	CodeVerifier string
	RedirectURI  string
}

// MockProvider is a mock implementation of the TokenProvider interface for testing
type MockProvider struct {
	// NameFunc is called when Name() is invoked
	NameFunc func() string

	// TokenEndpointFunc is called when TokenEndpoint() is invoked
	TokenEndpointFunc func() string

	// ExchangeCodeFunc is called when ExchangeCode() is invoked
	ExchangeCodeFunc func(ctx context.Context, code, codeVerifier, redirectURI string) (*oauth2.Token, error)

	// CallCounts tracks how many times each method was called
	CallCounts map[string]int

	// ExchangeCalls records every ExchangeCode invocation in order
	ExchangeCalls []ExchangeCall

	// mu protects CallCounts and ExchangeCalls from concurrent access
	mu sync.RWMutex
}

// NewMockProvider creates a new mock provider with default implementations
func NewMockProvider() *MockProvider {
	return &MockProvider{
		CallCounts: make(map[string]int),
		NameFunc: func() string {
			return "mock"
		},
		TokenEndpointFunc: func() string {
			return DefaultTokenEndpoint
		},
		ExchangeCodeFunc: func(ctx context.Context, code, codeVerifier, redirectURI string) (*oauth2.Token, error) {
			return &oauth2.Token{
				AccessToken: "mock-access-token",
				TokenType:   "Bearer",
			}, nil
		},
	}
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	// LOCK PATTERN: Lock only to update counter and read function reference
	// Release lock BEFORE calling user function to prevent deadlocks
	m.mu.Lock()
	m.CallCounts["Name"]++
	fn := m.NameFunc
	m.mu.Unlock()

	if fn == nil {
		return "mock"
	}
	return fn()
}

// TokenEndpoint returns the token endpoint the mock pretends to call
func (m *MockProvider) TokenEndpoint() string {
	m.mu.Lock()
	m.CallCounts["TokenEndpoint"]++
	fn := m.TokenEndpointFunc
	m.mu.Unlock()
	if fn == nil {
		return DefaultTokenEndpoint
	}
	return fn()
}

// ExchangeCode exchanges an authorization code for tokens
func (m *MockProvider) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*oauth2.Token, error) {
	m.mu.Lock()
	m.CallCounts["ExchangeCode"]++
	m.ExchangeCalls = append(m.ExchangeCalls, ExchangeCall{
		Code:         code,
		CodeVerifier: codeVerifier,
		RedirectURI:  redirectURI,
	})
	fn := m.ExchangeCodeFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("ExchangeCodeFunc not configured")
	}
	return fn(ctx, code, codeVerifier, redirectURI)
}

// GetCallCount returns the number of times a method was called
func (m *MockProvider) GetCallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.CallCounts[method]
}

// LastExchangeCall returns the most recent ExchangeCode arguments, if any
func (m *MockProvider) LastExchangeCall() (ExchangeCall, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.ExchangeCalls) == 0 {
		return ExchangeCall{}, false
	}
	return m.ExchangeCalls[len(m.ExchangeCalls)-1], true
}
