package server

import (
	"fmt"
	"log/slog"

	"github.com/giantswarm/twitter-connect-relay/downstream"
	"github.com/giantswarm/twitter-connect-relay/instrumentation"
	"github.com/giantswarm/twitter-connect-relay/providers"
	"github.com/giantswarm/twitter-connect-relay/security"
)

// Server runs the exchange-and-connect operation against a token provider
// and a downstream connector. It holds no per-request state and is safe for
// concurrent use.
type Server struct {
	provider        providers.TokenProvider
	connector       downstream.Connector
	Config          Config
	Logger          *slog.Logger
	Auditor         *security.Auditor
	Instrumentation *instrumentation.Instrumentation
}

// New creates a new exchange server.
//
// The provider and connector may only be nil when config is incomplete: such
// a server rejects every request with KindConfiguration before any call.
func New(provider providers.TokenProvider, connector downstream.Connector, config Config, logger *slog.Logger) (*Server, error) {
	if config.Validate() == nil {
		if provider == nil {
			return nil, fmt.Errorf("provider is required")
		}
		if connector == nil {
			return nil, fmt.Errorf("connector is required")
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		provider:  provider,
		connector: connector,
		Config:    config,
		Logger:    logger,
	}, nil
}

// SetAuditor sets the security auditor
func (s *Server) SetAuditor(aud *security.Auditor) {
	s.Auditor = aud
}

// SetInstrumentation sets the instrumentation used for metrics and spans
func (s *Server) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.Instrumentation = inst
}

// tokenEndpoint returns the URL token exchange failures are attributed to.
func (s *Server) tokenEndpoint() string {
	if s.provider != nil {
		if endpoint := s.provider.TokenEndpoint(); endpoint != "" {
			return endpoint
		}
	}
	return s.Config.TokenEndpointURL
}

// downstreamBaseURL returns the URL connect failures are attributed to.
func (s *Server) downstreamBaseURL() string {
	if s.connector != nil {
		if base := s.connector.BaseURL(); base != "" {
			return base
		}
	}
	return s.Config.DownstreamBaseURL
}
