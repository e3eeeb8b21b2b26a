// Package relay is the HTTP front of the Twitter/X exchange-and-connect relay.
//
// It loads the environment configuration, wires the Twitter token provider
// and the selected downstream connector into a server.Server, and serves
// the exchange endpoint together with health, debug and metrics routes.
//
// Basic usage:
//
//	cfg, err := relay.LoadConfigFromEnv()
//	if err != nil {
//		log.Fatal(err)
//	}
//	srv, err := relay.NewServer(cfg, logger, inst)
//	if err != nil {
//		log.Fatal(err)
//	}
//	handler := relay.NewHandler(srv, cfg, logger)
//	http.ListenAndServe(":3001", handler.Routes())
package relay

import (
	"fmt"
	"log/slog"

	"github.com/giantswarm/twitter-connect-relay/downstream"
	"github.com/giantswarm/twitter-connect-relay/downstream/firestarter"
	"github.com/giantswarm/twitter-connect-relay/downstream/mock"
	"github.com/giantswarm/twitter-connect-relay/instrumentation"
	"github.com/giantswarm/twitter-connect-relay/providers"
	"github.com/giantswarm/twitter-connect-relay/providers/twitter"
	"github.com/giantswarm/twitter-connect-relay/security"
	"github.com/giantswarm/twitter-connect-relay/server"
)

// NewServer builds the exchange server described by cfg.
//
// Missing Twitter credentials or downstream URL do not fail start-up: the
// server is created without the affected collaborator and rejects every
// exchange request with a configuration error until the process is
// restarted with complete settings.
func NewServer(cfg Config, logger *slog.Logger, inst *instrumentation.Instrumentation) (*server.Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	srvCfg := cfg.ServerConfig()
	if missing := srvCfg.MissingFields(); len(missing) > 0 {
		logger.Error("Required configuration is missing, exchange requests will be rejected",
			"missing", missing)
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	connector, err := newConnector(cfg, logger)
	if err != nil {
		return nil, err
	}

	srv, err := server.New(provider, connector, srvCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange server: %w", err)
	}

	auditor := security.NewAuditor(logger, cfg.Security.AuditLogging)
	if inst != nil {
		auditor.SetRecorder(inst)
	}
	srv.SetAuditor(auditor)
	srv.SetInstrumentation(inst)

	logger.Info("Exchange server configured",
		"token_url", cfg.Twitter.TokenURL,
		"client_id_set", cfg.Twitter.ClientID != "",
		"client_secret", security.RedactSecret(cfg.Twitter.ClientSecret),
		"connector_mode", cfg.Downstream.Mode,
		"downstream_base_url", cfg.Downstream.BaseURL,
		"request_timeout", cfg.RequestTimeout())

	return srv, nil
}

// newProvider returns nil when credentials are not configured.
func newProvider(cfg Config) (providers.TokenProvider, error) {
	if cfg.Twitter.ClientID == "" || cfg.Twitter.ClientSecret == "" {
		return nil, nil
	}

	provider, err := twitter.NewProvider(&twitter.Config{
		ClientID:       cfg.Twitter.ClientID,
		ClientSecret:   cfg.Twitter.ClientSecret,
		TokenURL:       cfg.Twitter.TokenURL,
		RequestTimeout: cfg.RequestTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Twitter provider: %w", err)
	}
	return provider, nil
}

// newConnector returns nil when the HTTP connector has no base URL.
func newConnector(cfg Config, logger *slog.Logger) (downstream.Connector, error) {
	switch cfg.Downstream.Mode {
	case ConnectorModeMock:
		delay := cfg.Downstream.MockDelay
		if delay == 0 {
			// the mock treats zero as "use the default delay"
			delay = -1
		}
		svc := mock.NewService(mock.Config{
			Delay:  delay,
			Logger: logger,
		})
		return mock.NewConnector(svc, cfg.Downstream.BaseURL), nil

	case ConnectorModeHTTP:
		if cfg.Downstream.BaseURL == "" {
			return nil, nil
		}
		client, err := firestarter.NewClient(&firestarter.Config{
			BaseURL:          cfg.Downstream.BaseURL,
			RequestTimeout:   cfg.RequestTimeout(),
			MaxResponseBytes: cfg.MaxRequestSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create FireStarter client: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown connector mode %q", cfg.Downstream.Mode)
	}
}
