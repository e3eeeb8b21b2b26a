// Package mock provides a stand-in for the FireStarter social-connect API.
//
// Service is an http.Handler that can run as its own process (cmd/mock-firestarter)
// and Connector is an in-process downstream.Connector backed by the same Service,
// so the relay can be exercised end to end without live credentials.
package mock

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/giantswarm/twitter-connect-relay/downstream"
	"github.com/giantswarm/twitter-connect-relay/security"
)

const (
	// DefaultPathPrefix matches the path layout of the real API.
	DefaultPathPrefix = "/api/v1/trustcore"

	// DefaultDelay simulates downstream processing time.
	DefaultDelay = time.Second

	// APIVersion is reported in every successful connection.
	APIVersion = "mock-v1.0.0"

	serviceName = "Mock FireStarter API"

	handleAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
	handleSuffixLen = 5
)

// Config holds mock service configuration
type Config struct {
	// PathPrefix is prepended to the connect path (default: DefaultPathPrefix).
	// Set to "/" to serve the connect endpoint at the root.
	PathPrefix string

	// Delay before a successful response is written (default: DefaultDelay).
	// Negative values disable the delay.
	Delay time.Duration

	// Logger for request logging (optional, uses default if not provided)
	Logger *slog.Logger

	// Now overrides the clock used for timestamps (optional)
	Now func() time.Time
}

// Response is the JSON envelope returned by the mock
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    *Connection `json:"data,omitempty"`
}

// Connection describes a linked Twitter account
type Connection struct {
	TwitterHandle string `json:"twitterHandle"`
	WalletAddress string `json:"walletAddress"`
	ConnectedAt   string `json:"connectedAt"`
	APIVersion    string `json:"apiVersion"`
}

// Service is the mock FireStarter API
type Service struct {
	pathPrefix string
	delay      time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a mock service, applying defaults to zero config values
func NewService(cfg Config) *Service {
	prefix := cfg.PathPrefix
	if prefix == "" {
		prefix = DefaultPathPrefix
	}
	if prefix == "/" {
		prefix = ""
	}

	delay := cfg.Delay
	if delay == 0 {
		delay = DefaultDelay
	}
	if delay < 0 {
		delay = 0
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		pathPrefix: prefix,
		delay:      delay,
		logger:     logger,
		now:        now,
	}
}

// ConnectPath returns the full path of the connect endpoint
func (s *Service) ConnectPath() string {
	return s.pathPrefix + downstream.ConnectPath
}

// Handler returns an http.Handler serving the connect and health endpoints
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.ConnectPath(), s.ServeConnect)
	mux.HandleFunc("/health", s.ServeHealth)
	return security.RequestIDMiddleware(mux)
}

// ServeConnect handles POST <prefix>/social/connect/twitter
func (s *Service) ServeConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, Response{Message: "Method not allowed"})
		return
	}

	var req downstream.ConnectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		s.logger.Warn("Mock connect request with invalid JSON",
			"request_id", security.GetRequestID(r.Context()),
			"error", err)
		writeJSON(w, http.StatusBadRequest, Response{Message: "Invalid JSON body"})
		return
	}

	s.logger.Info("Mock connect request received",
		"request_id", security.GetRequestID(r.Context()),
		"access_token", security.RedactToken(req.AccessToken),
		"wallet_address", req.WalletAddress)

	status, resp, err := s.connect(r.Context(), req)
	if err != nil {
		// Caller went away during the simulated delay; nothing useful to write.
		s.logger.Debug("Mock connect abandoned", "error", err)
		return
	}
	writeJSON(w, status, resp)
}

// ServeHealth handles GET /health
func (s *Service) ServeHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"service":   serviceName,
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
	})
}

// connect validates req and builds the mock response after the configured delay.
// Returns ctx.Err() if ctx ends before the delay elapses.
func (s *Service) connect(ctx context.Context, req downstream.ConnectRequest) (int, Response, error) {
	if req.AccessToken == "" || req.WalletAddress == "" {
		return http.StatusBadRequest, Response{
			Success: false,
			Message: "Missing required fields: accessToken or walletAddress",
		}, nil
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return 0, Response{}, ctx.Err()
		}
	}

	return http.StatusOK, Response{
		Success: true,
		Message: "Account connected successfully",
		Data: &Connection{
			TwitterHandle: "mock_user_" + randomHandleSuffix(),
			WalletAddress: req.WalletAddress,
			ConnectedAt:   s.now().UTC().Format(time.RFC3339Nano),
			APIVersion:    APIVersion,
		},
	}, nil
}

func randomHandleSuffix() string {
	b := make([]byte, handleSuffixLen)
	for i := range b {
		b[i] = handleAlphabet[rand.IntN(len(handleAlphabet))]
	}
	return string(b)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
