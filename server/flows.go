package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/giantswarm/twitter-connect-relay/downstream"
	"github.com/giantswarm/twitter-connect-relay/instrumentation"
	"github.com/giantswarm/twitter-connect-relay/providers"
	"github.com/giantswarm/twitter-connect-relay/security"
)

const operationExchangeCode = "exchange_code"

// ExchangeRequest is the inbound exchange-and-connect request.
type ExchangeRequest struct {
	AuthorizationCode string `json:"authorizationCode"`
	CodeVerifier      string `json:"codeVerifier"`
	WalletAddress     string `json:"walletAddress"`

	// RedirectURI must equal the redirect URI the code was issued for.
	// Empty means Config.DefaultRedirectURI.
	RedirectURI string `json:"redirectUri,omitempty"`
}

// MissingFields returns the JSON names of empty required fields.
func (r ExchangeRequest) MissingFields() []string {
	var missing []string
	if r.AuthorizationCode == "" {
		missing = append(missing, "authorizationCode")
	}
	if r.CodeVerifier == "" {
		missing = append(missing, "codeVerifier")
	}
	if r.WalletAddress == "" {
		missing = append(missing, "walletAddress")
	}
	return missing
}

// ExchangeAndConnect exchanges the authorization code for an access token and
// connects that token to the wallet address downstream.
//
// Steps run strictly in sequence and the first failure ends the request:
// request validation, configuration validation, token exchange, connect.
// The connector is never called without a non-empty access token.
// All errors are *ExchangeError.
func (s *Server) ExchangeAndConnect(ctx context.Context, req ExchangeRequest) (result *downstream.ConnectResult, err error) {
	start := time.Now()
	ctx, span := s.Instrumentation.Tracer("server").Start(ctx, instrumentation.SpanExchangeAndConnect)
	defer span.End()

	logger := s.Logger.With(
		"request_id", security.GetRequestID(ctx),
		"wallet_address", req.WalletAddress,
	)

	defer func() {
		s.recordOutcome(ctx, span, logger, start, err)
	}()

	if missing := req.MissingFields(); len(missing) > 0 {
		return nil, ErrInvalidRequest(missing)
	}

	if cfgErr := s.Config.Validate(); cfgErr != nil {
		return nil, ErrConfiguration(cfgErr)
	}

	redirectURI := req.RedirectURI
	if redirectURI == "" {
		redirectURI = s.Config.DefaultRedirectURI
	}
	instrumentation.AddExchangeAttributes(span, req.WalletAddress, redirectURI, len(req.AuthorizationCode))

	logger.Info("Exchanging authorization code",
		"provider", s.provider.Name(),
		"client_id", s.Config.ClientID,
		"redirect_uri", redirectURI,
		"code", security.RedactToken(req.AuthorizationCode),
		"code_verifier", security.RedactToken(req.CodeVerifier))

	token, err := s.exchangeCode(ctx, req.AuthorizationCode, req.CodeVerifier, redirectURI)
	if errors.Is(err, providers.ErrMissingAccessToken) {
		return nil, ErrNoAccessToken()
	}
	if err != nil {
		return nil, Classify(err, s.tokenEndpoint(), s.downstreamBaseURL())
	}
	if token == nil || token.AccessToken == "" {
		return nil, ErrNoAccessToken()
	}

	logger.Info("Access token obtained",
		"access_token", security.RedactToken(token.AccessToken),
		"access_token_fingerprint", security.Fingerprint(token.AccessToken),
		"token_type", token.TokenType)

	result, err = s.connect(ctx, token.AccessToken, req.WalletAddress)
	if err != nil {
		return nil, Classify(err, s.tokenEndpoint(), s.downstreamBaseURL())
	}

	return result, nil
}

// exchangeCode performs the token endpoint call under its own timeout.
func (s *Server) exchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Config.requestTimeout())
	defer cancel()

	ctx, span := s.Instrumentation.Tracer("provider").Start(ctx, instrumentation.SpanProviderExchange)
	defer span.End()
	instrumentation.AddProviderAttributes(span, s.provider.Name(), operationExchangeCode)

	start := time.Now()
	token, err := s.provider.ExchangeCode(ctx, code, codeVerifier, redirectURI)
	status := callStatus(err)

	s.Instrumentation.Metrics().RecordProviderAPICall(ctx, s.provider.Name(), operationExchangeCode, status, elapsedMs(start), err)
	instrumentation.SetSpanAttributes(span, attribute.Int(instrumentation.AttrProviderStatus, status))
	if err != nil {
		instrumentation.RecordError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return token, nil
}

// connect performs the downstream call under its own timeout.
func (s *Server) connect(ctx context.Context, accessToken, walletAddress string) (*downstream.ConnectResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Config.requestTimeout())
	defer cancel()

	ctx, span := s.Instrumentation.Tracer("downstream").Start(ctx, instrumentation.SpanDownstreamConnect)
	defer span.End()
	instrumentation.AddDownstreamAttributes(span, s.connector.Name(), s.connector.BaseURL())

	start := time.Now()
	result, err := s.connector.Connect(ctx, accessToken, walletAddress)
	status := callStatus(err)

	s.Instrumentation.Metrics().RecordDownstreamCall(ctx, s.connector.Name(), status, elapsedMs(start), err)
	instrumentation.SetSpanAttributes(span, attribute.Int(instrumentation.AttrDownstreamStatus, status))
	if err != nil {
		instrumentation.RecordError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return result, nil
}

// recordOutcome logs, counts and annotates the finished operation.
func (s *Server) recordOutcome(ctx context.Context, span trace.Span, logger *slog.Logger, start time.Time, err error) {
	durationMs := elapsedMs(start)

	if err == nil {
		s.Instrumentation.Metrics().RecordExchange(ctx, instrumentation.ExchangeOutcomeSuccess, durationMs)
		instrumentation.SetSpanSuccess(span)
		logger.Info("Exchange and connect succeeded", "duration_ms", durationMs)
		return
	}

	kind := KindInternal
	status := http.StatusInternalServerError
	var exErr *ExchangeError
	if errors.As(err, &exErr) {
		kind = exErr.Kind
		status = exErr.Status
	}

	s.Instrumentation.Metrics().RecordExchange(ctx, string(kind), durationMs)
	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrErrorKind, string(kind)))
	instrumentation.RecordError(span, err)

	switch kind {
	case KindInvalidRequest:
		logger.Warn("Exchange request rejected", "kind", kind, "status", status, "error", err)
	default:
		logger.Error("Exchange and connect failed", "kind", kind, "status", status, "error", err, "duration_ms", durationMs)
	}
}

// callStatus returns the HTTP status of a finished call: 200 on success,
// the upstream status on failure, 0 when no response was received.
func callStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var failure callFailure
	if errors.As(err, &failure) {
		return failure.HTTPStatus()
	}
	return 0
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
