package server

import (
	"errors"
	"net/url"

	"github.com/giantswarm/twitter-connect-relay/internal/util"
)

// callFailure is implemented by errors that describe a failed outbound call
// (providers.ExchangeError, downstream.CallError).
type callFailure interface {
	error
	TargetURL() string
	HTTPStatus() int
	ResponseBody() []byte
}

// Classify maps an outbound call error to an *ExchangeError by the URL the
// failed call was sent to:
//
//   - a URL under tokenEndpoint is a token exchange failure (KindUpstreamAuth)
//   - a URL under downstreamBaseURL is a connect failure (KindDownstreamConnect)
//   - anything else is KindInternal with status 500
//
// The status mirrors the upstream status when one was received, else 500.
// An *ExchangeError is returned unchanged.
func Classify(err error, tokenEndpoint, downstreamBaseURL string) *ExchangeError {
	if err == nil {
		return nil
	}

	var exErr *ExchangeError
	if errors.As(err, &exErr) {
		return exErr
	}

	var (
		target string
		status int
		body   []byte
	)
	var failure callFailure
	var urlErr *url.Error
	switch {
	case errors.As(err, &failure):
		target = failure.TargetURL()
		status = failure.HTTPStatus()
		body = failure.ResponseBody()
	case errors.As(err, &urlErr):
		target = urlErr.URL
	}

	switch {
	case target != "" && util.HasURLPrefix(target, tokenEndpoint):
		return &ExchangeError{
			Kind:    KindUpstreamAuth,
			Status:  statusOrDefault(status),
			Message: MessageTokenExchange,
			Detail:  errorDetail(body, err),
			Err:     err,
		}
	case target != "" && util.HasURLPrefix(target, downstreamBaseURL):
		return &ExchangeError{
			Kind:    KindDownstreamConnect,
			Status:  statusOrDefault(status),
			Message: MessageDownstreamConnect,
			Detail:  errorDetail(body, err),
			Err:     err,
		}
	default:
		return &ExchangeError{
			Kind:    KindInternal,
			Status:  statusOrDefault(0),
			Message: MessageUnexpectedInternal,
			Detail:  err.Error(),
			Err:     err,
		}
	}
}
