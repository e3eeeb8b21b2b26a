package mock

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/giantswarm/twitter-connect-relay/downstream"
)

func connectRequest(accessToken, walletAddress string) downstream.ConnectRequest {
	return downstream.ConnectRequest{AccessToken: accessToken, WalletAddress: walletAddress}
}

func TestNewConnector(t *testing.T) {
	c := NewConnector(nil, "")
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), DefaultBaseURL)
	}
	if c.Name() != "mock" {
		t.Errorf("Name() = %q, want mock", c.Name())
	}

	c = NewConnector(nil, "http://fs.internal/api/")
	if c.BaseURL() != "http://fs.internal/api" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
}

func TestConnector_Connect(t *testing.T) {
	c := NewConnector(newTestService(-1), "")

	result, err := c.Connect(context.Background(), "TOK1", "0xABC")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !result.Success {
		t.Error("expected success")
	}

	var resp Response
	if err := json.Unmarshal(result.Data, &resp); err != nil {
		t.Fatalf("Data is not a mock response: %v", err)
	}
	if !resp.Success || resp.Data == nil || resp.Data.WalletAddress != "0xABC" {
		t.Errorf("response = %+v", resp)
	}
}

func TestConnector_Connect_MissingFields(t *testing.T) {
	c := NewConnector(newTestService(-1), "")

	_, err := c.Connect(context.Background(), "", "0xABC")
	var callErr *downstream.CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("error = %v, want *downstream.CallError", err)
	}
	if callErr.HTTPStatus() != http.StatusBadRequest {
		t.Errorf("HTTPStatus() = %d, want %d", callErr.HTTPStatus(), http.StatusBadRequest)
	}
	if callErr.TargetURL() != DefaultBaseURL+downstream.ConnectPath {
		t.Errorf("TargetURL() = %q", callErr.TargetURL())
	}
	if len(callErr.ResponseBody()) == 0 {
		t.Error("expected the mock error body")
	}
}

func TestConnector_Connect_Cancelled(t *testing.T) {
	c := NewConnector(newTestService(0), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Connect(ctx, "TOK1", "0xABC")
	var callErr *downstream.CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("error = %v, want *downstream.CallError", err)
	}
	if callErr.HTTPStatus() != 0 {
		t.Errorf("HTTPStatus() = %d, want 0", callErr.HTTPStatus())
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want to wrap context.Canceled", err)
	}
}
