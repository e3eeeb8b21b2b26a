package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/giantswarm/twitter-connect-relay/security"
)

func TestRun_HashDebugToken(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"--hash-debug-token"}, strings.NewReader("s3cret-token\n"), &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	hash := strings.TrimSpace(out.String())
	if err := security.VerifyDebugToken(hash, "s3cret-token"); err != nil {
		t.Errorf("VerifyDebugToken() error = %v", err)
	}
	if strings.Contains(hash, "s3cret-token") {
		t.Error("output must not contain the token")
	}
}

func TestRun_HashDebugToken_Empty(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"--hash-debug-token"}, strings.NewReader("  \n"), &out)
	if err == nil {
		t.Fatal("run() expected error for an empty token")
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"--version"}, strings.NewReader(""), &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got, want := out.String(), "relay "+version+"\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
