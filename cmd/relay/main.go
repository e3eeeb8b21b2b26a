// relay serves the Twitter/X exchange-and-connect endpoint.
//
// Configuration comes from the environment (see relay.Config). Flags
// override the listener ports and the connector mode:
//
//	relay --port 3001 --https-port 3443 --connector-mode mock
//
// To produce a DEBUG_TOKEN_HASH value, pipe the token to
//
//	relay --hash-debug-token
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	relay "github.com/giantswarm/twitter-connect-relay"
	"github.com/giantswarm/twitter-connect-relay/instrumentation"
	"github.com/giantswarm/twitter-connect-relay/internal/listener"
	"github.com/giantswarm/twitter-connect-relay/internal/logging"
	"github.com/giantswarm/twitter-connect-relay/security"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	flagSet := pflag.NewFlagSet("relay", pflag.ContinueOnError)
	port := flagSet.Int("port", 0, "HTTP port (overrides PORT)")
	httpsPort := flagSet.Int("https-port", 0, "HTTPS port (overrides HTTPS_PORT)")
	connectorMode := flagSet.String("connector-mode", "", "downstream connector: http or mock (overrides CONNECTOR_MODE)")
	showVersion := flagSet.Bool("version", false, "print version and exit")
	hashToken := flagSet.Bool("hash-debug-token", false, "read a debug token from stdin, print its DEBUG_TOKEN_HASH value and exit")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		_, err := fmt.Fprintln(stdout, "relay", version)
		return err
	}
	if *hashToken {
		return hashDebugToken(stdin, stdout)
	}

	cfg, err := relay.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	if flagSet.Changed("port") {
		cfg.Listen.Port = *port
	}
	if flagSet.Changed("https-port") {
		cfg.Listen.HTTPSPort = *httpsPort
	}
	if flagSet.Changed("connector-mode") {
		cfg.Downstream.Mode = *connectorMode
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, logCloser, err := logging.New(cfg.LoggerConfig())
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	inst, err := instrumentation.New(instrumentation.Config{
		ServiceName:    instrumentation.DefaultServiceName,
		ServiceVersion: version,
		Enabled:        cfg.Observability.MetricsEnabled,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := inst.Shutdown(ctx); err != nil {
			logger.Warn("Instrumentation shutdown failed", "error", err)
		}
	}()

	srv, err := relay.NewServer(cfg, logger, inst)
	if err != nil {
		return err
	}
	handler := relay.NewHandler(srv, cfg, logger)

	listenerConfig := listener.Config{
		HTTPAddr: net.JoinHostPort("", strconv.Itoa(cfg.Listen.Port)),
		Logger:   logger,
	}
	if cfg.Listen.TLSEnabled() {
		listenerConfig.HTTPSAddr = net.JoinHostPort("", strconv.Itoa(cfg.Listen.HTTPSPort))
		listenerConfig.TLSCertFile = cfg.Listen.TLSCertFile
		listenerConfig.TLSKeyFile = cfg.Listen.TLSKeyFile
	}
	l, err := listener.New(handler.Routes(), listenerConfig)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting Twitter connect relay",
		"version", version,
		"port", cfg.Listen.Port,
		"tls", cfg.Listen.TLSEnabled(),
		"connector_mode", cfg.Downstream.Mode,
		"metrics", cfg.Observability.MetricsEnabled,
		"tracing", cfg.Observability.OTLPEndpoint != "",
		"debug_endpoint", cfg.Security.DebugTokenHash != "")

	return l.Run(ctx)
}

// hashDebugToken reads the first line of r and writes its bcrypt hash to w.
func hashDebugToken(r io.Reader, w io.Writer) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read debug token: %w", err)
	}
	hash, err := security.HashDebugToken(strings.TrimSpace(line))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}
