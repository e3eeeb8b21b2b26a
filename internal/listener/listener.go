// Package listener serves one handler over plain HTTP and, when a
// certificate is configured, over HTTPS, and shuts both down together.
package listener

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Default server timeouts
const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds listener configuration
type Config struct {
	// HTTPAddr is the plain HTTP address, e.g. ":3001" (required)
	HTTPAddr string

	// HTTPSAddr is the HTTPS address. Only used when both TLS files are set.
	HTTPSAddr string

	// TLSCertFile and TLSKeyFile enable the HTTPS listener
	TLSCertFile string
	TLSKeyFile  string

	// Server timeouts (defaults above)
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Logger for lifecycle logging (optional, uses default if not provided)
	Logger *slog.Logger
}

type endpoint struct {
	name     string
	server   *http.Server
	listener net.Listener
	tls      bool
}

// Listener runs the HTTP and optional HTTPS servers
type Listener struct {
	config    Config
	logger    *slog.Logger
	endpoints []*endpoint
}

// New creates a listener serving handler. Nothing is bound until Listen.
func New(handler http.Handler, config Config) (*Listener, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if config.HTTPAddr == "" {
		return nil, fmt.Errorf("HTTP address is required")
	}
	if (config.TLSCertFile == "") != (config.TLSKeyFile == "") {
		return nil, fmt.Errorf("TLS certificate and key must be set together")
	}
	applyDefaults(&config)

	l := &Listener{
		config: config,
		logger: config.Logger,
	}
	l.endpoints = append(l.endpoints, &endpoint{
		name:   "http",
		server: l.newServer(config.HTTPAddr, handler),
	})
	if config.TLSCertFile != "" {
		if config.HTTPSAddr == "" {
			return nil, fmt.Errorf("HTTPS address is required when TLS is configured")
		}
		srv := l.newServer(config.HTTPSAddr, handler)
		srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		l.endpoints = append(l.endpoints, &endpoint{
			name:   "https",
			server: srv,
			tls:    true,
		})
	}
	return l, nil
}

func applyDefaults(config *Config) {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
}

func (l *Listener) newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       l.config.ReadTimeout,
		ReadHeaderTimeout: l.config.ReadTimeout,
		WriteTimeout:      l.config.WriteTimeout,
		IdleTimeout:       l.config.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(l.logger.Handler(), slog.LevelWarn),
	}
}

// Listen binds all configured addresses. Already bound sockets are closed
// if a later bind fails.
func (l *Listener) Listen() error {
	for i, ep := range l.endpoints {
		ln, err := net.Listen("tcp", ep.server.Addr)
		if err != nil {
			for _, bound := range l.endpoints[:i] {
				_ = bound.listener.Close()
				bound.listener = nil
			}
			return fmt.Errorf("failed to listen on %s (%s): %w", ep.server.Addr, ep.name, err)
		}
		ep.listener = ln
	}
	return nil
}

// HTTPAddr returns the bound plain HTTP address, or nil before Listen
func (l *Listener) HTTPAddr() net.Addr {
	return l.addr("http")
}

// HTTPSAddr returns the bound HTTPS address, or nil when TLS is not
// configured or before Listen
func (l *Listener) HTTPSAddr() net.Addr {
	return l.addr("https")
}

func (l *Listener) addr(name string) net.Addr {
	for _, ep := range l.endpoints {
		if ep.name == name && ep.listener != nil {
			return ep.listener.Addr()
		}
	}
	return nil
}

// Serve serves on the bound addresses until ctx is cancelled or a server
// fails, then shuts all servers down gracefully. It returns nil after a
// clean shutdown triggered by ctx.
func (l *Listener) Serve(ctx context.Context) error {
	errCh := make(chan error, len(l.endpoints))
	for _, ep := range l.endpoints {
		if ep.listener == nil {
			return fmt.Errorf("%s listener is not bound", ep.name)
		}
		go func(ep *endpoint) {
			l.logger.Info("Listening", "server", ep.name, "addr", ep.listener.Addr().String())
			var err error
			if ep.tls {
				err = ep.server.ServeTLS(ep.listener, l.config.TLSCertFile, l.config.TLSKeyFile)
			} else {
				err = ep.server.Serve(ep.listener)
			}
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			} else if err != nil {
				err = fmt.Errorf("%s server failed: %w", ep.name, err)
			}
			errCh <- err
		}(ep)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		l.logger.Info("Shutting down listeners")
	case serveErr = <-errCh:
		l.logger.Error("Listener stopped unexpectedly", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), l.config.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, ep := range l.endpoints {
		if err := ep.server.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("%s shutdown: %w", ep.name, err))
		}
	}

	return errors.Join(serveErr, shutdownErr)
}

// Run binds and serves until ctx is cancelled
func (l *Listener) Run(ctx context.Context) error {
	if err := l.Listen(); err != nil {
		return err
	}
	return l.Serve(ctx)
}
