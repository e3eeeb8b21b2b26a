// mock-firestarter runs a stand-in for the FireStarter social-connect API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/giantswarm/twitter-connect-relay/downstream/mock"
	"github.com/giantswarm/twitter-connect-relay/internal/listener"
	"github.com/giantswarm/twitter-connect-relay/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flagSet := pflag.NewFlagSet("mock-firestarter", pflag.ContinueOnError)
	port := flagSet.Int("port", 3002, "HTTP port")
	delay := flagSet.Duration("delay", mock.DefaultDelay, "delay before a successful connect response (0 disables)")
	prefix := flagSet.String("path-prefix", mock.DefaultPathPrefix, "path prefix of the connect endpoint")
	logLevel := flagSet.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := flagSet.String("log-format", "text", "log format: json or text")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	logger, logCloser, err := logging.New(logging.Config{Level: *logLevel, Format: *logFormat})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	serviceDelay := *delay
	if serviceDelay == 0 {
		serviceDelay = -1
	}
	svc := mock.NewService(mock.Config{
		PathPrefix: *prefix,
		Delay:      serviceDelay,
		Logger:     logger,
	})

	l, err := listener.New(svc.Handler(), listener.Config{
		HTTPAddr: net.JoinHostPort("", strconv.Itoa(*port)),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting mock FireStarter API",
		"port", *port,
		"connect_path", svc.ConnectPath(),
		"delay", *delay)

	return l.Run(ctx)
}
