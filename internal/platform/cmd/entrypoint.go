// Package cmd holds the startup plumbing shared by the autohide binaries:
// environment defaults first, flags second, and tracing around the run loop.
package cmd

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"

	"github.com/louisbranch/autohidehost/internal/platform/config"
	"github.com/louisbranch/autohidehost/internal/platform/otel"
	"github.com/louisbranch/autohidehost/internal/platform/timeouts"
)

// ServiceAutohide identifies the host presence sidecar for telemetry.
const ServiceAutohide = "autohide"

// ParseConfig loads AUTOHIDE_* environment values into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags over the environment defaults.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RunWithTelemetry installs the tracer provider for service, runs the loop,
// and flushes pending spans when it returns.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	switch {
	case service == "":
		return errors.New("service name is required")
	case run == nil:
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			log.Printf("%s: flush traces: %v", service, err)
		}
	}()
	return run(ctx)
}
