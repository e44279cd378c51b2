// Package app wires the autohide runtime: the game bridge, the engine loop,
// the attempt journal, and the operator surfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	apperrors "github.com/louisbranch/autohidehost/internal/platform/errors"
	platformgrpc "github.com/louisbranch/autohidehost/internal/platform/grpc"
	platformotel "github.com/louisbranch/autohidehost/internal/platform/otel"
	"github.com/louisbranch/autohidehost/internal/platform/timeouts"
	"github.com/louisbranch/autohidehost/internal/services/autohide/bridge"
	"github.com/louisbranch/autohidehost/internal/services/autohide/commands"
	"github.com/louisbranch/autohidehost/internal/services/autohide/config"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/engine"
	"github.com/louisbranch/autohidehost/internal/services/autohide/operator"
	"github.com/louisbranch/autohidehost/internal/services/autohide/storage"
	autohidesqlite "github.com/louisbranch/autohidehost/internal/services/autohide/storage/sqlite"
)

// HealthServiceBridge reports SERVING while a game is connected and has sent
// at least one state frame.
const HealthServiceBridge = "autohide.bridge"

const (
	defaultHealthAddr       = "localhost:8094"
	defaultDBPath           = "data/autohide.db"
	defaultReconnectInitial = 500 * time.Millisecond
	defaultReconnectMax     = 30 * time.Second
	operatorPath            = "/mcp"
	operatorIssuer          = "autohide"
)

// RuntimeConfig controls startup, dependencies, and reconnect behavior.
type RuntimeConfig struct {
	BridgeURL        string
	BridgeOrigin     string
	HealthAddr       string
	OperatorAddr     string
	OperatorSecret   string
	DBPath           string
	OptionsPath      string
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration

	// Console, when set, is read for operator commands; replies go to
	// ConsoleOut.
	Console    io.Reader
	ConsoleOut io.Writer
	Logf       func(string, ...any)
}

func (c RuntimeConfig) normalized() RuntimeConfig {
	if strings.TrimSpace(c.HealthAddr) == "" {
		c.HealthAddr = defaultHealthAddr
	}
	if strings.TrimSpace(c.DBPath) == "" {
		c.DBPath = defaultDBPath
	}
	if c.ReconnectInitial <= 0 {
		c.ReconnectInitial = defaultReconnectInitial
	}
	if c.ReconnectMax < c.ReconnectInitial {
		c.ReconnectMax = max(defaultReconnectMax, c.ReconnectInitial)
	}
	if c.ConsoleOut == nil {
		c.ConsoleOut = os.Stdout
	}
	if c.Logf == nil {
		c.Logf = log.Printf
	}
	return c
}

// Run starts the runtime and blocks until ctx is done.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.BridgeURL) == "" {
		return fmt.Errorf("bridge url is required")
	}
	cfg = cfg.normalized()
	logf := cfg.Logf

	options := config.NewProvider(cfg.OptionsPath)
	_, warnings, err := options.Reload()
	if err != nil {
		logf("load options: %v", err)
	}
	for _, w := range warnings {
		logf("options: %s", w)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create autohide storage dir: %w", err)
		}
	}
	store, err := autohidesqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open autohide sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logf("close autohide sqlite store: %v", closeErr)
		}
	}()
	journal := newJournal(store, 0, logf)
	defer journal.Close()

	healthServer, err := platformgrpc.ListenHealth(cfg.HealthAddr, HealthServiceBridge)
	if err != nil {
		return err
	}
	healthErr := make(chan error, 1)
	go func() { healthErr <- healthServer.Serve() }()
	defer func() {
		healthServer.Stop()
		<-healthErr
	}()
	logf("health server listening at %v", healthServer.Addr())

	loop := NewLoop(logf)
	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	if strings.TrimSpace(cfg.OperatorAddr) != "" {
		stop, err := serveOperator(cfg, loop)
		if err != nil {
			return err
		}
		defer stop()
	}

	if cfg.Console != nil {
		go func() {
			if err := ServeConsole(ctx, cfg.Console, cfg.ConsoleOut, loop); err != nil {
				logf("console: %v", err)
			}
		}()
	}

	for {
		client, err := connect(ctx, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		logf("connected to game bridge %s", cfg.BridgeURL)

		session := newSession(client, options, store, journal, logf)
		session.OnFirstTick = func() { healthServer.SetServing(HealthServiceBridge, true) }
		if err := loop.Attach(ctx, session); err != nil {
			_ = client.Close()
			return nil
		}
		if err := client.Run(ctx); err != nil && ctx.Err() == nil {
			logf("game bridge: %v", err)
		}
		<-session.Done()
		healthServer.SetServing(HealthServiceBridge, false)
		_ = client.Close()

		if ctx.Err() != nil {
			return nil
		}
		logf("game bridge disconnected, reconnecting")
	}
}

func newSession(client *bridge.Client, options *config.Provider, history storage.AttemptStore, journal *journal, logf func(string, ...any)) *Session {
	eng := engine.New(client, engine.Options{
		Settings: options.Current(),
		Recorder: journal,
		Tracer:   platformotel.Tracer("autohide/transition"),
		Logf:     logf,
	})
	dispatcher := commands.New(commands.Config{
		Engine:  eng,
		Options: options,
		History: history,
		Logf:    logf,
	})
	return NewSession(eng, dispatcher, client.Signals())
}

// connect dials the bridge with exponential backoff until it answers or ctx
// is done.
func connect(ctx context.Context, cfg RuntimeConfig) (*bridge.Client, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.ReconnectInitial
	policy.MaxInterval = cfg.ReconnectMax

	return backoff.Retry(ctx, func() (*bridge.Client, error) {
		client, err := bridge.Dial(ctx, bridge.Options{
			URL:    cfg.BridgeURL,
			Origin: cfg.BridgeOrigin,
			Logf:   cfg.Logf,
		})
		if err != nil && !apperrors.HasCode(err, apperrors.CodeCollaboratorUnavailable) {
			return nil, backoff.Permanent(err)
		}
		return client, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			cfg.Logf("game bridge unavailable, retrying in %s: %v", next.Round(time.Millisecond), err)
		}),
	)
}

func serveOperator(cfg RuntimeConfig, exec operator.Executor) (func(), error) {
	verifier, err := operator.NewVerifier(cfg.OperatorSecret, operatorIssuer, nil)
	if err != nil {
		return nil, fmt.Errorf("operator auth: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle(operatorPath, operator.NewHandler(exec, verifier, cfg.Logf))

	listener, err := net.Listen("tcp", cfg.OperatorAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on operator address %s: %w", cfg.OperatorAddr, err)
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: timeouts.ReadHeader}
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(listener) }()
	cfg.Logf("operator MCP endpoint listening at http://%v%s", listener.Addr(), operatorPath)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			cfg.Logf("operator server shutdown: %v", err)
		}
		if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Logf("operator server: %v", err)
		}
	}, nil
}
