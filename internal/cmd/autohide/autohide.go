// Package autohide parses autohide command flags and launches the runtime.
package autohide

import (
	"context"
	"flag"
	"os"
	"time"

	entrypoint "github.com/louisbranch/autohidehost/internal/platform/cmd"
	"github.com/louisbranch/autohidehost/internal/services/autohide/app"
)

// Config holds autohide command configuration.
type Config struct {
	BridgeURL        string        `env:"BRIDGE_URL" envDefault:"ws://localhost:24642/bridge"`
	BridgeOrigin     string        `env:"BRIDGE_ORIGIN"`
	HealthAddr       string        `env:"HEALTH_ADDR" envDefault:"localhost:8094"`
	OperatorAddr     string        `env:"OPERATOR_ADDR"`
	OperatorSecret   string        `env:"OPERATOR_SECRET"`
	DBPath           string        `env:"DB_PATH" envDefault:"data/autohide.db"`
	OptionsPath      string        `env:"OPTIONS_PATH" envDefault:"config.json"`
	Console          bool          `env:"CONSOLE" envDefault:"true"`
	ReconnectInitial time.Duration `env:"RECONNECT_INITIAL" envDefault:"500ms"`
	ReconnectMax     time.Duration `env:"RECONNECT_MAX" envDefault:"30s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.BridgeURL, "bridge-url", cfg.BridgeURL, "The game bridge websocket URL")
	fs.StringVar(&cfg.BridgeOrigin, "bridge-origin", cfg.BridgeOrigin, "Origin header sent to the game bridge")
	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "The autohide health gRPC server address")
	fs.StringVar(&cfg.OperatorAddr, "operator-addr", cfg.OperatorAddr, "The operator MCP HTTP address (empty disables it)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The attempt journal SQLite database path")
	fs.StringVar(&cfg.OptionsPath, "options", cfg.OptionsPath, "The mod options JSON file")
	fs.BoolVar(&cfg.Console, "console", cfg.Console, "Read operator commands from stdin")
	fs.DurationVar(&cfg.ReconnectInitial, "reconnect-initial", cfg.ReconnectInitial, "Initial bridge reconnect delay")
	fs.DurationVar(&cfg.ReconnectMax, "reconnect-max", cfg.ReconnectMax, "Maximum bridge reconnect delay")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the autohide runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceAutohide, func(context.Context) error {
		return app.Run(ctx, runtimeConfig(cfg))
	})
}

func runtimeConfig(cfg Config) app.RuntimeConfig {
	rc := app.RuntimeConfig{
		BridgeURL:        cfg.BridgeURL,
		BridgeOrigin:     cfg.BridgeOrigin,
		HealthAddr:       cfg.HealthAddr,
		OperatorAddr:     cfg.OperatorAddr,
		OperatorSecret:   cfg.OperatorSecret,
		DBPath:           cfg.DBPath,
		OptionsPath:      cfg.OptionsPath,
		ReconnectInitial: cfg.ReconnectInitial,
		ReconnectMax:     cfg.ReconnectMax,
	}
	if cfg.Console {
		rc.Console = os.Stdin
		rc.ConsoleOut = os.Stdout
	}
	return rc
}
