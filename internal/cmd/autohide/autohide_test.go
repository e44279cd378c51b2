package autohide

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("autohide", flag.ContinueOnError)
	t.Setenv("AUTOHIDE_BRIDGE_URL", "ws://game:24642/bridge")
	t.Setenv("AUTOHIDE_OPERATOR_SECRET", "0123456789abcdef")

	cfg, err := ParseConfig(fs, []string{"-operator-addr", "localhost:8095", "-console=false", "-reconnect-max", "1m"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.BridgeURL != "ws://game:24642/bridge" {
		t.Fatalf("bridge url = %q", cfg.BridgeURL)
	}
	if cfg.OperatorAddr != "localhost:8095" || cfg.OperatorSecret != "0123456789abcdef" {
		t.Fatalf("operator = %q/%q", cfg.OperatorAddr, cfg.OperatorSecret)
	}
	if cfg.Console {
		t.Fatal("console = true, want false")
	}
	if cfg.ReconnectMax != time.Minute {
		t.Fatalf("reconnect max = %s, want 1m", cfg.ReconnectMax)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("autohide", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HealthAddr != "localhost:8094" || cfg.DBPath != "data/autohide.db" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.Console || cfg.ReconnectInitial != 500*time.Millisecond {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestParseConfig_RejectsUnknownFlag(t *testing.T) {
	fs := flag.NewFlagSet("autohide", flag.ContinueOnError)
	if _, err := ParseConfig(fs, []string{"-nope"}); err == nil {
		t.Fatal("expected unknown flag error")
	}
}

func TestRuntimeConfigWiresConsole(t *testing.T) {
	rc := runtimeConfig(Config{BridgeURL: "ws://x", Console: true})
	if rc.Console == nil || rc.ConsoleOut == nil {
		t.Fatal("console not wired")
	}
	rc = runtimeConfig(Config{BridgeURL: "ws://x"})
	if rc.Console != nil {
		t.Fatal("console wired while disabled")
	}
}
