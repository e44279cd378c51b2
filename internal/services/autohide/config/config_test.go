package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/autohidehost/internal/platform/errors"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/engine"
)

func writeOptions(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write options: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	s, warnings, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}
	if want := engine.DefaultSettings(); s != want {
		t.Fatalf("settings = %+v, want %+v", s, want)
	}
	if s.PauseWhenEmpty {
		t.Fatal("pause-when-empty must default off")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, _, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s != engine.DefaultSettings() {
		t.Fatalf("settings = %+v", s)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeOptions(t, `{
  "Enabled": true,
  "HideMethod": "invisible",
  "WarpLocation": "Mountain",
  "WarpX": 5,
  "WarpY": 7,
  "PeerConnectGuardSeconds": 10,
  "InstantSleepWhenReady": false,
  "Locale": "zh"
}`)
	s, warnings, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if s.HideMethod != "invisible" || s.HideLocation != "Mountain" || s.HideX != 5 || s.HideY != 7 {
		t.Fatalf("hide options = %+v", s)
	}
	if s.GuardWindowSeconds != 10 {
		t.Fatalf("GuardWindowSeconds = %d, want 10", s.GuardWindowSeconds)
	}
	if s.ForceSleepWhenReady {
		t.Fatal("InstantSleepWhenReady=false should disable force sleep")
	}
	if s.Locale != "zh-CN" {
		t.Fatalf("Locale = %q, want zh-CN", s.Locale)
	}
	if !s.PreventHostFarmWarp {
		t.Fatal("unset options keep their defaults")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeOptions(t, `{"HideMethod": "invisible"}`)
	t.Setenv("AUTOHIDE_MOD_HIDEMETHOD", "offmap")
	t.Setenv("AUTOHIDE_MOD_DEBUGMODE", "true")

	s, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.HideMethod != "offmap" || !s.DebugLogging {
		t.Fatalf("settings = %+v, want env overrides", s)
	}
}

func TestLoadUnknownMethodWarns(t *testing.T) {
	path := writeOptions(t, `{"HideMethod": "vanish"}`)
	s, warnings, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.HideMethod != "vanish" {
		t.Fatalf("HideMethod = %q, want raw value kept for the runtime fallback", s.HideMethod)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "vanish") {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestLoadBrokenFile(t *testing.T) {
	path := writeOptions(t, `{"HideMethod": `)
	s, _, err := Load(path)
	if !apperrors.HasCode(err, apperrors.CodeConfigUnreadable) {
		t.Fatalf("err = %v, want CONFIG_UNREADABLE", err)
	}
	if s != engine.DefaultSettings() {
		t.Fatalf("settings = %+v, want defaults", s)
	}
}

func TestNormalizeRepairsInvalidValues(t *testing.T) {
	s, warnings := Normalize(File{
		HideMethod:              "warp",
		PeerConnectGuardSeconds: -5,
		RehideDelayTicks:        -1,
		SettleDelayTicks:        0,
		PlacementTimeoutTicks:   10,
		Locale:                  "xx-YY",
		PauseWhenEmpty:          true,
	})
	d := engine.DefaultSettings()
	if s.HideLocation != d.HideLocation {
		t.Fatalf("HideLocation = %q", s.HideLocation)
	}
	if s.GuardWindowSeconds != d.GuardWindowSeconds || s.RehideDelayTicks != d.RehideDelayTicks {
		t.Fatalf("guard/rehide = %d/%d", s.GuardWindowSeconds, s.RehideDelayTicks)
	}
	if s.SettleDelayTicks != d.SettleDelayTicks || s.PlacementTimeoutTicks != d.SettleDelayTicks*10 {
		t.Fatalf("settle/timeout = %d/%d", s.SettleDelayTicks, s.PlacementTimeoutTicks)
	}
	if s.Locale != "en-US" {
		t.Fatalf("Locale = %q", s.Locale)
	}
	if len(warnings) != 7 {
		t.Fatalf("warnings = %d %v, want 7", len(warnings), warnings)
	}
}

func TestProviderReload(t *testing.T) {
	path := writeOptions(t, `{"HideMethod": "invisible"}`)
	p := NewProvider(path)
	if p.Current().HideMethod != "warp" {
		t.Fatal("provider should start from defaults")
	}
	if _, _, err := p.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if p.Current().HideMethod != "invisible" {
		t.Fatalf("HideMethod = %q", p.Current().HideMethod)
	}

	if err := os.WriteFile(path, []byte(`{"WarpX": "far"}`), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if _, _, err := p.Reload(); !apperrors.HasCode(err, apperrors.CodeConfigInvalidValue) {
		t.Fatalf("err = %v, want CONFIG_INVALID_VALUE", err)
	}
	if p.Current().HideMethod != "invisible" {
		t.Fatal("failed reload must keep previous options")
	}
}
