package engine

import (
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/transition"
)

// Settings are the reloadable mod options the engine acts on.
type Settings struct {
	Enabled        bool
	HideMethod     string
	HideLocation   string
	HideX          int
	HideY          int
	AutoHideOnLoad bool
	AutoHideDaily  bool
	// PauseWhenEmpty pauses the clock while nobody else is connected. It
	// conflicts with auto-reconnect tooling and is off by default.
	PauseWhenEmpty      bool
	ForceSleepWhenReady bool
	GuardWindowSeconds  int
	DebugLogging        bool

	PreventHostFarmWarp   bool
	RehideDelayTicks      int
	DebugTraceMenus       bool
	SuppressInterference  bool
	SettleDelayTicks      int
	PlacementTimeoutTicks int
	Locale                string
}

// DefaultSettings returns the stock options.
func DefaultSettings() Settings {
	return Settings{
		Enabled:               true,
		HideMethod:            "warp",
		HideLocation:          "Desert",
		AutoHideOnLoad:        true,
		AutoHideDaily:         true,
		ForceSleepWhenReady:   true,
		GuardWindowSeconds:    30,
		PreventHostFarmWarp:   true,
		RehideDelayTicks:      1,
		SuppressInterference:  true,
		SettleDelayTicks:      transition.DefaultSettleDelayTicks,
		PlacementTimeoutTicks: transition.DefaultPlacementTimeoutTicks,
		Locale:                "en-US",
	}
}

// HideTarget returns the configured warp destination.
func (s Settings) HideTarget() host.Placement {
	return host.Placement{Location: s.HideLocation, Tile: host.Tile{X: s.HideX, Y: s.HideY}}
}
