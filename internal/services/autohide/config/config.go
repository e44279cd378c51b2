// Package config loads the reloadable mod options file.
//
// The file is the game's mod config JSON (PascalCase keys). Every option has
// a default, so a missing file is not an error. Environment variables with
// the AUTOHIDE_MOD_ prefix override file values, e.g.
// AUTOHIDE_MOD_HIDEMETHOD=invisible.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	apperrors "github.com/louisbranch/autohidehost/internal/platform/errors"
	"github.com/louisbranch/autohidehost/internal/platform/i18n/catalog"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/engine"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/presence"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes option overrides in the environment.
const EnvPrefix = "AUTOHIDE_MOD"

// File mirrors the options file.
type File struct {
	Enabled                 bool
	AutoHideOnLoad          bool
	AutoHideDaily           bool
	PauseWhenEmpty          bool
	InstantSleepWhenReady   bool
	HideMethod              string
	WarpLocation            string
	WarpX                   int
	WarpY                   int
	DebugMode               bool
	PreventHostFarmWarp     bool
	PeerConnectGuardSeconds int
	RehideDelayTicks        int
	DebugTraceMenus         bool
	SuppressInterference    bool
	SettleDelayTicks        int
	PlacementTimeoutTicks   int
	Locale                  string
}

func setDefaults(v *viper.Viper) {
	d := engine.DefaultSettings()
	v.SetDefault("Enabled", d.Enabled)
	v.SetDefault("AutoHideOnLoad", d.AutoHideOnLoad)
	v.SetDefault("AutoHideDaily", d.AutoHideDaily)
	v.SetDefault("PauseWhenEmpty", d.PauseWhenEmpty)
	v.SetDefault("InstantSleepWhenReady", d.ForceSleepWhenReady)
	v.SetDefault("HideMethod", d.HideMethod)
	v.SetDefault("WarpLocation", d.HideLocation)
	v.SetDefault("WarpX", d.HideX)
	v.SetDefault("WarpY", d.HideY)
	v.SetDefault("DebugMode", d.DebugLogging)
	v.SetDefault("PreventHostFarmWarp", d.PreventHostFarmWarp)
	v.SetDefault("PeerConnectGuardSeconds", d.GuardWindowSeconds)
	v.SetDefault("RehideDelayTicks", d.RehideDelayTicks)
	v.SetDefault("DebugTraceMenus", d.DebugTraceMenus)
	v.SetDefault("SuppressInterference", d.SuppressInterference)
	v.SetDefault("SettleDelayTicks", d.SettleDelayTicks)
	v.SetDefault("PlacementTimeoutTicks", d.PlacementTimeoutTicks)
	v.SetDefault("Locale", catalog.BaseLocale)
}

// Load reads the options at path (empty means defaults and environment
// only). Invalid values are replaced with defaults and reported as warnings.
// An unreadable file yields defaults and a CONFIG_UNREADABLE error.
func Load(path string) (engine.Settings, []string, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var readErr error
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			readErr = apperrors.Wrap(apperrors.CodeConfigUnreadable, "read options "+path, err)
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return engine.DefaultSettings(), nil,
			apperrors.Wrap(apperrors.CodeConfigInvalidValue, "decode options", err)
	}
	// A broken file still yields defaults plus environment overrides.
	s, warnings := Normalize(f)
	return s, warnings, readErr
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Normalize converts the file shape to engine settings, replacing invalid
// values with safe defaults.
func Normalize(f File) (engine.Settings, []string) {
	d := engine.DefaultSettings()
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	s := engine.Settings{
		Enabled:               f.Enabled,
		HideMethod:            strings.TrimSpace(f.HideMethod),
		HideLocation:          strings.TrimSpace(f.WarpLocation),
		HideX:                 f.WarpX,
		HideY:                 f.WarpY,
		AutoHideOnLoad:        f.AutoHideOnLoad,
		AutoHideDaily:         f.AutoHideDaily,
		PauseWhenEmpty:        f.PauseWhenEmpty,
		ForceSleepWhenReady:   f.InstantSleepWhenReady,
		GuardWindowSeconds:    f.PeerConnectGuardSeconds,
		DebugLogging:          f.DebugMode,
		PreventHostFarmWarp:   f.PreventHostFarmWarp,
		RehideDelayTicks:      f.RehideDelayTicks,
		DebugTraceMenus:       f.DebugTraceMenus,
		SuppressInterference:  f.SuppressInterference,
		SettleDelayTicks:      f.SettleDelayTicks,
		PlacementTimeoutTicks: f.PlacementTimeoutTicks,
	}

	if _, ok := presence.ParseMethod(s.HideMethod); !ok {
		warn("unknown HideMethod %q, hiding will warp to %s", s.HideMethod, presence.FallbackTarget)
	}
	if s.HideLocation == "" {
		warn("empty WarpLocation, using %q", d.HideLocation)
		s.HideLocation = d.HideLocation
	}
	if s.GuardWindowSeconds < 0 {
		warn("negative PeerConnectGuardSeconds %d, using %d", s.GuardWindowSeconds, d.GuardWindowSeconds)
		s.GuardWindowSeconds = d.GuardWindowSeconds
	}
	if s.RehideDelayTicks < 0 {
		warn("negative RehideDelayTicks %d, using %d", s.RehideDelayTicks, d.RehideDelayTicks)
		s.RehideDelayTicks = d.RehideDelayTicks
	}
	if s.SettleDelayTicks <= 0 {
		warn("SettleDelayTicks must be positive, using %d", d.SettleDelayTicks)
		s.SettleDelayTicks = d.SettleDelayTicks
	}
	if s.PlacementTimeoutTicks < s.SettleDelayTicks {
		warn("PlacementTimeoutTicks %d is shorter than SettleDelayTicks, using %d",
			s.PlacementTimeoutTicks, s.SettleDelayTicks*10)
		s.PlacementTimeoutTicks = s.SettleDelayTicks * 10
	}
	if s.PauseWhenEmpty {
		warn("PauseWhenEmpty conflicts with auto-reconnect tools; it never pauses during a join guard")
	}

	locale, ok := catalog.Default().Resolve(f.Locale)
	if !ok {
		warn("unsupported Locale %q, using %s", f.Locale, locale)
	}
	s.Locale = locale
	return s, warnings
}

// Provider holds the current options and reloads them on demand.
type Provider struct {
	path string

	mu       sync.RWMutex
	current  engine.Settings
	warnings []string
}

// NewProvider returns a provider for path, seeded with defaults.
func NewProvider(path string) *Provider {
	return &Provider{path: path, current: engine.DefaultSettings()}
}

// Path returns the options file path.
func (p *Provider) Path() string {
	return p.path
}

// Reload re-reads the file. On a decode failure the previous options are
// kept and the error returned; an unreadable file still applies defaults.
func (p *Provider) Reload() (engine.Settings, []string, error) {
	s, warnings, err := Load(p.path)
	if err != nil && apperrors.GetCode(err) == apperrors.CodeConfigInvalidValue {
		return p.Current(), nil, err
	}
	p.mu.Lock()
	p.current = s
	p.warnings = warnings
	p.mu.Unlock()
	return s, warnings, err
}

// Current returns the last loaded options.
func (p *Provider) Current() engine.Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Warnings returns the warnings from the last load.
func (p *Provider) Warnings() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.warnings...)
}
