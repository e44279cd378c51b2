// Package commands dispatches operator commands to the autohide engine and
// renders localized replies.
package commands

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	apperrors "github.com/louisbranch/autohidehost/internal/platform/errors"
	"github.com/louisbranch/autohidehost/internal/platform/i18n/catalog"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/engine"
	"github.com/louisbranch/autohidehost/internal/services/autohide/storage"
	"golang.org/x/text/message"
)

// Command names as typed on the console, with their long aliases.
const (
	NameHide       = "hidehost"
	NameShow       = "showhost"
	NameToggle     = "togglehost"
	NameStatus     = "autohide_status"
	NameReload     = "autohide_reload"
	NameSleepDebug = "autohide_sleep_debug"
	NameHistory    = "autohide_history"
)

const (
	defaultHistory  = 10
	maxHistory      = 100
	historyTimeFmt  = "2006-01-02 15:04:05"
	suggestDistance = 3
)

// Engine is the engine surface commands drive.
type Engine interface {
	HideNow() error
	ShowNow() error
	Toggle() error
	Reload(engine.Settings)
	Settings() engine.Settings
	Status() engine.Status
	SleepDebug() engine.SleepDebug
}

// Options reloads the mod options file.
type Options interface {
	Reload() (engine.Settings, []string, error)
}

// Caller identifies who issued a command.
type Caller struct {
	Name string
	// Privileged callers may move the host.
	Privileged bool
}

// Host is the console operator, who is always privileged.
var Host = Caller{Name: "console", Privileged: true}

type handler func(ctx context.Context, p *message.Printer, args []string) ([]string, error)

// Command describes one registered operator command.
type Command struct {
	Name       string
	Alias      string
	Privileged bool
	run        handler
}

// Dispatcher resolves and runs commands. Execute must be called from the
// goroutine that owns the engine.
type Dispatcher struct {
	engine  Engine
	options Options
	history storage.AttemptStore
	logf    func(string, ...any)

	commands map[string]*Command
	ordered  []*Command
}

// Config wires a Dispatcher. History may be nil.
type Config struct {
	Engine  Engine
	Options Options
	History storage.AttemptStore
	Logf    func(string, ...any)
}

// New builds a dispatcher with every operator command registered.
func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		engine:   cfg.Engine,
		options:  cfg.Options,
		history:  cfg.History,
		logf:     cfg.Logf,
		commands: map[string]*Command{},
	}
	if d.logf == nil {
		d.logf = log.Printf
	}

	register := func(name, alias string, privileged bool, run handler) {
		cmd := &Command{Name: name, Alias: alias, Privileged: privileged, run: run}
		d.commands[name] = cmd
		d.commands[alias] = cmd
		d.ordered = append(d.ordered, cmd)
	}
	register(NameHide, "hide-now", true, d.hide)
	register(NameShow, "show-now", true, d.show)
	register(NameToggle, "toggle-visibility", true, d.toggle)
	register(NameStatus, "print-status", false, d.status)
	register(NameReload, "reload-configuration", false, d.reload)
	register(NameSleepDebug, "sleep-debug", false, d.sleepDebug)
	register(NameHistory, "history", false, d.listHistory)
	return d
}

// Commands lists the registered commands in registration order.
func (d *Dispatcher) Commands() []Command {
	out := make([]Command, 0, len(d.ordered))
	for _, cmd := range d.ordered {
		out = append(out, *cmd)
	}
	return out
}

// Lookup resolves a command name or alias.
func (d *Dispatcher) Lookup(name string) (Command, bool) {
	cmd, ok := d.commands[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Command{}, false
	}
	return *cmd, true
}

// Execute runs one command line and returns the reply lines. Errors carry an
// apperrors code; the reply lines already describe them for the operator.
func (d *Dispatcher) Execute(ctx context.Context, caller Caller, line string) ([]string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	p := d.printer()
	name := strings.ToLower(fields[0])

	cmd, ok := d.commands[name]
	if !ok {
		err := apperrors.WithMetadata(apperrors.CodeCommandUnknown, "unknown command", map[string]string{"command": name})
		if suggestion := d.suggest(name); suggestion != "" {
			return []string{p.Sprintf("autohide.command.suggest", name, suggestion)}, err
		}
		return []string{p.Sprintf("autohide.command.unknown", name)}, err
	}
	if cmd.Privileged && !caller.Privileged {
		d.logf("command %s rejected for %s: not privileged", cmd.Name, callerName(caller))
		return []string{p.Sprintf("autohide.command.not_privileged", cmd.Name)},
			apperrors.New(apperrors.CodeCommandNotPrivileged, cmd.Name+" requires the host")
	}

	lines, err := cmd.run(ctx, p, fields[1:])
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeCommandNotPrivileged) {
			d.logf("command %s rejected: %v", cmd.Name, err)
			return []string{p.Sprintf("autohide.command.not_privileged", cmd.Name)}, err
		}
		d.logf("command %s failed: %v", cmd.Name, err)
		return append(lines, p.Sprintf("autohide.command.failed", cmd.Name, err)), err
	}
	return lines, nil
}

func (d *Dispatcher) printer() *message.Printer {
	return catalog.Default().Printer(d.engine.Settings().Locale)
}

// suggest returns the closest command name within a small edit distance.
func (d *Dispatcher) suggest(name string) string {
	names := make([]string, 0, len(d.commands))
	for key := range d.commands {
		names = append(names, key)
	}
	sort.Strings(names)

	best, bestDist := "", suggestDistance+1
	for _, candidate := range names {
		dist := levenshtein.ComputeDistance(name, candidate)
		if strings.HasPrefix(candidate, name) && len(name) >= 4 {
			dist = min(dist, 1)
		}
		if dist < bestDist {
			best, bestDist = candidate, dist
		}
	}
	if best == "" {
		return ""
	}
	return d.commands[best].Name
}

func (d *Dispatcher) hide(_ context.Context, p *message.Printer, _ []string) ([]string, error) {
	if err := d.engine.HideNow(); err != nil {
		return nil, err
	}
	return []string{p.Sprintf("autohide.command.hidden")}, nil
}

func (d *Dispatcher) show(_ context.Context, p *message.Printer, _ []string) ([]string, error) {
	if err := d.engine.ShowNow(); err != nil {
		return nil, err
	}
	return []string{p.Sprintf("autohide.command.shown")}, nil
}

func (d *Dispatcher) toggle(_ context.Context, p *message.Printer, _ []string) ([]string, error) {
	if err := d.engine.Toggle(); err != nil {
		return nil, err
	}
	return []string{p.Sprintf("autohide.command.toggled", d.engine.Status().Hidden)}, nil
}

func (d *Dispatcher) reload(_ context.Context, p *message.Printer, _ []string) ([]string, error) {
	if d.options == nil {
		return nil, apperrors.New(apperrors.CodeConfigUnreadable, "no options file configured")
	}
	settings, warnings, err := d.options.Reload()
	if apperrors.HasCode(err, apperrors.CodeConfigInvalidValue) {
		return nil, err
	}
	d.engine.Reload(settings)
	// The locale may have changed with the reload.
	p = d.printer()

	lines := []string{p.Sprintf("autohide.command.reloaded")}
	for _, w := range warnings {
		d.logf("options: %s", w)
		lines = append(lines, p.Sprintf("autohide.command.warning", w))
	}
	if err != nil {
		d.logf("options: %v", err)
		lines = append(lines, p.Sprintf("autohide.command.warning", err.Error()))
	}
	return lines, nil
}

func (d *Dispatcher) status(_ context.Context, p *message.Printer, _ []string) ([]string, error) {
	return StatusLines(p, d.engine.Status()), nil
}

func (d *Dispatcher) sleepDebug(_ context.Context, p *message.Printer, _ []string) ([]string, error) {
	return SleepDebugLines(p, d.engine.SleepDebug()), nil
}

func (d *Dispatcher) listHistory(ctx context.Context, p *message.Printer, args []string) ([]string, error) {
	limit := defaultHistory
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err == nil && n > 0 {
			limit = min(n, maxHistory)
		}
	}
	if d.history == nil {
		return []string{p.Sprintf("autohide.history.header"), p.Sprintf("autohide.history.empty")}, nil
	}
	records, err := d.history.ListAttempts(ctx, limit)
	if err != nil {
		return nil, err
	}
	return HistoryLines(p, records), nil
}

// StatusLines renders the operator status report.
func StatusLines(p *message.Printer, st engine.Status) []string {
	lines := []string{
		p.Sprintf("autohide.status.header"),
		p.Sprintf("autohide.status.enabled", st.Enabled),
		p.Sprintf("autohide.status.hidden", st.Hidden, st.HideMethod),
	}
	if st.HidePending {
		lines = append(lines, p.Sprintf("autohide.status.hide_pending"))
	}
	if !st.WorldReady {
		return append(lines, p.Sprintf("autohide.status.world_not_ready"))
	}
	lines = append(lines,
		p.Sprintf("autohide.status.players", st.Active, st.Total, st.Ready),
		p.Sprintf("autohide.status.paused", st.Paused),
		p.Sprintf("autohide.status.options", st.PauseWhenEmpty, st.ForceSleep),
		p.Sprintf("autohide.status.phase", st.Phase),
	)
	if st.AttemptID != "" {
		lines = append(lines, p.Sprintf("autohide.status.attempt", st.AttemptID))
	}
	if st.GuardRemaining > 0 {
		lines = append(lines, p.Sprintf("autohide.status.guard", st.GuardRemaining.Round(time.Second)))
	}
	return append(lines, p.Sprintf("autohide.status.advanced", st.AdvancedToday))
}

// SleepDebugLines renders the detailed readiness report.
func SleepDebugLines(p *message.Printer, dbg engine.SleepDebug) []string {
	lines := []string{p.Sprintf("autohide.debug.header")}
	if !dbg.WorldReady {
		return append(lines, p.Sprintf("autohide.debug.world_not_ready"))
	}
	lines = append(lines,
		p.Sprintf("autohide.debug.host", dbg.HostName, dbg.HostID, dbg.Placement, dbg.InBed, dbg.HostReady),
		p.Sprintf("autohide.debug.players", dbg.Active, dbg.Consensus),
	)
	for _, ps := range dbg.Participants {
		lines = append(lines, p.Sprintf("autohide.debug.player",
			ps.Name, ps.ID, ps.Active, ps.Placement, ps.InBed, ps.Ready))
	}
	lines = append(lines, p.Sprintf("autohide.debug.clock", dbg.Paused, clock(dbg.TimeOfDay), dbg.Phase))
	if len(dbg.Pending) > 0 {
		lines = append(lines, p.Sprintf("autohide.debug.pending", strings.Join(dbg.Pending, ", ")))
	}
	return lines
}

// HistoryLines renders journal records newest first.
func HistoryLines(p *message.Printer, records []storage.AttemptRecord) []string {
	lines := []string{p.Sprintf("autohide.history.header")}
	if len(records) == 0 {
		return append(lines, p.Sprintf("autohide.history.empty"))
	}
	for _, rec := range records {
		reason := rec.AbortReason
		if reason == "" {
			reason = "-"
		}
		lines = append(lines, p.Sprintf("autohide.history.row",
			rec.FinishedAt.Local().Format(historyTimeFmt), rec.Outcome, reason, rec.Participants, rec.Bed))
	}
	return lines
}

func callerName(c Caller) string {
	if c.Name == "" {
		return "anonymous caller"
	}
	return fmt.Sprintf("%q", c.Name)
}

// clock renders the game's HHMM time of day, e.g. 2230 as "22:30".
func clock(timeOfDay int) string {
	return fmt.Sprintf("%02d:%02d", timeOfDay/100, timeOfDay%100)
}
