// Package engine coordinates the autohide components on the game tick.
//
// Every tick the engine runs due delayed actions and watches the guard
// window. Every observer bucket it sweeps interference, snapshots readiness,
// and lets the orchestrator evaluate. Operator commands call into the engine
// between ticks on the same goroutine.
package engine

import (
	"log"
	"time"

	apperrors "github.com/louisbranch/autohidehost/internal/platform/errors"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/guard"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/interference"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/presence"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/readiness"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/tick"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/transition"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ObserverBucketTicks is the cadence of readiness observation.
	ObserverBucketTicks = 15
	// PauseCheckTicks is the cadence of the pause-when-empty check.
	PauseCheckTicks = 60
)

// ErrNotMainPlayer rejects host moves from a process that does not own the
// host actor.
var ErrNotMainPlayer = apperrors.New(apperrors.CodeCommandNotPrivileged,
	"only the main player can move the host")

// Options wires an Engine.
type Options struct {
	Settings Settings
	Recorder transition.Recorder
	Tracer   trace.Tracer
	Layout   interference.Layout
	Now      func() time.Time
	Logf     func(string, ...any)
}

// Engine is the per-tick coordinator. It is not safe for concurrent use.
type Engine struct {
	game     host.Game
	settings Settings
	logf     func(string, ...any)

	ticks      uint64
	queue      tick.Queue
	guard      *guard.Window
	observer   *readiness.Observer
	suppressor *interference.Suppressor
	presence   *presence.Controller
	orch       *transition.Orchestrator

	rehide     tick.Handle
	pausedByUs bool
	lastBlock  interference.Kind
	// hideWanted is an automatic hide that was refused while moves were
	// locked, or undone by an aborted attempt. Tick retries it once moves
	// are allowed again.
	hideWanted bool
	recorder   transition.Recorder
}

// New builds an engine over a game session.
func New(game host.Game, opts Options) *Engine {
	e := &Engine{game: game, settings: opts.Settings, logf: opts.Logf, recorder: opts.Recorder}
	if e.logf == nil {
		e.logf = log.Printf
	}
	e.guard = guard.NewWindow(e.Ticks)
	e.observer = readiness.NewObserver(game, game.HostID)
	e.suppressor = interference.New(game, game, interference.Options{
		Layout:     opts.Layout,
		AllowReady: e.allowReady,
		TraceMenus: e.settings.DebugTraceMenus,
		Logf:       e.logf,
	})
	e.presence = presence.NewController(game, e.movesLocked, e.logf)
	e.orch = transition.New(game, &e.queue, e.Ticks, e.observer.Snapshot, transition.Options{
		SettleDelayTicks:      positive(e.settings.SettleDelayTicks),
		PlacementTimeoutTicks: positive(e.settings.PlacementTimeoutTicks),
		Recorder:              transition.RecorderFunc(e.attemptFinished),
		Tracer:                opts.Tracer,
		Now:                   opts.Now,
		Logf:                  e.logf,
		Debugf:                e.debugf,
	})
	return e
}

// Ticks returns the number of ticks processed.
func (e *Engine) Ticks() uint64 {
	return e.ticks
}

// Settings returns the active options.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Phase returns the orchestrator phase.
func (e *Engine) Phase() transition.Phase {
	return e.orch.Phase()
}

// LastAttempt returns the most recently finished attempt.
func (e *Engine) LastAttempt() (transition.Attempt, bool) {
	return e.orch.Last()
}

// OnSaveLoaded hides the host once the world is live.
func (e *Engine) OnSaveLoaded() {
	if !e.active() || !e.settings.AutoHideOnLoad {
		return
	}
	if e.autoHide("save loaded") {
		e.logf("save loaded, host hidden")
	}
}

// OnDayStarted resets the day's transition state and re-hides the host.
func (e *Engine) OnDayStarted() {
	e.orch.DayStarted()
	e.cancelRehide()
	e.presence.Forget()
	e.hideWanted = false
	if !e.active() || !e.settings.AutoHideDaily {
		return
	}
	if e.autoHide("day started") {
		e.debugf("new day, host hidden again")
	}
}

// OnPeerConnected arms the guard window for a joining participant.
func (e *Engine) OnPeerConnected(id host.ID) {
	e.guard.Arm(e.settings.GuardWindowSeconds)
	e.logf("participant %d connected, guarding host for %ds", id, e.settings.GuardWindowSeconds)
	if e.pausedByUs {
		e.setPaused(false, "participant joined")
	}
}

// OnPeerDisconnected aborts an uncommitted transition.
func (e *Engine) OnPeerDisconnected(id host.ID) {
	e.debugf("participant %d disconnected", id)
	e.orch.ParticipantDisconnected(id)
}

// Tick advances the engine by one game update tick.
func (e *Engine) Tick() {
	e.ticks++
	if !e.active() || !e.game.WorldReady() {
		return
	}

	e.orch.Step()
	e.queue.Run(e.ticks)

	if e.guard.Expired() {
		e.onGuardExpired()
	}
	if e.hideWanted && e.movesLocked() == nil {
		e.hideWanted = false
		if e.autoHide("deferred") {
			e.debugf("deferred hide done")
		}
	}
	if e.ticks%ObserverBucketTicks == 0 {
		e.bucket()
	}
	if e.settings.PauseWhenEmpty && e.ticks%PauseCheckTicks == 0 {
		e.checkPause()
	}
}

func (e *Engine) bucket() {
	if e.settings.SuppressInterference {
		e.suppressor.Sweep()
	}
	blocking := e.suppressor.Blocking()
	if blocking != e.lastBlock {
		if blocking != interference.KindNone {
			e.debugf("interface blocked by %s", blocking)
		}
		e.lastBlock = blocking
	}
	e.orch.Evaluate(transition.Conditions{
		Snapshot:    e.observer.Snapshot(),
		GuardActive: e.guard.Active(),
		Blocking:    blocking,
		ForceSleep:  e.settings.ForceSleepWhenReady,
	})
}

// onGuardExpired re-hides a hidden host after the game pulled it back to the
// farm for a joining participant.
func (e *Engine) onGuardExpired() {
	e.debugf("guard window expired")
	if !e.settings.PreventHostFarmWarp || !e.presence.Hidden() {
		return
	}
	e.cancelRehide()
	delay := positive(e.settings.RehideDelayTicks)
	e.rehide = e.queue.Schedule(e.ticks+delay, "rehide", func() {
		e.rehide = 0
		if e.autoHide("rehide") {
			e.debugf("host hidden again after join")
		}
	})
}

func (e *Engine) checkPause() {
	active := e.observer.Snapshot().Active
	shouldPause := active == 0 && !e.guard.Active()
	switch {
	case shouldPause && !e.game.Paused():
		e.setPaused(true, "nobody connected")
	case !shouldPause && e.pausedByUs:
		e.setPaused(false, "participants connected")
	}
}

func (e *Engine) setPaused(paused bool, why string) {
	if err := e.game.SetPaused(paused); err != nil {
		e.logf("set paused %t: %v", paused, err)
		return
	}
	e.pausedByUs = paused
	if paused {
		e.logf("game paused: %s", why)
	} else {
		e.logf("game resumed: %s", why)
	}
}

// HideNow hides the host on operator request.
func (e *Engine) HideNow() error {
	if !e.game.IsMainPlayer() {
		return ErrNotMainPlayer
	}
	if err := e.hide(); err != nil {
		return err
	}
	e.hideWanted = false
	return nil
}

// ShowNow shows the host on operator request.
func (e *Engine) ShowNow() error {
	if !e.game.IsMainPlayer() {
		return ErrNotMainPlayer
	}
	e.cancelRehide()
	if err := e.presence.Show(); err != nil {
		return err
	}
	e.hideWanted = false
	return nil
}

// Toggle flips host visibility on operator request.
func (e *Engine) Toggle() error {
	if !e.game.IsMainPlayer() {
		return ErrNotMainPlayer
	}
	if e.presence.Hidden() {
		e.cancelRehide()
	}
	if err := e.presence.Toggle(e.settings.HideMethod, e.settings.HideTarget()); err != nil {
		return err
	}
	e.hideWanted = false
	return nil
}

// Reload applies new options. Timing changes affect the next attempt.
func (e *Engine) Reload(s Settings) {
	e.settings = s
	e.suppressor.SetTraceMenus(s.DebugTraceMenus)
	e.orch.SetTiming(positive(s.SettleDelayTicks), positive(s.PlacementTimeoutTicks))
	if !s.PauseWhenEmpty && e.pausedByUs {
		e.setPaused(false, "pause-when-empty disabled")
	}
	if !s.Enabled {
		e.orch.Abort(transition.ReasonDisabled)
		e.hideWanted = false
	}
}

// Shutdown aborts any live attempt so its flags are rolled back.
func (e *Engine) Shutdown() {
	e.orch.Abort(transition.ReasonShutdown)
	e.queue.Clear()
}

func (e *Engine) hide() error {
	return e.presence.Hide(e.settings.HideMethod, e.settings.HideTarget())
}

// autoHide hides the host on the engine's own initiative. A hide refused by
// the move lock is remembered and retried by Tick.
func (e *Engine) autoHide(why string) bool {
	err := e.hide()
	switch {
	case err == nil:
		e.hideWanted = false
		return true
	case apperrors.HasCode(err, apperrors.CodePresenceGuardActive),
		apperrors.HasCode(err, apperrors.CodePresenceTransitionInProgress):
		e.hideWanted = true
		e.debugf("%s: hide deferred: %v", why, err)
	default:
		e.logf("%s: hide host: %v", why, err)
	}
	return false
}

// attemptFinished forwards the attempt and, when an aborted attempt had
// taken a hidden host to its bed, asks Tick to hide it again.
func (e *Engine) attemptFinished(a transition.Attempt) {
	if e.recorder != nil {
		e.recorder.RecordAttempt(a)
	}
	if a.Outcome == transition.OutcomeAborted && !a.Bed.IsZero() && e.presence.Hidden() {
		e.hideWanted = true
	}
}

func (e *Engine) movesLocked() error {
	if e.guard.Active() {
		return presence.ErrGuardActive
	}
	if e.orch.InProgress() {
		return presence.ErrTransitionInProgress
	}
	return nil
}

// allowReady keeps the interference suppressor from marking the host ready
// for sleep before consensus.
func (e *Engine) allowReady(checkpoint string) bool {
	if checkpoint != host.CheckpointSleep {
		return true
	}
	return e.observer.Snapshot().ConsensusReached
}

func (e *Engine) active() bool {
	return e.settings.Enabled && e.game.IsMainPlayer()
}

func (e *Engine) cancelRehide() {
	if e.rehide != 0 {
		e.queue.Cancel(e.rehide)
		e.rehide = 0
	}
}

func (e *Engine) debugf(format string, args ...any) {
	if e.settings.DebugLogging {
		e.logf("debug: "+format, args...)
	}
}

func positive(n int) uint64 {
	if n <= 0 {
		return 0
	}
	return uint64(n)
}
