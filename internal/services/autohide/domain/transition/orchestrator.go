package transition

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/louisbranch/autohidehost/internal/platform/errors"
	platformotel "github.com/louisbranch/autohidehost/internal/platform/otel"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/interference"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/readiness"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/tick"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultSettleDelayTicks is the wait between placement and commit.
	DefaultSettleDelayTicks = 30
	// DefaultPlacementTimeoutTicks bounds how long a placement may take to land.
	DefaultPlacementTimeoutTicks = 300
)

// Options tunes an Orchestrator.
type Options struct {
	SettleDelayTicks      uint64
	PlacementTimeoutTicks uint64
	// Events are marked seen at placement. Nil uses DayEndEvents.
	Events   []string
	Recorder Recorder
	Tracer   trace.Tracer
	Now      func() time.Time
	Logf     func(string, ...any)
	// Debugf receives step-by-step diagnostics. Nil drops them.
	Debugf func(string, ...any)
}

// Conditions are the inputs to an IDLE evaluation, gathered by the caller in
// one observer bucket.
type Conditions struct {
	Snapshot    readiness.Snapshot
	GuardActive bool
	Blocking    interference.Kind
	ForceSleep  bool
}

// Orchestrator owns the transition state machine. It runs on the tick loop
// and is not safe for concurrent use.
type Orchestrator struct {
	game    host.Game
	queue   *tick.Queue
	ticks   func() uint64
	observe func() readiness.Snapshot
	opts    Options

	phase         Phase
	attempt       *Attempt
	last          *Attempt
	advancedToday bool
	pending       tick.Handle
	span          trace.Span
}

// New builds an orchestrator. observe takes a fresh readiness snapshot and is
// called again at commit time.
func New(game host.Game, queue *tick.Queue, ticks func() uint64, observe func() readiness.Snapshot, opts Options) *Orchestrator {
	if opts.SettleDelayTicks == 0 {
		opts.SettleDelayTicks = DefaultSettleDelayTicks
	}
	if opts.PlacementTimeoutTicks == 0 {
		opts.PlacementTimeoutTicks = DefaultPlacementTimeoutTicks
	}
	if opts.Events == nil {
		opts.Events = DayEndEvents
	}
	if opts.Tracer == nil {
		opts.Tracer = platformotel.Tracer("autohide/transition")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	if opts.Debugf == nil {
		opts.Debugf = func(string, ...any) {}
	}
	return &Orchestrator{game: game, queue: queue, ticks: ticks, observe: observe, opts: opts}
}

// SetTiming applies reloaded settle and timeout values to future attempts.
func (o *Orchestrator) SetTiming(settle, timeout uint64) {
	if settle > 0 {
		o.opts.SettleDelayTicks = settle
	}
	if timeout > 0 {
		o.opts.PlacementTimeoutTicks = timeout
	}
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	return o.phase
}

// InProgress reports whether an attempt currently owns the host's placement.
func (o *Orchestrator) InProgress() bool {
	return o.phase.InProgress()
}

// AdvancedToday reports whether the day-advance was issued since the last
// day start.
func (o *Orchestrator) AdvancedToday() bool {
	return o.advancedToday
}

// Current returns a copy of the live attempt.
func (o *Orchestrator) Current() (Attempt, bool) {
	if o.attempt == nil {
		return Attempt{}, false
	}
	return *o.attempt, true
}

// Last returns a copy of the most recently finished attempt.
func (o *Orchestrator) Last() (Attempt, bool) {
	if o.last == nil {
		return Attempt{}, false
	}
	return *o.last, true
}

// Evaluate runs once per observer bucket. From IDLE it starts an attempt when
// every gate passes; before COMMITTED it aborts when nobody is left. In any
// other phase it does nothing.
func (o *Orchestrator) Evaluate(c Conditions) bool {
	switch o.phase {
	case PhaseAwaitingPlacement, PhasePlaced:
		if c.Snapshot.Active == 0 {
			o.abort(ReasonNoParticipants, nil)
		}
		return false
	case PhaseIdle:
	default:
		return false
	}

	switch {
	case !c.ForceSleep:
		return false
	case o.advancedToday:
		o.opts.Debugf("transition: day already advanced, waiting for day start")
		return false
	case !c.Snapshot.ConsensusReached:
		if c.Snapshot.Active > 0 {
			o.opts.Debugf("transition: waiting on %v", c.Snapshot.Waiting())
		}
		return false
	case c.GuardActive:
		o.opts.Debugf("transition: consensus reached during guard window, deferring")
		return false
	case c.Blocking != interference.KindNone:
		o.opts.Debugf("transition: consensus reached behind %s, deferring", c.Blocking)
		return false
	case o.game.HostReady(host.CheckpointSleep):
		o.opts.Debugf("transition: host already ready")
		return false
	}

	o.begin(c.Snapshot)
	o.place()
	return true
}

// ParticipantDisconnected aborts an attempt that has not committed yet.
// Committed attempts are left to finish.
func (o *Orchestrator) ParticipantDisconnected(id host.ID) {
	if o.phase == PhaseAwaitingPlacement || o.phase == PhasePlaced {
		o.opts.Logf("transition: participant %d left before commit", id)
		o.abort(ReasonParticipantDisconnected, nil)
	}
}

// Step runs once per tick before the delayed-action queue, so an attempt
// aborted on one tick returns to IDLE on the next.
func (o *Orchestrator) Step() {
	if o.phase == PhaseAborted {
		o.phase = PhaseIdle
		o.attempt = nil
	}
}

// DayStarted completes an advancing attempt and resets every per-day guard.
func (o *Orchestrator) DayStarted() {
	switch {
	case o.phase == PhaseAdvancing:
		o.finish(OutcomeCompleted, "", nil)
	case o.phase.InProgress():
		o.abort(ReasonDayStarted, nil)
	}
	o.cancelPending()
	o.phase = PhaseIdle
	o.attempt = nil
	o.advancedToday = false
}

// Abort ends the live attempt, if any, with reason.
func (o *Orchestrator) Abort(reason string) {
	if o.phase.InProgress() {
		o.abort(reason, nil)
	}
}

func (o *Orchestrator) begin(snap readiness.Snapshot) {
	now := o.ticks()
	a := &Attempt{
		ID:           uuid.NewString(),
		Phase:        PhaseAwaitingPlacement,
		Participants: snap.Active,
		StartedTick:  now,
		StartedAt:    o.opts.Now(),
	}
	_, span := o.opts.Tracer.Start(context.Background(), "autohide.transition",
		trace.WithAttributes(
			attribute.String("autohide.attempt_id", a.ID),
			attribute.Int("autohide.participants", snap.Active),
		))
	o.span = span
	o.attempt = a
	o.setPhase(PhaseAwaitingPlacement)
	o.opts.Logf("transition: all %d participants ready, starting attempt %s", snap.Active, a.ID)
}

func (o *Orchestrator) place() {
	bed := BedFor(o.game.HouseUpgradeLevel(), o.game.HomeLocation())
	o.attempt.Bed = bed
	if err := o.game.WarpHost(bed); err != nil {
		o.abort(ReasonPlacementFailed, apperrors.Wrap(apperrors.CodeCollaboratorFailed, "warp host to bed", err))
		return
	}
	for _, id := range o.opts.Events {
		if err := o.game.MarkEventSeen(id); err != nil {
			o.abort(ReasonPlacementFailed, apperrors.Wrap(apperrors.CodeCollaboratorFailed, "mark event "+id+" seen", err))
			return
		}
	}
	o.attempt.PlacedTick = o.ticks()
	o.setPhase(PhasePlaced)
	o.opts.Debugf("transition: host warped to %s", bed)
	o.schedule(o.opts.SettleDelayTicks, "commit", o.commit)
}

func (o *Orchestrator) commit() {
	if o.phase != PhasePlaced {
		return
	}
	a := o.attempt
	a.Commits++

	snap := o.observe()
	if snap.Active == 0 {
		o.abort(ReasonNoParticipants, nil)
		return
	}
	if !snap.ConsensusReached {
		o.abort(ReasonConsensusLost, nil)
		return
	}

	if at := o.game.HostPlacement(); at != a.Bed {
		elapsed := o.ticks() - a.PlacedTick
		if elapsed >= o.opts.PlacementTimeoutTicks {
			o.abort(ReasonPlacementTimeout, apperrors.WithMetadata(apperrors.CodeCollaboratorFailed,
				"host did not reach bed", map[string]string{"at": at.String(), "bed": a.Bed.String()}))
			return
		}
		o.opts.Debugf("transition: host at %s, not yet at %s; rechecking", at, a.Bed)
		o.schedule(o.opts.SettleDelayTicks, "commit", o.commit)
		return
	}

	if err := o.game.SetHostInBed(true); err != nil {
		o.abort(ReasonCommitFailed, apperrors.Wrap(apperrors.CodeCollaboratorFailed, "set host in bed", err))
		return
	}
	a.inBedSet = true
	if err := o.game.SetHostReady(host.CheckpointSleep, true); err != nil {
		o.abort(ReasonCommitFailed, apperrors.Wrap(apperrors.CodeCollaboratorFailed, "mark host ready", err))
		return
	}
	a.readySet = true
	a.CommitTick = o.ticks()
	o.setPhase(PhaseCommitted)
	o.opts.Logf("transition: host in bed and ready (attempt %s)", a.ID)
	o.schedule(1, "advance", o.advance)
}

// advance writes the wake point after the readiness mutation had its chance
// to overwrite it, then starts the night.
func (o *Orchestrator) advance() {
	if o.phase != PhaseCommitted {
		return
	}
	a := o.attempt
	if err := o.game.SetMostRecentBed(a.Bed.Tile); err != nil {
		o.abort(ReasonAdvanceFailed, apperrors.Wrap(apperrors.CodeCollaboratorFailed, "set wake point", err))
		return
	}
	if a.sleepIssued {
		return
	}
	a.sleepIssued = true
	if err := o.game.StartSleep(); err != nil {
		o.abort(ReasonAdvanceFailed, apperrors.Wrap(apperrors.CodeCollaboratorFailed, "start sleep", err))
		return
	}
	o.advancedToday = true
	o.setPhase(PhaseAdvancing)
	o.opts.Logf("transition: day advance issued (attempt %s)", a.ID)
}

func (o *Orchestrator) abort(reason string, cause error) {
	if o.attempt == nil {
		return
	}
	o.cancelPending()
	a := o.attempt
	if a.readySet {
		if err := o.game.SetHostReady(host.CheckpointSleep, false); err != nil {
			o.opts.Logf("transition: rollback ready flag: %v", err)
		}
		a.readySet = false
	}
	if a.inBedSet {
		if err := o.game.SetHostInBed(false); err != nil {
			o.opts.Logf("transition: rollback bed flag: %v", err)
		}
		a.inBedSet = false
	}
	if cause != nil {
		o.opts.Logf("transition: attempt %s aborted in %s (%s): %v", a.ID, o.phase, reason, cause)
	} else {
		o.opts.Logf("transition: attempt %s aborted in %s (%s)", a.ID, o.phase, reason)
	}
	o.finish(OutcomeAborted, reason, cause)
	o.phase = PhaseAborted
	a.Phase = PhaseAborted
}

func (o *Orchestrator) finish(outcome Outcome, reason string, cause error) {
	a := o.attempt
	a.Outcome = outcome
	a.AbortReason = reason
	a.FinishedAt = o.opts.Now()
	if cause != nil {
		a.Err = cause.Error()
	}
	if o.span != nil {
		o.span.SetAttributes(attribute.String("autohide.outcome", string(outcome)))
		if outcome == OutcomeAborted {
			o.span.SetAttributes(attribute.String("autohide.abort_reason", reason))
			msg := reason
			if cause != nil {
				o.span.RecordError(cause)
				msg = cause.Error()
			}
			o.span.SetStatus(codes.Error, msg)
		}
		o.span.End()
		o.span = nil
	}
	finished := *a
	o.last = &finished
	if o.opts.Recorder != nil {
		o.opts.Recorder.RecordAttempt(finished)
	}
}

func (o *Orchestrator) setPhase(p Phase) {
	o.phase = p
	if o.attempt != nil {
		o.attempt.Phase = p
	}
	if o.span != nil {
		o.span.AddEvent(p.String())
	}
}

func (o *Orchestrator) schedule(delay uint64, name string, fn func()) {
	o.pending = o.queue.Schedule(o.ticks()+delay, name, fn)
}

func (o *Orchestrator) cancelPending() {
	if o.pending != 0 {
		o.queue.Cancel(o.pending)
		o.pending = 0
	}
}
