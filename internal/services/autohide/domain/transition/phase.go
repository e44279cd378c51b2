package transition

import (
	"time"

	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"
)

// Phase is the orchestrator state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingPlacement
	PhasePlaced
	PhaseCommitted
	PhaseAdvancing
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseAwaitingPlacement:
		return "AWAITING_PLACEMENT"
	case PhasePlaced:
		return "PLACED"
	case PhaseCommitted:
		return "COMMITTED"
	case PhaseAdvancing:
		return "ADVANCING"
	case PhaseAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// InProgress reports whether the phase owns the host's placement.
func (p Phase) InProgress() bool {
	return p >= PhaseAwaitingPlacement && p <= PhaseAdvancing
}

// Outcome is how an attempt ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeAborted   Outcome = "aborted"
)

// Abort reasons recorded on attempts.
const (
	ReasonPlacementFailed         = "placement_failed"
	ReasonPlacementTimeout        = "placement_timeout"
	ReasonConsensusLost           = "consensus_lost"
	ReasonNoParticipants          = "no_participants"
	ReasonParticipantDisconnected = "participant_disconnected"
	ReasonCommitFailed            = "commit_failed"
	ReasonAdvanceFailed           = "advance_failed"
	ReasonDayStarted              = "day_started"
	ReasonShutdown                = "shutdown"
	ReasonDisabled                = "disabled"
)

// Attempt is one orchestration run.
type Attempt struct {
	ID           string
	Phase        Phase
	Bed          host.Placement
	Participants int
	StartedTick  uint64
	PlacedTick   uint64
	CommitTick   uint64
	StartedAt    time.Time
	FinishedAt   time.Time
	Outcome      Outcome
	AbortReason  string
	Err          string
	Commits      int

	sleepIssued bool
	inBedSet    bool
	readySet    bool
}

// Recorder receives every finished attempt. Implementations must not block.
type Recorder interface {
	RecordAttempt(Attempt)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Attempt)

// RecordAttempt calls f.
func (f RecorderFunc) RecordAttempt(a Attempt) { f(a) }
