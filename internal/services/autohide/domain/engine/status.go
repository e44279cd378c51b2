package engine

import (
	"time"

	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/readiness"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/transition"
)

// Status is the operator summary of the engine.
type Status struct {
	Enabled        bool
	MainPlayer     bool
	WorldReady     bool
	Hidden         bool
	HidePending    bool
	HideMethod     string
	PauseWhenEmpty bool
	ForceSleep     bool
	Paused         bool
	Active         int
	Total          int
	Ready          int
	Phase          transition.Phase
	AttemptID      string
	AdvancedToday  bool
	GuardRemaining time.Duration
	Tick           uint64
}

// Status reports the current state. It never mutates anything.
func (e *Engine) Status() Status {
	st := Status{
		Enabled:        e.settings.Enabled,
		MainPlayer:     e.game.IsMainPlayer(),
		WorldReady:     e.game.WorldReady(),
		Hidden:         e.presence.Hidden(),
		HidePending:    e.hideWanted,
		HideMethod:     e.settings.HideMethod,
		PauseWhenEmpty: e.settings.PauseWhenEmpty,
		ForceSleep:     e.settings.ForceSleepWhenReady,
		Phase:          e.orch.Phase(),
		AdvancedToday:  e.orch.AdvancedToday(),
		GuardRemaining: e.guard.Remaining(),
		Tick:           e.ticks,
	}
	if a, ok := e.orch.Current(); ok {
		st.AttemptID = a.ID
	}
	if st.WorldReady {
		snap := e.observer.Snapshot()
		st.Active = snap.Active
		st.Total = len(snap.Participants)
		st.Ready = snap.Ready
		st.Paused = e.game.Paused()
	}
	return st
}

// SleepDebug is the detailed readiness report.
type SleepDebug struct {
	WorldReady   bool
	HostName     string
	HostID       host.ID
	Placement    host.Placement
	InBed        bool
	HostReady    bool
	Participants []readiness.ParticipantState
	Active       int
	Consensus    bool
	Paused       bool
	TimeOfDay    int
	Phase        transition.Phase
	Pending      []string
}

// SleepDebug reports host and participant readiness in detail.
func (e *Engine) SleepDebug() SleepDebug {
	d := SleepDebug{WorldReady: e.game.WorldReady(), Phase: e.orch.Phase(), Pending: e.queue.Names()}
	if !d.WorldReady {
		return d
	}
	snap := e.observer.Snapshot()
	d.HostName = e.game.HostName()
	d.HostID = e.game.HostID()
	d.Placement = e.game.HostPlacement()
	d.InBed = e.game.HostInBed()
	d.HostReady = e.game.HostReady(host.CheckpointSleep)
	d.Participants = snap.Participants
	d.Active = snap.Active
	d.Consensus = snap.ConsensusReached
	d.Paused = e.game.Paused()
	d.TimeOfDay = e.game.TimeOfDay()
	return d
}
