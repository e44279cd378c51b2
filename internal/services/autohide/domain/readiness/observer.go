package readiness

import (
	"sort"

	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"
)

// ParticipantState is one participant plus its readiness at snapshot time.
type ParticipantState struct {
	host.Participant
	Ready bool
}

// Snapshot is the observed readiness of the session.
type Snapshot struct {
	// Participants holds every known non-host participant, sorted by id.
	Participants []ParticipantState
	// Active counts participants currently connected.
	Active int
	// Ready counts active participants ready for the checkpoint.
	Ready int
	// ConsensusReached is true when at least one participant is active and
	// all active participants are ready.
	ConsensusReached bool
}

// Waiting returns the names of active participants not yet ready.
func (s Snapshot) Waiting() []string {
	var names []string
	for _, p := range s.Participants {
		if p.Active && !p.Ready {
			names = append(names, p.Name)
		}
	}
	return names
}

// Has reports whether id is an active participant in the snapshot.
func (s Snapshot) Has(id host.ID) bool {
	for _, p := range s.Participants {
		if p.ID == id && p.Active {
			return true
		}
	}
	return false
}

// Observer evaluates readiness for one checkpoint.
type Observer struct {
	membership host.Membership
	hostID     func() host.ID
	checkpoint string
}

// NewObserver returns an observer for the sleep checkpoint. hostID, when not
// nil, names the host so it is excluded even if the membership lists it.
func NewObserver(membership host.Membership, hostID func() host.ID) *Observer {
	return &Observer{membership: membership, hostID: hostID, checkpoint: host.CheckpointSleep}
}

// Checkpoint returns the observed checkpoint name.
func (o *Observer) Checkpoint() string {
	return o.checkpoint
}

// Snapshot reads the current participants and readiness.
func (o *Observer) Snapshot() Snapshot {
	var snap Snapshot
	if o == nil || o.membership == nil {
		return snap
	}
	var hostID host.ID
	excludeHost := o.hostID != nil
	if excludeHost {
		hostID = o.hostID()
	}
	for _, p := range o.membership.Participants() {
		if excludeHost && p.ID == hostID {
			continue
		}
		state := ParticipantState{Participant: p}
		if p.Active {
			snap.Active++
			if o.membership.IsReady(o.checkpoint, p.ID) {
				state.Ready = true
				snap.Ready++
			}
		}
		snap.Participants = append(snap.Participants, state)
	}
	sort.Slice(snap.Participants, func(i, j int) bool {
		return snap.Participants[i].ID < snap.Participants[j].ID
	})
	snap.ConsensusReached = snap.Active > 0 && snap.Ready == snap.Active
	return snap
}
