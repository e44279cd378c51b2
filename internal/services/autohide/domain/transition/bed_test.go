package transition

import (
	"testing"

	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"
)

func TestBedFor(t *testing.T) {
	cases := []struct {
		level int
		home  string
		want  host.Placement
	}{
		{-1, "", host.Placement{Location: DefaultHome, Tile: host.Tile{X: 9, Y: 9}}},
		{0, "FarmHouse", host.Placement{Location: "FarmHouse", Tile: host.Tile{X: 9, Y: 9}}},
		{1, "FarmHouse", host.Placement{Location: "FarmHouse", Tile: host.Tile{X: 21, Y: 4}}},
		{2, "FarmHouse", host.Placement{Location: "FarmHouse", Tile: host.Tile{X: 27, Y: 13}}},
		{3, "Cabin", host.Placement{Location: "Cabin", Tile: host.Tile{X: 27, Y: 13}}},
	}
	for _, tc := range cases {
		if got := BedFor(tc.level, tc.home); got != tc.want {
			t.Fatalf("BedFor(%d, %q) = %v, want %v", tc.level, tc.home, got, tc.want)
		}
	}
}

func TestPhaseInProgress(t *testing.T) {
	for _, p := range []Phase{PhaseAwaitingPlacement, PhasePlaced, PhaseCommitted, PhaseAdvancing} {
		if !p.InProgress() {
			t.Fatalf("%s should be in progress", p)
		}
	}
	for _, p := range []Phase{PhaseIdle, PhaseAborted} {
		if p.InProgress() {
			t.Fatalf("%s should not be in progress", p)
		}
	}
}
