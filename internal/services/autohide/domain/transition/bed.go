package transition

import "github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"

// DefaultHome is the host's home location when the session reports none.
const DefaultHome = "FarmHouse"

var bedTiles = [...]host.Tile{
	{X: 9, Y: 9},
	{X: 21, Y: 4},
	{X: 27, Y: 13},
}

// BedFor returns the host's bed for a housing tier. Tiers above the largest
// known upgrade share its layout; negative tiers use the starter house.
func BedFor(houseLevel int, home string) host.Placement {
	if home == "" {
		home = DefaultHome
	}
	switch {
	case houseLevel <= 0:
		houseLevel = 0
	case houseLevel >= len(bedTiles):
		houseLevel = len(bedTiles) - 1
	}
	return host.Placement{Location: home, Tile: bedTiles[houseLevel]}
}

// DayEndEvents are special event ids the game may queue for the night. They
// are marked seen before the forced transition so none of them interrupts it.
var DayEndEvents = []string{"558291", "558292"}
