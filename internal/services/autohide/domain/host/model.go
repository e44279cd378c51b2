package host

import "fmt"

// ID is a participant's stable multiplayer identifier.
type ID int64

// CheckpointSleep is the readiness checkpoint that ends the in-game day.
const CheckpointSleep = "sleep"

// TileSize is the number of world pixels per map tile.
const TileSize = 64

// Tile is a map coordinate in tiles.
type Tile struct {
	X int
	Y int
}

// Pixels converts a tile to the world-pixel position of its top-left corner.
func (t Tile) Pixels() Vector {
	return Vector{X: float64(t.X * TileSize), Y: float64(t.Y * TileSize)}
}

// Vector is a world position in pixels.
type Vector struct {
	X float64
	Y float64
}

// Placement is a location name plus a tile inside it.
type Placement struct {
	Location string
	Tile     Tile
}

// String renders the placement for logs.
func (p Placement) String() string {
	return fmt.Sprintf("%s (%d, %d)", p.Location, p.Tile.X, p.Tile.Y)
}

// IsZero reports whether the placement has no location.
func (p Placement) IsZero() bool {
	return p.Location == ""
}

// Participant is a connected (or recently connected) non-host farmhand as the
// session reports it. The core only reads participants.
type Participant struct {
	ID        ID
	Name      string
	Active    bool
	Placement Placement
	InBed     bool
}

// Menu describes the interface currently displayed to the host.
type Menu struct {
	// Type is the engine's menu type name, e.g. "ShippingMenu".
	Type string
	// Checkpoint is the readiness checkpoint a ready-check dialog refers to,
	// when the bridge could discover it.
	Checkpoint string
	// Skippable marks scripted events that expose a skip action.
	Skippable bool
	// Event is set when a scripted event (cutscene) is running.
	Event string
}

// IsZero reports whether nothing is displayed.
func (m Menu) IsZero() bool {
	return m.Type == "" && m.Event == ""
}

// MenuAction names a programmatic action on the current menu.
type MenuAction string

const (
	// MenuActionConfirm presses the menu's confirm/OK control.
	MenuActionConfirm MenuAction = "confirm"
	// MenuActionSkip skips a skippable scripted event.
	MenuActionSkip MenuAction = "skip"
	// MenuActionDismiss closes the menu without confirming.
	MenuActionDismiss MenuAction = "dismiss"
)
