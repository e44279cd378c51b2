package host

// Membership enumerates session participants. It is read-only.
type Membership interface {
	// IsMainPlayer reports whether this process drives the host actor.
	IsMainPlayer() bool
	// WorldReady reports whether a save is loaded and the world is live.
	WorldReady() bool
	// Participants lists every known farmhand except the host, active or not.
	Participants() []Participant
	// IsReady reports a participant's readiness for a named checkpoint.
	IsReady(checkpoint string, id ID) bool
}

// Actor reads and writes the host actor's own fields.
type Actor interface {
	HostID() ID
	HostName() string
	HostPlacement() Placement
	HouseUpgradeLevel() int
	HomeLocation() string
	HostInBed() bool
	SetHostInBed(inBed bool) error
	HostReady(checkpoint string) bool
	SetHostReady(checkpoint string, ready bool) error
	// SetMostRecentBed records where the host wakes up next morning.
	SetMostRecentBed(tile Tile) error
	// MarkEventSeen records a special event id as already watched.
	MarkEventSeen(eventID string) error
}

// Placer relocates the host actor and toggles its presence markers.
type Placer interface {
	WarpHost(to Placement) error
	SetHostPixelPosition(pos Vector) error
	HostInvisible() bool
	SetHostInvisible(invisible bool) error
	SetHostInvincible(invincible bool) error
}

// UI observes and drives the host's displayed interface.
type UI interface {
	CurrentMenu() Menu
	InvokeMenuAction(action MenuAction) error
	// ClickAt simulates a left click at a UI-space pixel coordinate.
	ClickAt(x, y int) error
}

// DayCycle controls the in-game clock.
type DayCycle interface {
	// StartSleep begins the engine's end-of-day sequence.
	StartSleep() error
	Paused() bool
	SetPaused(paused bool) error
	TimeOfDay() int
}

// Game is the full collaborator surface a session adapter provides.
type Game interface {
	Membership
	Actor
	Placer
	UI
	DayCycle
}
