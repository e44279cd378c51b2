// Package gametest provides an in-memory game session implementing host.Game
// for tests. It records every collaborator call and can inject failures.
package gametest

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"
)

// ErrInjected is the default failure returned by FailAlways/FailNext.
var ErrInjected = errors.New("injected failure")

// Call records one mutating collaborator call.
type Call struct {
	Method string
	Args   string
}

type farmhand struct {
	participant host.Participant
	ready       map[string]bool
}

// World is a single in-memory session: one host plus farmhands.
type World struct {
	mu sync.Mutex

	mainPlayer bool
	worldReady bool

	hostID        host.ID
	hostName      string
	placement     host.Placement
	pixel         host.Vector
	inBed         bool
	invisible     bool
	invincible    bool
	hostReady     map[string]bool
	mostRecentBed host.Tile
	houseLevel    int
	home          string
	seenEvents    map[string]bool

	farmhands map[host.ID]*farmhand

	menu         host.Menu
	paused       bool
	timeOfDay    int
	sleepStarted int

	// RejectConfirm makes InvokeMenuAction fail for these menu types while
	// still letting clicks dismiss them.
	RejectConfirm map[string]bool
	// Sticky keeps warps from landing, simulating a relocation that never
	// completes.
	Sticky bool

	calls    []Call
	failNext map[string]error
	failAll  map[string]error
}

// NewWorld returns a loaded world where this process is the main player and
// the host stands on the farm.
func NewWorld() *World {
	w := &World{
		mainPlayer:    true,
		worldReady:    true,
		hostID:        1,
		hostName:      "Host",
		placement:     host.Placement{Location: "Farm", Tile: host.Tile{X: 64, Y: 15}},
		hostReady:     map[string]bool{},
		home:          "FarmHouse",
		seenEvents:    map[string]bool{},
		farmhands:     map[host.ID]*farmhand{},
		timeOfDay:     2200,
		RejectConfirm: map[string]bool{},
		failNext:      map[string]error{},
		failAll:       map[string]error{},
	}
	w.pixel = w.placement.Tile.Pixels()
	return w
}

// --- scenario controls ---

// SetMainPlayer toggles whether this process owns the host.
func (w *World) SetMainPlayer(main bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mainPlayer = main
}

// SetWorldReady toggles whether a save is loaded.
func (w *World) SetWorldReady(ready bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.worldReady = ready
}

// SetHouseLevel sets the host's housing tier.
func (w *World) SetHouseLevel(level int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.houseLevel = level
}

// SetHome overrides the host's home location name.
func (w *World) SetHome(location string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.home = location
}

// Connect adds or reactivates a farmhand.
func (w *World) Connect(id host.ID, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fh, ok := w.farmhands[id]
	if !ok {
		fh = &farmhand{ready: map[string]bool{}}
		w.farmhands[id] = fh
	}
	fh.participant = host.Participant{
		ID:        id,
		Name:      name,
		Active:    true,
		Placement: host.Placement{Location: "Farm", Tile: host.Tile{X: 64, Y: 15}},
	}
}

// Disconnect marks a farmhand inactive and clears its readiness.
func (w *World) Disconnect(id host.ID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if fh, ok := w.farmhands[id]; ok {
		fh.participant.Active = false
		fh.participant.InBed = false
		fh.ready = map[string]bool{}
	}
}

// SetReady sets a farmhand's checkpoint readiness.
func (w *World) SetReady(id host.ID, checkpoint string, ready bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if fh, ok := w.farmhands[id]; ok {
		fh.ready[checkpoint] = ready
		if checkpoint == host.CheckpointSleep {
			fh.participant.InBed = ready
		}
	}
}

// ShowMenu displays a menu.
func (w *World) ShowMenu(menu host.Menu) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.menu = menu
}

// FailNext makes the next call to method return err (ErrInjected when nil).
func (w *World) FailNext(method string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	w.failNext[method] = err
}

// FailAlways makes every call to method return err until Heal.
func (w *World) FailAlways(method string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	w.failAll[method] = err
}

// Heal clears all injected failures.
func (w *World) Heal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failNext = map[string]error{}
	w.failAll = map[string]error{}
}

// --- inspection ---

// Calls returns a copy of the recorded mutating calls.
func (w *World) Calls() []Call {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Call, len(w.calls))
	copy(out, w.calls)
	return out
}

// CallCount counts recorded calls to method.
func (w *World) CallCount(method string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, c := range w.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded calls.
func (w *World) ResetCalls() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = nil
}

// SleepStarted counts StartSleep calls that succeeded.
func (w *World) SleepStarted() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sleepStarted
}

// MostRecentBed returns the recorded wake tile.
func (w *World) MostRecentBed() host.Tile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mostRecentBed
}

// HostPixel returns the host's pixel position.
func (w *World) HostPixel() host.Vector {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pixel
}

// HostInvincible reports the invincibility marker.
func (w *World) HostInvincible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.invincible
}

// EventSeen reports whether an event was marked seen.
func (w *World) EventSeen(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seenEvents[id]
}

// NewDay simulates the engine finishing the night: flags reset and the host
// wakes at the recorded bed.
func (w *World) NewDay() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hostReady = map[string]bool{}
	w.inBed = false
	w.menu = host.Menu{}
	w.timeOfDay = 600
	w.placement = host.Placement{Location: w.home, Tile: w.mostRecentBed}
	for _, fh := range w.farmhands {
		fh.ready = map[string]bool{}
		fh.participant.InBed = false
	}
}

func (w *World) record(method, format string, args ...any) error {
	w.calls = append(w.calls, Call{Method: method, Args: fmt.Sprintf(format, args...)})
	if err, ok := w.failNext[method]; ok {
		delete(w.failNext, method)
		return err
	}
	if err, ok := w.failAll[method]; ok {
		return err
	}
	return nil
}

// --- host.Membership ---

func (w *World) IsMainPlayer() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mainPlayer
}

func (w *World) WorldReady() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.worldReady
}

func (w *World) Participants() []host.Participant {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]host.Participant, 0, len(w.farmhands))
	for _, fh := range w.farmhands {
		out = append(out, fh.participant)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) IsReady(checkpoint string, id host.ID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	fh, ok := w.farmhands[id]
	return ok && fh.ready[checkpoint]
}

// --- host.Actor ---

func (w *World) HostID() host.ID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hostID
}

func (w *World) HostName() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hostName
}

func (w *World) HostPlacement() host.Placement {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.placement
}

func (w *World) HouseUpgradeLevel() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.houseLevel
}

func (w *World) HomeLocation() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.home
}

func (w *World) HostInBed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inBed
}

func (w *World) SetHostInBed(inBed bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("SetHostInBed", "%t", inBed); err != nil {
		return err
	}
	w.inBed = inBed
	return nil
}

func (w *World) HostReady(checkpoint string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hostReady[checkpoint]
}

// SetHostReady mirrors the engine: marking the host ready for sleep also
// overwrites the wake point with the host's raw pixel position, which is
// wrong as a tile.
func (w *World) SetHostReady(checkpoint string, ready bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("SetHostReady", "%s=%t", checkpoint, ready); err != nil {
		return err
	}
	w.hostReady[checkpoint] = ready
	if ready && checkpoint == host.CheckpointSleep {
		w.mostRecentBed = host.Tile{X: int(w.pixel.X), Y: int(w.pixel.Y)}
	}
	return nil
}

func (w *World) SetMostRecentBed(tile host.Tile) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("SetMostRecentBed", "%d,%d", tile.X, tile.Y); err != nil {
		return err
	}
	w.mostRecentBed = tile
	return nil
}

func (w *World) MarkEventSeen(eventID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("MarkEventSeen", "%s", eventID); err != nil {
		return err
	}
	w.seenEvents[eventID] = true
	return nil
}

// --- host.Placer ---

func (w *World) WarpHost(to host.Placement) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("WarpHost", "%s", to); err != nil {
		return err
	}
	if w.Sticky {
		return nil
	}
	w.placement = to
	w.pixel = to.Tile.Pixels()
	return nil
}

func (w *World) SetHostPixelPosition(pos host.Vector) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("SetHostPixelPosition", "%.0f,%.0f", pos.X, pos.Y); err != nil {
		return err
	}
	w.pixel = pos
	return nil
}

func (w *World) HostInvisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.invisible
}

func (w *World) SetHostInvisible(invisible bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("SetHostInvisible", "%t", invisible); err != nil {
		return err
	}
	w.invisible = invisible
	return nil
}

func (w *World) SetHostInvincible(invincible bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("SetHostInvincible", "%t", invincible); err != nil {
		return err
	}
	w.invincible = invincible
	return nil
}

// --- host.UI ---

func (w *World) CurrentMenu() host.Menu {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.menu
}

func (w *World) InvokeMenuAction(action host.MenuAction) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("InvokeMenuAction", "%s:%s", w.menu.Type, action); err != nil {
		return err
	}
	if w.menu.IsZero() {
		return nil
	}
	if w.RejectConfirm[w.menu.Type] {
		return fmt.Errorf("%s has no %s control", w.menu.Type, action)
	}
	w.menu = host.Menu{}
	return nil
}

func (w *World) ClickAt(x, y int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("ClickAt", "%d,%d", x, y); err != nil {
		return err
	}
	w.menu = host.Menu{}
	return nil
}

// --- host.DayCycle ---

func (w *World) StartSleep() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("StartSleep", ""); err != nil {
		return err
	}
	w.sleepStarted++
	return nil
}

func (w *World) Paused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paused
}

func (w *World) SetPaused(paused bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("SetPaused", "%t", paused); err != nil {
		return err
	}
	w.paused = paused
	return nil
}

func (w *World) TimeOfDay() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timeOfDay
}

var _ host.Game = (*World)(nil)
