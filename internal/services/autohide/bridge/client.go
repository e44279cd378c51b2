// Package bridge connects the sidecar to the game-side mod over a websocket.
//
// The game sends one state frame per update tick plus event frames for
// session lifecycle changes. The client mirrors the latest state so the core
// can read collaborator fields synchronously, and turns every collaborator
// write into an action frame. Writes also update the mirror so reads later in
// the same tick observe them; the next state frame is authoritative.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/louisbranch/autohidehost/internal/platform/errors"
	"github.com/louisbranch/autohidehost/internal/platform/timeouts"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"
	"golang.org/x/net/websocket"
)

const (
	defaultSignalBuffer    = 256
	maxDecodeErrorsPerConn = 8
)

// ErrNotConnected is returned by writes when no bridge connection is open.
var ErrNotConnected = apperrors.New(apperrors.CodeCollaboratorUnavailable, "game bridge is not connected")

// SignalKind classifies what the read loop observed.
type SignalKind int

const (
	// SignalTick means a state frame arrived; the game advanced one tick.
	SignalTick SignalKind = iota + 1
	// SignalEvent carries a lifecycle event.
	SignalEvent
	// SignalActionFailed reports a negative ack for an earlier action.
	SignalActionFailed
)

// Signal is one inbound notification for the runtime loop.
type Signal struct {
	Kind   SignalKind
	Event  string
	Peer   host.ID
	Action string
	Err    string
}

// Options configures a Client.
type Options struct {
	URL          string
	Origin       string
	SignalBuffer int
	Logf         func(string, ...any)
	// NewRequestID overrides action request id generation.
	NewRequestID func() string
}

// Client mirrors game state and forwards host actions. Reads and writes are
// safe for concurrent use with the read loop.
type Client struct {
	logf  func(string, ...any)
	newID func() string

	mu      sync.RWMutex
	state   State
	pending map[string]string

	writeMu sync.Mutex
	conn    *websocket.Conn

	signals chan Signal
}

// Dial opens a websocket connection to the game bridge.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, fmt.Errorf("bridge url is required")
	}
	origin := strings.TrimSpace(opts.Origin)
	if origin == "" {
		origin = "http://localhost/"
	}
	cfg, err := websocket.NewConfig(url, origin)
	if err != nil {
		return nil, fmt.Errorf("bridge config: %w", err)
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeouts.BridgeDial)
	defer cancel()
	conn, err := cfg.DialContext(dialCtx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCollaboratorUnavailable, "dial game bridge", err)
	}
	return NewClient(conn, opts), nil
}

// NewClient wraps an open connection.
func NewClient(conn *websocket.Conn, opts Options) *Client {
	buffer := opts.SignalBuffer
	if buffer <= 0 {
		buffer = defaultSignalBuffer
	}
	c := &Client{
		logf:    opts.Logf,
		newID:   opts.NewRequestID,
		pending: map[string]string{},
		conn:    conn,
		signals: make(chan Signal, buffer),
	}
	if c.logf == nil {
		c.logf = log.Printf
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// Signals delivers inbound notifications. It is closed when Run returns.
func (c *Client) Signals() <-chan Signal {
	return c.signals
}

// Run reads frames until the connection closes or ctx is done.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.signals)
	c.writeMu.Lock()
	conn := c.conn
	c.writeMu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	decodeErrors := 0
	for {
		var frame Frame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) {
				return apperrors.Wrap(apperrors.CodeCollaboratorUnavailable, "read bridge frame", err)
			}
			c.logf("bridge: malformed frame: %v", err)
			decodeErrors++
			if decodeErrors >= maxDecodeErrorsPerConn {
				return apperrors.Wrap(apperrors.CodeCollaboratorFailed, "too many malformed bridge frames", err)
			}
			continue
		}
		decodeErrors = 0

		signal, ok := c.handle(frame)
		if !ok {
			continue
		}
		select {
		case c.signals <- signal:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) handle(frame Frame) (Signal, bool) {
	switch frame.Type {
	case FrameState:
		var state State
		if err := json.Unmarshal(frame.Payload, &state); err != nil {
			c.logf("bridge: invalid state frame: %v", err)
			return Signal{}, false
		}
		c.mu.Lock()
		c.state = state
		c.mu.Unlock()
		return Signal{Kind: SignalTick}, true
	case FrameEvent:
		var event EventPayload
		if err := json.Unmarshal(frame.Payload, &event); err != nil || event.Name == "" {
			c.logf("bridge: invalid event frame")
			return Signal{}, false
		}
		return Signal{Kind: SignalEvent, Event: event.Name, Peer: host.ID(event.PeerID)}, true
	case FrameAck:
		var ack AckPayload
		if err := json.Unmarshal(frame.Payload, &ack); err != nil {
			c.logf("bridge: invalid ack frame for %q", frame.RequestID)
			return Signal{}, false
		}
		c.mu.Lock()
		action := c.pending[frame.RequestID]
		delete(c.pending, frame.RequestID)
		c.mu.Unlock()
		if ack.OK {
			return Signal{}, false
		}
		return Signal{Kind: SignalActionFailed, Action: action, Err: ack.Error}, true
	default:
		c.logf("bridge: unsupported frame type %q", frame.Type)
		return Signal{}, false
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Pending returns the number of actions without an ack.
func (c *Client) Pending() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pending)
}

// State returns a copy of the mirrored world state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state := c.state
	state.Participants = slices.Clone(c.state.Participants)
	state.Host.Ready = slices.Clone(c.state.Host.Ready)
	return state
}

func (c *Client) send(name string, args map[string]any) error {
	payload, err := json.Marshal(ActionPayload{Name: name, Args: args})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCollaboratorFailed, "encode "+name, err)
	}
	id := c.newID()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.mu.Lock()
	c.pending[id] = name
	c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(timeouts.BridgeWrite))
	if err := websocket.JSON.Send(c.conn, Frame{Type: FrameAction, RequestID: id, Payload: payload}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return apperrors.Wrap(apperrors.CodeCollaboratorUnavailable, "send "+name, err)
	}
	return nil
}

func (c *Client) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	c.mu.Unlock()
}

// Membership

func (c *Client) IsMainPlayer() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.MainPlayer
}

func (c *Client) WorldReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.WorldReady
}

func (c *Client) Participants() []host.Participant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]host.Participant, 0, len(c.state.Participants))
	for _, p := range c.state.Participants {
		if host.ID(p.ID) == host.ID(c.state.Host.ID) {
			continue
		}
		out = append(out, p.participant())
	}
	return out
}

func (c *Client) IsReady(checkpoint string, id host.ID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.state.Participants {
		if host.ID(p.ID) == id {
			return slices.Contains(p.Ready, checkpoint)
		}
	}
	return false
}

// Actor

func (c *Client) HostID() host.ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return host.ID(c.state.Host.ID)
}

func (c *Client) HostName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Host.Name
}

func (c *Client) HostPlacement() host.Placement {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return host.Placement{
		Location: c.state.Host.Location,
		Tile:     host.Tile{X: c.state.Host.X, Y: c.state.Host.Y},
	}
}

func (c *Client) HouseUpgradeLevel() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Host.HouseLevel
}

func (c *Client) HomeLocation() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Host.Home
}

func (c *Client) HostInBed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Host.InBed
}

func (c *Client) SetHostInBed(inBed bool) error {
	if err := c.send(ActionSetInBed, map[string]any{"value": inBed}); err != nil {
		return err
	}
	c.update(func(s *State) { s.Host.InBed = inBed })
	return nil
}

func (c *Client) HostReady(checkpoint string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.state.Host.Ready, checkpoint)
}

func (c *Client) SetHostReady(checkpoint string, ready bool) error {
	if err := c.send(ActionSetReady, map[string]any{"checkpoint": checkpoint, "value": ready}); err != nil {
		return err
	}
	c.update(func(s *State) { s.Host.Ready = setFlag(s.Host.Ready, checkpoint, ready) })
	return nil
}

func (c *Client) SetMostRecentBed(tile host.Tile) error {
	return c.send(ActionSetMostRecentBed, map[string]any{"x": tile.X, "y": tile.Y})
}

func (c *Client) MarkEventSeen(eventID string) error {
	return c.send(ActionMarkEventSeen, map[string]any{"event_id": eventID})
}

// Placer

func (c *Client) WarpHost(to host.Placement) error {
	if err := c.send(ActionWarpHost, map[string]any{"location": to.Location, "x": to.Tile.X, "y": to.Tile.Y}); err != nil {
		return err
	}
	c.update(func(s *State) {
		s.Host.Location = to.Location
		s.Host.X, s.Host.Y = to.Tile.X, to.Tile.Y
		px := to.Tile.Pixels()
		s.Host.PixelX, s.Host.PixelY = px.X, px.Y
	})
	return nil
}

func (c *Client) SetHostPixelPosition(pos host.Vector) error {
	if err := c.send(ActionSetPixel, map[string]any{"x": pos.X, "y": pos.Y}); err != nil {
		return err
	}
	c.update(func(s *State) { s.Host.PixelX, s.Host.PixelY = pos.X, pos.Y })
	return nil
}

func (c *Client) HostInvisible() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Host.Invisible
}

func (c *Client) SetHostInvisible(invisible bool) error {
	if err := c.send(ActionSetInvisible, map[string]any{"value": invisible}); err != nil {
		return err
	}
	c.update(func(s *State) { s.Host.Invisible = invisible })
	return nil
}

func (c *Client) SetHostInvincible(invincible bool) error {
	if err := c.send(ActionSetInvincible, map[string]any{"value": invincible}); err != nil {
		return err
	}
	c.update(func(s *State) { s.Host.Invincible = invincible })
	return nil
}

// UI

func (c *Client) CurrentMenu() host.Menu {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := c.state.Menu
	return host.Menu{Type: m.Type, Checkpoint: m.Checkpoint, Skippable: m.Skippable, Event: m.Event}
}

func (c *Client) InvokeMenuAction(action host.MenuAction) error {
	return c.send(ActionMenu, map[string]any{"action": string(action)})
}

func (c *Client) ClickAt(x, y int) error {
	return c.send(ActionClick, map[string]any{"x": x, "y": y})
}

// DayCycle

func (c *Client) StartSleep() error {
	return c.send(ActionStartSleep, nil)
}

func (c *Client) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Paused
}

func (c *Client) SetPaused(paused bool) error {
	if err := c.send(ActionSetPaused, map[string]any{"value": paused}); err != nil {
		return err
	}
	c.update(func(s *State) { s.Paused = paused })
	return nil
}

func (c *Client) TimeOfDay() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.TimeOfDay
}

var _ host.Game = (*Client)(nil)
