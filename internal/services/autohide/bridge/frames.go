package bridge

import (
	"encoding/json"
	"slices"

	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"
)

// Frame types exchanged with the game-side bridge.
const (
	FrameState  = "state"
	FrameEvent  = "event"
	FrameAck    = "ack"
	FrameAction = "action"
)

// Event names carried by event frames.
const (
	EventSaveLoaded       = "save_loaded"
	EventDayStarted       = "day_started"
	EventPeerConnected    = "peer_connected"
	EventPeerDisconnected = "peer_disconnected"
	EventReturnedToTitle  = "returned_to_title"
)

// Action names carried by action frames.
const (
	ActionWarpHost         = "warp_host"
	ActionSetPixel         = "set_host_pixel"
	ActionSetInvisible     = "set_host_invisible"
	ActionSetInvincible    = "set_host_invincible"
	ActionSetInBed         = "set_in_bed"
	ActionSetReady         = "set_ready"
	ActionSetMostRecentBed = "set_most_recent_bed"
	ActionMarkEventSeen    = "mark_event_seen"
	ActionMenu             = "menu_action"
	ActionClick            = "click"
	ActionStartSleep       = "start_sleep"
	ActionSetPaused        = "set_paused"
)

// Frame is the JSON envelope for every message.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// State is the full world snapshot the game sends once per update tick.
type State struct {
	MainPlayer   bool               `json:"main_player"`
	WorldReady   bool               `json:"world_ready"`
	Host         HostState          `json:"host"`
	Participants []ParticipantState `json:"participants"`
	Menu         MenuState          `json:"menu"`
	Paused       bool               `json:"paused"`
	TimeOfDay    int                `json:"time_of_day"`
}

// HostState mirrors the host actor.
type HostState struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Location   string   `json:"location"`
	X          int      `json:"x"`
	Y          int      `json:"y"`
	PixelX     float64  `json:"pixel_x"`
	PixelY     float64  `json:"pixel_y"`
	HouseLevel int      `json:"house_level"`
	Home       string   `json:"home"`
	InBed      bool     `json:"in_bed"`
	Invisible  bool     `json:"invisible"`
	Invincible bool     `json:"invincible"`
	Ready      []string `json:"ready,omitempty"`
}

// ParticipantState mirrors one farmhand.
type ParticipantState struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Active   bool     `json:"active"`
	Location string   `json:"location"`
	X        int      `json:"x"`
	Y        int      `json:"y"`
	InBed    bool     `json:"in_bed"`
	Ready    []string `json:"ready,omitempty"`
}

// MenuState mirrors the host's displayed interface.
type MenuState struct {
	Type       string `json:"type,omitempty"`
	Checkpoint string `json:"checkpoint,omitempty"`
	Skippable  bool   `json:"skippable,omitempty"`
	Event      string `json:"event,omitempty"`
}

// EventPayload is the body of an event frame.
type EventPayload struct {
	Name   string `json:"name"`
	PeerID int64  `json:"peer_id,omitempty"`
}

// AckPayload is the body of an ack frame.
type AckPayload struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ActionPayload is the body of an action frame.
type ActionPayload struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

func (p ParticipantState) participant() host.Participant {
	return host.Participant{
		ID:     host.ID(p.ID),
		Name:   p.Name,
		Active: p.Active,
		Placement: host.Placement{
			Location: p.Location,
			Tile:     host.Tile{X: p.X, Y: p.Y},
		},
		InBed: p.InBed,
	}
}

func setFlag(flags []string, name string, on bool) []string {
	idx := slices.Index(flags, name)
	switch {
	case on && idx < 0:
		return append(flags, name)
	case !on && idx >= 0:
		return slices.Delete(flags, idx, idx+1)
	default:
		return flags
	}
}
