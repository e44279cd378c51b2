// Package interference classifies and dismisses interface states that would
// stall a forced day transition.
package interference

import (
	"log"

	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"
)

// Kind classifies the interface currently shown to the host.
type Kind int

const (
	KindNone Kind = iota
	KindSettlementSummary
	KindLevelUp
	KindDialogue
	KindScriptedEvent
	KindCheckpointDialog
	// KindOther is any unrecognized menu. It blocks but is never dismissed.
	KindOther
)

var kindNames = map[Kind]string{
	KindNone:              "none",
	KindSettlementSummary: "settlement-summary",
	KindLevelUp:           "level-up",
	KindDialogue:          "dialogue",
	KindScriptedEvent:     "scripted-event",
	KindCheckpointDialog:  "checkpoint-dialog",
	KindOther:             "other",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Menu type names reported by the game bridge.
const (
	MenuShipping   = "ShippingMenu"
	MenuLevelUp    = "LevelUpMenu"
	MenuDialogue   = "DialogueBox"
	MenuReadyCheck = "ReadyCheckDialog"
)

// Point is a UI-space pixel coordinate.
type Point struct {
	X int
	Y int
}

// Layout holds the fallback click coordinates used when a menu exposes no
// programmatic control. Defaults match a 1280x720 UI viewport.
type Layout struct {
	LevelUpConfirm  Point
	DialogueDismiss Point
	ReadyCheckOK    Point
}

// DefaultLayout returns the stock fallback coordinates.
func DefaultLayout() Layout {
	return Layout{
		LevelUpConfirm:  Point{X: 984, Y: 592},
		DialogueDismiss: Point{X: 640, Y: 620},
		ReadyCheckOK:    Point{X: 704, Y: 392},
	}
}

// Options configures a Suppressor.
type Options struct {
	Layout Layout
	// AllowReady gates direct readiness marking for a checkpoint dialog. When
	// nil every checkpoint is allowed.
	AllowReady func(checkpoint string) bool
	// TraceMenus logs every non-empty classification.
	TraceMenus bool
	Logf       func(format string, args ...any)
}

// Suppressor observes the host UI and dismisses blocking states. Failures are
// logged and reported as false; they never propagate.
type Suppressor struct {
	ui      host.UI
	actor   host.Actor
	layout  Layout
	allow   func(string) bool
	trace   bool
	logf    func(string, ...any)
	lastLog string
}

// New builds a Suppressor over the given UI and host actor.
func New(ui host.UI, actor host.Actor, opts Options) *Suppressor {
	s := &Suppressor{
		ui:     ui,
		actor:  actor,
		layout: opts.Layout,
		allow:  opts.AllowReady,
		trace:  opts.TraceMenus,
		logf:   opts.Logf,
	}
	if s.layout == (Layout{}) {
		s.layout = DefaultLayout()
	}
	if s.logf == nil {
		s.logf = log.Printf
	}
	return s
}

// SetTraceMenus toggles menu tracing after a configuration reload.
func (s *Suppressor) SetTraceMenus(on bool) {
	s.trace = on
}

// Classify maps a menu to its kind.
func Classify(menu host.Menu) Kind {
	if menu.Event != "" {
		return KindScriptedEvent
	}
	switch menu.Type {
	case "":
		return KindNone
	case MenuShipping:
		return KindSettlementSummary
	case MenuLevelUp:
		return KindLevelUp
	case MenuDialogue:
		return KindDialogue
	case MenuReadyCheck:
		return KindCheckpointDialog
	default:
		return KindOther
	}
}

// Blocking classifies the current UI without acting on it.
func (s *Suppressor) Blocking() Kind {
	if s == nil || s.ui == nil {
		return KindNone
	}
	menu := s.ui.CurrentMenu()
	kind := Classify(menu)
	if s.trace && kind != KindNone {
		line := menu.Type + "|" + menu.Event
		if line != s.lastLog {
			s.logf("interference: menu %q event %q classified %s", menu.Type, menu.Event, kind)
			s.lastLog = line
		}
	} else if kind == KindNone {
		s.lastLog = ""
	}
	return kind
}

// Sweep classifies the current UI and tries to dismiss it. It returns the
// observed kind and whether the UI is clear afterwards.
func (s *Suppressor) Sweep() (Kind, bool) {
	kind := s.Blocking()
	if kind == KindNone {
		return kind, true
	}
	return kind, s.Dismiss(kind)
}

// Dismiss applies the policy for kind to the current UI. With nothing blocking
// it is a no-op that reports true. If the UI changed to a different kind since
// classification it reports false and does nothing.
func (s *Suppressor) Dismiss(kind Kind) (ok bool) {
	if s == nil || s.ui == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			s.logf("interference: dismiss %s panicked: %v", kind, r)
			ok = false
		}
	}()

	menu := s.ui.CurrentMenu()
	current := Classify(menu)
	if current == KindNone {
		return true
	}
	if current != kind {
		return false
	}

	switch kind {
	case KindSettlementSummary:
		return s.invoke(kind, host.MenuActionConfirm)
	case KindLevelUp:
		err := s.ui.InvokeMenuAction(host.MenuActionConfirm)
		if err == nil {
			return true
		}
		s.logf("interference: level-up confirm unavailable, clicking fallback: %v", err)
		return s.click(kind, s.layout.LevelUpConfirm)
	case KindDialogue:
		return s.click(kind, s.layout.DialogueDismiss)
	case KindScriptedEvent:
		if !menu.Skippable {
			return false
		}
		return s.invoke(kind, host.MenuActionSkip)
	case KindCheckpointDialog:
		return s.resolveCheckpoint(menu)
	default:
		return false
	}
}

func (s *Suppressor) resolveCheckpoint(menu host.Menu) bool {
	name := menu.Checkpoint
	if name == "" {
		name = host.CheckpointSleep
	}
	if s.allow != nil && !s.allow(name) {
		s.logf("interference: checkpoint %q dialog left open, not everyone is ready", name)
		return false
	}
	if s.actor != nil {
		if s.actor.HostReady(name) {
			return true
		}
		err := s.actor.SetHostReady(name, true)
		if err == nil {
			return true
		}
		s.logf("interference: mark host ready for %q failed, clicking fallback: %v", name, err)
	}
	return s.click(KindCheckpointDialog, s.layout.ReadyCheckOK)
}

func (s *Suppressor) invoke(kind Kind, action host.MenuAction) bool {
	if err := s.ui.InvokeMenuAction(action); err != nil {
		s.logf("interference: %s %s failed: %v", kind, action, err)
		return false
	}
	return true
}

func (s *Suppressor) click(kind Kind, p Point) bool {
	if err := s.ui.ClickAt(p.X, p.Y); err != nil {
		s.logf("interference: %s click at (%d, %d) failed: %v", kind, p.X, p.Y, err)
		return false
	}
	return true
}
