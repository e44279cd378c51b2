package interference

import (
	"fmt"
	"strings"
	"testing"

	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"
	"github.com/louisbranch/autohidehost/internal/services/autohide/gametest"
)

type logSink struct{ lines []string }

func (l *logSink) logf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *logSink) contains(sub string) bool {
	for _, line := range l.lines {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}

func newSuppressor(world *gametest.World, opts Options) (*Suppressor, *logSink) {
	sink := &logSink{}
	if opts.Logf == nil {
		opts.Logf = sink.logf
	}
	return New(world, world, opts), sink
}

func TestClassify(t *testing.T) {
	cases := []struct {
		menu host.Menu
		want Kind
	}{
		{host.Menu{}, KindNone},
		{host.Menu{Type: MenuShipping}, KindSettlementSummary},
		{host.Menu{Type: MenuLevelUp}, KindLevelUp},
		{host.Menu{Type: MenuDialogue}, KindDialogue},
		{host.Menu{Type: MenuReadyCheck}, KindCheckpointDialog},
		{host.Menu{Event: "festival", Skippable: true}, KindScriptedEvent},
		{host.Menu{Type: "GameMenu"}, KindOther},
	}
	for _, tc := range cases {
		if got := Classify(tc.menu); got != tc.want {
			t.Fatalf("Classify(%+v) = %s, want %s", tc.menu, got, tc.want)
		}
	}
}

func TestDismissNothingIsNoop(t *testing.T) {
	world := gametest.NewWorld()
	s, _ := newSuppressor(world, Options{})
	if !s.Dismiss(KindNone) {
		t.Fatal("dismiss with nothing blocking should report true")
	}
	if kind, clear := s.Sweep(); kind != KindNone || !clear {
		t.Fatalf("Sweep = %s/%t, want none/true", kind, clear)
	}
	if calls := world.Calls(); len(calls) != 0 {
		t.Fatalf("expected no calls, got %v", calls)
	}
}

func TestDismissSettlementSummaryConfirms(t *testing.T) {
	world := gametest.NewWorld()
	world.ShowMenu(host.Menu{Type: MenuShipping})
	s, _ := newSuppressor(world, Options{})

	if kind, clear := s.Sweep(); kind != KindSettlementSummary || !clear {
		t.Fatalf("Sweep = %s/%t", kind, clear)
	}
	if world.CallCount("InvokeMenuAction") != 1 || world.CallCount("ClickAt") != 0 {
		t.Fatalf("calls = %v", world.Calls())
	}
	if s.Blocking() != KindNone {
		t.Fatal("menu should be gone")
	}
}

func TestDismissLevelUpFallsBackToClick(t *testing.T) {
	world := gametest.NewWorld()
	world.ShowMenu(host.Menu{Type: MenuLevelUp})
	world.RejectConfirm[MenuLevelUp] = true
	s, sink := newSuppressor(world, Options{})

	if !s.Dismiss(KindLevelUp) {
		t.Fatal("expected fallback click to dismiss")
	}
	calls := world.Calls()
	last := calls[len(calls)-1]
	want := fmt.Sprintf("%d,%d", DefaultLayout().LevelUpConfirm.X, DefaultLayout().LevelUpConfirm.Y)
	if last.Method != "ClickAt" || last.Args != want {
		t.Fatalf("last call = %+v, want ClickAt %s", last, want)
	}
	if !sink.contains("fallback") {
		t.Fatalf("expected fallback log, got %v", sink.lines)
	}
}

func TestDismissDialogueClicks(t *testing.T) {
	world := gametest.NewWorld()
	world.ShowMenu(host.Menu{Type: MenuDialogue})
	layout := Layout{DialogueDismiss: Point{X: 1, Y: 2}}
	s, _ := newSuppressor(world, Options{Layout: layout})

	if !s.Dismiss(KindDialogue) {
		t.Fatal("expected dialogue dismissal")
	}
	if calls := world.Calls(); len(calls) != 1 || calls[0].Args != "1,2" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestDismissScriptedEvent(t *testing.T) {
	world := gametest.NewWorld()
	world.ShowMenu(host.Menu{Event: "cutscene"})
	s, _ := newSuppressor(world, Options{})
	if s.Dismiss(KindScriptedEvent) {
		t.Fatal("non-skippable event must not report dismissed")
	}
	if len(world.Calls()) != 0 {
		t.Fatalf("calls = %v", world.Calls())
	}

	world.ShowMenu(host.Menu{Event: "cutscene", Skippable: true})
	if !s.Dismiss(KindScriptedEvent) {
		t.Fatal("skippable event should be skipped")
	}
	if calls := world.Calls(); len(calls) != 1 || calls[0].Args != ":skip" {
		t.Fatalf("calls = %v", world.Calls())
	}
}

func TestDismissCheckpointDialogMarksReady(t *testing.T) {
	world := gametest.NewWorld()
	world.ShowMenu(host.Menu{Type: MenuReadyCheck})
	s, _ := newSuppressor(world, Options{})

	if !s.Dismiss(KindCheckpointDialog) {
		t.Fatal("expected checkpoint dialog resolution")
	}
	if !world.HostReady(host.CheckpointSleep) {
		t.Fatal("host should be ready for the default checkpoint")
	}
	if world.CallCount("ClickAt") != 0 {
		t.Fatal("direct marking must not click")
	}
}

func TestDismissCheckpointDialogNamedCheckpoint(t *testing.T) {
	world := gametest.NewWorld()
	world.ShowMenu(host.Menu{Type: MenuReadyCheck, Checkpoint: "festivalEnd"})
	s, _ := newSuppressor(world, Options{})
	s.Dismiss(KindCheckpointDialog)
	if !world.HostReady("festivalEnd") || world.HostReady(host.CheckpointSleep) {
		t.Fatal("expected only the named checkpoint to be marked")
	}
}

func TestDismissCheckpointDialogFallsBackToClick(t *testing.T) {
	world := gametest.NewWorld()
	world.ShowMenu(host.Menu{Type: MenuReadyCheck})
	world.FailAlways("SetHostReady", nil)
	s, _ := newSuppressor(world, Options{})

	if !s.Dismiss(KindCheckpointDialog) {
		t.Fatal("expected click fallback to succeed")
	}
	if world.CallCount("ClickAt") != 1 {
		t.Fatalf("calls = %v", world.Calls())
	}
}

func TestDismissCheckpointDialogRespectsGate(t *testing.T) {
	world := gametest.NewWorld()
	world.ShowMenu(host.Menu{Type: MenuReadyCheck})
	s, _ := newSuppressor(world, Options{AllowReady: func(string) bool { return false }})

	if s.Dismiss(KindCheckpointDialog) {
		t.Fatal("gate should keep the dialog open")
	}
	if world.HostReady(host.CheckpointSleep) || len(world.Calls()) != 0 {
		t.Fatalf("gate leaked a mutation: %v", world.Calls())
	}
}

func TestDismissOtherNeverActs(t *testing.T) {
	world := gametest.NewWorld()
	world.ShowMenu(host.Menu{Type: "GameMenu"})
	s, _ := newSuppressor(world, Options{})
	if kind, clear := s.Sweep(); kind != KindOther || clear {
		t.Fatalf("Sweep = %s/%t, want other/false", kind, clear)
	}
	if len(world.Calls()) != 0 {
		t.Fatalf("calls = %v", world.Calls())
	}
}

func TestDismissStaleKind(t *testing.T) {
	world := gametest.NewWorld()
	world.ShowMenu(host.Menu{Type: MenuDialogue})
	s, _ := newSuppressor(world, Options{})
	if s.Dismiss(KindLevelUp) {
		t.Fatal("stale kind should not be dismissed")
	}
}

func TestDismissFailureIsLoggedNotPropagated(t *testing.T) {
	world := gametest.NewWorld()
	world.ShowMenu(host.Menu{Type: MenuShipping})
	world.FailAlways("InvokeMenuAction", nil)
	s, sink := newSuppressor(world, Options{})
	if s.Dismiss(KindSettlementSummary) {
		t.Fatal("failed confirm should report false")
	}
	if !sink.contains("failed") {
		t.Fatalf("expected failure log, got %v", sink.lines)
	}
}

type panickyUI struct{ *gametest.World }

func (panickyUI) InvokeMenuAction(host.MenuAction) error { panic("boom") }

func TestDismissRecoversPanics(t *testing.T) {
	world := gametest.NewWorld()
	world.ShowMenu(host.Menu{Type: MenuShipping})
	sink := &logSink{}
	s := New(panickyUI{world}, world, Options{Logf: sink.logf})
	if s.Dismiss(KindSettlementSummary) {
		t.Fatal("panicking dismiss should report false")
	}
	if !sink.contains("panicked") {
		t.Fatalf("expected panic log, got %v", sink.lines)
	}
}

func TestTraceMenusLogsOncePerMenu(t *testing.T) {
	world := gametest.NewWorld()
	world.ShowMenu(host.Menu{Type: "GameMenu"})
	s, sink := newSuppressor(world, Options{TraceMenus: true})
	s.Blocking()
	s.Blocking()
	if len(sink.lines) != 1 {
		t.Fatalf("trace lines = %v, want one", sink.lines)
	}
}
