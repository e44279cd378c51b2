package host

import "testing"

func TestTilePixels(t *testing.T) {
	got := Tile{X: 9, Y: 9}.Pixels()
	if got.X != 576 || got.Y != 576 {
		t.Fatalf("pixels = %+v, want {576 576}", got)
	}
}

func TestPlacementString(t *testing.T) {
	p := Placement{Location: "FarmHouse", Tile: Tile{X: 21, Y: 4}}
	if p.String() != "FarmHouse (21, 4)" {
		t.Fatalf("string = %q", p.String())
	}
	if p.IsZero() {
		t.Fatal("expected non-zero placement")
	}
	if !(Placement{}).IsZero() {
		t.Fatal("expected zero placement")
	}
}

func TestMenuIsZero(t *testing.T) {
	if !(Menu{}).IsZero() {
		t.Fatal("empty menu should be zero")
	}
	if (Menu{Event: "festival"}).IsZero() {
		t.Fatal("running event should not be zero")
	}
}
