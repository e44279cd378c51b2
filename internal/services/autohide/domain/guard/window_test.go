package guard

import (
	"testing"
	"time"
)

type clock struct{ ticks uint64 }

func (c *clock) now() uint64 { return c.ticks }

func TestWindowArmAndExpire(t *testing.T) {
	c := &clock{ticks: 100}
	w := NewWindow(c.now)

	if w.Active() {
		t.Fatal("fresh window should be inactive")
	}
	w.Arm(30)
	if !w.Active() {
		t.Fatal("armed window should be active")
	}
	if got := w.Remaining(); got != 30*time.Second {
		t.Fatalf("Remaining = %v, want 30s", got)
	}

	c.ticks += 1799
	if !w.Active() {
		t.Fatal("window should still be active one tick before deadline")
	}
	if w.Expired() {
		t.Fatal("Expired while active")
	}

	c.ticks++
	if w.Active() {
		t.Fatal("window should be inactive at deadline")
	}
	if w.Remaining() != 0 {
		t.Fatalf("Remaining = %v, want 0", w.Remaining())
	}
	if !w.Expired() {
		t.Fatal("expected expiry to be reported")
	}
	if w.Expired() {
		t.Fatal("expiry must be reported once")
	}
}

func TestWindowRearmExtendsOnly(t *testing.T) {
	c := &clock{}
	w := NewWindow(c.now)
	w.Arm(30)
	c.ticks = 600
	w.Arm(5)
	if got := w.Remaining(); got != 20*time.Second {
		t.Fatalf("Remaining = %v, want 20s (shorter re-arm must not shrink)", got)
	}
	w.Arm(30)
	if got := w.Remaining(); got != 30*time.Second {
		t.Fatalf("Remaining = %v, want 30s", got)
	}
}

func TestWindowIgnoresNonPositiveSeconds(t *testing.T) {
	c := &clock{}
	w := NewWindow(c.now)
	w.Arm(0)
	if w.Active() {
		t.Fatal("zero-second arm should not activate")
	}
}

func TestWindowReset(t *testing.T) {
	c := &clock{}
	w := NewWindow(c.now)
	w.Arm(10)
	w.Reset()
	if w.Active() || w.Expired() {
		t.Fatal("reset window should be inactive without expiry")
	}
}

func TestNilWindow(t *testing.T) {
	var w *Window
	w.Arm(5)
	if w.Active() || w.Expired() {
		t.Fatal("nil window should be inert")
	}
}
