// Package guard implements the post-connect guard window during which the
// host must not be moved.
//
// A window is measured in game ticks read from a tick source, so it pauses
// with the game loop rather than wall time.
package guard

import (
	"time"

	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/tick"
)

// Window is armed on every participant connect. Re-arming extends the window
// to the later of the current and the new deadline.
type Window struct {
	now   func() uint64
	until uint64
	armed bool
}

// NewWindow returns a disarmed window reading ticks from now.
func NewWindow(now func() uint64) *Window {
	return &Window{now: now}
}

// Arm starts (or extends) the window for the given number of seconds.
// Zero or negative seconds leave the window untouched.
func (w *Window) Arm(seconds int) {
	if w == nil || seconds <= 0 {
		return
	}
	until := w.now() + tick.Seconds(seconds)
	if !w.armed || until > w.until {
		w.until = until
	}
	w.armed = true
}

// Active reports whether the window currently forbids host moves.
func (w *Window) Active() bool {
	if w == nil || !w.armed {
		return false
	}
	return w.now() < w.until
}

// Remaining returns the time left in the window, zero when inactive.
func (w *Window) Remaining() time.Duration {
	if !w.Active() {
		return 0
	}
	left := w.until - w.now()
	return time.Duration(left) * time.Second / tick.PerSecond
}

// Expired reports, exactly once, that an armed window has run out. The
// engine polls it every tick to trigger anti-regression.
func (w *Window) Expired() bool {
	if w == nil || !w.armed || w.Active() {
		return false
	}
	w.armed = false
	return true
}

// Reset disarms the window without reporting expiry.
func (w *Window) Reset() {
	if w == nil {
		return
	}
	w.armed = false
	w.until = 0
}
