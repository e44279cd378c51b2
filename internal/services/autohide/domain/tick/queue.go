// Package tick schedules execute-once actions against the game update tick.
//
// The game delivers sixty update ticks per second. Actions scheduled on a
// Queue fire on the first Run whose tick is at or past their due tick, and
// never fire again.
package tick

import "sort"

// PerSecond is the number of game update ticks in one real second.
const PerSecond = 60

// Seconds converts whole seconds to ticks. Negative input yields zero.
func Seconds(seconds int) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(seconds) * PerSecond
}

// Handle identifies a scheduled action so it can be cancelled.
type Handle uint64

type entry struct {
	handle Handle
	name   string
	due    uint64
	fn     func()
}

// Queue holds delayed actions. It is not safe for concurrent use; the runtime
// loop owns it.
type Queue struct {
	next    Handle
	pending []entry
	// firing holds due actions of the current Run that have not fired yet.
	firing []entry
}

// Schedule registers fn to run once at tick due.
func (q *Queue) Schedule(due uint64, name string, fn func()) Handle {
	q.next++
	q.pending = append(q.pending, entry{handle: q.next, name: name, due: due, fn: fn})
	return q.next
}

// Cancel removes a pending action, including one that is due in the Run
// currently firing. It reports whether anything was removed.
func (q *Queue) Cancel(h Handle) bool {
	var ok bool
	if q.pending, ok = without(q.pending, h); ok {
		return true
	}
	q.firing, ok = without(q.firing, h)
	return ok
}

func without(entries []entry, h Handle) ([]entry, bool) {
	for i, e := range entries {
		if e.handle == h {
			return append(entries[:i], entries[i+1:]...), true
		}
	}
	return entries, false
}

// Pending reports whether an action is still waiting.
func (q *Queue) Pending(h Handle) bool {
	for _, e := range q.pending {
		if e.handle == h {
			return true
		}
	}
	for _, e := range q.firing {
		if e.handle == h {
			return true
		}
	}
	return false
}

// Len returns the number of waiting actions.
func (q *Queue) Len() int {
	return len(q.pending) + len(q.firing)
}

// Names lists waiting action names in due order, for status output.
func (q *Queue) Names() []string {
	sorted := append(append([]entry(nil), q.firing...), q.pending...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].due < sorted[j].due })
	names := make([]string, len(sorted))
	for i, e := range sorted {
		names[i] = e.name
	}
	return names
}

// Clear drops every pending action without running it.
func (q *Queue) Clear() {
	q.pending = nil
	q.firing = nil
}

// Run fires every action due at or before now, in due then scheduling order,
// and returns how many ran. Actions scheduled while running wait for a later
// Run even when already due. An action cancelled by an earlier action of the
// same Run does not fire.
func (q *Queue) Run(now uint64) int {
	if len(q.pending) == 0 {
		return 0
	}
	var due, keep []entry
	for _, e := range q.pending {
		if e.due <= now {
			due = append(due, e)
		} else {
			keep = append(keep, e)
		}
	}
	if len(due) == 0 {
		return 0
	}
	q.pending = keep
	sort.SliceStable(due, func(i, j int) bool { return due[i].due < due[j].due })
	q.firing = due
	ran := 0
	for len(q.firing) > 0 {
		e := q.firing[0]
		q.firing = q.firing[1:]
		e.fn()
		ran++
	}
	return ran
}
