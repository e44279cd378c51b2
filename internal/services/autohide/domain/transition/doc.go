// Package transition drives the host through a forced day transition once
// every active participant is ready to sleep.
//
// An attempt moves IDLE → AWAITING_PLACEMENT → PLACED → COMMITTED →
// ADVANCING and returns to IDLE when the next day starts. Any non-idle phase
// may move to ABORTED, which returns to IDLE on the following tick. At most
// one attempt exists at a time, and the host is marked ready only after a
// fresh snapshot confirms consensus.
package transition
