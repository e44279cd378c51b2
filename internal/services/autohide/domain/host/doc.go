// Package host models the host actor, the connected participants, and the
// game-side collaborator ports the presence core drives.
//
// The ports expose one read or write method per field so the core never
// reaches into engine internals; adapters (the websocket bridge, the
// in-memory test world) decide how each call lands in the game.
package host
