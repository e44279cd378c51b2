// Package timeouts defines shared timeout constants used across the process.
package timeouts

import "time"

// BridgeDial caps the wait time when dialing the game bridge websocket.
const BridgeDial = 5 * time.Second

// BridgeWrite caps a single action frame write to the game bridge.
const BridgeWrite = 2 * time.Second

// CommandReply caps how long an operator command waits for the tick loop to
// pick it up and answer.
const CommandReply = 5 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second
