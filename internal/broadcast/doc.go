// Package broadcast pushes the rendered viewer state to connected pages over WebSocket.
//
// The Hub is an actor: one goroutine owns the client set and fans each published snapshot out to
// per-connection writer goroutines. Publish never blocks; snapshots published faster than the hub
// drains them are coalesced so clients always converge on the latest state.
package broadcast
