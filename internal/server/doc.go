// Package server implements the real-time presence and message-relay core.
//
// Every open WebSocket connection is a Client driven by a read pump and a write
// pump. The Hub owns the Registry of online users and applies every lifecycle
// transition on a single goroutine; the Broadcaster pushes presence snapshots
// after each registry change, and the Relay forwards point-to-point messages to
// the receiver's live connection. Server ties the hub to the HTTP surface.
package server
