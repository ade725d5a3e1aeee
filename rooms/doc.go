// Package rooms holds the room and player model shared by the relay
// server and its clients, plus a REST client for the room directory.
//
// The rooms package implements:
//   - Room and Player types with their wire (JSON) shapes
//   - Join-code generation and host reassignment rules
//   - Request and response bodies for the /api/rooms endpoints
//   - Client, an HTTP client for creating, joining, and listing rooms
//
// # Room Lifecycle
//
// A room is created with a six-character join code and a single hosting
// player. A second player joining completes the link cable pairing. When
// the host leaves, the remaining player inherits the host role; when the
// last player leaves, the room is removed.
//
// # Usage
//
//	client := rooms.NewClient("http://localhost:8080", logger)
//	created, err := client.CreateRoom(ctx, "Ash", "pokemon_red.gb")
package rooms
