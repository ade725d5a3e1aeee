// Package relay implements the server side of the link cable: rooms,
// player sockets, and frame forwarding between paired emulators.
//
// The relay package implements:
//   - Manager, the room registry with player and socket indexes
//   - Hub, the WebSocket fan-out loop with per-socket send queues
//   - Frame handlers for the join, link-cable, status, and save protocol
//   - SaveStore implementations for per-player save states
//
// # Message Flow
//
// Players create or join a room over REST, then open a socket and send
// join_room with their player ID. From there the hub forwards
// link_cable_data frames to the paired player and answers save_state and
// ping frames directly. When a socket closes, the player is marked
// disconnected but keeps their roster slot so they can reconnect.
//
// # Usage
//
//	manager := relay.NewManager(logger)
//	hub := relay.NewHub(manager, nil, logger)
//	go hub.Run()
package relay
