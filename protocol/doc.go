// Package protocol defines the wire format spoken over the relay socket.
//
// Every frame in either direction is a Message envelope: a type tag, a
// free-form data object, and an RFC 3339 timestamp. The package implements:
//   - Message envelope with JSON encoding and decoding
//   - Type constants for every client and server frame
//   - Action constants for link-cable and save-state payloads
//
// # Frame Types
//
// Clients send join_room, leave_room, link_cable_data, player_status,
// save_state, and ping. The server answers with room_joined, pong, and
// save_state_response, and pushes player_joined, player_left,
// player_disconnected, player_status_updated, link_cable_data, and error.
//
// # Usage
//
//	msg := protocol.New(protocol.TypeJoinRoom, map[string]interface{}{
//		"player_id": playerID,
//	})
//	raw, _ := msg.Encode()
package protocol
