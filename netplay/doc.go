// Package netplay is the client side of the link cable: it keeps a
// resilient socket to the relay, routes inbound frames, and reduces
// room and player events into one session state.
//
// The netplay package implements:
//   - Conn, the connection manager with heartbeat and linear-backoff
//     reconnects
//   - Router, type-keyed frame dispatch with per-handler isolation
//   - Store, a pure reducer over the session state
//   - Session, the orchestration layer running create, join, and leave
//
// # Connection Lifecycle
//
// Connect dials /ws/{socketID} under a fresh socket token and announces
// the player with join_room; the room's acknowledgment arrives later as
// a room_joined frame. An unexpected close is retried up to five times
// with growing delays; a deliberate Disconnect, or a normal closure
// from the relay, is final. The heartbeat is started explicitly and
// keeps pinging across reconnects until stopped.
//
// # State
//
// The store is the single writer of session state. Components dispatch
// actions; the reducer keeps the derived facts straight, such as the
// link cable being connected exactly when two players are present.
//
// # Usage
//
//	session := netplay.NewSession(serverURL, emulator, nil, logger)
//	if err := session.CreateRoom(ctx, "Ash", "pokemon_red.gb"); err != nil {
//		return err
//	}
//	defer session.LeaveRoom()
//
//	session.SendLinkCable(protocol.ActionTradeRequest, payload)
package netplay
