// Package api provides the HTTP surface of the relay: the room
// directory REST endpoints and the WebSocket upgrade path.
//
// The api package implements:
//   - RESTful endpoints for creating, joining, and listing rooms
//   - WebSocket upgrade handling for relay sockets
//   - Permissive CORS so browser emulators on other origins can connect
//   - Static file serving
//
// Endpoints:
//
// Rooms:
//   - POST /api/rooms - Create a room, returns the join code and player ID
//   - POST /api/rooms/join - Join a room by code
//   - GET /api/rooms - List available rooms, newest first
//   - GET /api/rooms/{id} - Get one room
//   - DELETE /api/rooms/{id} - Remove a room
//
// Service:
//   - GET /api - API banner and version
//   - GET /api/health - Health plus room and player counts
//
// WebSocket:
//   - /ws/{socketID} - Upgrade to a relay socket; the client picks a
//     fresh socket ID and sends join_room as its first frame
//
// Request/Response Format:
//
// All endpoints accept and return JSON. Join failures such as a full or
// unknown room come back as HTTP 200 with success false and a reason:
//
//	{
//	  "success": false,
//	  "message": "Room is full"
//	}
//
// Transport-level failures use an error body with a matching status:
//
//	{
//	  "error": "Room not found"
//	}
//
// Usage:
//
//	server := api.NewServer(manager, hub, logger)
//	http.ListenAndServe(":8080", server)
package api
