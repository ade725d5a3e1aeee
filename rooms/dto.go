package rooms

// CreateRoomRequest is the body of POST /api/rooms.
type CreateRoomRequest struct {
	PlayerName string `json:"player_name"`
	ROMName    string `json:"rom_name,omitempty"`
}

// CreateRoomResponse carries the join code and player identity for a
// freshly created room. The full roster arrives later over the socket.
type CreateRoomResponse struct {
	Success  bool   `json:"success"`
	RoomID   string `json:"room_id,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
	Message  string `json:"message"`
}

// JoinRoomRequest is the body of POST /api/rooms/join.
type JoinRoomRequest struct {
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
	ROMName    string `json:"rom_name,omitempty"`
}

// JoinRoomResponse reports a join attempt. Failures such as a full or
// missing room come back with Success false and a reason in Message.
type JoinRoomResponse struct {
	Success  bool   `json:"success"`
	Room     *Room  `json:"room,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
	Message  string `json:"message"`
}

// RoomListResponse is the body of GET /api/rooms.
type RoomListResponse struct {
	Rooms []*Room `json:"rooms"`
	Total int     `json:"total"`
}

// RoomResponse is the body of GET /api/rooms/{id}.
type RoomResponse struct {
	Success bool  `json:"success"`
	Room    *Room `json:"room"`
}

// StatusResponse is the generic success/message body used by DELETE
// /api/rooms/{id}.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
