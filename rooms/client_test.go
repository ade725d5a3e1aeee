package rooms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/rooms":
			var req CreateRoomRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(CreateRoomResponse{
				Success:  true,
				RoomID:   "AB12CD",
				PlayerID: "player-1",
				Message:  "Room created successfully",
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/rooms/join":
			var req JoinRoomRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if req.RoomID == "FULL00" {
				json.NewEncoder(w).Encode(JoinRoomResponse{
					Success: false,
					Message: "Room is full",
				})
				return
			}
			room := NewRoom()
			room.ID = req.RoomID
			room.AddPlayer(NewPlayer("Ash", ""))
			guest := NewPlayer(req.PlayerName, req.ROMName)
			room.AddPlayer(guest)
			json.NewEncoder(w).Encode(JoinRoomResponse{
				Success:  true,
				Room:     room,
				PlayerID: guest.ID,
				Message:  "Joined room successfully",
			})
		case r.Method == http.MethodGet && r.URL.Path == "/api/rooms":
			json.NewEncoder(w).Encode(RoomListResponse{
				Rooms: []*Room{NewRoom(), NewRoom()},
				Total: 2,
			})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/rooms/"):
			id := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
			if id == "GONE00" {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{"error": "Room not found"})
				return
			}
			room := NewRoom()
			room.ID = id
			json.NewEncoder(w).Encode(RoomResponse{Success: true, Room: room})
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/rooms/"):
			json.NewEncoder(w).Encode(StatusResponse{Success: true, Message: "Room deleted successfully"})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "unknown endpoint"})
		}
	}))
}

func TestClientCreateRoom(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(server.URL, nil)
	resp, err := client.CreateRoom(context.Background(), "Ash", "pokemon_red.gb")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if resp.RoomID != "AB12CD" {
		t.Fatalf("Expected room ID AB12CD, got %q", resp.RoomID)
	}
	if resp.PlayerID != "player-1" {
		t.Fatalf("Expected player ID player-1, got %q", resp.PlayerID)
	}
}

func TestClientJoinRoom(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(server.URL, nil)
	resp, err := client.JoinRoom(context.Background(), "AB12CD", "Misty", "")
	if err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if resp.Room == nil {
		t.Fatal("Expected room in join response")
	}
	if len(resp.Room.Players) != 2 {
		t.Fatalf("Expected 2 players, got %d", len(resp.Room.Players))
	}
	if !resp.Room.LinkCableConnected {
		t.Fatal("Expected link cable connected after second join")
	}
}

func TestClientJoinRoomFull(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(server.URL, nil)
	_, err := client.JoinRoom(context.Background(), "FULL00", "Brock", "")
	if err == nil {
		t.Fatal("Expected error when joining a full room")
	}
	if !strings.Contains(err.Error(), "Room is full") {
		t.Fatalf("Expected server reason in error, got %v", err)
	}
}

func TestClientListRooms(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(server.URL, nil)
	resp, err := client.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("Expected total 2, got %d", resp.Total)
	}
	if len(resp.Rooms) != 2 {
		t.Fatalf("Expected 2 rooms, got %d", len(resp.Rooms))
	}
}

func TestClientGetRoomNotFound(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(server.URL, nil)
	_, err := client.GetRoom(context.Background(), "GONE00")
	if err == nil {
		t.Fatal("Expected error for missing room")
	}
	if !strings.Contains(err.Error(), "Room not found") {
		t.Fatalf("Expected server reason in error, got %v", err)
	}
}

func TestClientDeleteRoom(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(server.URL, nil)
	if err := client.DeleteRoom(context.Background(), "AB12CD"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
}
