package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/darius0048/pokelink/relay"
	"github.com/darius0048/pokelink/rooms"
)

// Server represents the REST API server
type Server struct {
	manager *relay.Manager
	hub     *relay.Hub
	log     *zap.Logger
	router  *mux.Router
}

// NewServer creates a new API server over the room manager and relay
// hub. A nil logger disables logging.
func NewServer(manager *relay.Manager, hub *relay.Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		manager: manager,
		hub:     hub,
		log:     log,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// API routes with clean REST patterns
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("", s.handleInfo).Methods("GET")
	api.HandleFunc("/", s.handleInfo).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Room management
	api.HandleFunc("/rooms", s.handleCreateRoom).Methods("POST")
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	// Join by code (must be before {id} pattern)
	api.HandleFunc("/rooms/join", s.handleJoinRoom).Methods("POST")
	api.HandleFunc("/rooms/{id}", s.handleGetRoom).Methods("GET")
	api.HandleFunc("/rooms/{id}", s.handleDeleteRoom).Methods("DELETE")

	// WebSocket
	s.router.HandleFunc("/ws/{socketID}", s.handleWebSocket)

	// Static files (if needed)
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir("./static/")))
}

// ServeHTTP implements http.Handler. Browser emulators run on other
// origins, so every response carries permissive CORS headers.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Info and Health Handlers

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Pokemon Multiplayer Emulator API",
		"version": "1.0.0",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"rooms":   s.manager.Count(),
		"players": s.manager.PlayerCount(),
	})
}

// Room Handlers

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req rooms.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlayerName == "" {
		respondError(w, http.StatusBadRequest, "Player name is required")
		return
	}

	room, host, err := s.manager.CreateRoom(req.PlayerName, req.ROMName)
	if err != nil {
		s.log.Error("failed to create room", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to create room")
		return
	}

	respondJSON(w, http.StatusOK, rooms.CreateRoomResponse{
		Success:  true,
		RoomID:   room.ID,
		PlayerID: host.ID,
		Message:  fmt.Sprintf("Room %s created successfully", room.ID),
	})
}

// handleJoinRoom reports join failures inside a 200 response: a missing
// or full room is part of the contract, not a transport error.
func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req rooms.JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RoomID == "" || req.PlayerName == "" {
		respondError(w, http.StatusBadRequest, "Room ID and player name are required")
		return
	}

	room, player, err := s.manager.JoinRoom(req.RoomID, req.PlayerName, req.ROMName)
	if err != nil {
		respondJSON(w, http.StatusOK, rooms.JoinRoomResponse{
			Success: false,
			Message: joinFailureMessage(err),
		})
		return
	}

	respondJSON(w, http.StatusOK, rooms.JoinRoomResponse{
		Success:  true,
		Room:     room,
		PlayerID: player.ID,
		Message:  "Successfully joined room",
	})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	available := s.manager.ListAvailable(10)
	respondJSON(w, http.StatusOK, rooms.RoomListResponse{
		Rooms: available,
		Total: len(available),
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	room, err := s.manager.GetRoom(vars["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, "Room not found")
		return
	}

	respondJSON(w, http.StatusOK, rooms.RoomResponse{
		Success: true,
		Room:    room,
	})
}

// handleDeleteRoom is idempotent: deleting a missing room succeeds.
func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	s.manager.RemoveRoom(vars["id"])
	respondJSON(w, http.StatusOK, rooms.StatusResponse{
		Success: true,
		Message: "Room deleted successfully",
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	socketID := vars["socketID"]
	if socketID == "" {
		http.Error(w, "socket ID required", http.StatusBadRequest)
		return
	}

	s.hub.ServeWS(w, r, socketID)
}

func joinFailureMessage(err error) string {
	switch {
	case errors.Is(err, relay.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, relay.ErrRoomInactive):
		return "Room is no longer active"
	case errors.Is(err, relay.ErrRoomFull):
		return "Room is full"
	}
	return err.Error()
}
