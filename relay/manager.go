package relay

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/darius0048/pokelink/rooms"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomInactive   = errors.New("room is no longer active")
	ErrRoomFull       = errors.New("room is full")
	ErrPlayerNotFound = errors.New("player not found")
)

// Manager handles room lifecycle and the player and socket indexes.
// Every method returns snapshots, never the live room, so callers can
// marshal results without holding the manager's lock.
type Manager struct {
	rooms          map[string]*rooms.Room
	playerToRoom   map[string]string
	socketToPlayer map[string]string
	log            *zap.Logger
	mu             sync.RWMutex
}

// NewManager creates a new room manager. A nil logger disables logging.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		rooms:          make(map[string]*rooms.Room),
		playerToRoom:   make(map[string]string),
		socketToPlayer: make(map[string]string),
		log:            log,
	}
}

// CreateRoom opens a room hosted by a new player named playerName.
func (m *Manager) CreateRoom(playerName, romName string) (*rooms.Room, *rooms.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := rooms.NewRoom()
	for m.roomExists(room.ID) {
		room.ID = rooms.NewRoomCode()
	}

	host := rooms.NewPlayer(playerName, romName)
	room.AddPlayer(host)

	m.rooms[room.ID] = room
	m.playerToRoom[host.ID] = room.ID

	m.log.Info("room created",
		zap.String("room_id", room.ID),
		zap.String("host", playerName))

	snapshot := room.Clone()
	return snapshot, snapshot.Player(host.ID), nil
}

// JoinRoom adds a new player to an existing room. The join code is
// case-insensitive.
func (m *Manager) JoinRoom(roomID, playerName, romName string) (*rooms.Room, *rooms.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[strings.ToUpper(roomID)]
	if !ok {
		return nil, nil, ErrRoomNotFound
	}
	if !room.IsActive {
		return nil, nil, ErrRoomInactive
	}
	if room.IsFull() {
		return nil, nil, ErrRoomFull
	}

	player := rooms.NewPlayer(playerName, romName)
	room.AddPlayer(player)
	m.playerToRoom[player.ID] = room.ID

	m.log.Info("player joined room",
		zap.String("room_id", room.ID),
		zap.String("player", playerName))

	snapshot := room.Clone()
	return snapshot, snapshot.Player(player.ID), nil
}

// LeaveRoom removes a player from the roster. The last player leaving
// takes the room with them; the returned room is nil in that case.
func (m *Manager) LeaveRoom(playerID string) (*rooms.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaveRoom(playerID)
}

func (m *Manager) leaveRoom(playerID string) (*rooms.Room, error) {
	roomID, ok := m.playerToRoom[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	room := m.rooms[roomID]

	if p := room.Player(playerID); p != nil && p.SocketID != "" {
		delete(m.socketToPlayer, p.SocketID)
	}
	room.RemovePlayer(playerID)
	delete(m.playerToRoom, playerID)

	if len(room.Players) == 0 {
		delete(m.rooms, roomID)
		m.log.Info("room removed, last player left", zap.String("room_id", roomID))
		return nil, nil
	}
	return room.Clone(), nil
}

// GetRoom looks up a room by its join code, case-insensitively.
func (m *Manager) GetRoom(roomID string) (*rooms.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[strings.ToUpper(roomID)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.Clone(), nil
}

// ListAvailable returns active rooms with an open slot, newest first,
// capped at limit when limit is positive.
func (m *Manager) ListAvailable(limit int) []*rooms.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	available := make([]*rooms.Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		if room.IsActive && !room.IsFull() {
			available = append(available, room.Clone())
		}
	}
	sort.Slice(available, func(i, j int) bool {
		return available[i].CreatedAt.After(available[j].CreatedAt)
	})
	if limit > 0 && len(available) > limit {
		available = available[:limit]
	}
	return available
}

// RemoveRoom deletes a room and clears the indexes for every member.
// Removing an unknown room is a no-op; the return value reports whether
// the room existed.
func (m *Manager) RemoveRoom(roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeRoom(strings.ToUpper(roomID))
}

func (m *Manager) removeRoom(roomID string) bool {
	room, ok := m.rooms[roomID]
	if !ok {
		return false
	}
	for _, p := range room.Players {
		delete(m.playerToRoom, p.ID)
		if p.SocketID != "" {
			delete(m.socketToPlayer, p.SocketID)
		}
	}
	delete(m.rooms, roomID)
	m.log.Info("room removed", zap.String("room_id", roomID))
	return true
}

// ConnectSocket binds a relay socket to a player created through the
// REST API and marks the player connected.
func (m *Manager) ConnectSocket(playerID, socketID string) (*rooms.Room, *rooms.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.playerToRoom[playerID]
	if !ok {
		return nil, nil, ErrPlayerNotFound
	}
	room := m.rooms[roomID]
	player := room.Player(playerID)
	if player == nil {
		return nil, nil, ErrPlayerNotFound
	}

	player.SocketID = socketID
	player.Status = rooms.StatusConnected
	m.socketToPlayer[socketID] = playerID
	room.Touch()

	snapshot := room.Clone()
	return snapshot, snapshot.Player(playerID), nil
}

// DisconnectSocket unbinds a closed socket. The player stays in the
// roster with a disconnected status so they can reconnect later.
func (m *Manager) DisconnectSocket(socketID string) (*rooms.Room, *rooms.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	playerID, ok := m.socketToPlayer[socketID]
	if !ok {
		return nil, nil, ErrPlayerNotFound
	}
	delete(m.socketToPlayer, socketID)

	roomID := m.playerToRoom[playerID]
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, nil, ErrRoomNotFound
	}
	player := room.Player(playerID)
	if player == nil {
		return nil, nil, ErrPlayerNotFound
	}

	player.SocketID = ""
	player.Status = rooms.StatusDisconnected
	room.Touch()

	snapshot := room.Clone()
	return snapshot, snapshot.Player(playerID), nil
}

// PlayerBySocket resolves a bound socket to its player and room.
func (m *Manager) PlayerBySocket(socketID string) (*rooms.Room, *rooms.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	playerID, ok := m.socketToPlayer[socketID]
	if !ok {
		return nil, nil, ErrPlayerNotFound
	}
	room, ok := m.rooms[m.playerToRoom[playerID]]
	if !ok {
		return nil, nil, ErrRoomNotFound
	}
	snapshot := room.Clone()
	return snapshot, snapshot.Player(playerID), nil
}

// UpdateStatus sets a player's status and refreshes the room's activity
// clock.
func (m *Manager) UpdateStatus(playerID string, status rooms.PlayerStatus) (*rooms.Room, *rooms.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.playerToRoom[playerID]
	if !ok {
		return nil, nil, ErrPlayerNotFound
	}
	room := m.rooms[roomID]
	player := room.Player(playerID)
	if player == nil {
		return nil, nil, ErrPlayerNotFound
	}

	player.Status = status
	room.Touch()

	snapshot := room.Clone()
	return snapshot, snapshot.Player(playerID), nil
}

// CleanupInactive removes rooms idle for longer than maxAge, along with
// rooms flagged inactive. Returns how many rooms were removed.
func (m *Manager) CleanupInactive(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0

	for id, room := range m.rooms {
		if room.LastActivity.Before(cutoff) || !room.IsActive {
			m.removeRoom(id)
			removed++
		}
	}
	if removed > 0 {
		m.log.Info("cleaned up inactive rooms", zap.Int("removed", removed))
	}
	return removed
}

// Count returns the number of rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// PlayerCount returns the number of players across all rooms.
func (m *Manager) PlayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.playerToRoom)
}

func (m *Manager) roomExists(id string) bool {
	_, exists := m.rooms[id]
	return exists
}
