package rooms

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxPlayers is the room capacity. A link cable connects exactly
// two Game Boys, so rooms pair two players.
const DefaultMaxPlayers = 2

// PlayerStatus tracks where a player is in the connect-to-play lifecycle.
type PlayerStatus string

const (
	StatusConnecting   PlayerStatus = "connecting"
	StatusConnected    PlayerStatus = "connected"
	StatusReady        PlayerStatus = "ready"
	StatusPlaying      PlayerStatus = "playing"
	StatusDisconnected PlayerStatus = "disconnected"
)

// ValidStatus reports whether s names a defined player status.
func ValidStatus(s string) bool {
	switch PlayerStatus(s) {
	case StatusConnecting, StatusConnected, StatusReady, StatusPlaying, StatusDisconnected:
		return true
	}
	return false
}

// Player is one emulator session inside a room.
type Player struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	IsHost    bool         `json:"is_host"`
	Status    PlayerStatus `json:"status"`
	SocketID  string       `json:"socket_id,omitempty"`
	ROMLoaded bool         `json:"rom_loaded"`
	ROMName   string       `json:"rom_name,omitempty"`
	JoinedAt  time.Time    `json:"joined_at"`
}

// NewPlayer builds a player with a fresh ID. A player arriving with a ROM
// already loaded starts ready; everyone else starts connecting.
func NewPlayer(name, romName string) *Player {
	p := &Player{
		ID:       uuid.NewString(),
		Name:     name,
		Status:   StatusConnecting,
		JoinedAt: time.Now().UTC(),
	}
	if romName != "" {
		p.ROMName = romName
		p.ROMLoaded = true
		p.Status = StatusReady
	}
	return p
}

// Room pairs up to MaxPlayers players behind a short join code.
type Room struct {
	ID                 string    `json:"id"`
	HostID             string    `json:"host_id"`
	Players            []*Player `json:"players"`
	MaxPlayers         int       `json:"max_players"`
	IsActive           bool      `json:"is_active"`
	LinkCableConnected bool      `json:"link_cable_connected"`
	CreatedAt          time.Time `json:"created_at"`
	LastActivity       time.Time `json:"last_activity"`
}

// NewRoomCode returns a short join code, the uppercased head of a UUID.
func NewRoomCode() string {
	return strings.ToUpper(uuid.NewString()[:6])
}

// NewRoom builds an empty active room with a fresh join code.
func NewRoom() *Room {
	now := time.Now().UTC()
	return &Room{
		ID:           NewRoomCode(),
		Players:      []*Player{},
		MaxPlayers:   DefaultMaxPlayers,
		IsActive:     true,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// AddPlayer places a player in the room. The first player in becomes the
// host; filling the last slot completes the link cable pairing. Returns
// false when the room is full.
func (r *Room) AddPlayer(p *Player) bool {
	if len(r.Players) >= r.MaxPlayers {
		return false
	}
	r.Players = append(r.Players, p)
	if len(r.Players) == 1 {
		p.IsHost = true
		r.HostID = p.ID
	}
	if len(r.Players) == r.MaxPlayers {
		r.LinkCableConnected = true
	}
	r.Touch()
	return true
}

// RemovePlayer drops a player from the roster. Losing a player breaks the
// link cable pairing, and if the host left the remaining player inherits
// the host role. Returns false when the player is not in the room.
func (r *Room) RemovePlayer(playerID string) bool {
	for i, p := range r.Players {
		if p.ID != playerID {
			continue
		}
		r.Players = append(r.Players[:i], r.Players[i+1:]...)
		if len(r.Players) < 2 {
			r.LinkCableConnected = false
		}
		if r.HostID == playerID && len(r.Players) > 0 {
			r.Players[0].IsHost = true
			r.HostID = r.Players[0].ID
		}
		r.Touch()
		return true
	}
	return false
}

// Player returns the member with the given ID, or nil.
func (r *Room) Player(playerID string) *Player {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// IsFull reports whether the room has no open slot.
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// Touch refreshes the activity clock used by the idle sweep.
func (r *Room) Touch() {
	r.LastActivity = time.Now().UTC()
}

// Clone returns a deep copy safe to hand outside the manager's lock.
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		pc := *p
		c.Players[i] = &pc
	}
	return &c
}

// RoomFromPayload rebuilds a Room from a decoded JSON value, as carried in
// the data section of room lifecycle frames.
func RoomFromPayload(v interface{}) (*Room, error) {
	if v == nil {
		return nil, errors.New("no room in payload")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode room payload: %w", err)
	}
	var room Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, fmt.Errorf("decode room payload: %w", err)
	}
	return &room, nil
}
