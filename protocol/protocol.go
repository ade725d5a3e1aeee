package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Message types sent by clients.
const (
	TypeJoinRoom     = "join_room"
	TypeLeaveRoom    = "leave_room"
	TypeLinkCable    = "link_cable_data"
	TypePlayerStatus = "player_status"
	TypeSaveState    = "save_state"
	TypePing         = "ping"
)

// Message types sent by the server. TypeLinkCable appears in both
// directions: the relay forwards it to the paired player unchanged.
const (
	TypeRoomJoined          = "room_joined"
	TypePlayerJoined        = "player_joined"
	TypePlayerLeft          = "player_left"
	TypePlayerDisconnected  = "player_disconnected"
	TypePlayerStatusUpdated = "player_status_updated"
	TypeSaveStateResponse   = "save_state_response"
	TypePong                = "pong"
	TypeError               = "error"
)

// Actions carried in save_state and save_state_response frames.
const (
	SaveActionSave = "save"
	SaveActionLoad = "load"
)

// Actions carried in link_cable_data payloads.
const (
	ActionTradeRequest   = "trade_request"
	ActionBattleRequest  = "battle_request"
	ActionTradePokemon   = "trade_pokemon"
	ActionBattleStart    = "battle_start"
	ActionBattleAction   = "battle_action"
	ActionTradeComplete  = "trade_complete"
	ActionBattleComplete = "battle_complete"
	ActionSyncData       = "sync_data"
)

// ErrMissingType is returned by Decode for frames without a type tag.
var ErrMissingType = errors.New("message has no type")

// Message is the envelope for every frame on the relay socket.
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// New builds a Message of the given type stamped with the current time.
// A nil data map is replaced with an empty one so the wire always carries
// a data object.
func New(msgType string, data map[string]interface{}) Message {
	if data == nil {
		data = map[string]interface{}{}
	}
	return Message{
		Type:      msgType,
		Data:      data,
		Timestamp: Timestamp(),
	}
}

// Timestamp returns the current UTC time in RFC 3339 format, the format
// used for every timestamp on the wire.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Decode parses a raw frame into a Message.
func Decode(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if msg.Type == "" {
		return Message{}, ErrMissingType
	}
	return msg, nil
}

// Encode renders the message for the wire.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// String returns a string field from the data object, or "" when the
// field is absent or not a string.
func (m Message) String(key string) string {
	s, _ := m.Data[key].(string)
	return s
}
