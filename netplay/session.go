package netplay

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/darius0048/pokelink/protocol"
	"github.com/darius0048/pokelink/rooms"
)

// Emulator is the boundary to the game core. The session forwards link
// cable frames and loaded save states to it without interpreting them.
type Emulator interface {
	// ReceiveLinkCableData delivers one frame from the paired player.
	ReceiveLinkCableData(action string, payload interface{})

	// LoadSaveData restores a previously saved game state.
	LoadSaveData(data string)
}

// Session ties the netplay client together: it owns the store, the
// relay connection, the router, and the room directory client, and it
// runs the create/join/leave choreography.
//
// Room operations are not internally serialized; callers must not run
// CreateRoom or JoinRoom concurrently on one session.
type Session struct {
	store  *Store
	conn   *Conn
	router *Router
	rooms  *rooms.Client
	emu    Emulator
	log    *zap.Logger
}

// NewSession builds a session against the server at serverURL, which
// hosts both the room directory and the relay socket. The emulator
// boundary may be nil when no game core is attached; onChange, when
// set, observes every state change. A nil logger disables logging.
func NewSession(serverURL string, emu Emulator, onChange func(State), log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		store:  NewStore(onChange),
		conn:   NewConn(serverURL, log),
		router: NewRouter(log),
		rooms:  rooms.NewClient(serverURL, log),
		emu:    emu,
		log:    log,
	}

	s.conn.OnMessage(s.router.Dispatch)
	s.conn.OnState(s.handleConnState)

	// Every room lifecycle frame carries the full roster; the reducer
	// derives the link cable state from it.
	for _, msgType := range []string{
		protocol.TypeRoomJoined,
		protocol.TypePlayerJoined,
		protocol.TypePlayerLeft,
		protocol.TypePlayerDisconnected,
		protocol.TypePlayerStatusUpdated,
	} {
		s.router.Register(msgType, s.handleRoomUpdate)
	}
	s.router.Register(protocol.TypeLinkCable, s.handleLinkCable)
	s.router.Register(protocol.TypeSaveStateResponse, s.handleSaveStateResponse)
	s.router.Register(protocol.TypeError, s.handleServerError)

	return s
}

// State returns a snapshot of the session state.
func (s *Session) State() State {
	return s.store.State()
}

// Store exposes the session store for custom actions, such as game
// phase changes driven by the presentation layer.
func (s *Session) Store() *Store {
	return s.store
}

// Conn exposes the relay connection for liveness tuning and state
// inspection.
func (s *Session) Conn() *Conn {
	return s.conn
}

// Router exposes the message router so additional consumers, such as a
// UI layer, can watch inbound frames.
func (s *Session) Router() *Router {
	return s.router
}

// CreateRoom opens a new room and connects to it as its host. On any
// failure the error lands in the session state and is returned.
func (s *Session) CreateRoom(ctx context.Context, playerName, romName string) error {
	s.store.Dispatch(SetLoading{Loading: true})
	defer s.store.Dispatch(SetLoading{Loading: false})

	created, err := s.rooms.CreateRoom(ctx, playerName, romName)
	if err != nil {
		s.store.Dispatch(SetError{Message: err.Error()})
		return err
	}
	s.store.Dispatch(SetRoom{
		RoomID:   created.RoomID,
		PlayerID: created.PlayerID,
		IsHost:   true,
	})

	if err := s.connect(ctx, created.PlayerID, created.RoomID); err != nil {
		return err
	}

	s.log.Info("hosting room", zap.String("room_id", created.RoomID))
	return nil
}

// JoinRoom claims the open slot in an existing room and connects to it.
// On any failure the error lands in the session state and is returned.
func (s *Session) JoinRoom(ctx context.Context, roomID, playerName, romName string) error {
	s.store.Dispatch(SetLoading{Loading: true})
	defer s.store.Dispatch(SetLoading{Loading: false})

	joined, err := s.rooms.JoinRoom(ctx, roomID, playerName, romName)
	if err != nil {
		s.store.Dispatch(SetError{Message: err.Error()})
		return err
	}
	s.store.Dispatch(SetRoom{
		RoomID:   joined.Room.ID,
		PlayerID: joined.PlayerID,
		IsHost:   false,
	})
	s.store.Dispatch(SetPlayers{Players: connectedPlayers(joined.Room.Players)})

	if err := s.connect(ctx, joined.PlayerID, joined.Room.ID); err != nil {
		return err
	}

	s.log.Info("joined room", zap.String("room_id", joined.Room.ID))
	return nil
}

func (s *Session) connect(ctx context.Context, playerID, roomID string) error {
	if err := s.conn.Connect(ctx, playerID, roomID); err != nil {
		s.store.Dispatch(SetError{Message: err.Error()})
		return err
	}
	s.conn.StartHeartbeat()
	return nil
}

// LeaveRoom tears the session down: heartbeat, socket, then state. The
// loaded ROM survives so the player can host or join again without
// reloading it. LeaveRoom always succeeds.
func (s *Session) LeaveRoom() {
	s.conn.StopHeartbeat()
	s.conn.Disconnect()
	s.store.Dispatch(Reset{})
}

// LoadROM records a loaded ROM and marks the game ready. ROM contents
// are opaque here; parsing belongs to the emulator.
func (s *Session) LoadROM(name string, data []byte) {
	s.store.Dispatch(SetROM{ROM: &ROMFile{Name: name, Data: data}})
	s.store.Dispatch(SetGamePhase{Phase: PhaseReady})
}

// SendLinkCable relays one emulator frame to the paired player. The
// action and payload pass through uninspected. Reports whether the
// frame was sent.
func (s *Session) SendLinkCable(action string, payload interface{}) bool {
	return s.conn.Send(protocol.TypeLinkCable, map[string]interface{}{
		"action":    action,
		"payload":   payload,
		"timestamp": protocol.Timestamp(),
	})
}

// SendStatus announces the local player's status to the room.
func (s *Session) SendStatus(status rooms.PlayerStatus) bool {
	return s.conn.Send(protocol.TypePlayerStatus, map[string]interface{}{
		"status": string(status),
	})
}

// RequestSave asks the relay to store the current game state. The
// screenshot is optional. The outcome arrives as a save_state_response
// frame.
func (s *Session) RequestSave(saveData, screenshot string) bool {
	data := map[string]interface{}{
		"action":    protocol.SaveActionSave,
		"save_data": saveData,
	}
	if screenshot != "" {
		data["screenshot"] = screenshot
	}
	return s.conn.Send(protocol.TypeSaveState, data)
}

// RequestLoad asks the relay for the last stored game state; a
// successful response is handed to the emulator. Responses carry no
// request ID, only the action name, so keep at most one save or load
// outstanding at a time.
func (s *Session) RequestLoad() bool {
	return s.conn.Send(protocol.TypeSaveState, map[string]interface{}{
		"action": protocol.SaveActionLoad,
	})
}

// handleRoomUpdate refreshes the roster from the room projection that
// every lifecycle frame carries.
func (s *Session) handleRoomUpdate(msg protocol.Message) error {
	room, err := rooms.RoomFromPayload(msg.Data["room"])
	if err != nil {
		return fmt.Errorf("%s frame: %w", msg.Type, err)
	}
	s.store.Dispatch(SetPlayers{Players: connectedPlayers(room.Players)})
	return nil
}

// handleLinkCable forwards a peer frame to the emulator boundary.
func (s *Session) handleLinkCable(msg protocol.Message) error {
	if s.emu == nil {
		return nil
	}
	s.emu.ReceiveLinkCableData(msg.String("action"), msg.Data["payload"])
	return nil
}

// handleSaveStateResponse hands a successfully loaded save state to the
// emulator. Save confirmations carry no data; interested consumers can
// watch save_state_response on the router themselves.
func (s *Session) handleSaveStateResponse(msg protocol.Message) error {
	success, _ := msg.Data["success"].(bool)
	if !success || msg.String("action") != protocol.SaveActionLoad || s.emu == nil {
		return nil
	}

	data, ok := saveDataString(msg.Data["save_data"])
	if !ok {
		return fmt.Errorf("save_state_response: unexpected save_data shape %T", msg.Data["save_data"])
	}
	s.emu.LoadSaveData(data)
	return nil
}

func (s *Session) handleServerError(msg protocol.Message) error {
	s.store.Dispatch(SetError{Message: msg.String("message")})
	return nil
}

// handleConnState mirrors the connection lifecycle into the store.
// Losing the socket also unplugs the link cable until a fresh roster
// arrives after the reconnect.
func (s *Session) handleConnState(ev StateEvent) {
	switch ev.New {
	case StateConnected:
		s.store.Dispatch(SetConnected{Connected: true})
	case StateDisconnected, StateReconnecting, StateClosed:
		s.store.Dispatch(SetConnected{Connected: false})
		s.store.Dispatch(SetLinkCable{Connected: false})
	}
}

// saveDataString digs the save blob out of a save_state_response.
// Relays reply with either the stored record or the bare string; both
// shapes are accepted.
func saveDataString(v interface{}) (string, bool) {
	switch data := v.(type) {
	case string:
		return data, true
	case map[string]interface{}:
		s, ok := data["data"].(string)
		return s, ok
	}
	return "", false
}

// connectedPlayers flattens a room projection into the roster of present
// players. Members the relay marks disconnected stay in the room server-side
// so they can come back, but they are not part of the live pairing.
func connectedPlayers(players []*rooms.Player) []rooms.Player {
	values := make([]rooms.Player, 0, len(players))
	for _, p := range players {
		if p.Status == rooms.StatusDisconnected {
			continue
		}
		values = append(values, *p)
	}
	return values
}
