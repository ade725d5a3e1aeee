package netplay

import (
	"sync"

	"github.com/darius0048/pokelink/rooms"
)

// GamePhase tracks where the local emulator is in its lifecycle.
type GamePhase string

const (
	PhaseIdle    GamePhase = "idle"
	PhaseLoading GamePhase = "loading"
	PhaseReady   GamePhase = "ready"
	PhasePlaying GamePhase = "playing"
	PhasePaused  GamePhase = "paused"
)

// ROMFile is a loaded game ROM: its name and raw bytes.
type ROMFile struct {
	Name string
	Data []byte
}

// State is the client's view of the multiplayer session. Values handed
// out by the store are copies; mutating them never affects the store.
type State struct {
	ROM                *ROMFile
	GamePhase          GamePhase
	RoomID             string
	PlayerID           string
	IsHost             bool
	Players            []rooms.Player
	Connected          bool
	LinkCableConnected bool
	Loading            bool
	Error              string
}

// Action mutates the session state through Store.Dispatch.
type Action interface{ isAction() }

// SetROM records the loaded ROM.
type SetROM struct{ ROM *ROMFile }

// SetRoom records the joined room's identity. A room assignment is a
// successful operation, so it also clears any previous error.
type SetRoom struct {
	RoomID   string
	PlayerID string
	IsHost   bool
}

// SetPlayers replaces the roster. The link cable is derived from it:
// two players in the room means the cable is plugged in.
type SetPlayers struct{ Players []rooms.Player }

// SetConnected records the relay socket's availability.
type SetConnected struct{ Connected bool }

// SetLinkCable overrides the link cable flag, used when the transport
// drops regardless of the last known roster.
type SetLinkCable struct{ Connected bool }

// SetGamePhase records the emulator lifecycle phase.
type SetGamePhase struct{ Phase GamePhase }

// SetLoading flags an in-flight room operation.
type SetLoading struct{ Loading bool }

// SetError records a failure for the UI to show.
type SetError struct{ Message string }

// Reset returns to the initial state, keeping only the loaded ROM.
type Reset struct{}

func (SetROM) isAction()       {}
func (SetRoom) isAction()      {}
func (SetPlayers) isAction()   {}
func (SetConnected) isAction() {}
func (SetLinkCable) isAction() {}
func (SetGamePhase) isAction() {}
func (SetLoading) isAction()   {}
func (SetError) isAction()     {}
func (Reset) isAction()        {}

// reduce applies one action to a state value. The input is already a
// copy, so assignments here never touch previous snapshots.
func reduce(state State, action Action) State {
	switch a := action.(type) {
	case SetROM:
		state.ROM = a.ROM

	case SetRoom:
		state.RoomID = a.RoomID
		state.PlayerID = a.PlayerID
		state.IsHost = a.IsHost
		state.Error = ""

	case SetPlayers:
		players := make([]rooms.Player, len(a.Players))
		copy(players, a.Players)
		state.Players = players
		state.LinkCableConnected = len(players) >= 2

	case SetConnected:
		state.Connected = a.Connected

	case SetLinkCable:
		state.LinkCableConnected = a.Connected

	case SetGamePhase:
		state.GamePhase = a.Phase

	case SetLoading:
		state.Loading = a.Loading

	case SetError:
		state.Error = a.Message

	case Reset:
		rom := state.ROM
		state = State{GamePhase: PhaseIdle}
		state.ROM = rom
	}
	return state
}

// Store holds the session state and serializes changes through Dispatch.
type Store struct {
	mu       sync.RWMutex
	state    State
	onChange func(State)
}

// NewStore creates a store in the initial idle state. The optional
// onChange callback fires after every dispatch with the new state.
func NewStore(onChange func(State)) *Store {
	return &Store{
		state:    State{GamePhase: PhaseIdle},
		onChange: onChange,
	}
}

// Dispatch applies an action and returns the resulting state.
func (s *Store) Dispatch(action Action) State {
	s.mu.Lock()
	s.state = reduce(s.state, action)
	next := s.state.clone()
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(next)
	}
	return next
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s State) clone() State {
	c := s
	if s.Players != nil {
		c.Players = make([]rooms.Player, len(s.Players))
		copy(c.Players, s.Players)
	}
	return c
}
