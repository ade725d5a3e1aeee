package netplay

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/darius0048/pokelink/api"
	"github.com/darius0048/pokelink/protocol"
	"github.com/darius0048/pokelink/relay"
	"github.com/darius0048/pokelink/rooms"
)

// stubEmulator records what the session hands across the game boundary.
type stubEmulator struct {
	linkFrames chan linkFrame
	saves      chan string
}

type linkFrame struct {
	action  string
	payload interface{}
}

func newStubEmulator() *stubEmulator {
	return &stubEmulator{
		linkFrames: make(chan linkFrame, 16),
		saves:      make(chan string, 16),
	}
}

func (e *stubEmulator) ReceiveLinkCableData(action string, payload interface{}) {
	e.linkFrames <- linkFrame{action: action, payload: payload}
}

func (e *stubEmulator) LoadSaveData(data string) {
	e.saves <- data
}

// newTestStack starts a complete relay server: room manager, hub, and
// REST API behind one httptest server.
func newTestStack(t *testing.T) *httptest.Server {
	t.Helper()
	manager := relay.NewManager(nil)
	hub := relay.NewHub(manager, nil, nil)
	go hub.Run()
	srv := httptest.NewServer(api.NewServer(manager, hub, nil))
	t.Cleanup(srv.Close)
	return srv
}

func newTestSession(t *testing.T, serverURL string, emu Emulator) (*Session, chan State) {
	t.Helper()
	changes := make(chan State, 256)
	s := NewSession(serverURL, emu, func(st State) { changes <- st }, nil)
	t.Cleanup(s.LeaveRoom)
	return s, changes
}

func waitForCondition(t *testing.T, changes chan State, desc string, cond func(State) bool) State {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case st := <-changes:
			if cond(st) {
				return st
			}
		case <-deadline:
			t.Fatalf("Timed out waiting for %s", desc)
		}
	}
}

func TestSessionCreateRoom(t *testing.T) {
	srv := newTestStack(t)
	session, changes := newTestSession(t, srv.URL, nil)

	if err := session.CreateRoom(context.Background(), "Ash", "pokemon_red.gb"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	state := session.State()
	if len(state.RoomID) != 6 {
		t.Errorf("Expected a 6-character room code, got %q", state.RoomID)
	}
	if state.PlayerID == "" {
		t.Error("Expected a player ID to be assigned")
	}
	if !state.IsHost {
		t.Error("Expected the room creator to be the host")
	}
	if !state.Connected {
		t.Error("Expected the session to be connected")
	}
	if state.Error != "" {
		t.Errorf("Expected no error, got %q", state.Error)
	}

	// The room_joined acknowledgment carries the first roster.
	state = waitForCondition(t, changes, "the roster", func(st State) bool {
		return len(st.Players) == 1
	})
	if state.Players[0].Name != "Ash" {
		t.Errorf("Expected the host in the roster, got %q", state.Players[0].Name)
	}
	if state.LinkCableConnected {
		t.Error("Expected the link cable to stay unplugged with one player")
	}
}

func TestSessionJoinRoomPairsPlayers(t *testing.T) {
	srv := newTestStack(t)
	host, hostChanges := newTestSession(t, srv.URL, nil)
	guest, guestChanges := newTestSession(t, srv.URL, nil)

	if err := host.CreateRoom(context.Background(), "Ash", "pokemon_red.gb"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	roomID := host.State().RoomID

	if err := guest.JoinRoom(context.Background(), roomID, "Gary", "pokemon_blue.gb"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if guest.State().IsHost {
		t.Error("Expected the joining player not to be the host")
	}

	// The player_joined broadcast plugs the cable in on the host side,
	// the room_joined reply on the guest side.
	hostState := waitForCondition(t, hostChanges, "the host to see both players", func(st State) bool {
		return len(st.Players) == 2
	})
	if !hostState.LinkCableConnected {
		t.Error("Expected the link cable to connect with two players")
	}

	guestState := waitForCondition(t, guestChanges, "the guest to see both players", func(st State) bool {
		return len(st.Players) == 2 && st.LinkCableConnected
	})
	if guestState.RoomID != roomID {
		t.Errorf("Expected the guest to be in room %s, got %s", roomID, guestState.RoomID)
	}
}

func TestSessionJoinUnknownRoomSetsError(t *testing.T) {
	srv := newTestStack(t)
	session, _ := newTestSession(t, srv.URL, nil)

	err := session.JoinRoom(context.Background(), "ZZZZZZ", "Gary", "")
	if err == nil {
		t.Fatal("Expected joining an unknown room to fail")
	}

	state := session.State()
	if state.Error == "" {
		t.Error("Expected the failure to land in the session state")
	}
	if state.Connected {
		t.Error("Expected no connection after a failed join")
	}
	if state.RoomID != "" {
		t.Errorf("Expected no room to be set, got %q", state.RoomID)
	}
	if state.Loading {
		t.Error("Expected loading to be cleared after the failure")
	}
}

func TestSessionLeaveRoomResetsButKeepsROM(t *testing.T) {
	srv := newTestStack(t)
	session, _ := newTestSession(t, srv.URL, nil)

	session.LoadROM("pokemon_red.gb", []byte{0x50, 0x4b})
	if err := session.CreateRoom(context.Background(), "Ash", "pokemon_red.gb"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	session.LeaveRoom()

	state := session.State()
	if state.ROM == nil || state.ROM.Name != "pokemon_red.gb" {
		t.Error("Expected the loaded ROM to survive leaving the room")
	}
	if state.RoomID != "" || state.PlayerID != "" || state.IsHost {
		t.Error("Expected the room identity to be cleared")
	}
	if state.Connected || state.LinkCableConnected {
		t.Error("Expected the connection flags to be cleared")
	}
	if state.GamePhase != PhaseIdle {
		t.Errorf("Expected the game phase to reset to idle, got %s", state.GamePhase)
	}
	if session.Conn().State() != StateClosed {
		t.Errorf("Expected the socket to be closed, got %s", session.Conn().State())
	}
}

func TestSessionLinkCableForwarding(t *testing.T) {
	srv := newTestStack(t)
	hostEmu := newStubEmulator()
	guestEmu := newStubEmulator()
	host, hostChanges := newTestSession(t, srv.URL, hostEmu)
	guest, guestChanges := newTestSession(t, srv.URL, guestEmu)

	if err := host.CreateRoom(context.Background(), "Ash", "pokemon_red.gb"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if err := guest.JoinRoom(context.Background(), host.State().RoomID, "Gary", "pokemon_blue.gb"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	waitForCondition(t, hostChanges, "the host pairing", func(st State) bool {
		return st.LinkCableConnected
	})
	waitForCondition(t, guestChanges, "the guest pairing", func(st State) bool {
		return st.LinkCableConnected
	})

	if !host.SendLinkCable(protocol.ActionTradeRequest, map[string]interface{}{"species": "pikachu"}) {
		t.Fatal("Expected the link cable send to be attempted")
	}

	select {
	case frame := <-guestEmu.linkFrames:
		if frame.action != protocol.ActionTradeRequest {
			t.Errorf("Expected action trade_request, got %q", frame.action)
		}
		payload, ok := frame.payload.(map[string]interface{})
		if !ok || payload["species"] != "pikachu" {
			t.Errorf("Expected the payload to pass through verbatim, got %v", frame.payload)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for the frame at the guest emulator")
	}

	select {
	case frame := <-hostEmu.linkFrames:
		t.Fatalf("Expected the sender not to hear its own frame, got %v", frame)
	default:
	}
}

func TestSessionSaveAndLoadRoundTrip(t *testing.T) {
	srv := newTestStack(t)
	emu := newStubEmulator()
	session, _ := newTestSession(t, srv.URL, emu)

	if err := session.CreateRoom(context.Background(), "Ash", "pokemon_red.gb"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	responses := make(chan protocol.Message, 4)
	session.Router().Register(protocol.TypeSaveStateResponse, func(msg protocol.Message) error {
		responses <- msg
		return nil
	})

	if !session.RequestSave("c2F2ZWJsb2I=", "") {
		t.Fatal("Expected the save request to be attempted")
	}
	select {
	case msg := <-responses:
		if success, _ := msg.Data["success"].(bool); !success {
			t.Fatalf("Expected the save to succeed, got %v", msg.Data)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for the save confirmation")
	}

	if !session.RequestLoad() {
		t.Fatal("Expected the load request to be attempted")
	}
	select {
	case data := <-emu.saves:
		if data != "c2F2ZWJsb2I=" {
			t.Errorf("Expected the stored save to reach the emulator, got %q", data)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for the loaded save state")
	}
}

func TestSessionServerErrorLandsInState(t *testing.T) {
	srv := newTestStack(t)
	session, changes := newTestSession(t, srv.URL, nil)

	if err := session.CreateRoom(context.Background(), "Ash", "pokemon_red.gb"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	// One player alone has no cable; the relay answers with an error frame.
	if !session.SendLinkCable(protocol.ActionSyncData, nil) {
		t.Fatal("Expected the send to be attempted")
	}

	state := waitForCondition(t, changes, "the relay error", func(st State) bool {
		return st.Error != ""
	})
	if state.Error != "Link cable not connected" {
		t.Errorf("Expected the relay's reason, got %q", state.Error)
	}
}

func TestSessionStatusUpdateReachesPeer(t *testing.T) {
	srv := newTestStack(t)
	host, hostChanges := newTestSession(t, srv.URL, nil)
	guest, guestChanges := newTestSession(t, srv.URL, nil)

	if err := host.CreateRoom(context.Background(), "Ash", "pokemon_red.gb"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if err := guest.JoinRoom(context.Background(), host.State().RoomID, "Gary", ""); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	waitForCondition(t, guestChanges, "the guest pairing", func(st State) bool {
		return st.LinkCableConnected
	})

	if !guest.SendStatus(rooms.StatusPlaying) {
		t.Fatal("Expected the status send to be attempted")
	}

	waitForCondition(t, hostChanges, "the host to see the status", func(st State) bool {
		for _, p := range st.Players {
			if p.Name == "Gary" && p.Status == rooms.StatusPlaying {
				return true
			}
		}
		return false
	})
}

func TestSessionPeerDisconnectUnplugsCable(t *testing.T) {
	srv := newTestStack(t)
	host, hostChanges := newTestSession(t, srv.URL, nil)
	guest, guestChanges := newTestSession(t, srv.URL, nil)

	if err := host.CreateRoom(context.Background(), "Ash", "pokemon_red.gb"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if err := guest.JoinRoom(context.Background(), host.State().RoomID, "Gary", ""); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	waitForCondition(t, hostChanges, "the pairing", func(st State) bool {
		return st.LinkCableConnected
	})
	waitForCondition(t, guestChanges, "the guest pairing", func(st State) bool {
		return st.LinkCableConnected
	})

	guest.LeaveRoom()

	state := waitForCondition(t, hostChanges, "the host to see the departure", func(st State) bool {
		return !st.LinkCableConnected && len(st.Players) <= 1
	})
	if !state.Connected {
		t.Error("Expected the host's own connection to survive the peer leaving")
	}
}
