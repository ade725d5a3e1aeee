package netplay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/darius0048/pokelink/protocol"
)

const (
	// Time allowed to write a frame to the relay.
	writeWait = 10 * time.Second

	// Handshake budget for dial attempts, including automatic redials.
	dialTimeout = 10 * time.Second

	// Unexpected disconnects are retried this many times before giving
	// up and leaving the next attempt to the caller.
	maxReconnectAttempts = 5
)

var (
	// ErrMissingIdentity is returned by Connect for empty player or room IDs.
	ErrMissingIdentity = errors.New("player ID and room ID are required")

	// ErrAlreadyConnected is returned by Connect while a connection is
	// open or being opened. Disconnect first.
	ErrAlreadyConnected = errors.New("already connected")
)

// ConnState is the lifecycle state of the relay connection.
type ConnState int

const (
	// StateDisconnected means no connection exists. This is both the
	// initial state and the resting state after reconnects run out.
	StateDisconnected ConnState = iota

	// StateConnecting means the first dial is in flight.
	StateConnecting

	// StateConnected means the socket is open and frames flow.
	StateConnected

	// StateReconnecting means the connection dropped unexpectedly and a
	// redial is scheduled or in flight.
	StateReconnecting

	// StateClosed means the connection was deliberately shut down
	// locally. No reconnect will happen.
	StateClosed
)

// String returns the state's name for logs.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateEvent records one connection state transition.
type StateEvent struct {
	Old ConnState
	New ConnState
	Err error // cause, when the transition came from a failure
}

// Conn owns the WebSocket to the relay: its identity, lifecycle,
// heartbeat, and reconnect policy. One Conn serves one logical session
// at a time; it is safe for concurrent use.
type Conn struct {
	// HeartbeatInterval is the ping cadence used by StartHeartbeat.
	// Set it before starting the heartbeat.
	HeartbeatInterval time.Duration

	// ReconnectDelay is the backoff unit after an unexpected close: the
	// n-th retry waits n times this long. Set it before Connect.
	ReconnectDelay time.Duration

	baseURL   string
	dialer    *websocket.Dialer
	log       *zap.Logger
	onState   func(StateEvent)
	onMessage func(protocol.Message)

	mu        sync.Mutex
	state     ConnState
	ws        *websocket.Conn
	socketID  string
	playerID  string
	roomID    string
	attempts  int
	reconnect *time.Timer
	heartbeat chan struct{}

	// Serializes socket writes: heartbeat, sends, and the join frame
	// may come from different goroutines.
	writeMu sync.Mutex
}

// NewConn builds a connection manager for the relay at baseURL, e.g.
// "http://localhost:8080". A nil logger disables logging.
func NewConn(baseURL string, log *zap.Logger) *Conn {
	if log == nil {
		log = zap.NewNop()
	}
	return &Conn{
		HeartbeatInterval: 30 * time.Second,
		ReconnectDelay:    time.Second,
		baseURL:           strings.TrimRight(baseURL, "/"),
		dialer:            &websocket.Dialer{HandshakeTimeout: dialTimeout},
		log:               log,
	}
}

// OnState registers the state transition observer. Set it before
// Connect; the callback fires from internal goroutines and must not
// block.
func (c *Conn) OnState(fn func(StateEvent)) {
	c.onState = fn
}

// OnMessage registers the consumer for decoded inbound frames,
// typically Router.Dispatch. Set it before Connect.
func (c *Conn) OnMessage(fn func(protocol.Message)) {
	c.onMessage = fn
}

// State returns the current lifecycle state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether frames can be sent right now.
func (c *Conn) IsConnected() bool {
	return c.State() == StateConnected
}

// SocketID returns the relay socket token of the current connection,
// or "" when disconnected. Each dial generates a fresh token.
func (c *Conn) SocketID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socketID
}

// Connect opens the relay socket for the given player and room. It
// succeeds once the transport is open and the join_room frame is on the
// wire; the room's acknowledgment arrives later as a room_joined frame.
// A dial failure is returned to the caller and schedules nothing.
func (c *Conn) Connect(ctx context.Context, playerID, roomID string) error {
	if playerID == "" || roomID == "" {
		return ErrMissingIdentity
	}

	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	old := c.state
	c.state = StateConnecting
	c.playerID = playerID
	c.roomID = roomID
	c.attempts = 0
	c.mu.Unlock()
	c.notifyState(old, StateConnecting, nil)

	if err := c.dial(ctx); err != nil {
		c.mu.Lock()
		was := c.state
		c.state = StateDisconnected
		c.mu.Unlock()
		c.notifyState(was, StateDisconnected, err)
		return fmt.Errorf("connect relay: %w", err)
	}

	c.log.Info("connected to relay",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID))
	return nil
}

// dial opens one socket for the stored identity under a fresh socket
// token, announces the player with join_room, and starts the read loop.
func (c *Conn) dial(ctx context.Context) error {
	c.mu.Lock()
	c.socketID = uuid.NewString()
	playerID := c.playerID
	endpoint, err := wsEndpoint(c.baseURL, c.socketID)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	ws, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != StateConnecting && c.state != StateReconnecting {
		// Disconnected while the dial was in flight.
		c.mu.Unlock()
		ws.Close()
		return errors.New("connection closed during dial")
	}
	old := c.state
	c.state = StateConnected
	c.ws = ws
	c.attempts = 0
	c.mu.Unlock()

	join := protocol.New(protocol.TypeJoinRoom, map[string]interface{}{
		"player_id": playerID,
	})
	if err := c.writeFrame(ws, join); err != nil {
		// The read loop will notice the dead socket and recover.
		c.log.Warn("failed to send join_room", zap.Error(err))
	}

	c.notifyState(old, StateConnected, nil)
	go c.readLoop(ws)
	return nil
}

// Disconnect deliberately shuts the connection down: it cancels any
// pending reconnect, stops the heartbeat, announces a normal closure to
// the relay, and clears the session identity. Safe to call repeatedly.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	c.stopHeartbeatLocked()

	ws := c.ws
	if ws == nil && c.state != StateConnecting && c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	old := c.state
	c.state = StateClosed
	c.ws = nil
	c.socketID = ""
	c.playerID = ""
	c.roomID = ""
	c.attempts = 0
	c.mu.Unlock()

	if ws != nil {
		deadline := time.Now().Add(writeWait)
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.writeMu.Lock()
		ws.WriteControl(websocket.CloseMessage, closeMsg, deadline)
		c.writeMu.Unlock()
		ws.Close()
	}

	c.log.Info("disconnected from relay")
	c.notifyState(old, StateClosed, nil)
}

// Send builds an envelope of the given type stamped with the current
// time and transmits it if connected. It reports whether transmission
// was attempted; frames are never queued for later delivery, so callers
// that care must re-send after a reconnect.
func (c *Conn) Send(msgType string, data map[string]interface{}) bool {
	c.mu.Lock()
	ws := c.ws
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected || ws == nil {
		return false
	}

	if err := c.writeFrame(ws, protocol.New(msgType, data)); err != nil {
		c.log.Warn("send failed",
			zap.String("type", msgType),
			zap.Error(err))
		return false
	}
	return true
}

// StartHeartbeat begins sending ping frames every HeartbeatInterval
// while connected. It is never started implicitly; callers own the
// liveness policy. Starting an already running heartbeat is a no-op.
func (c *Conn) StartHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.heartbeat != nil {
		return
	}
	stop := make(chan struct{})
	c.heartbeat = stop
	go c.heartbeatLoop(stop, c.HeartbeatInterval)
}

// StopHeartbeat stops the periodic ping. Safe to call when not running.
func (c *Conn) StopHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopHeartbeatLocked()
}

func (c *Conn) stopHeartbeatLocked() {
	if c.heartbeat != nil {
		close(c.heartbeat)
		c.heartbeat = nil
	}
}

func (c *Conn) heartbeatLoop(stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Send drops the ping when not connected.
			c.Send(protocol.TypePing, nil)
		case <-stop:
			return
		}
	}
}

// readLoop decodes inbound frames until the socket dies, then hands the
// close over to the reconnect policy. Malformed frames are logged and
// dropped; they never end the connection.
func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			c.handleClose(ws, err)
			return
		}

		msg, err := protocol.Decode(raw)
		if err != nil {
			c.log.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}

// handleClose runs when a read loop exits. A normal closure from the
// relay ends the session quietly; anything else enters the reconnect
// policy.
func (c *Conn) handleClose(ws *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.ws != ws {
		// A deliberate disconnect or a newer dial already took over.
		c.mu.Unlock()
		return
	}
	c.ws = nil
	old := c.state
	deliberate := websocket.IsCloseError(cause, websocket.CloseNormalClosure)
	if deliberate {
		c.state = StateDisconnected
	}
	c.mu.Unlock()
	ws.Close()

	if deliberate {
		c.log.Info("relay closed the session")
		c.notifyState(old, StateDisconnected, nil)
		return
	}
	c.scheduleReconnect(cause)
}

// scheduleReconnect arms the retry timer after a lost connection or a
// failed redial. The n-th attempt waits n*ReconnectDelay; past the
// attempt ceiling the connection rests at Disconnected and the caller
// must reconnect explicitly.
func (c *Conn) scheduleReconnect(cause error) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	old := c.state

	if c.attempts >= maxReconnectAttempts {
		c.state = StateDisconnected
		c.mu.Unlock()
		c.log.Warn("reconnect attempts exhausted",
			zap.Int("attempts", maxReconnectAttempts),
			zap.Error(cause))
		c.notifyState(old, StateDisconnected, cause)
		return
	}

	c.attempts++
	attempt := c.attempts
	delay := time.Duration(attempt) * c.ReconnectDelay
	c.state = StateReconnecting
	c.reconnect = time.AfterFunc(delay, c.redial)
	c.mu.Unlock()

	c.log.Info("connection lost, scheduling reconnect",
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.Error(cause))
	c.notifyState(old, StateReconnecting, cause)
}

// redial runs the scheduled reconnect attempt. A failed dial re-enters
// scheduleReconnect until the ceiling.
func (c *Conn) redial() {
	c.mu.Lock()
	if c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnect = nil
	attempt := c.attempts
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := c.dial(ctx); err != nil {
		c.log.Warn("reconnect attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
		c.scheduleReconnect(err)
		return
	}

	c.log.Info("reconnected to relay", zap.Int("attempt", attempt))
}

func (c *Conn) writeFrame(ws *websocket.Conn, msg protocol.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(msg)
}

func (c *Conn) notifyState(old, next ConnState, err error) {
	if old == next {
		return
	}
	if c.onState != nil {
		c.onState(StateEvent{Old: old, New: next, Err: err})
	}
}

// wsEndpoint maps the REST base URL onto the relay socket endpoint for
// one socket token: http becomes ws, https becomes wss.
func wsEndpoint(baseURL, socketID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + socketID
	return u.String(), nil
}
