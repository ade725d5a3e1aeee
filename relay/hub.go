package relay

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/darius0048/pokelink/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Save state frames carry
	// base64 payloads, so the limit is generous.
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// client is one relay socket and its outbound queue.
type client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	socketID string
}

// outbound is a frame queued for delivery, addressed to a single socket
// or to the connected members of a room.
type outbound struct {
	socketID string
	roomID   string
	exclude  string
	data     []byte
}

// Hub owns the active relay sockets and fans frames out to them. Frame
// handling lives in handler.go; the hub itself only moves bytes.
type Hub struct {
	// Active sockets by socket ID. Only the Run loop touches this.
	clients map[string]*client

	// Outbound frames queued for delivery.
	broadcast chan outbound

	// Register requests from new sockets.
	register chan *client

	// Unregister requests from closing sockets.
	unregister chan *client

	manager *Manager
	saves   SaveStore
	log     *zap.Logger
}

// NewHub creates a relay hub over the given room manager. A nil save
// store keeps saves in memory only; a nil logger disables logging.
func NewHub(manager *Manager, saves SaveStore, log *zap.Logger) *Hub {
	if saves == nil {
		saves = NewMemorySaveStore()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*client),
		broadcast:  make(chan outbound),
		register:   make(chan *client),
		unregister: make(chan *client),
		manager:    manager,
		saves:      saves,
		log:        log,
	}
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case out := <-h.broadcast:
			h.deliver(out)
		}
	}
}

// ServeWS upgrades an HTTP request into a relay socket.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, socketID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		socketID: socketID,
	}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

// send queues a frame for a single socket.
func (h *Hub) send(socketID string, msg protocol.Message) {
	data, err := msg.Encode()
	if err != nil {
		h.log.Error("failed to encode frame", zap.Error(err))
		return
	}
	h.broadcast <- outbound{socketID: socketID, data: data}
}

// broadcastRoom queues a frame for every connected member of a room,
// optionally skipping one socket.
func (h *Hub) broadcastRoom(roomID string, msg protocol.Message, excludeSocket string) {
	data, err := msg.Encode()
	if err != nil {
		h.log.Error("failed to encode frame", zap.Error(err))
		return
	}
	h.broadcast <- outbound{roomID: roomID, exclude: excludeSocket, data: data}
}

// registerClient adds a socket to the active set.
func (h *Hub) registerClient(c *client) {
	h.clients[c.socketID] = c
	h.log.Info("socket connected",
		zap.String("socket_id", c.socketID),
		zap.Int("total", len(h.clients)))
}

// unregisterClient removes a socket from the active set.
func (h *Hub) unregisterClient(c *client) {
	if _, ok := h.clients[c.socketID]; ok {
		delete(h.clients, c.socketID)
		close(c.send)
		h.log.Info("socket closed",
			zap.String("socket_id", c.socketID),
			zap.Int("total", len(h.clients)))
	}
}

// deliver fans a queued frame out to its targets.
func (h *Hub) deliver(out outbound) {
	if out.socketID != "" {
		if c, ok := h.clients[out.socketID]; ok {
			h.trySend(c, out.data)
		}
		return
	}

	room, err := h.manager.GetRoom(out.roomID)
	if err != nil {
		return
	}
	for _, p := range room.Players {
		if p.SocketID == "" || p.SocketID == out.exclude {
			continue
		}
		if c, ok := h.clients[p.SocketID]; ok {
			h.trySend(c, out.data)
		}
	}
}

func (h *Hub) trySend(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		// Send queue is full, drop the socket
		h.unregisterClient(c)
	}
}

// readPump pumps frames from the socket into the message handler.
func (c *client) readPump() {
	defer func() {
		c.hub.handleClose(c)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("websocket read failed",
					zap.String("socket_id", c.socketID),
					zap.Error(err))
			}
			break
		}

		msg, err := protocol.Decode(raw)
		if err != nil {
			c.hub.log.Warn("dropping malformed frame",
				zap.String("socket_id", c.socketID),
				zap.Error(err))
			continue
		}
		c.hub.handleMessage(c, msg)
	}
}

// writePump pumps queued frames onto the socket, one frame per message
// so clients can parse each frame as a single JSON document.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
