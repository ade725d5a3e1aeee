package relay

import (
	"errors"

	"go.uber.org/zap"

	"github.com/darius0048/pokelink/protocol"
	"github.com/darius0048/pokelink/rooms"
)

// handleMessage dispatches one decoded frame. Handlers run on the
// socket's read goroutine; everything they send goes through the hub's
// delivery queue, so replies and broadcasts stay ordered.
func (h *Hub) handleMessage(c *client, msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeJoinRoom:
		h.handleJoinRoom(c, msg)
	case protocol.TypeLeaveRoom:
		h.handleLeaveRoom(c)
	case protocol.TypeLinkCable:
		h.handleLinkCable(c, msg)
	case protocol.TypePlayerStatus:
		h.handlePlayerStatus(c, msg)
	case protocol.TypeSaveState:
		h.handleSaveState(c, msg)
	case protocol.TypePing:
		h.send(c.socketID, protocol.New(protocol.TypePong, nil))
	default:
		h.log.Warn("unknown message type",
			zap.String("socket_id", c.socketID),
			zap.String("type", msg.Type))
	}
}

// handleJoinRoom binds the socket to a player created through the REST
// API. The rest of the room hears player_joined before the caller gets
// its room_joined reply.
func (h *Hub) handleJoinRoom(c *client, msg protocol.Message) {
	playerID := msg.String("player_id")
	if playerID == "" {
		h.sendError(c, "Player ID required")
		return
	}

	room, player, err := h.manager.ConnectSocket(playerID, c.socketID)
	if err != nil {
		h.log.Warn("join rejected",
			zap.String("socket_id", c.socketID),
			zap.String("player_id", playerID),
			zap.Error(err))
		h.sendError(c, "Failed to join room")
		return
	}

	h.broadcastRoom(room.ID, protocol.New(protocol.TypePlayerJoined, map[string]interface{}{
		"room":    room,
		"message": "A player has connected",
	}), c.socketID)

	h.send(c.socketID, protocol.New(protocol.TypeRoomJoined, map[string]interface{}{
		"room":    room,
		"message": "Successfully connected to room",
	}))

	h.log.Info("player socket joined",
		zap.String("room_id", room.ID),
		zap.String("player", player.Name))
}

// handleLeaveRoom unbinds the socket but keeps the player in the roster,
// mirroring a socket close the client announced first.
func (h *Hub) handleLeaveRoom(c *client) {
	room, player, err := h.manager.DisconnectSocket(c.socketID)
	if err != nil {
		return
	}

	h.broadcastRoom(room.ID, protocol.New(protocol.TypePlayerLeft, map[string]interface{}{
		"room":        room,
		"player_name": player.Name,
		"message":     player.Name + " has left the room",
	}), c.socketID)
}

// handleLinkCable forwards emulator bytes to the one other connected
// player. The payload is never inspected, only stamped with the sender.
func (h *Hub) handleLinkCable(c *client, msg protocol.Message) {
	room, sender, err := h.manager.PlayerBySocket(c.socketID)
	if err != nil || !room.LinkCableConnected {
		h.sendError(c, "Link cable not connected")
		return
	}

	var peer *rooms.Player
	for _, p := range room.Players {
		if p.ID != sender.ID && p.SocketID != "" {
			peer = p
			break
		}
	}
	if peer == nil {
		h.sendError(c, "No other player connected")
		return
	}

	h.send(peer.SocketID, protocol.New(protocol.TypeLinkCable, map[string]interface{}{
		"action":      msg.Data["action"],
		"payload":     msg.Data["payload"],
		"from_player": sender.Name,
		"timestamp":   msg.Data["timestamp"],
	}))
}

// handlePlayerStatus updates the sender's status and tells the whole
// room, sender included.
func (h *Hub) handlePlayerStatus(c *client, msg protocol.Message) {
	status := msg.String("status")
	if !rooms.ValidStatus(status) {
		h.sendError(c, "Invalid status")
		return
	}

	_, player, err := h.manager.PlayerBySocket(c.socketID)
	if err != nil {
		h.sendError(c, "Failed to process message")
		return
	}

	room, updated, err := h.manager.UpdateStatus(player.ID, rooms.PlayerStatus(status))
	if err != nil {
		h.sendError(c, "Failed to process message")
		return
	}

	h.broadcastRoom(room.ID, protocol.New(protocol.TypePlayerStatusUpdated, map[string]interface{}{
		"player_id":   updated.ID,
		"player_name": updated.Name,
		"status":      status,
		"room":        room,
	}), "")
}

// handleSaveState stores or returns the sender's save state. Saves are
// per player, so both sides of a room keep their own game.
func (h *Hub) handleSaveState(c *client, msg protocol.Message) {
	room, player, err := h.manager.PlayerBySocket(c.socketID)
	if err != nil {
		h.sendError(c, "Failed to process message")
		return
	}

	switch msg.String("action") {
	case protocol.SaveActionSave:
		state := SaveState{
			Data:       msg.String("save_data"),
			Screenshot: msg.String("screenshot"),
			Timestamp:  protocol.Timestamp(),
		}
		if err := h.saves.Save(room.ID, player.ID, state); err != nil {
			h.log.Error("failed to store save state",
				zap.String("room_id", room.ID),
				zap.String("player_id", player.ID),
				zap.Error(err))
			h.send(c.socketID, protocol.New(protocol.TypeSaveStateResponse, map[string]interface{}{
				"action":  protocol.SaveActionSave,
				"success": false,
				"message": "Failed to save game state",
			}))
			return
		}
		h.send(c.socketID, protocol.New(protocol.TypeSaveStateResponse, map[string]interface{}{
			"action":  protocol.SaveActionSave,
			"success": true,
			"message": "Game state saved successfully",
		}))

	case protocol.SaveActionLoad:
		state, err := h.saves.Load(room.ID, player.ID)
		if err != nil {
			h.send(c.socketID, protocol.New(protocol.TypeSaveStateResponse, map[string]interface{}{
				"action":  protocol.SaveActionLoad,
				"success": false,
				"message": "No save state found",
			}))
			return
		}
		h.send(c.socketID, protocol.New(protocol.TypeSaveStateResponse, map[string]interface{}{
			"action":    protocol.SaveActionLoad,
			"success":   true,
			"save_data": state,
			"message":   "Game state loaded successfully",
		}))

	default:
		h.log.Warn("unknown save state action",
			zap.String("socket_id", c.socketID),
			zap.String("action", msg.String("action")))
	}
}

// handleClose runs when a socket's read loop exits. The player stays in
// the roster so they can reconnect; the rest of the room is told.
func (h *Hub) handleClose(c *client) {
	room, player, err := h.manager.DisconnectSocket(c.socketID)
	if err != nil {
		if !errors.Is(err, ErrPlayerNotFound) {
			h.log.Warn("socket close cleanup failed",
				zap.String("socket_id", c.socketID),
				zap.Error(err))
		}
		return
	}

	h.broadcastRoom(room.ID, protocol.New(protocol.TypePlayerDisconnected, map[string]interface{}{
		"player_name": player.Name,
		"room":        room,
		"message":     player.Name + " has disconnected",
	}), c.socketID)

	h.log.Info("player disconnected",
		zap.String("room_id", room.ID),
		zap.String("player", player.Name))
}

func (h *Hub) sendError(c *client, message string) {
	h.send(c.socketID, protocol.New(protocol.TypeError, map[string]interface{}{
		"message": message,
	}))
}
