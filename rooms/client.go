package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client calls the room directory REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient builds a REST client for the given server base URL, e.g.
// "http://localhost:8080". A nil logger disables logging.
func NewClient(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// CreateRoom opens a new room hosted by playerName. The response carries
// the join code and the caller's player ID.
func (c *Client) CreateRoom(ctx context.Context, playerName, romName string) (*CreateRoomResponse, error) {
	req := CreateRoomRequest{PlayerName: playerName, ROMName: romName}
	var resp CreateRoomResponse
	if err := c.call(ctx, http.MethodPost, "/api/rooms", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("create room: %s", resp.Message)
	}
	c.log.Debug("created room",
		zap.String("room_id", resp.RoomID),
		zap.String("player_id", resp.PlayerID))
	return &resp, nil
}

// JoinRoom claims the open slot in an existing room. A full or unknown
// room comes back as an error carrying the server's reason.
func (c *Client) JoinRoom(ctx context.Context, roomID, playerName, romName string) (*JoinRoomResponse, error) {
	req := JoinRoomRequest{RoomID: roomID, PlayerName: playerName, ROMName: romName}
	var resp JoinRoomResponse
	if err := c.call(ctx, http.MethodPost, "/api/rooms/join", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("join room: %s", resp.Message)
	}
	if resp.Room == nil {
		return nil, fmt.Errorf("join room: no room in response")
	}
	c.log.Debug("joined room",
		zap.String("room_id", roomID),
		zap.String("player_id", resp.PlayerID))
	return &resp, nil
}

// ListRooms returns the joinable rooms, newest first.
func (c *Client) ListRooms(ctx context.Context) (*RoomListResponse, error) {
	var resp RoomListResponse
	if err := c.call(ctx, http.MethodGet, "/api/rooms", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRoom fetches one room by its join code.
func (c *Client) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	var resp RoomResponse
	if err := c.call(ctx, http.MethodGet, "/api/rooms/"+roomID, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Room == nil {
		return nil, fmt.Errorf("get room %s: empty response", roomID)
	}
	return resp.Room, nil
}

// DeleteRoom closes a room and disconnects its members.
func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	return c.call(ctx, http.MethodDelete, "/api/rooms/"+roomID, nil, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
