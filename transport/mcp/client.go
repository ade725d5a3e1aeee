package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/darius0048/pokelink/rooms"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Pokemon Link Relay",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Pokemon Link Relay - MCP Interface

This is a thin client that proxies all requests to the room directory REST API.

ABOUT THE RELAY:
The relay pairs two Game Boy emulators behind a 6-character room code and
forwards their link cable traffic over WebSockets. A room holds at most two
players; the first one in is the host.

AVAILABLE TOOLS:
- server_info: Get relay identity and health counters
- list_rooms: List joinable rooms with their rosters
- get_room: Get one room by its join code
- create_room: Open a new room and reserve the host slot
- delete_room: Close a room

These tools cover room discovery and administration only. Actually playing
in a room requires a WebSocket connection from an emulator client; that
part of the protocol is not exposed over MCP.`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_info",
		Description: "Get the relay's identity and its room and player counters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerInfo)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List joinable rooms with their join codes and rosters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get one room by its 6-character join code",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "The room's join code, e.g. A1B2C3",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_room",
		Description: "Open a new room hosted by the given player",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player_name": map[string]interface{}{
					"type":        "string",
					"description": "Display name of the hosting player",
				},
				"rom_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the ROM the host has loaded (optional)",
				},
			},
			Required: []string{"player_name"},
		},
	}, c.handleCreateRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_room",
		Description: "Close a room by its join code",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "The room's join code",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleDeleteRoom)
}

// GetMCPServer exposes the underlying MCP server for stdio or HTTP serving.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var info struct {
		Message string `json:"message"`
		Version string `json:"version"`
	}
	if err := c.apiCall("GET", "/api/", nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var health struct {
		Status  string `json:"status"`
		Rooms   int    `json:"rooms"`
		Players int    `json:"players"`
	}
	if err := c.apiCall("GET", "/api/health", nil, &health); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s (v%s)\nStatus: %s\nRooms: %d\nPlayers: %d\n",
		info.Message, info.Version, health.Status, health.Rooms, health.Players)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response rooms.RoomListResponse
	if err := c.apiCall("GET", "/api/rooms", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Total == 0 {
		return mcp.NewToolResultText("No rooms are open right now."), nil
	}

	result := fmt.Sprintf("Open Rooms (%d):\n\n", response.Total)
	for _, room := range response.Rooms {
		result += formatRoom(room) + "\n"
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)

	var response rooms.RoomResponse
	if err := c.apiCall("GET", "/api/rooms/"+strings.ToUpper(roomID), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if response.Room == nil {
		return mcp.NewToolResultError("Room not found"), nil
	}

	return mcp.NewToolResultText(formatRoom(response.Room)), nil
}

func (c *Client) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	playerName, _ := args["player_name"].(string)
	romName, _ := args["rom_name"].(string)

	body := rooms.CreateRoomRequest{
		PlayerName: playerName,
		ROMName:    romName,
	}

	var response rooms.CreateRoomResponse
	if err := c.apiCall("POST", "/api/rooms", body, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !response.Success {
		return mcp.NewToolResultError(response.Message), nil
	}

	result := fmt.Sprintf("Created room: %s\nHost player ID: %s\nShare the code %s with the second player.\n",
		response.RoomID, response.PlayerID, response.RoomID)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleDeleteRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)

	var response rooms.StatusResponse
	if err := c.apiCall("DELETE", "/api/rooms/"+strings.ToUpper(roomID), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response.Message), nil
}

// formatRoom renders one room for tool output.
func formatRoom(room *rooms.Room) string {
	cable := "unplugged"
	if room.LinkCableConnected {
		cable = "connected"
	}
	result := fmt.Sprintf("Room %s (%d/%d players, link cable %s)\n",
		room.ID, len(room.Players), room.MaxPlayers, cable)
	for _, p := range room.Players {
		role := "guest"
		if p.IsHost {
			role = "host"
		}
		result += fmt.Sprintf("  - %s (%s, %s)", p.Name, role, p.Status)
		if p.ROMName != "" {
			result += fmt.Sprintf(", playing %s", p.ROMName)
		}
		result += "\n"
	}
	return result
}
