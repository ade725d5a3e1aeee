// Package mcp exposes the room directory over the Model Context Protocol.
//
// The mcp package implements:
//   - MCP tool definitions for room directory operations
//   - A thin client proxying every tool call to the REST API
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - server_info: Get relay identity and health counters
//   - list_rooms: List joinable rooms with their rosters
//   - get_room: Get one room by its join code
//   - create_room: Open a new room and reserve the host slot
//   - delete_room: Close a room
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: Direct stdio communication for local MCP clients
//   - HTTP: the MCP server's HandleMessage wired to an /mcp endpoint
//
// The tools cover discovery and administration only. Playing in a room
// needs a live WebSocket and an emulator, which is the netplay package's
// job, not an MCP concern.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
