package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/darius0048/pokelink/api"
	"github.com/darius0048/pokelink/relay"
	"github.com/darius0048/pokelink/transport/mcp"
)

func TestRootCommandStructure(t *testing.T) {
	root := rootCommand()

	if root.Name != "pokelink" {
		t.Errorf("Expected command name pokelink, got %s", root.Name)
	}
	if root.DefaultCommand != "server" {
		t.Errorf("Expected server to be the default command, got %s", root.DefaultCommand)
	}

	want := map[string]bool{"server": false, "host": false, "join": false, "stdio-mcp": false}
	for _, sub := range root.Commands {
		if _, ok := want[sub.Name]; ok {
			want[sub.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Expected a %s subcommand", name)
		}
	}
}

func TestBuildLogger(t *testing.T) {
	for _, debug := range []bool{false, true} {
		log, err := buildLogger(debug)
		if err != nil {
			t.Fatalf("Expected logger for debug=%v, got error: %v", debug, err)
		}
		if log == nil {
			t.Fatalf("Expected a logger for debug=%v, got nil", debug)
		}
	}
}

func TestConsoleEmulatorDoesNotPanic(t *testing.T) {
	emu := consoleEmulator{log: zap.NewNop()}

	emu.ReceiveLinkCableData("trade_offer", map[string]interface{}{"species": "Haunter"})
	emu.LoadSaveData("c2F2ZWQgZ2FtZQ==")
}

func TestMainRouterServesAPIAndMCP(t *testing.T) {
	log := zap.NewNop()
	manager := relay.NewManager(log)
	hub := relay.NewHub(manager, nil, log)
	go hub.Run()

	apiServer := api.NewServer(manager, hub, log)
	srv := httptest.NewServer(newMainRouter(apiServer, mcp.NewClient("http://unused.invalid")))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("Failed to reach health endpoint: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 from /api/health, got %d", resp.StatusCode)
	}

	// /mcp only accepts POSTed JSON-RPC.
	resp, err = http.Get(srv.URL + "/mcp")
	if err != nil {
		t.Fatalf("Failed to reach MCP endpoint: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405 for GET /mcp, got %d", resp.StatusCode)
	}

	rpc := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	resp, err = http.Post(srv.URL+"/mcp", "application/json", bytes.NewBufferString(rpc))
	if err != nil {
		t.Fatalf("Failed to POST to MCP endpoint: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 from /mcp, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var rpcResp map[string]interface{}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		t.Fatalf("Expected a JSON-RPC response, got: %s", body)
	}
	if rpcResp["jsonrpc"] != "2.0" {
		t.Errorf("Expected a JSON-RPC 2.0 envelope, got: %s", body)
	}
}
