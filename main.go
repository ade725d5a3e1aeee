// Command pokelink runs the Pokemon link cable relay and its companion
// netplay client modes.
//
// It supports four modes:
//  1. "server" (default) – runs the relay: room directory REST API, the
//     WebSocket relay, and an /mcp HTTP endpoint
//  2. "host" – creates a room on a relay and stays connected as its host
//  3. "join" – joins an existing room by its code and stays connected
//  4. "stdio-mcp" – runs an MCP stdio server backed by a relay's REST API
//
// Flags control host/port, save-state persistence, room lifetime, debug
// logging, and optional ngrok tunneling for easy external access during
// development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/darius0048/pokelink/api"
	"github.com/darius0048/pokelink/netplay"
	"github.com/darius0048/pokelink/protocol"
	"github.com/darius0048/pokelink/relay"
	"github.com/darius0048/pokelink/transport/mcp"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Pokemon Link Relay"
)

// roomSweepInterval is how often the relay prunes idle rooms.
const roomSweepInterval = 5 * time.Minute

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	if err := rootCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootCommand builds the CLI surface: the relay server plus the client
// and MCP modes.
func rootCommand() *cli.Command {
	serverFlag := &cli.StringFlag{
		Name:    "server",
		Usage:   "Base URL of the relay to talk to",
		Value:   "http://localhost:8080",
		Sources: cli.EnvVars("POKELINK_SERVER"),
	}
	nameFlag := &cli.StringFlag{
		Name:  "name",
		Usage: "Display name of the local player",
		Value: "Player",
	}
	romFlag := &cli.StringFlag{
		Name:  "rom",
		Usage: "Name of the loaded ROM announced to the room",
	}

	return &cli.Command{
		Name:    "pokelink",
		Usage:   "link cable relay for Pokemon emulators",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("APP_DEBUG"),
			},
		},
		DefaultCommand: "server",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Run the relay: room directory, WebSocket relay, and MCP endpoint",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "host",
						Usage: "HTTP listen host",
						Value: "localhost",
					},
					&cli.IntFlag{
						Name:    "port",
						Usage:   "HTTP listen port",
						Value:   8080,
						Sources: cli.EnvVars("PORT"),
					},
					&cli.StringFlag{
						Name:  "saves-dir",
						Usage: "Directory for persisted save states (empty keeps saves in memory)",
					},
					&cli.DurationFlag{
						Name:  "room-ttl",
						Usage: "Idle time after which a room is swept",
						Value: time.Hour,
					},
					&cli.BoolFlag{
						Name:    "ngrok",
						Usage:   "Expose the relay through an ngrok tunnel",
						Sources: cli.EnvVars("NGROK_ENABLED"),
					},
					&cli.StringFlag{
						Name:    "ngrok-domain",
						Usage:   "Custom ngrok domain (optional)",
						Sources: cli.EnvVars("NGROK_DOMAIN"),
					},
				},
				Action: runServer,
			},
			{
				Name:   "host",
				Usage:  "Create a room on a relay and stay connected as its host",
				Flags:  []cli.Flag{serverFlag, nameFlag, romFlag},
				Action: runHost,
			},
			{
				Name:      "join",
				Usage:     "Join an existing room by its code and stay connected",
				ArgsUsage: "<room-code>",
				Flags:     []cli.Flag{serverFlag, nameFlag, romFlag},
				Action:    runJoin,
			},
			{
				Name:   "stdio-mcp",
				Usage:  "Run an MCP stdio server backed by a relay's REST API",
				Flags:  []cli.Flag{serverFlag},
				Action: runStdioMCP,
			},
		},
	}
}

// buildLogger picks the zap configuration for the selected verbosity.
func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runServer starts the relay: REST room directory, WebSocket hub, /mcp
// endpoint, idle-room sweep, and optionally an ngrok tunnel.
func runServer(ctx context.Context, cmd *cli.Command) error {
	log, err := buildLogger(cmd.Bool("debug"))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting relay",
		zap.String("app", AppName),
		zap.String("version", Version))

	manager := relay.NewManager(log)

	var saves relay.SaveStore
	if dir := cmd.String("saves-dir"); dir != "" {
		saves, err = relay.NewFileSaveStore(dir)
		if err != nil {
			return fmt.Errorf("open save store: %w", err)
		}
		log.Info("persisting save states", zap.String("dir", dir))
	}

	hub := relay.NewHub(manager, saves, log)
	go hub.Run()

	apiServer := api.NewServer(manager, hub, log)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newMainRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go roomSweepRoutine(sweepCtx, manager, cmd.Duration("room-ttl"), log)

	errs := make(chan error, 2)
	go func() {
		log.Info("relay listening",
			zap.String("addr", addr),
			zap.String("rest", fmt.Sprintf("http://%s/api", addr)),
			zap.String("ws", fmt.Sprintf("ws://%s/ws/{socket}", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	if cmd.Bool("ngrok") {
		go func() {
			if err := serveNgrok(sweepCtx, mainRouter, cmd.String("ngrok-domain"), log); err != nil {
				errs <- err
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errs:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
	log.Info("relay stopped")
	return nil
}

// newMainRouter mounts the REST/WS server at the root and the MCP HTTP
// bridge at /mcp.
func newMainRouter(apiServer *api.Server, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// roomSweepRoutine periodically removes rooms that have been idle past
// the TTL.
func roomSweepRoutine(ctx context.Context, manager *relay.Manager, ttl time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(roomSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := manager.CleanupInactive(ttl); removed > 0 {
				log.Info("swept idle rooms", zap.Int("removed", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}

// serveNgrok exposes the relay through an ngrok tunnel. The auth token
// comes from the environment, matching the ngrok agent's conventions.
func serveNgrok(ctx context.Context, handler http.Handler, domain string, log *zap.Logger) error {
	authToken := os.Getenv("NGROK_AUTHTOKEN")
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	if authToken == "" {
		log.Warn("ngrok enabled but no auth token provided (set NGROK_AUTHTOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		return fmt.Errorf("start ngrok tunnel: %w", err)
	}
	defer tun.Close()

	log.Info("ngrok tunnel established", zap.String("url", tun.URL()))
	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ngrok server: %w", err)
	}
	return nil
}

// runHost creates a room and stays connected as its host until
// interrupted.
func runHost(ctx context.Context, cmd *cli.Command) error {
	log, err := buildLogger(cmd.Bool("debug"))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	session := newConsoleSession(cmd.String("server"), log)
	if err := session.CreateRoom(ctx, cmd.String("name"), cmd.String("rom")); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	defer session.LeaveRoom()

	state := session.State()
	fmt.Printf("Hosting room %s — share this code with the second player.\n", state.RoomID)
	waitForInterrupt()
	return nil
}

// runJoin joins an existing room by code and stays connected until
// interrupted.
func runJoin(ctx context.Context, cmd *cli.Command) error {
	roomCode := cmd.Args().First()
	if roomCode == "" {
		return fmt.Errorf("usage: pokelink join <room-code>")
	}

	log, err := buildLogger(cmd.Bool("debug"))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	session := newConsoleSession(cmd.String("server"), log)
	if err := session.JoinRoom(ctx, roomCode, cmd.String("name"), cmd.String("rom")); err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	defer session.LeaveRoom()

	fmt.Printf("Joined room %s.\n", session.State().RoomID)
	waitForInterrupt()
	return nil
}

// newConsoleSession builds a netplay session whose emulator boundary and
// room events land on the terminal. The host/join modes are operational
// demos of the relay, not a game frontend.
func newConsoleSession(serverURL string, log *zap.Logger) *netplay.Session {
	session := netplay.NewSession(serverURL, consoleEmulator{log: log}, nil, log)
	for _, msgType := range []string{
		protocol.TypeRoomJoined,
		protocol.TypePlayerJoined,
		protocol.TypePlayerLeft,
		protocol.TypePlayerDisconnected,
	} {
		session.Router().Register(msgType, func(msg protocol.Message) error {
			log.Info("room event",
				zap.String("type", msg.Type),
				zap.String("message", msg.String("message")))
			return nil
		})
	}
	return session
}

// consoleEmulator is the emulator boundary for the CLI modes: it prints
// what a real game core would consume.
type consoleEmulator struct {
	log *zap.Logger
}

func (e consoleEmulator) ReceiveLinkCableData(action string, payload interface{}) {
	e.log.Info("link cable frame",
		zap.String("action", action),
		zap.Any("payload", payload))
}

func (e consoleEmulator) LoadSaveData(data string) {
	e.log.Info("received save state", zap.Int("bytes", len(data)))
}

func waitForInterrupt() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

// runStdioMCP runs an MCP stdio server. It reuses an external relay at
// the configured URL when one answers; otherwise it starts an internal
// relay bound to a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	log, err := buildLogger(cmd.Bool("debug"))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	baseURL := cmd.String("server")

	probe := &http.Client{Timeout: 2 * time.Second}
	resp, err := probe.Get(baseURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Info("using external relay", zap.String("url", baseURL))
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("get loopback port: %w", err)
		}

		manager := relay.NewManager(log)
		hub := relay.NewHub(manager, nil, log)
		go hub.Run()

		internal := &http.Server{Handler: api.NewServer(manager, hub, log)}
		go func() {
			if err := internal.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Error("internal relay failed", zap.Error(err))
			}
		}()

		baseURL = fmt.Sprintf("http://%s", listener.Addr())
		log.Info("started internal relay", zap.String("url", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info("MCP stdio server ready")
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}
