// Package server is a small development homeserver. It serves the HTTP API
// and websocket gateway the terminal client speaks, backed by SQLite.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hearth-chat/hearth/internal/database"
	"github.com/hearth-chat/hearth/internal/logger"
	"github.com/pelletier/go-toml/v2"
)

// ConfigFilename is the config file looked up in the working directory
const ConfigFilename = "hearthd.toml"

// Config holds the server configuration
type Config struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	DatabasePath string `toml:"database_path"`
	ServerName   string `toml:"server_name"`
	Debug        bool   `toml:"debug"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:         "127.0.0.1",
		Port:         8008,
		DatabasePath: "hearth.db",
		ServerName:   "hearth.local",
		Debug:        false,
	}
}

// LoadConfig reads a TOML config file over the defaults
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the config as TOML
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the config for unusable values
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ServerName == "" {
		return errors.New("server_name must not be empty")
	}
	if c.DatabasePath == "" {
		return errors.New("database_path must not be empty")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Server represents the homeserver
type Server struct {
	config     *Config
	hub        *Hub
	handlers   *Handlers
	db         *database.DB
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// New creates a new server instance
func New(config *Config) (*Server, error) {
	// Open database
	db, err := database.New(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewWithDB(config, db), nil
}

// NewWithDB creates a server over an open database
func NewWithDB(config *Config, db *database.DB) *Server {
	hub := NewHub()
	return &Server{
		config:   config,
		hub:      hub,
		handlers: NewHandlers(db, hub, config.ServerName),
		db:       db,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Terminal clients send no Origin
				return true
			},
		},
	}
}

// Handlers returns the API handlers
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	s.handlers.Routes(mux)
	return mux
}

// Start runs the hub until ctx is cancelled. Run calls it; tests that mount
// Handler on their own listener call it directly.
func (s *Server) Start(ctx context.Context) {
	go s.hub.Run(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.Start(ctx)

	s.httpServer = &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Hearth homeserver %s listening on %s", s.config.ServerName, s.config.Addr())
		logger.Info("WebSocket endpoint: ws://%s/ws", s.config.Addr())
		logger.Info("API endpoint: http://%s/api", s.config.Addr())
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.db.Close()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error: %v", err)
	}
	if err := s.db.Close(); err != nil {
		logger.Error("Database close error: %v", err)
	}

	logger.Info("Server stopped")
	return nil
}

// Close releases the database of a server that is not running
func (s *Server) Close() error {
	return s.db.Close()
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, s.hub, s.handlers)

	// Send hello message
	client.SendHello()

	// Start client pumps
	go client.WritePump()
	go client.ReadPump()
}
