package mcpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/mark3labs/arbitr/internal/coord"
	"github.com/mark3labs/arbitr/internal/logger"
	"github.com/mark3labs/mcp-go/server"
)

// Server manages an embedded MCP HTTP server exposing the coordination
// tools (claims, conflicts, decision log, signals) to agents. Agents talk
// MCP over HTTP instead of shelling out to the CLI.
type Server struct {
	coordinator *coord.Coordinator
	mcpServer   *server.MCPServer
	httpServer  *server.StreamableHTTPServer
	stdServer   *http.Server // Standard HTTP server that uses the listener
	port        int
	mu          sync.Mutex
}

// New creates a new MCP server instance for the given coordinator.
// The server is not started until Start() is called.
func New(coordinator *coord.Coordinator) *Server {
	return &Server{
		coordinator: coordinator,
	}
}

// Start starts the MCP HTTP server. Port 0 picks a random available port.
// Blocks until the server is ready to accept connections and returns the
// bound port.
func (s *Server) Start(ctx context.Context, port int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer != nil {
		return 0, fmt.Errorf("server already started")
	}

	// Create MCP server with registered tools
	s.mcpServer = server.NewMCPServer(
		"arbitr-tools",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	if err := s.registerTools(); err != nil {
		return 0, fmt.Errorf("failed to register tools: %w", err)
	}

	// Open the listener first and pass it to Serve to avoid a TOCTOU race
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return 0, fmt.Errorf("failed to listen: %w", err)
	}
	s.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mcpHandler := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithStateLess(true),
	)
	mux.Handle("/mcp", mcpHandler)

	s.stdServer = &http.Server{
		Handler: mux,
	}
	s.httpServer = mcpHandler

	logger.Debug("Starting MCP server on port %d", s.port)

	// Capture stdServer reference for goroutine to avoid race with Stop()
	stdServer := s.stdServer
	go func() {
		if err := stdServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("MCP server error: %v", err)
		}
	}()

	logger.Debug("MCP server ready on port %d", s.port)
	return s.port, nil
}

// Stop stops the MCP HTTP server and cleans up resources.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer == nil {
		return nil // Already stopped
	}

	logger.Debug("Stopping MCP server")
	if err := s.stdServer.Shutdown(context.Background()); err != nil {
		logger.Warn("Error stopping MCP server: %v", err)
		return fmt.Errorf("failed to stop server: %w", err)
	}

	s.httpServer = nil
	s.stdServer = nil
	s.mcpServer = nil
	logger.Debug("MCP server stopped")
	return nil
}

// URL returns the HTTP URL for the MCP server endpoint.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("http://localhost:%d/mcp", s.port)
}
