package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/arbitr/internal/logger"
	"github.com/mark3labs/arbitr/internal/mcpserver"
	"github.com/mark3labs/arbitr/internal/tui"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	session string
	port    int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a session's coordination ledger over MCP",
	Long: `Serve a session's coordination ledger over MCP.

Starts the embedded broker and an MCP HTTP server exposing the coordination
tools (claim-try, claim-release, conflict-resolve, domain-owner, log-append,
log-query, signal-send). Agents point their MCP client at the printed URL.
Runs until interrupted.`,
	RunE: runServe,
}

var watchFlags struct {
	session string
	port    int
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Serve a session and watch its events live",
	Long: `Serve a session's ledger over MCP and tail its events in a TUI.

Same as serve, plus a full-screen view showing every ledger event as it is
recorded. Press q to quit.`,
	RunE: runWatch,
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.session, "session", "s", "", "Session name")
	serveCmd.Flags().IntVarP(&serveFlags.port, "port", "p", 0, "MCP port (0 = random)")
	watchCmd.Flags().StringVarP(&watchFlags.session, "session", "s", "", "Session name")
	watchCmd.Flags().IntVarP(&watchFlags.port, "port", "p", 0, "MCP port (0 = random)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := openRuntime(ctx, serveFlags.session)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	}()

	mcp := mcpserver.New(rt.coordinator)
	port := serveFlags.port
	if port == 0 {
		port = rt.cfg.MCPPort
	}
	if _, err := mcp.Start(ctx, port); err != nil {
		return fmt.Errorf("failed to start MCP server: %w", err)
	}
	defer func() { _ = mcp.Stop() }()

	fmt.Printf("Serving session %q\n", rt.session)
	fmt.Printf("MCP endpoint: %s\n", mcp.URL())
	fmt.Println("Press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("Received signal %v, shutting down", sig)
	case <-ctx.Done():
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := openRuntime(ctx, watchFlags.session)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	}()

	mcp := mcpserver.New(rt.coordinator)
	port := watchFlags.port
	if port == 0 {
		port = rt.cfg.MCPPort
	}
	if _, err := mcp.Start(ctx, port); err != nil {
		return fmt.Errorf("failed to start MCP server: %w", err)
	}
	defer func() { _ = mcp.Stop() }()

	logger.Info("Watching session %s (MCP at %s)", rt.session, mcp.URL())
	return tui.RunWatch(rt.nc, rt.session)
}
