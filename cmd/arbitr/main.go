package main

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/mark3labs/arbitr/internal/logger"
	"github.com/mark3labs/arbitr/internal/tui"
	"github.com/spf13/cobra"
)

const (
	logoText1 = "▄▀█ █▀█ █▄▄ █ ▀█▀ █▀█"
	logoText2 = "█▀█ █▀▄ █▄█ █  █  █▀▄"
)

// Version set via ldflags during build
var version = "dev"

func main() {
	// Ensure logger is closed on exit
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "arbitr",
	Short: "Coordination ledger for multi-agent work sessions",
}

// renderLogo creates the logo with gradient colors
func renderLogo() string {
	line1 := tui.ApplyGradient(logoText1, tui.GradientStart, tui.GradientEnd)
	line2 := tui.ApplyGradient(logoText2, tui.GradientStart, tui.GradientEnd)
	return strings.Join([]string{line1, line2}, "\n")
}

func init() {
	// Set Long description with logo
	rootCmd.Long = renderLogo() + `

arbitr is a coordination ledger for agents working on a shared codebase.
It tracks domain ownership boundaries, serializes edit claims so two agents
never touch the same path at once, and keeps an append-only decision log.
State lives in embedded NATS JetStream; agents connect over MCP while a
session is being served.`

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(domainCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(conflictCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(setupCmd)
}
