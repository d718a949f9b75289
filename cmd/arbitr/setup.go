package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/arbitr/internal/config"
	"github.com/spf13/cobra"
)

var setupFlags struct {
	project bool
	force   bool
	session string
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create arbitr configuration file",
	Long: `Create an arbitr configuration file with sensible defaults.

By default, creates a global config at ~/.config/arbitr/arbitr.yml.
Use --project to create a project-local config in the current directory,
which is where the session name usually belongs.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().BoolVarP(&setupFlags.project, "project", "p", false, "Create config in current directory instead of global location")
	setupCmd.Flags().BoolVarP(&setupFlags.force, "force", "f", false, "Overwrite existing config file")
	setupCmd.Flags().StringVarP(&setupFlags.session, "session", "s", "", "Default session name to record in the config")
}

func runSetup(cmd *cobra.Command, args []string) error {
	targetPath := config.GlobalPath()
	if setupFlags.project {
		targetPath = config.ProjectPath()
	}

	if !setupFlags.force && fileExists(targetPath) {
		return fmt.Errorf("config file already exists at %s\n\nUse --force to overwrite", targetPath)
	}

	cfg := &config.Config{
		Session:      setupFlags.session,
		DataDir:      ".arbitr",
		LogLevel:     "info",
		LogFile:      "",
		ReportFormat: "auto",
		MCPPort:      0,
	}

	var err error
	if setupFlags.project {
		err = config.WriteProject(cfg)
	} else {
		err = config.WriteGlobal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Config written to: %s\n\n", targetPath)
	fmt.Println("Run 'arbitr serve' to start a session.")
	return nil
}

// fileExists checks if a file exists (helper for setup command).
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
