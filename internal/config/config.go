// Package config provides centralized configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for arbitr.
type Config struct {
	Session      string `mapstructure:"session" yaml:"session"`
	DataDir      string `mapstructure:"data_dir" yaml:"data_dir"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	LogFile      string `mapstructure:"log_file" yaml:"log_file"`
	ReportFormat string `mapstructure:"report_format" yaml:"report_format"` // auto, lightweight, full
	MCPPort      int    `mapstructure:"mcp_port" yaml:"mcp_port"`           // 0 = random port
}

// Load loads configuration with full precedence:
// CLI flags > ENV vars > project config > XDG global config > defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("arbitr")

	// Set defaults (session has no default - it's required)
	v.SetDefault("data_dir", ".arbitr")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("report_format", "auto")
	v.SetDefault("mcp_port", 0)

	// Setup ENV binding with ARBITR_ prefix
	v.SetEnvPrefix("ARBITR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit ENV bindings for better int parsing
	// Note: BindEnv errors are very rare (only invalid key names), but we check them anyway
	if err := v.BindEnv("session", "ARBITR_SESSION"); err != nil {
		return nil, fmt.Errorf("binding session env: %w", err)
	}
	if err := v.BindEnv("data_dir", "ARBITR_DATA_DIR"); err != nil {
		return nil, fmt.Errorf("binding data_dir env: %w", err)
	}
	if err := v.BindEnv("log_level", "ARBITR_LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("binding log_level env: %w", err)
	}
	if err := v.BindEnv("log_file", "ARBITR_LOG_FILE"); err != nil {
		return nil, fmt.Errorf("binding log_file env: %w", err)
	}
	if err := v.BindEnv("report_format", "ARBITR_REPORT_FORMAT"); err != nil {
		return nil, fmt.Errorf("binding report_format env: %w", err)
	}
	if err := v.BindEnv("mcp_port", "ARBITR_MCP_PORT"); err != nil {
		return nil, fmt.Errorf("binding mcp_port env: %w", err)
	}

	// Load global config first (if exists)
	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	// Merge project config on top (if exists)
	projectPath := ProjectPath()
	if fileExists(projectPath) {
		// Need to set config file explicitly for merge
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/arbitr/arbitr.yml or $XDG_CONFIG_HOME/arbitr/arbitr.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "arbitr", "arbitr.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "arbitr", "arbitr.yml")
}

// ProjectPath returns the project-local config path.
// Returns ./arbitr.yml in the current working directory.
func ProjectPath() string {
	return "arbitr.yml"
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()

	// Create parent directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Marshal to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// Write file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	path := ProjectPath()

	// Marshal to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// Write file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
