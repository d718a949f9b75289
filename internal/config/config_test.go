package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGlobalPath(t *testing.T) {
	tests := []struct {
		name      string
		xdgConfig string
		want      string
	}{
		{
			name:      "with XDG_CONFIG_HOME set",
			xdgConfig: "/custom/config",
			want:      "/custom/config/arbitr/arbitr.yml",
		},
		{
			name:      "without XDG_CONFIG_HOME",
			xdgConfig: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Save original
			origXDG := os.Getenv("XDG_CONFIG_HOME")
			defer func() {
				if origXDG != "" {
					_ = os.Setenv("XDG_CONFIG_HOME", origXDG)
				} else {
					_ = os.Unsetenv("XDG_CONFIG_HOME")
				}
			}()

			// Set test value
			if tt.xdgConfig != "" {
				_ = os.Setenv("XDG_CONFIG_HOME", tt.xdgConfig)
			} else {
				_ = os.Unsetenv("XDG_CONFIG_HOME")
			}

			got := GlobalPath()
			if tt.xdgConfig != "" {
				if got != tt.want {
					t.Errorf("GlobalPath() = %v, want %v", got, tt.want)
				}
			} else {
				if !filepath.IsAbs(got) {
					t.Errorf("GlobalPath() should return absolute path, got %v", got)
				}
				if filepath.Base(got) != "arbitr.yml" {
					t.Errorf("GlobalPath() should end with arbitr.yml, got %v", got)
				}
			}
		})
	}
}

func TestProjectPath(t *testing.T) {
	got := ProjectPath()
	want := "arbitr.yml"
	if got != want {
		t.Errorf("ProjectPath() = %v, want %v", got, want)
	}
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	// Run from an empty directory so no project config is picked up
	origWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp dir: %v", err)
	}

	// Point XDG at an empty directory so no global config is picked up
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	defer func() {
		if origXDG != "" {
			_ = os.Setenv("XDG_CONFIG_HOME", origXDG)
		} else {
			_ = os.Unsetenv("XDG_CONFIG_HOME")
		}
	}()
	_ = os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DataDir != ".arbitr" {
		t.Errorf("DataDir = %q, want .arbitr", cfg.DataDir)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.ReportFormat != "auto" {
		t.Errorf("ReportFormat = %q, want auto", cfg.ReportFormat)
	}
	if cfg.MCPPort != 0 {
		t.Errorf("MCPPort = %d, want 0", cfg.MCPPort)
	}
}

func TestLoadProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()

	origWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp dir: %v", err)
	}

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	defer func() {
		if origXDG != "" {
			_ = os.Setenv("XDG_CONFIG_HOME", origXDG)
		} else {
			_ = os.Unsetenv("XDG_CONFIG_HOME")
		}
	}()
	_ = os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))

	content := "session: payments-sprint\nreport_format: full\n"
	if err := os.WriteFile("arbitr.yml", []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write project config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Session != "payments-sprint" {
		t.Errorf("Session = %q, want payments-sprint", cfg.Session)
	}
	if cfg.ReportFormat != "full" {
		t.Errorf("ReportFormat = %q, want full", cfg.ReportFormat)
	}
	// Unset fields keep their defaults
	if cfg.DataDir != ".arbitr" {
		t.Errorf("DataDir = %q, want .arbitr", cfg.DataDir)
	}
}

func TestWriteProjectRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	origWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp dir: %v", err)
	}

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	defer func() {
		if origXDG != "" {
			_ = os.Setenv("XDG_CONFIG_HOME", origXDG)
		} else {
			_ = os.Unsetenv("XDG_CONFIG_HOME")
		}
	}()
	_ = os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))

	cfg := &Config{
		Session:      "refactor-auth",
		DataDir:      ".arbitr",
		LogLevel:     "debug",
		ReportFormat: "lightweight",
	}
	if err := WriteProject(cfg); err != nil {
		t.Fatalf("WriteProject() error = %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Session != cfg.Session {
		t.Errorf("Session = %q, want %q", loaded.Session, cfg.Session)
	}
	if loaded.LogLevel != cfg.LogLevel {
		t.Errorf("LogLevel = %q, want %q", loaded.LogLevel, cfg.LogLevel)
	}
}
