package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if cfg.Server.Port != 8000 || cfg.Server.Transport != TransportSSE || !cfg.Tunnel.Enabled {
		t.Errorf("unexpected defaults: %+v", cfg.Server)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9100
  transport: stdio
tunnel:
  enabled: false
  startup_wait: 500ms
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want default 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Transport != TransportStdio {
		t.Errorf("transport = %q", cfg.Server.Transport)
	}
	if cfg.Tunnel.Enabled {
		t.Error("tunnel should be disabled")
	}
	if cfg.Tunnel.Binary != "ngrok" {
		t.Errorf("binary = %q, want default ngrok", cfg.Tunnel.Binary)
	}
	if cfg.Tunnel.StartupWait != 500*time.Millisecond {
		t.Errorf("startup_wait = %v", cfg.Tunnel.StartupWait)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("level = %q", cfg.Log.Level)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [valid: yaml"))
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoadLeavesRangeChecksToValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 0\n"))
	if err != nil {
		t.Fatalf("Load should not range check: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted port 0")
	}

	cfg.Server.Port = 9000
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate after override: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "out of range"},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "out of range"},
		{"transport", func(c *Config) { c.Server.Transport = "grpc" }, "transport"},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }, "verbose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("ParseLevel(verbose) should fail")
	}
}
