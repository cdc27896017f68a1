package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the workspace root.
const FileName = "local-system-mcp.yaml"

// Transports the server can speak.
const (
	TransportSSE   = "sse"
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Config holds the server settings.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Tunnel TunnelConfig `yaml:"tunnel"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig controls where and how the MCP server listens.
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Transport string `yaml:"transport"`
}

// TunnelConfig controls the ngrok tunnel.
type TunnelConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Binary      string        `yaml:"binary"`
	APIURL      string        `yaml:"api_url"`
	StartupWait time.Duration `yaml:"startup_wait"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8000,
			Transport: TransportSSE,
		},
		Tunnel: TunnelConfig{
			Enabled:     true,
			Binary:      "ngrok",
			APIURL:      "http://127.0.0.1:4040/api/tunnels",
			StartupWait: 2 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults;
// a malformed one is an error. Values are not range checked here because
// flags may still override them; call Validate once they are applied.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Validate checks values a YAML file or flag could have broken.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Server.Transport {
	case TransportSSE, TransportHTTP, TransportStdio:
	default:
		return fmt.Errorf("server.transport %q: want sse, http or stdio", c.Server.Transport)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name onto slog.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level %q: want debug, info, warn or error", s)
}
