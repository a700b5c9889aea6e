// Package config provides configuration loading and path management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
)

// Config holds client configuration.
type Config struct {
	// ServerURL is the base URL of the meeting-synthesis backend.
	ServerURL string `json:"server_url"`
	// WSURL is the base URL for the realtime websocket. Derived from
	// ServerURL when empty.
	WSURL string `json:"ws_url,omitempty"`
	// LogLevel is the minimum log level (DEBUG|INFO|WARN|ERROR).
	LogLevel string `json:"log_level,omitempty"`
	// RequestTimeout bounds non-streaming HTTP requests, in seconds.
	RequestTimeout int `json:"request_timeout,omitempty"`
	// Reconnect enables automatic realtime reconnection with backoff.
	Reconnect bool `json:"reconnect,omitempty"`
}

// Default values applied before any file or environment override.
const (
	DefaultServerURL      = "http://localhost:8000"
	DefaultRequestTimeout = 30 * time.Second
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.meetingsync/)
// 2. XDG config (~/.config/meetingsync/)
// 3. MEETINGSYNC_CONFIG file
// 4. Environment variables
func Load() (*Config, error) {
	config := &Config{
		ServerURL: DefaultServerURL,
	}

	loaded := make(map[string]bool)
	loadOnce := func(path string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config) == nil {
			loaded[absPath] = true
		}
	}

	// 1. Home dotdir config
	home := os.Getenv("HOME")
	if home != "" {
		dotDir := filepath.Join(home, ".meetingsync")
		loadOnce(filepath.Join(dotDir, "meetingsync.json"))
		loadOnce(filepath.Join(dotDir, "meetingsync.jsonc"))
	}

	// 2. XDG config
	xdgDir := GetPaths().Config
	loadOnce(filepath.Join(xdgDir, "meetingsync.json"))
	loadOnce(filepath.Join(xdgDir, "meetingsync.jsonc"))

	// 3. MEETINGSYNC_CONFIG file override
	if configPath := os.Getenv("MEETINGSYNC_CONFIG"); configPath != "" {
		loadOnce(configPath)
	}

	// 4. Environment variables (highest priority)
	applyEnvOverrides(config)

	return config, nil
}

// Timeout returns the configured request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return time.Duration(c.RequestTimeout) * time.Second
}

// WebsocketURL returns the websocket base URL, deriving it from the
// server URL when not explicitly configured.
func (c *Config) WebsocketURL() string {
	if c.WSURL != "" {
		return c.WSURL
	}
	u := c.ServerURL
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	// Strip JSONC comments using tidwall/jsonc
	data = jsonc.ToJSON(data)

	// Apply interpolation
	data = interpolate(data)

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} placeholders.
func interpolate(data []byte) []byte {
	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	str := envPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
	return []byte(str)
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *Config) {
	if source.ServerURL != "" {
		target.ServerURL = source.ServerURL
	}
	if source.WSURL != "" {
		target.WSURL = source.WSURL
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.RequestTimeout > 0 {
		target.RequestTimeout = source.RequestTimeout
	}
	if source.Reconnect {
		target.Reconnect = true
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("MEETINGSYNC_SERVER_URL"); v != "" {
		config.ServerURL = v
	}
	if v := os.Getenv("MEETINGSYNC_WS_URL"); v != "" {
		config.WSURL = v
	}
	if v := os.Getenv("MEETINGSYNC_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("MEETINGSYNC_RECONNECT"); v == "1" || strings.EqualFold(v, "true") {
		config.Reconnect = true
	}
}
