package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// AppName names the config and data directories.
const AppName = "atlas-chat"

// Config holds all atlas-chat configuration.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
	Render  RenderConfig  `toml:"render"`
}

type BackendConfig struct {
	BaseURL        string `toml:"base_url"`
	TokenEnv       string `toml:"token_env"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type StorageConfig struct {
	DataDir  string `toml:"data_dir"`
	Capture  bool   `toml:"capture"`
	Compress bool   `toml:"compress"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type RenderConfig struct {
	Color bool `toml:"color"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8000",
			TokenEnv:       "ATLAS_TOKEN",
			TimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			DataDir:  "~/.local/share/atlas-chat",
			Capture:  true,
			Compress: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		Render: RenderConfig{
			Color: true,
		},
	}
}

// Load reads config from the standard path, falling back to defaults.
func Load() (Config, error) {
	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	cfg := DefaultConfig()
	cfg.expand()
	return cfg, nil
}

// LoadFile reads config from path over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.expand()
	return cfg, nil
}

func (c *Config) expand() {
	c.Storage.DataDir = expandHome(c.Storage.DataDir)
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, AppName, "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", AppName, "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Token returns the bearer token from the configured environment variable.
func (c Config) Token() string {
	if c.Backend.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.Backend.TokenEnv)
}

// Timeout is the backend response-header timeout. Zero means none.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// HistoryPath returns the SQLite history database path.
func (c Config) HistoryPath() string {
	return filepath.Join(c.Storage.DataDir, "history.db")
}

// CapturesDir returns the directory of recorded streams.
func (c Config) CapturesDir() string {
	return filepath.Join(c.Storage.DataDir, "captures")
}
