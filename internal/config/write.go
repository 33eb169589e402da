package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir returns the atlas-chat config directory path.
// Uses $XDG_CONFIG_HOME/atlas-chat if set, otherwise ~/.config/atlas-chat.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", AppName)
}

// WriteDefault writes a default config.toml storing data under dataDir and
// talking to baseURL. Returns the config file path. Skips if config.toml
// already exists.
func WriteDefault(dataDir, baseURL string) (string, error) {
	dir := ConfigDir()
	path := filepath.Join(dir, "config.toml")

	if _, err := os.Stat(path); err == nil {
		return path, nil // already exists
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	defaults := DefaultConfig()
	if dataDir == "" {
		dataDir = defaults.Storage.DataDir
	}
	if baseURL == "" {
		baseURL = defaults.Backend.BaseURL
	}

	content := fmt.Sprintf(`[backend]
base_url = %q
token_env = "ATLAS_TOKEN"
timeout_seconds = 30

[storage]
data_dir = %q
capture = true
compress = true

[log]
level = "info"

[render]
color = true
`, baseURL, CompressHome(dataDir))

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}

	return path, nil
}

// CompressHome replaces $HOME prefix with ~/ for portable config values.
func CompressHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home+"/") {
		return "~/" + path[len(home)+1:]
	}
	if path == home {
		return "~"
	}
	return path
}
