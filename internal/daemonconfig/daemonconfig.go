// Package daemonconfig loads the supervisor daemon's own ambient settings
// (listen addresses, app-data directory, log level) from a YAML file,
// separate from the JSON mcp_config.json that describes the server fleet.
package daemonconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root shape of supervisord.yaml.
type Config struct {
	// AppDataDir holds logs, lock files, and mcp_config.json. Empty means
	// use the OS default user-config directory.
	AppDataDir string `yaml:"app_data_dir"`
	// ControlAddr is the listen address for the control-plane HTTP API.
	ControlAddr string `yaml:"control_addr"`
	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string `yaml:"log_level"`
	// MaxRestarts caps consecutive restart attempts per server; 0 means
	// unlimited.
	MaxRestarts int `yaml:"max_restarts"`
}

// Default returns the settings used when no config file is present.
func Default() Config {
	return Config{
		ControlAddr: "127.0.0.1:8787",
		LogLevel:    "INFO",
		MaxRestarts: 0,
	}
}

// Load reads path, falling back to Default() for any field left zero. A
// missing file is not an error: Default() alone is returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("daemonconfig: reading %s: %w", path, err)
	}

	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return cfg, fmt.Errorf("daemonconfig: parsing %s: %w", path, err)
	}

	if fromFile.AppDataDir != "" {
		cfg.AppDataDir = fromFile.AppDataDir
	}
	if fromFile.ControlAddr != "" {
		cfg.ControlAddr = fromFile.ControlAddr
	}
	if fromFile.LogLevel != "" {
		cfg.LogLevel = fromFile.LogLevel
	}
	if fromFile.MaxRestarts != 0 {
		cfg.MaxRestarts = fromFile.MaxRestarts
	}

	return cfg, nil
}
