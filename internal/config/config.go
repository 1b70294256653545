// Package config parses and validates mcp_config.json: the server fleet
// definition and the restart/backoff/timeout settings that govern it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TransportType selects how the Transport Launcher reaches a server.
type TransportType string

const (
	TransportStdio TransportType = "stdio"
	TransportSSE   TransportType = "sse"
	TransportHTTP  TransportType = "http"
)

// OAuthConfig is the DOMAIN STACK addition from SPEC_FULL.md §4.4a: when
// present on an sse/http server, the Transport Launcher exchanges it for a
// bearer token via golang.org/x/oauth2/clientcredentials before connecting.
type OAuthConfig struct {
	ClientIDEnv     string   `json:"client_id_env"`
	ClientSecretEnv string   `json:"client_secret_env"`
	TokenURL        string   `json:"token_url"`
	Scopes          []string `json:"scopes,omitempty"`
}

// ServerConfig is one entry under "mcpServers" in mcp_config.json.
type ServerConfig struct {
	Active  *bool             `json:"active,omitempty"`
	Type    TransportType     `json:"type,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	// TimeoutSeconds is the sse/http connect timeout; zero means no timeout.
	TimeoutSeconds uint64       `json:"timeout,omitempty"`
	OAuth          *OAuthConfig `json:"oauth,omitempty"`
}

// IsActive returns whether this entry should be started at boot. Absent
// means true, per spec.md §3.
func (s ServerConfig) IsActive() bool {
	return s.Active == nil || *s.Active
}

// EffectiveType returns Type, defaulting to stdio when unset.
func (s ServerConfig) EffectiveType() TransportType {
	if s.Type == "" {
		return TransportStdio
	}
	return s.Type
}

// ConnectTimeout returns the sse/http connect timeout, or zero (meaning no
// deadline) when unset.
func (s ServerConfig) ConnectTimeout() time.Duration {
	if s.TimeoutSeconds == 0 {
		return 0
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Settings is the "mcpSettings" subtree: restart backoff and tool-call
// timeout policy, shared by every server.
type Settings struct {
	ToolCallTimeoutSeconds uint64  `json:"toolCallTimeoutSeconds,omitempty"`
	BaseRestartDelayMs     uint64  `json:"baseRestartDelayMs,omitempty"`
	MaxRestartDelayMs      uint64  `json:"maxRestartDelayMs,omitempty"`
	BackoffMultiplier      float64 `json:"backoffMultiplier,omitempty"`
}

// DefaultSettings mirrors the original source's McpSettings::default().
func DefaultSettings() Settings {
	return Settings{
		ToolCallTimeoutSeconds: 30,
		BaseRestartDelayMs:     1000,
		MaxRestartDelayMs:      30000,
		BackoffMultiplier:      2.0,
	}
}

// ToolCallTimeout returns the configured tool-call timeout, clamped to a
// 1-second minimum as spec.md §6 requires.
func (s Settings) ToolCallTimeout() time.Duration {
	secs := s.ToolCallTimeoutSeconds
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

// Validate rejects settings that would violate the Backoff monotonicity
// testable property in spec.md §8 (SPEC_FULL.md §6a).
func (s Settings) Validate() error {
	if s.BackoffMultiplier != 0 && s.BackoffMultiplier < 1 {
		return fmt.Errorf("backoffMultiplier must be >= 1, got %v", s.BackoffMultiplier)
	}
	if s.BaseRestartDelayMs != 0 && s.MaxRestartDelayMs != 0 && s.BaseRestartDelayMs > s.MaxRestartDelayMs {
		return fmt.Errorf("baseRestartDelayMs (%d) must not exceed maxRestartDelayMs (%d)", s.BaseRestartDelayMs, s.MaxRestartDelayMs)
	}
	return nil
}

// WithDefaults fills in any zero-valued field from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.ToolCallTimeoutSeconds == 0 {
		s.ToolCallTimeoutSeconds = d.ToolCallTimeoutSeconds
	}
	if s.BaseRestartDelayMs == 0 {
		s.BaseRestartDelayMs = d.BaseRestartDelayMs
	}
	if s.MaxRestartDelayMs == 0 {
		s.MaxRestartDelayMs = d.MaxRestartDelayMs
	}
	if s.BackoffMultiplier == 0 {
		s.BackoffMultiplier = d.BackoffMultiplier
	}
	return s
}

// File is the root shape of mcp_config.json.
type File struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
	MCPSettings Settings                `json:"mcpSettings"`
}

// Load reads and parses mcp_config.json from path. A missing mcpServers or
// mcpSettings subtree is not an error -- both are optional per spec.md §6.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if f.MCPServers == nil {
		f.MCPServers = map[string]ServerConfig{}
	}
	f.MCPSettings = f.MCPSettings.WithDefaults()
	if err := f.MCPSettings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mcpSettings: %w", err)
	}

	return &f, nil
}

// AddServer inserts or replaces one entry under "mcpServers" in the config
// file at path, creating the mcpServers object if missing. This is the
// runtime operation spec.md §4.8 calls add_server.
func AddServer(path, name string, value ServerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	servers := map[string]json.RawMessage{}
	if raw, ok := root["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return fmt.Errorf("mcpServers is not an object: %w", err)
		}
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	servers[name] = encoded

	serversEncoded, err := json.Marshal(servers)
	if err != nil {
		return err
	}
	root["mcpServers"] = serversEncoded

	out, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}
