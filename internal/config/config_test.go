package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_Validate(t *testing.T) {
	cases := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"zero value is fine", Settings{}, false},
		{"multiplier below 1 rejected", Settings{BackoffMultiplier: 0.5}, true},
		{"base exceeding max rejected", Settings{BaseRestartDelayMs: 5000, MaxRestartDelayMs: 1000}, true},
		{"valid explicit settings", Settings{BaseRestartDelayMs: 1000, MaxRestartDelayMs: 30000, BackoffMultiplier: 2}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.s.Validate()
			if c.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSettings_ToolCallTimeout_ClampedToOneSecond(t *testing.T) {
	assert.Equal(t, 1, int(Settings{ToolCallTimeoutSeconds: 0}.ToolCallTimeout().Seconds()))
	assert.Equal(t, 5, int(Settings{ToolCallTimeoutSeconds: 5}.ToolCallTimeout().Seconds()))
}

func TestServerConfig_IsActiveDefaultsTrue(t *testing.T) {
	assert.True(t, ServerConfig{}.IsActive())
	inactive := false
	assert.False(t, ServerConfig{Active: &inactive}.IsActive())
}

func TestLoad_AppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"mcpServers": {
			"echo": {"command": "echo", "args": ["hi"]}
		}
	}`), 0644))

	f, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, f.MCPServers, "echo")
	assert.True(t, f.MCPServers["echo"].IsActive())
	assert.Equal(t, TransportStdio, f.MCPServers["echo"].EffectiveType())
	assert.Equal(t, DefaultSettings(), f.MCPSettings)
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"mcpSettings": {"backoffMultiplier": 0.1}
	}`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestAddServer_CreatesMCPServersIfMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0644))

	require.NoError(t, AddServer(path, "new-one", ServerConfig{Command: "node", Args: []string{"server.js"}}))

	f, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, f.MCPServers, "new-one")
	assert.Equal(t, "node", f.MCPServers["new-one"].Command)
}
