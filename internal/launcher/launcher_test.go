package launcher

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-scooter/supervisor/internal/config"
)

func TestRewriteCommand_NoBundledRuntimeLeavesCommandUntouched(t *testing.T) {
	withFakeExecutable(t)

	command, args := rewriteCommand("npx", []string{"some-mcp-server"})
	assert.Equal(t, "npx", command)
	assert.Equal(t, []string{"some-mcp-server"}, args)
}

func TestRewriteCommand_OtherCommandsAreNeverRewritten(t *testing.T) {
	command, args := rewriteCommand("python3", []string{"server.py"})
	assert.Equal(t, "python3", command)
	assert.Equal(t, []string{"server.py"}, args)
}

func TestRewriteCommand_UsesBundledBunForNpx(t *testing.T) {
	exePath := withFakeExecutable(t)
	bunPath := exePath + "-runtimes-bun"
	require.NoError(t, os.WriteFile(bunPath, []byte("#!/bin/sh\n"), 0o755))

	command, args := rewriteCommand("npx", []string{"some-mcp-server"})
	assert.Equal(t, bunPath, command)
	assert.Equal(t, []string{"x", "some-mcp-server"}, args)
}

func TestRewriteCommand_UsesBundledUvForUvx(t *testing.T) {
	exePath := withFakeExecutable(t)
	uvPath := exePath + "-runtimes-uv"
	require.NoError(t, os.WriteFile(uvPath, []byte("#!/bin/sh\n"), 0o755))

	command, args := rewriteCommand("uvx", []string{"some-mcp-server"})
	assert.Equal(t, uvPath, command)
	assert.Equal(t, []string{"tool", "run", "some-mcp-server"}, args)
}

// initResponseThenExit is a one-line shell script that completes a full
// MCP handshake (reads the initialize request, answers it, consumes the
// notifications/initialized notification) and then exits immediately,
// reproducing a server that crashes right after connecting.
const initResponseThenExit = `read l1; printf '%s\n' '{"jsonrpc":"2.0","id":1,"result":{}}'; read l2; exit 0`

// initResponseThenHang behaves identically but stays alive afterward,
// reproducing a server that connects and keeps running.
const initResponseThenHang = `read l1; printf '%s\n' '{"jsonrpc":"2.0","id":1,"result":{}}'; cat`

func TestLaunchStdio_ServerThatExitsDuringVerificationWindowIsRejected(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("spawns a posix shell script")
	}

	l := &Launcher{AppDataDir: t.TempDir()}
	cfg := config.ServerConfig{Command: "sh", Args: []string{"-c", initResponseThenExit}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	launched, err := l.Launch(ctx, "flaky", cfg)
	require.Error(t, err)
	assert.Nil(t, launched)
	assert.Contains(t, err.Error(), "quit immediately after starting")
}

func TestLaunchStdio_ServerThatSurvivesVerificationWindowIsAccepted(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("spawns a posix shell script")
	}

	l := &Launcher{AppDataDir: t.TempDir()}
	cfg := config.ServerConfig{Command: "sh", Args: []string{"-c", initResponseThenHang}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	launched, err := l.Launch(ctx, "steady", cfg)
	require.NoError(t, err)
	require.NotNil(t, launched)
	defer func() { _ = launched.Client.Cancel(context.Background()) }()

	assert.NotZero(t, launched.PID)
}

func TestParsePort_ValidAndInvalid(t *testing.T) {
	port, err := parsePort("8080")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	_, err = parsePort("not-a-port")
	assert.Error(t, err)
}

// withFakeExecutable points osExecutable at a throwaway file for the
// duration of t, restoring the real implementation on cleanup, and returns
// the fake path for callers to plant sibling runtime files next to.
func withFakeExecutable(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	exePath := filepath.Join(dir, "supervisord")
	require.NoError(t, os.WriteFile(exePath, []byte("#!/bin/sh\n"), 0o755))

	original := osExecutable
	osExecutable = func() (string, error) { return exePath, nil }
	t.Cleanup(func() { osExecutable = original })

	return exePath
}
