// Command supervisord is the MCP server supervisor daemon: it boots the
// configured fleet, keeps it alive, and exposes a control API for the CLI
// and any host UI to drive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mcp-scooter/supervisor/internal/api"
	"github.com/mcp-scooter/supervisor/internal/config"
	"github.com/mcp-scooter/supervisor/internal/credentials"
	"github.com/mcp-scooter/supervisor/internal/daemonconfig"
	"github.com/mcp-scooter/supervisor/internal/events"
	"github.com/mcp-scooter/supervisor/internal/logger"
	"github.com/mcp-scooter/supervisor/internal/procid"
	"github.com/mcp-scooter/supervisor/internal/supervisor"
)

func main() {
	configFlag := flag.String("config", "", "path to supervisord.yaml (defaults to <app-data>/supervisord.yaml)")
	flag.Parse()

	appDir, err := resolveAppDataDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, "supervisord:", err)
		os.Exit(1)
	}

	daemonCfgPath := *configFlag
	if daemonCfgPath == "" {
		daemonCfgPath = filepath.Join(appDir, "supervisord.yaml")
	}
	daemonCfg, err := daemonconfig.Load(daemonCfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "supervisord:", err)
		os.Exit(1)
	}
	if daemonCfg.AppDataDir != "" {
		appDir = daemonCfg.AppDataDir
	}

	if err := logger.Init(appDir); err != nil {
		fmt.Fprintln(os.Stderr, "supervisord:", err)
		os.Exit(1)
	}
	defer logger.Close()
	logger.SetLevel(daemonCfg.LogLevel)

	mcpConfigPath := filepath.Join(appDir, "mcp_config.json")
	fleet, err := config.Load(mcpConfigPath)
	if err != nil {
		logger.AddLog("ERROR", fmt.Sprintf("failed to load %s: %v", mcpConfigPath, err))
		os.Exit(1)
	}

	bus := events.NewBus()
	credStore := credentials.NewPlatformStore("mcp-supervisor")
	heuristic := procid.Heuristic{
		AllowedExeBasenames: []string{"node", "python3", "bun", "uv", "npx", "uvx"},
	}

	sv := supervisor.New(appDir, credStore, heuristic, bus, supervisor.WithMaxRestarts(daemonCfg.MaxRestarts))

	succeeded, failed := sv.Boot(context.Background(), fleet)
	logger.AddLog("INFO", fmt.Sprintf("boot complete: %d succeeded, %d failed", succeeded, failed))

	controlServer := api.NewServer(sv, sv.Bridge, bus, mcpConfigPath)
	go func() {
		logger.AddLog("INFO", fmt.Sprintf("control API listening on %s", daemonCfg.ControlAddr))
		if err := controlServer.ListenAndServe(daemonCfg.ControlAddr); err != nil {
			logger.AddLog("ERROR", fmt.Sprintf("control API stopped: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.AddLog("INFO", "shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sv.StopAll(ctx, supervisor.AppExit); err != nil {
		logger.AddLog("ERROR", fmt.Sprintf("shutdown error: %v", err))
	}
}

// resolveAppDataDir mirrors the teacher's app-data resolution: an
// environment override takes precedence, falling back to the OS user
// config directory.
func resolveAppDataDir() (string, error) {
	if dir := os.Getenv("MCP_SUPERVISOR_DATA_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	dir := filepath.Join(base, "mcp-supervisor")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating app data dir: %w", err)
	}
	return dir, nil
}
