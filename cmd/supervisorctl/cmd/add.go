package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcp-scooter/supervisor/internal/config"
)

var (
	addType string
	addURL  string
	addArgs []string
	addEnv  []string
)

var addCmd = &cobra.Command{
	Use:   "add <name> <command>",
	Short: "Add a new stdio server to the fleet, or use --type sse/http with --url",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(c *cobra.Command, args []string) error {
		name := args[0]
		cfg := config.ServerConfig{Type: config.TransportType(addType)}

		switch cfg.EffectiveType() {
		case config.TransportSSE, config.TransportHTTP:
			if addURL == "" {
				return fmt.Errorf("--url is required for type %s", addType)
			}
			cfg.URL = addURL
		default:
			if len(args) < 2 {
				return fmt.Errorf("a command is required for stdio servers")
			}
			cfg.Command = args[1]
			cfg.Args = addArgs
		}

		if len(addEnv) > 0 {
			cfg.Env = map[string]string{}
			for _, kv := range addEnv {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid --env value %q, expected KEY=VALUE", kv)
				}
				cfg.Env[k] = v
			}
		}

		body, err := json.Marshal(map[string]interface{}{"name": name, "config": cfg})
		if err != nil {
			return err
		}
		resp, err := httpClient.Post(controlAddr+"/api/config/servers", "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("contacting supervisord: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("supervisord returned %s: %s", resp.Status, string(respBody))
		}
		fmt.Println(string(respBody))
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addType, "type", "stdio", "stdio, sse, or http")
	addCmd.Flags().StringVar(&addURL, "url", "", "endpoint URL for sse/http servers")
	addCmd.Flags().StringArrayVar(&addArgs, "arg", nil, "argument to pass the stdio command (repeatable)")
	addCmd.Flags().StringArrayVar(&addEnv, "env", nil, "KEY=VALUE environment entry (repeatable)")
}
