package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mcp-scooter/supervisor/internal/logger"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the in-memory log buffer",
	RunE: func(c *cobra.Command, args []string) error {
		resp, err := httpClient.Get(controlAddr + "/api/logs")
		if err != nil {
			return fmt.Errorf("contacting supervisord: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if jsonOutput {
			fmt.Println(string(body))
			return nil
		}

		var entries []logger.LogEntry
		if err := json.Unmarshal(body, &entries); err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("[%s] [%s] %s\n", e.Timestamp, e.Level, e.Message)
		}
		return nil
	},
}
