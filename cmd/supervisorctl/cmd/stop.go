package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var shutdownContext string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop every running server and shut the supervisor down",
	RunE: func(c *cobra.Command, args []string) error {
		body, _ := json.Marshal(map[string]string{"context": shutdownContext})
		resp, err := httpClient.Post(controlAddr+"/api/shutdown", "application/json", bytes.NewReader(body))
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
	stopCmd.Flags().StringVar(&shutdownContext, "context", "app_exit", "one of app_exit, manual_restart, factory_reset")
}
