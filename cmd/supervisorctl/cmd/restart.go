package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart <name>",
	Short: "Force one server to disconnect and restart",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		return postAndPrint(controlAddr + "/api/servers/" + args[0] + "/restart")
	},
}

var restartActiveCmd = &cobra.Command{
	Use:   "restart-active",
	Short: "Restart every registered server",
	RunE: func(c *cobra.Command, args []string) error {
		return postAndPrint(controlAddr + "/api/servers/restart-active")
	},
}

func postAndPrint(url string) error {
	resp, err := httpClient.Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("contacting supervisord: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("supervisord returned %s: %s", resp.Status, string(body))
	}
	fmt.Println(string(body))
	return nil
}
