package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type serverStatus struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	PID       int    `json:"pid,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List every registered server and whether it is connected",
	RunE: func(c *cobra.Command, args []string) error {
		resp, err := httpClient.Get(controlAddr + "/api/servers")
		if err != nil {
			return fmt.Errorf("contacting supervisord: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("supervisord returned %s: %s", resp.Status, string(body))
		}

		if jsonOutput {
			fmt.Println(string(body))
			return nil
		}

		var servers []serverStatus
		if err := json.Unmarshal(body, &servers); err != nil {
			return err
		}

		table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"NAME", "STATUS", "PID"}))
		for _, s := range servers {
			status := color.RedString("down")
			if s.Connected {
				status = color.GreenString("connected")
			}
			pid := ""
			if s.PID != 0 {
				pid = fmt.Sprintf("%d", s.PID)
			}
			table.Append([]string{s.Name, status, pid})
		}
		table.Render()
		return nil
	},
}
