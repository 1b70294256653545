// Package cmd implements the supervisorctl command tree.
package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	controlAddr string
	jsonOutput  bool
	httpClient  = &http.Client{Timeout: 10 * time.Second}
)

var rootCmd = &cobra.Command{
	Use:           "supervisorctl",
	Short:         "Inspect and manage a running supervisord instance",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&controlAddr, "addr", "http://127.0.0.1:8787", "supervisord control API base URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON instead of a formatted table")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(restartActiveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(logsCmd)
}

// Execute runs the command tree. Transport failures are classified so the
// user sees a suggested next step instead of a raw error chain.
func Execute() error {
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}
	ce := classify(err)
	if ce.hint != "" {
		return fmt.Errorf("%s\nhint: %s", ce.message, ce.hint)
	}
	return ce
}
