// Command supervisorctl is the CLI front end for a running supervisord
// instance's control API.
package main

import (
	"fmt"
	"os"

	"github.com/mcp-scooter/supervisor/cmd/supervisorctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
