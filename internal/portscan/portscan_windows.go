//go:build windows

package portscan

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// findProcessUsingPort parses `netstat -ano`, the standard way to map a
// listening port back to a PID on Windows without additional dependencies.
func findProcessUsingPort(port int) (*Holder, error) {
	out, err := exec.Command("netstat", "-ano", "-p", "TCP").Output()
	if err != nil {
		return nil, nil
	}

	needle := fmt.Sprintf(":%d", port)
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		if fields[0] != "TCP" || !strings.Contains(fields[1], needle) || fields[3] != "LISTENING" {
			continue
		}
		pid, err := strconv.Atoi(fields[4])
		if err != nil {
			continue
		}
		return &Holder{PID: pid, Name: processName(pid)}, nil
	}
	return nil, nil
}

func processName(pid int) string {
	out, err := exec.Command("tasklist", "/FI", "PID eq "+strconv.Itoa(pid), "/NH", "/FO", "CSV").Output()
	if err != nil {
		return ""
	}
	line := strings.TrimSpace(string(out))
	parts := strings.Split(line, ",")
	if len(parts) == 0 {
		return ""
	}
	return strings.Trim(parts[0], `"`)
}
