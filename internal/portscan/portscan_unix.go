//go:build !windows

package portscan

import (
	"bufio"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// findProcessUsingPort shells out to lsof, the closest thing unix-likes
// have to a portable "who owns this port" tool. A missing lsof binary is
// treated as "holder unknown" rather than an error, since the fallback
// in internal/orphan only needs a best-effort name for its error message.
func findProcessUsingPort(port int) (*Holder, error) {
	out, err := exec.Command("lsof", "-t", "-i", fmt.Sprintf("TCP:%d", port), "-sTCP:LISTEN").Output()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return nil, nil
		}
		return nil, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	if !scanner.Scan() {
		return nil, nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return nil, nil
	}

	name := processName(pid)
	return &Holder{PID: pid, Name: name}, nil
}

func processName(pid int) string {
	out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "comm=").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
