//go:build windows

package reaper

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Alive shells out to tasklist, the portable way to check for a PID's
// existence on Windows without cgo or golang.org/x/sys/windows handles.
func Alive(pid int) bool {
	out, err := exec.Command("tasklist", "/FI", "PID eq "+strconv.Itoa(pid), "/NH").Output()
	if err != nil {
		return false
	}
	return strings.Contains(string(out), strconv.Itoa(pid))
}

// Terminate force-kills pid directly with taskkill /F. Unlike the unix
// path there is no separate graceful attempt first: Windows consoles do
// not reliably deliver a termination request a child can act on, so the
// original implementation this supervisor follows issues a force taskkill
// immediately.
func Terminate(pid int) error {
	if !Alive(pid) {
		return nil
	}
	cmd := exec.Command("taskkill", "/F", "/PID", strconv.Itoa(pid))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("reaper: taskkill /F /PID %d: %w (%s)", pid, err, strings.TrimSpace(string(out)))
	}
	return nil
}
