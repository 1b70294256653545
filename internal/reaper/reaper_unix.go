//go:build !windows

package reaper

import (
	"fmt"
	"syscall"
	"time"
)

// Alive reports whether pid is a live, signalable process by sending the
// null signal, the standard POSIX probe for existence that does not
// actually affect the target.
func Alive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// Terminate sends SIGTERM, polls for exit, and escalates to SIGKILL if the
// process has not exited within GracefulPolls*PollInterval.
func Terminate(pid int) error {
	if !Alive(pid) {
		return nil
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("reaper: SIGTERM pid %d: %w", pid, err)
	}

	for i := 0; i < GracefulPolls; i++ {
		time.Sleep(PollInterval)
		if !Alive(pid) {
			return nil
		}
	}

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("reaper: SIGKILL pid %d: %w", pid, err)
	}
	return nil
}
