// Package reaper terminates processes by PID using the two-tier policy
// spec.md §4.3/§4.8 requires: a graceful signal first, then a bounded poll,
// then a force kill. The actual signal mechanics differ by OS and live in
// reaper_unix.go / reaper_windows.go behind the Terminate function.
package reaper

import "time"

// PollInterval is how often Terminate checks whether a process has exited
// after the graceful signal, and GracefulPolls bounds how many times it
// checks before giving up and force-killing.
const (
	PollInterval  = 100 * time.Millisecond
	GracefulPolls = 30
)

// Alive and Terminate are implemented per-OS in reaper_unix.go and
// reaper_windows.go:
//
//	Alive(pid int) bool
//	Terminate(pid int) error
//
// Terminate applies the graceful-then-forceful policy: send the platform's
// graceful stop signal, poll Alive every PollInterval up to GracefulPolls
// times, and force-kill if the process is still alive afterward.
