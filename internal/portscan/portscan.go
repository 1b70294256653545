// Package portscan answers the two questions the Orphan Sweeper needs about
// a TCP port: is it free, and if not, which process holds it.
package portscan

import (
	"fmt"
	"net"
)

// Available reports whether port can currently be bound on localhost. It is
// a direct bind-and-release probe rather than a parsed listing, so it is
// accurate regardless of which tool (if any) the OS exposes for listing
// sockets.
func Available(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}

// Holder describes the process found bound to a port.
type Holder struct {
	PID  int
	Name string
}

// FindProcessUsingPort looks up which process, if any, is bound to port.
// Implemented per-OS in portscan_unix.go / portscan_windows.go since there
// is no portable syscall for this in the standard library. Returns
// (nil, nil) when the port is free or the holder cannot be identified.
func FindProcessUsingPort(port int) (*Holder, error) {
	return findProcessUsingPort(port)
}

// ProcessName returns the short command name of pid via the OS's process
// listing tool (ps/tasklist), or "" if pid does not exist or the tool is
// unavailable. Exported so the orphan sweeper can fall back to it when a
// more detailed process inspection (e.g. /proc on unix) is not possible.
func ProcessName(pid int) string {
	return processName(pid)
}
