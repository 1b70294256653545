//go:build windows

package orphan

import (
	"github.com/mcp-scooter/supervisor/internal/portscan"
	"github.com/mcp-scooter/supervisor/internal/procid"
)

// DefaultLookup resolves pid's executable name via tasklist. Windows
// exposes no portable, privilege-free way to read another process's
// environment or argv, so the owner-token check in procid.Heuristic never
// matches here; ownership falls back to the executable basename allow-list.
func DefaultLookup(pid int) (procid.Candidate, bool) {
	name := portscan.ProcessName(pid)
	if name == "" {
		return procid.Candidate{}, false
	}
	return procid.Candidate{PID: pid, Exe: name}, true
}
