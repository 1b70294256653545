// Package orphan reclaims a port left bound by a server instance the
// supervisor lost track of -- typically because a previous run crashed
// before it could clean up its own child. It is consulted by the Transport
// Launcher before binding a port a stdio server is about to claim.
package orphan

import (
	"fmt"

	"github.com/mcp-scooter/supervisor/internal/lockfile"
	"github.com/mcp-scooter/supervisor/internal/portscan"
	"github.com/mcp-scooter/supervisor/internal/procid"
	"github.com/mcp-scooter/supervisor/internal/reaper"
)

// ProcessInfoLookup resolves a PID to enough information for the ownership
// heuristic to judge, or returns ok=false if the PID no longer exists or
// its details could not be read.
type ProcessInfoLookup func(pid int) (procid.Candidate, bool)

// Reclaim attempts to free port for a server about to start, per the
// two-phase algorithm: first trust the lock file if one exists, then fall
// back to asking the OS who holds the port.
//
// Returns (true, nil) if an owned process was terminated or a stale lock
// file (dead PID, or unreadable) was removed; (false, nil) if there was
// nothing to reclaim (no holder found, or a lock file naming a live process
// that is not ours was deleted); and (false, err) if a foreign process holds
// the port or reclamation failed -- the caller must not proceed to bind.
func Reclaim(appDataDir string, port int, heuristic procid.Heuristic, lookup ProcessInfoLookup) (bool, error) {
	freed, handled, err := reclaimFromLockFile(appDataDir, port, heuristic, lookup)
	if err != nil {
		return false, err
	}
	if handled {
		return freed, nil
	}

	return reclaimFromPortScan(port, heuristic, lookup)
}

// reclaimFromLockFile is the fast path: if a lock file names a PID, trust
// it rather than re-discovering the holder via the OS. handled is false
// when there is no lock file at all, signaling the caller to fall back.
func reclaimFromLockFile(appDataDir string, port int, heuristic procid.Heuristic, lookup ProcessInfoLookup) (freed bool, handled bool, err error) {
	info, err := lockfile.Read(appDataDir, port)
	if err != nil {
		// An unreadable or malformed lock file is stale.
		_ = lockfile.Delete(appDataDir, port)
		return true, true, nil
	}
	if info == nil {
		return false, false, nil
	}

	if !reaper.Alive(info.PID) {
		_ = lockfile.Delete(appDataDir, port)
		return true, true, nil
	}

	cand, ok := lookup(info.PID)
	if !ok {
		// PID exists but we cannot read enough about it to judge; the
		// lock file may simply be stale from a reused PID.
		_ = lockfile.Delete(appDataDir, port)
		return false, true, nil
	}

	owns, err := heuristic.Owns(cand)
	if err != nil {
		return false, true, fmt.Errorf("orphan: evaluating ownership of pid %d: %w", info.PID, err)
	}
	if !owns {
		// PID reuse: the recorded PID is alive but is not our process.
		_ = lockfile.Delete(appDataDir, port)
		return false, true, nil
	}

	if err := reaper.Terminate(info.PID); err != nil {
		return false, true, fmt.Errorf("orphan: terminating orphaned pid %d: %w", info.PID, err)
	}
	_ = lockfile.Delete(appDataDir, port)

	if !portscan.Available(port) {
		return false, true, fmt.Errorf("orphan: port %d still in use after terminating pid %d", port, info.PID)
	}
	return true, true, nil
}

// reclaimFromPortScan is the fallback when no lock file exists: ask the OS
// directly who is bound to the port.
func reclaimFromPortScan(port int, heuristic procid.Heuristic, lookup ProcessInfoLookup) (bool, error) {
	holder, err := portscan.FindProcessUsingPort(port)
	if err != nil {
		return false, fmt.Errorf("orphan: scanning port %d: %w", port, err)
	}
	if holder == nil {
		return false, nil
	}

	cand, ok := lookup(holder.PID)
	owns := false
	if ok {
		owns, err = heuristic.Owns(cand)
		if err != nil {
			return false, fmt.Errorf("orphan: evaluating ownership of pid %d: %w", holder.PID, err)
		}
	}
	if !owns {
		return false, fmt.Errorf("orphan: port %d is held by %q (pid %d), which this supervisor did not start", port, holder.Name, holder.PID)
	}

	if err := reaper.Terminate(holder.PID); err != nil {
		return false, fmt.Errorf("orphan: terminating pid %d on port %d: %w", holder.PID, port, err)
	}
	if !portscan.Available(port) {
		return false, fmt.Errorf("orphan: port %d still in use after terminating pid %d", port, holder.PID)
	}
	return true, nil
}
