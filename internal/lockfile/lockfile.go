// Package lockfile manages the per-port lock files the supervisor writes
// for stdio servers that bind a local port (e.g. a browser-bridge helper),
// so a subsequent run of the supervisor can recognize and reclaim its own
// orphaned child even after a crash wiped its in-memory state.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Info is the parsed contents of one lock file.
type Info struct {
	Port       int
	PID        int
	Name       string
	OwnerToken string
	CreatedAt  time.Time
}

// dir returns the directory lock files live under; Write creates it.
func dir(appDataDir string) string {
	return filepath.Join(appDataDir, "mcp_locks")
}

func path(appDataDir string, port int) string {
	return filepath.Join(dir(appDataDir), fmt.Sprintf("%d.lock", port))
}

// Write records that pid is listening on port on behalf of server name,
// authored by the supervisor instance identified by ownerToken. The file
// format is five lines -- pid, port, name, owner_token, created_at (unix
// seconds) -- simple enough to survive hand inspection during an incident.
func Write(appDataDir string, port, pid int, name, ownerToken string) error {
	if err := os.MkdirAll(dir(appDataDir), 0755); err != nil {
		return fmt.Errorf("lockfile: creating lock directory: %w", err)
	}
	contents := fmt.Sprintf("%d\n%d\n%s\n%s\n%d\n", pid, port, name, ownerToken, time.Now().Unix())
	return os.WriteFile(path(appDataDir, port), []byte(contents), 0644)
}

// Read loads the lock file for port, if one exists. A missing file is
// reported as (nil, nil), not an error -- absence is an expected state.
// owner_token and created_at are absent in lock files written before they
// were tracked; Read reports zero values for those rather than erroring.
func Read(appDataDir string, port int) (*Info, error) {
	data, err := os.ReadFile(path(appDataDir, port))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lockfile: reading lock file for port %d: %w", port, err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("lockfile: malformed lock file for port %d", port)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return nil, fmt.Errorf("lockfile: malformed pid in lock file for port %d: %w", port, err)
	}
	lockedPort, err := strconv.Atoi(strings.TrimSpace(lines[1]))
	if err != nil {
		return nil, fmt.Errorf("lockfile: malformed port in lock file for port %d: %w", port, err)
	}
	name := ""
	if len(lines) >= 3 {
		name = lines[2]
	}
	ownerToken := ""
	if len(lines) >= 4 {
		ownerToken = lines[3]
	}
	var createdAt time.Time
	if len(lines) >= 5 {
		if sec, err := strconv.ParseInt(strings.TrimSpace(lines[4]), 10, 64); err == nil {
			createdAt = time.Unix(sec, 0)
		}
	}
	return &Info{Port: lockedPort, PID: pid, Name: name, OwnerToken: ownerToken, CreatedAt: createdAt}, nil
}

// Delete removes the lock file for port. Deleting an absent file is not an
// error.
func Delete(appDataDir string, port int) error {
	err := os.Remove(path(appDataDir, port))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lockfile: deleting lock file for port %d: %w", port, err)
	}
	return nil
}

// CleanupOwn removes every lock file authored by ownerToken, the way the
// original's cleanup_own(owner_token) does: on a clean exit the supervisor
// reclaims everything it wrote regardless of whether the child it named is
// still the live PID, rather than trusting its own possibly-stale in-memory
// PID table. A blank ownerToken matches nothing.
func CleanupOwn(appDataDir string, ownerToken string) error {
	if ownerToken == "" {
		return nil
	}

	entries, err := os.ReadDir(dir(appDataDir))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lockfile: listing lock directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		portStr := strings.TrimSuffix(e.Name(), ".lock")
		port, err := strconv.Atoi(portStr)
		if err != nil {
			continue
		}
		info, err := Read(appDataDir, port)
		if err != nil || info == nil {
			continue
		}
		if info.OwnerToken == ownerToken {
			_ = Delete(appDataDir, port)
		}
	}
	return nil
}
