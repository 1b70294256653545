//go:build !windows

package orphan

import (
	"os"
	"strconv"
	"strings"

	"github.com/mcp-scooter/supervisor/internal/portscan"
	"github.com/mcp-scooter/supervisor/internal/procid"
)

// DefaultLookup resolves pid's executable path, argv, and environment by
// reading /proc, the standard unix way to inspect another process without
// special privileges (same user) or cgo. It is the ProcessInfoLookup wired
// into the Transport Launcher by default.
func DefaultLookup(pid int) (procid.Candidate, bool) {
	base := "/proc/" + strconv.Itoa(pid)

	exe, err := os.Readlink(base + "/exe")
	if err != nil {
		// Different user, or the process is gone; ps can still often
		// report a name even when /proc/<pid>/exe is unreadable.
		exe = portscan.ProcessName(pid)
	}
	args := readProcList(base + "/cmdline")
	env := readProcEnviron(base + "/environ")

	if exe == "" && len(args) == 0 && len(env) == 0 {
		return procid.Candidate{}, false
	}
	return procid.Candidate{PID: pid, Exe: exe, Args: args, Env: env}, true
}

func readProcList(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return nil
	}
	fields := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func readProcEnviron(path string) map[string]string {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return nil
	}
	env := make(map[string]string)
	for _, kv := range strings.Split(strings.TrimRight(string(data), "\x00"), "\x00") {
		if kv == "" {
			continue
		}
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			env[kv[:idx]] = kv[idx+1:]
		}
	}
	return env
}
