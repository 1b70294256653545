// Package procid decides whether a process found occupying a port or
// recorded in a lockfile is one the supervisor itself owns. It is consulted
// by internal/orphan before anything gets killed.
package procid

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
)

// OwnerEnvVar is set on every child the launcher spawns, so a live process
// can always be recognized as ours without guessing from its command line.
const OwnerEnvVar = "MCP_SUPERVISOR_OWNER"

// Candidate is what little the orphan sweeper can learn about a process it
// did not spawn itself: its executable path, its argv, and (when the OS
// exposes it cheaply) its environment.
type Candidate struct {
	PID  int
	Exe  string
	Args []string
	Env  map[string]string
}

// Heuristic decides whether a Candidate is a supervisor-owned MCP server.
// The zero value is usable and applies only the built-in rules; a non-empty
// Expr additionally runs a user-supplied predicate for edge cases the
// built-in rules cannot anticipate (spec.md §6b).
type Heuristic struct {
	// OwnerToken is compared against Candidate.Env[OwnerEnvVar]. A process
	// started by this supervisor process always carries this token.
	OwnerToken string

	// AllowedExeBasenames is an allow-list checked whenever the owner-token
	// check does not match, including when the environment cannot be
	// inspected (e.g. the process belongs to a different user, or
	// /proc/<pid>/environ is unreadable): "node", "python3", "bun", "uv"
	// and similar loader binaries that stdio MCP servers are commonly
	// launched through. A basename match alone marks the candidate as ours.
	AllowedExeBasenames []string

	// Expr, if non-empty, is a JavaScript boolean expression evaluated
	// with `exe`, `args`, and `env` bound in scope. It is combined with
	// the built-in rules by OR: a candidate that the expression accepts
	// is treated as ours even if the built-in rules would reject it.
	Expr string
}

// Owns reports whether c should be treated as a process this supervisor
// launched (directly or via a wrapper like bun/uv) and is therefore safe to
// terminate during orphan reclamation.
func (h Heuristic) Owns(c Candidate) (bool, error) {
	if h.OwnerToken != "" && c.Env[OwnerEnvVar] == h.OwnerToken {
		return true, nil
	}

	base := filepath.Base(c.Exe)
	for _, allowed := range h.AllowedExeBasenames {
		if strings.EqualFold(base, allowed) || strings.EqualFold(trimExeSuffix(base), allowed) {
			return true, nil
		}
	}

	if h.Expr == "" {
		return false, nil
	}

	ok, err := h.evalExpr(c)
	if err != nil {
		return false, fmt.Errorf("procid: evaluating custom predicate: %w", err)
	}
	return ok, nil
}

// evalExpr runs Expr in a fresh goja runtime per call. Candidates are
// evaluated one at a time and infrequently (only during orphan reclamation),
// so the cost of a fresh VM is not worth amortizing with a pool.
func (h Heuristic) evalExpr(c Candidate) (bool, error) {
	vm := goja.New()

	if err := vm.Set("exe", c.Exe); err != nil {
		return false, err
	}
	if err := vm.Set("args", c.Args); err != nil {
		return false, err
	}
	env := c.Env
	if env == nil {
		env = map[string]string{}
	}
	if err := vm.Set("env", env); err != nil {
		return false, err
	}

	v, err := vm.RunString("(function() { return Boolean(" + h.Expr + "); })()")
	if err != nil {
		return false, err
	}
	return v.ToBoolean(), nil
}

func trimExeSuffix(base string) string {
	return strings.TrimSuffix(base, ".exe")
}
