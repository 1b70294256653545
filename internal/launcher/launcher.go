// Package launcher is the Transport Launcher: it takes one server's config
// and produces a connected mcpclient.Client, dispatching to the stdio, sse,
// or http transport and applying the command-rewriting, orphan-reclamation,
// and verification-window behavior each requires.
package launcher

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/mcp-scooter/supervisor/internal/config"
	"github.com/mcp-scooter/supervisor/internal/credentials"
	"github.com/mcp-scooter/supervisor/internal/elicitation"
	"github.com/mcp-scooter/supervisor/internal/lockfile"
	"github.com/mcp-scooter/supervisor/internal/mcpclient"
	"github.com/mcp-scooter/supervisor/internal/oauthinject"
	"github.com/mcp-scooter/supervisor/internal/orphan"
	"github.com/mcp-scooter/supervisor/internal/procid"
)

// VerificationWindow is how long a freshly spawned stdio server is given
// to prove it has not immediately exited before it is counted as started.
const VerificationWindow = 500 * time.Millisecond

// BridgePortEnvVar names the environment variable a stdio server may use to
// advertise a local port it binds, which the launcher then reclaims from
// any orphaned prior instance before spawning.
const BridgePortEnvVar = "BRIDGE_PORT"

// Launcher builds and connects mcpclient.Client instances from config.
type Launcher struct {
	AppDataDir      string
	CredentialStore credentials.Store
	Heuristic       procid.Heuristic
	OwnerToken      string
	Bridge          *elicitation.Bridge
	HTTPClient      *http.Client

	// ProcessInfoLookup resolves a PID to ownership-check details; wired by
	// the caller since the mechanism for reading another process's
	// environment and argv is OS-specific.
	ProcessInfoLookup orphan.ProcessInfoLookup
}

// Launched bundles a connected Client with launcher-owned resources the
// caller (restart engine, health monitor) needs for its lifetime.
type Launched struct {
	Client     mcpclient.Client
	PID        int // 0 for non-process (sse/http) transports
	StderrTail fmt.Stringer
}

// Launch connects to srv by name according to cfg, dispatching on
// cfg.EffectiveType().
func (l *Launcher) Launch(ctx context.Context, name string, cfg config.ServerConfig) (*Launched, error) {
	switch cfg.EffectiveType() {
	case config.TransportSSE:
		return l.launchRemote(ctx, name, cfg, mcpclient.KindWithInit)
	case config.TransportHTTP:
		return l.launchRemote(ctx, name, cfg, mcpclient.KindWithElicit)
	default:
		return l.launchStdio(ctx, name, cfg)
	}
}

func (l *Launcher) launchRemote(ctx context.Context, name string, cfg config.ServerConfig, kind mcpclient.Kind) (*Launched, error) {
	headers, err := credentials.ResolveMap(l.CredentialStore, cfg.Headers)
	if err != nil {
		return nil, fmt.Errorf("launcher: resolving headers for %s: %w", name, err)
	}
	headers, err = oauthinject.Inject(ctx, cfg.OAuth, headers)
	if err != nil {
		return nil, fmt.Errorf("launcher: injecting oauth token for %s: %w", name, err)
	}

	httpClient := l.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout := cfg.ConnectTimeout(); timeout > 0 {
		clientCopy := *httpClient
		clientCopy.Timeout = timeout
		httpClient = &clientCopy
	}

	var elicit mcpclient.ElicitationHandler
	if kind == mcpclient.KindWithElicit && l.Bridge != nil {
		elicit = l.Bridge.Handler()
	}

	client, err := mcpclient.Dial(ctx, kind, name, cfg.URL, headers, httpClient, elicit)
	if err != nil {
		return nil, fmt.Errorf("launcher: connecting to %s: %w", name, err)
	}
	return &Launched{Client: client}, nil
}

func (l *Launcher) launchStdio(ctx context.Context, name string, cfg config.ServerConfig) (*Launched, error) {
	command, args := rewriteCommand(cfg.Command, cfg.Args)

	env, err := credentials.ResolveMap(l.CredentialStore, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("launcher: resolving env for %s: %w", name, err)
	}

	if bridgePort, ok := env[BridgePortEnvVar]; ok {
		if port, perr := parsePort(bridgePort); perr == nil {
			if _, rerr := orphan.Reclaim(l.AppDataDir, port, l.Heuristic, l.ProcessInfoLookup); rerr != nil {
				return nil, fmt.Errorf("launcher: reclaiming port %d for %s: %w", port, name, rerr)
			}
		}
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if l.OwnerToken != "" {
		cmd.Env = append(cmd.Env, procid.OwnerEnvVar+"="+l.OwnerToken)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("launcher: creating stdin pipe for %s: %w", name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("launcher: creating stdout pipe for %s: %w", name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("launcher: creating stderr pipe for %s: %w", name, err)
	}

	stderrTail := mcpclient.NewStderrTail()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launcher: starting %s: %w", name, err)
	}
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			mcpclient.AddStderrLine(stderrTail, scanner.Text())
		}
	}()

	// cmd.Wait may only be called once for this process, so it is started
	// here and its result shared with both the verification window below
	// and the client's eventual Cancel, rather than each calling it
	// themselves.
	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	client, err := mcpclient.NewStdioClient(ctx, cmd, stdin, stdout, stderrTail, waitDone, 60*time.Second)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("launcher: handshake with %s failed: %w", name, err)
	}

	select {
	case waitErr := <-waitDone:
		if waitErr == nil {
			return nil, fmt.Errorf("launcher: %s quit immediately after starting", name)
		}
		return nil, fmt.Errorf("launcher: %s quit immediately after starting: %w", name, waitErr)
	case <-time.After(VerificationWindow):
	}

	if bridgePort, ok := env[BridgePortEnvVar]; ok {
		if port, perr := parsePort(bridgePort); perr == nil {
			_ = lockfile.Write(l.AppDataDir, port, cmd.Process.Pid, name, l.OwnerToken)
		}
	}

	return &Launched{Client: client, PID: cmd.Process.Pid, StderrTail: stderrTail}, nil
}

func parsePort(s string) (int, error) {
	var port int
	_, err := fmt.Sscanf(s, "%d", &port)
	return port, err
}

// rewriteCommand substitutes a bundled runtime for npx/uvx invocations when
// one is available, the way the original launcher prefers its bundled
// JavaScript and Python toolchains over requiring the host to have them
// pre-installed. A missing bundled runtime leaves the command untouched.
func rewriteCommand(command string, args []string) (string, []string) {
	switch command {
	case "npx":
		if bunPath, ok := bundledRuntime("bun"); ok {
			return bunPath, append([]string{"x"}, args...)
		}
	case "uvx":
		if uvPath, ok := bundledRuntime("uv"); ok {
			return uvPath, append([]string{"tool", "run"}, args...)
		}
	}
	return command, args
}

// osExecutable is a var indirection over os.Executable so tests can point
// bundledRuntime at a throwaway path instead of the test binary itself.
var osExecutable = os.Executable

// bundledRuntime reports whether a bundled copy of name is available next
// to the supervisor's own executable, and its path if so.
func bundledRuntime(name string) (string, bool) {
	exePath, err := osExecutable()
	if err != nil {
		return "", false
	}
	candidate := exePath + "-runtimes-" + name
	if _, err := os.Stat(candidate); err != nil {
		return "", false
	}
	return candidate, true
}
