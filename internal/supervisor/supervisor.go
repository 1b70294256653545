// Package supervisor is the top-level coordinator: it owns the set of
// configured servers, boots the active ones, wires each to its own restart
// loop and health monitor, and drives shutdown with the timeout table
// spec.md's shutdown contexts define.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcp-scooter/supervisor/internal/config"
	"github.com/mcp-scooter/supervisor/internal/credentials"
	"github.com/mcp-scooter/supervisor/internal/elicitation"
	"github.com/mcp-scooter/supervisor/internal/events"
	"github.com/mcp-scooter/supervisor/internal/health"
	"github.com/mcp-scooter/supervisor/internal/launcher"
	"github.com/mcp-scooter/supervisor/internal/lockfile"
	"github.com/mcp-scooter/supervisor/internal/mcpclient"
	"github.com/mcp-scooter/supervisor/internal/orphan"
	"github.com/mcp-scooter/supervisor/internal/procid"
	"github.com/mcp-scooter/supervisor/internal/reaper"
	"github.com/mcp-scooter/supervisor/internal/restart"
	"github.com/mcp-scooter/supervisor/internal/supervisorerr"
)

// ShutdownContext selects which timeout table StopAll applies, mirroring
// the three situations a shutdown can originate from.
type ShutdownContext int

const (
	AppExit ShutdownContext = iota
	ManualRestart
	FactoryReset
)

// PerServerTimeout is how long each server's Cancel is given before it is
// counted as failed and force-killed instead.
func (c ShutdownContext) PerServerTimeout() time.Duration {
	switch c {
	case ManualRestart:
		return 2 * time.Second
	case FactoryReset:
		return 5 * time.Second
	default:
		return 500 * time.Millisecond
	}
}

// OverallTimeout bounds the entire StopAll call, regardless of how many
// servers are running.
func (c ShutdownContext) OverallTimeout() time.Duration {
	switch c {
	case ManualRestart:
		return 5 * time.Second
	case FactoryReset:
		return 10 * time.Second
	default:
		return 1500 * time.Millisecond
	}
}

// entry is the supervisor's bookkeeping for one configured server.
type entry struct {
	config        config.ServerConfig
	client        mcpclient.Client
	pid           int
	connected     bool
	stopRequested chan struct{}
	stopOnce      sync.Once
	loopDone      chan struct{}
}

// Supervisor coordinates every configured server's lifecycle.
type Supervisor struct {
	AppDataDir      string
	CredentialStore credentials.Store
	Heuristic       procid.Heuristic
	Launcher        *launcher.Launcher
	Bridge          *elicitation.Bridge
	Bus             *events.Bus

	ownerToken string
	settings   config.Settings
	maxRestarts int

	mu      sync.Mutex
	entries map[string]*entry

	shutdownMu         sync.Mutex
	shutdownInProgress bool
}

// Option configures a New Supervisor.
type Option func(*Supervisor)

// WithSettings overrides the restart/backoff settings applied to every
// server's restart loop.
func WithSettings(s config.Settings) Option {
	return func(sv *Supervisor) { sv.settings = s }
}

// WithMaxRestarts caps how many consecutive restart attempts a server gets
// before the supervisor gives up on it. Zero means unlimited.
func WithMaxRestarts(n int) Option {
	return func(sv *Supervisor) { sv.maxRestarts = n }
}

// New constructs a Supervisor. The owner token is generated once per
// process and stamped onto every child this supervisor spawns, so a later
// run (or the orphan sweeper within this same run) can recognize it.
func New(appDataDir string, cred credentials.Store, heuristic procid.Heuristic, bus *events.Bus, opts ...Option) *Supervisor {
	bridge := elicitation.NewBridge(bus)
	ownerToken := uuid.NewString()
	heuristic.OwnerToken = ownerToken

	sv := &Supervisor{
		AppDataDir:      appDataDir,
		CredentialStore: cred,
		Heuristic:       heuristic,
		Bridge:          bridge,
		Bus:             bus,
		ownerToken:      ownerToken,
		settings:        config.DefaultSettings(),
		entries:         make(map[string]*entry),
	}
	sv.Launcher = &launcher.Launcher{
		AppDataDir:        appDataDir,
		CredentialStore:   cred,
		Heuristic:         heuristic,
		OwnerToken:        ownerToken,
		Bridge:            bridge,
		ProcessInfoLookup: orphan.DefaultLookup,
	}
	for _, opt := range opts {
		opt(sv)
	}
	return sv
}

// Boot starts every active server in f, in parallel, tolerating individual
// failures: one server failing to start never prevents the others from
// starting. Returns the count that connected successfully and failed.
func (sv *Supervisor) Boot(ctx context.Context, f *config.File) (succeeded, failed int) {
	sv.settings = f.MCPSettings

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, cfg := range f.MCPServers {
		if !cfg.IsActive() {
			continue
		}
		wg.Add(1)
		go func(name string, cfg config.ServerConfig) {
			defer wg.Done()
			err := sv.AddServer(ctx, name, cfg)
			mu.Lock()
			if err != nil {
				failed++
			} else {
				succeeded++
			}
			mu.Unlock()
		}(name, cfg)
	}
	wg.Wait()
	return succeeded, failed
}

// AddServer registers and starts one server, launching its restart loop in
// the background. Returns once the first launch attempt has completed (not
// once the restart loop itself exits).
func (sv *Supervisor) AddServer(ctx context.Context, name string, cfg config.ServerConfig) error {
	sv.mu.Lock()
	if _, exists := sv.entries[name]; exists {
		sv.mu.Unlock()
		return supervisorerr.New(supervisorerr.KindAlreadyRunning, name, "server is already registered")
	}
	e := &entry{
		config:        cfg,
		stopRequested: make(chan struct{}),
		loopDone:      make(chan struct{}),
	}
	sv.entries[name] = e
	sv.mu.Unlock()

	startResult := make(chan error, 1)
	go func() {
		loop := &restart.Loop{
			Name:          name,
			Settings:      sv.settings,
			MaxRestarts:   sv.maxRestarts,
			Launcher:      sv.restartLauncherAdapter(name, startResult),
			Monitor:       health.Monitor{Registry: sv},
			Bus:           sv.Bus,
			StopRequested: e.stopRequested,
		}
		loop.Run(ctx)
		close(e.loopDone)
	}()

	select {
	case err := <-startResult:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// restartLauncherAdapter returns a restart.Launcher that performs the
// actual launch and updates this entry's bookkeeping, reporting the
// outcome of only its first invocation on firstResult.
func (sv *Supervisor) restartLauncherAdapter(name string, firstResult chan<- error) restart.Launcher {
	reported := false
	return launcherFunc(func(ctx context.Context, srvName string) (bool, error) {
		sv.mu.Lock()
		e, ok := sv.entries[srvName]
		cfg := e.config
		sv.mu.Unlock()
		if !ok {
			return false, fmt.Errorf("supervisor: %s is no longer registered", srvName)
		}

		launched, err := sv.Launcher.Launch(ctx, srvName, cfg)

		sv.mu.Lock()
		if err == nil {
			e.client = launched.Client
			e.pid = launched.PID
			e.connected = true
		} else {
			e.connected = false
		}
		sv.mu.Unlock()

		if !reported {
			reported = true
			var reportErr error
			if err != nil {
				reportErr = err
			}
			select {
			case firstResult <- reportErr:
			default:
			}
		}

		if err != nil {
			sv.Bus.Publish(events.TopicServerUpdate, events.ServerUpdate{Name: name, Status: "failed"})
			return false, err
		}
		sv.Bus.Publish(events.TopicServerUpdate, events.ServerUpdate{Name: name, Status: "connected"})
		return true, nil
	})
}

type launcherFunc func(ctx context.Context, name string) (bool, error)

func (f launcherFunc) Start(ctx context.Context, name string) (bool, error) { return f(ctx, name) }

// Client implements health.Registry.
func (sv *Supervisor) Client(name string) (mcpclient.Client, bool) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	e, ok := sv.entries[name]
	if !ok || e.client == nil {
		return nil, false
	}
	return e.client, true
}

// Remove implements health.Registry: drops the cached client so a failed
// health check is not reused, but keeps the entry itself (and its restart
// loop) alive.
func (sv *Supervisor) Remove(name string) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if e, ok := sv.entries[name]; ok {
		e.client = nil
		e.connected = false
	}
}

// Status is a point-in-time snapshot of one server for the control API.
type Status struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	PID       int    `json:"pid,omitempty"`
}

// ListStatus returns a snapshot of every registered server.
func (sv *Supervisor) ListStatus() []Status {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	out := make([]Status, 0, len(sv.entries))
	for name, e := range sv.entries {
		out = append(out, Status{Name: name, Connected: e.connected, PID: e.pid})
	}
	return out
}

// RestartServer cancels a server's current connection so its already
// running restart loop observes the failure and begins a fresh backoff
// cycle. Closing and recreating the loop's stop channel would not be safe
// to do from outside the loop, so this works through the same health-check
// failure path a genuine crash would take.
func (sv *Supervisor) RestartServer(ctx context.Context, name string) error {
	sv.mu.Lock()
	e, ok := sv.entries[name]
	sv.mu.Unlock()
	if !ok {
		return supervisorerr.New(supervisorerr.KindNotFound, name, "no such server")
	}
	if e.client == nil {
		return nil
	}
	return e.client.Cancel(ctx)
}

// RestartActiveServers restarts every currently registered server
// independently; one failing to restart does not block the others.
func (sv *Supervisor) RestartActiveServers(ctx context.Context) {
	sv.mu.Lock()
	names := make([]string, 0, len(sv.entries))
	for name := range sv.entries {
		names = append(names, name)
	}
	sv.mu.Unlock()

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_ = sv.RestartServer(ctx, name)
		}(name)
	}
	wg.Wait()
}

// StopAll shuts down every registered server using sc's timeout table. It
// is re-entrant-safe: a concurrent call while a shutdown is already in
// progress returns immediately without duplicating work.
func (sv *Supervisor) StopAll(ctx context.Context, sc ShutdownContext) error {
	sv.shutdownMu.Lock()
	if sv.shutdownInProgress {
		sv.shutdownMu.Unlock()
		return nil
	}
	sv.shutdownInProgress = true
	sv.shutdownMu.Unlock()
	defer func() {
		sv.shutdownMu.Lock()
		sv.shutdownInProgress = false
		sv.shutdownMu.Unlock()
	}()

	sv.mu.Lock()
	names := make([]string, 0, len(sv.entries))
	clients := make(map[string]mcpclient.Client, len(sv.entries))
	pids := make(map[string]int, len(sv.entries))
	for name, e := range sv.entries {
		names = append(names, name)
		clients[name] = e.client
		pids[name] = e.pid
		e.stopOnce.Do(func() { close(e.stopRequested) })
	}
	sv.mu.Unlock()

	if len(names) == 0 {
		return nil
	}

	perServerTimeout := sc.PerServerTimeout()
	overallTimeout := sc.OverallTimeout()

	failed := make(map[string]bool)
	var failedMu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range names {
		client := clients[name]
		if client == nil {
			continue
		}
		wg.Add(1)
		go func(name string, client mcpclient.Client) {
			defer wg.Done()
			cancelCtx, cancel := context.WithTimeout(context.Background(), perServerTimeout)
			defer cancel()
			if err := client.Cancel(cancelCtx); err != nil {
				failedMu.Lock()
				failed[name] = true
				failedMu.Unlock()
			}
		}(name, client)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(overallTimeout):
		failedMu.Lock()
		for _, name := range names {
			failed[name] = true
		}
		failedMu.Unlock()
	}

	for _, name := range names {
		if failed[name] && pids[name] != 0 {
			_ = reaper.Terminate(pids[name])
		}
	}

	_ = lockfile.CleanupOwn(sv.AppDataDir, sv.ownerToken)

	sv.mu.Lock()
	for _, name := range names {
		delete(sv.entries, name)
	}
	sv.mu.Unlock()

	time.Sleep(200 * time.Millisecond)
	return nil
}
