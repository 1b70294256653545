// Package health watches a connected server for liveness by periodically
// calling ListTools and treating a timeout or error as a failure that
// should trigger a restart.
package health

import (
	"context"
	"time"

	"github.com/mcp-scooter/supervisor/internal/mcpclient"
)

// CheckInterval is how often a connected server is probed.
const CheckInterval = 5 * time.Second

// CheckTimeout bounds each individual liveness probe.
const CheckTimeout = 2 * time.Second

// QuitReason names the ways a watch can end. Monitor.Watch does not return
// these values; it reports only whether a restart should follow.
type QuitReason string

const (
	// QuitDeliberate means the stop was requested by the caller, not
	// discovered by a failed health check.
	QuitDeliberate QuitReason = ""
	QuitCheckFailed QuitReason = "health_check_failed"
	QuitCheckTimeout QuitReason = "health_check_timeout"
)

// Registry looks up the live client for a server by name, returning
// ok=false once it has been removed (stopped, or never started).
type Registry interface {
	Client(name string) (mcpclient.Client, bool)
	// Remove deregisters name, called once Watch decides the server is
	// no longer healthy and is about to be cancelled.
	Remove(name string)
}

// Monitor implements restart.Monitor by periodically polling a server's
// client via ListTools.
type Monitor struct {
	Registry Registry
}

// Watch blocks until the server's connection ends, returning true if the
// restart loop should attempt to relaunch it (a check failed; the client is
// then removed from the registry and cancelled) or false for a deliberate
// stop: stopRequested was closed, ctx was cancelled, or the registry no
// longer holds a client for name.
func (m Monitor) Watch(ctx context.Context, name string, stopRequested <-chan struct{}) bool {
	ticker := time.NewTicker(CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopRequested:
			return false
		case <-ctx.Done():
			return false
		case <-ticker.C:
			client, ok := m.Registry.Client(name)
			if !ok {
				return false
			}

			checkCtx, cancel := context.WithTimeout(ctx, CheckTimeout)
			_, err := client.ListTools(checkCtx)
			cancel()
			if err != nil {
				m.Registry.Remove(name)
				_ = client.Cancel(context.Background())
				return true
			}
		}
	}
}
