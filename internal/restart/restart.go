// Package restart implements the exponential-backoff restart engine: the
// delay formula and the main loop that drives repeated (re)launch attempts
// for one server until it either stabilizes, is deliberately stopped, or
// exhausts its restart budget.
package restart

import (
	"context"
	"math"
	"time"

	"github.com/mcp-scooter/supervisor/internal/config"
	"github.com/mcp-scooter/supervisor/internal/events"
)

// Delay computes the exponential-backoff delay before restart attempt
// number attempt (1-indexed: attempt 1 is the first restart, not the
// initial start). attempt 1 always waits base; each subsequent attempt
// multiplies by multiplier, capped at max.
//
//	Delay(1, 1000, 30000, 2.0) == 1000
//	Delay(2, 1000, 30000, 2.0) == 2000
//	Delay(6, 1000, 30000, 2.0) == 30000 (would be 32000 uncapped)
func Delay(attempt int, base, max uint64, multiplier float64) time.Duration {
	if attempt <= 1 {
		return time.Duration(base) * time.Millisecond
	}
	scaled := float64(base) * math.Pow(multiplier, float64(attempt-1))
	if scaled > float64(max) {
		scaled = float64(max)
	}
	return time.Duration(scaled) * time.Millisecond
}

// Launcher is the subset of the Transport Launcher the restart loop needs:
// attempt one (re)start of a server, returning whether it passed the
// post-spawn verification window.
type Launcher interface {
	// Start attempts to launch name. connected reports whether the launch
	// passed its verification window; err is non-nil only on an outright
	// launch failure (connected is meaningless in that case).
	Start(ctx context.Context, name string) (connected bool, err error)
}

// Monitor is the subset of the Health Monitor the restart loop needs:
// watch a running server until it stops, reporting why.
type Monitor interface {
	// Watch blocks until name's connection ends, returning true if the
	// loop should attempt a restart (unexpected termination) or false if
	// the stop was deliberate (StopRequested was closed).
	Watch(ctx context.Context, name string, stopRequested <-chan struct{}) (shouldRestart bool)
}

// Loop drives one server's restart lifecycle until stopRequested is
// closed, the loop gives up after exhausting maxRestarts, or a launch
// fails outright without ever having connected.
//
// maxRestarts <= 0 means unlimited restarts.
type Loop struct {
	Name          string
	Settings      config.Settings
	MaxRestarts   int
	Launcher      Launcher
	Monitor       Monitor
	Bus           *events.Bus
	StopRequested <-chan struct{}
}

// Run executes the loop. It returns when the server has been deliberately
// stopped, restarts are exhausted, or ctx is cancelled. The very first
// launch attempt happens immediately; the backoff delay and restart budget
// only govern attempts that follow a prior connect or a prior failure.
func (l *Loop) Run(ctx context.Context) {
	restartCount := 0
	wasConnected := false
	firstAttempt := true

	for {
		select {
		case <-l.StopRequested:
			return
		case <-ctx.Done():
			return
		default:
		}

		if firstAttempt {
			firstAttempt = false
		} else {
			restartCount++
			if l.MaxRestarts > 0 && restartCount > l.MaxRestarts {
				l.Bus.Publish(events.TopicMaxRestarts, events.MaxRestartsReached{
					Server:      l.Name,
					MaxRestarts: l.MaxRestarts,
				})
				return
			}

			delay := Delay(restartCount, l.Settings.BaseRestartDelayMs, l.Settings.MaxRestartDelayMs, l.Settings.BackoffMultiplier)
			if !sleepOrStop(ctx, delay, l.StopRequested) {
				return
			}
		}

		connected, err := l.Launcher.Start(ctx, l.Name)
		if err != nil {
			if !wasConnected {
				return
			}
			continue
		}
		if !connected {
			// Failed its verification window: treat like a launch
			// failure rather than looping forever on a server that
			// cannot stay up long enough to be monitored.
			if !wasConnected {
				return
			}
			continue
		}

		if restartCount > 0 {
			restartCount = 0
		}
		wasConnected = true

		// TODO: l.StopRequested is the loop-wide stop channel, not a fresh
		// one scoped to this watch call; a stop request delivered between
		// Watch calls during the brief restart window is still observed
		// correctly since closing a channel is itself idempotent, but a
		// future per-attempt cancellation signal would need its own channel
		// here rather than reusing this one across iterations.
		shouldRestart := l.Monitor.Watch(ctx, l.Name, l.StopRequested)
		if !shouldRestart {
			return
		}
	}
}

func sleepOrStop(ctx context.Context, d time.Duration, stopRequested <-chan struct{}) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-stopRequested:
		return false
	case <-ctx.Done():
		return false
	}
}
