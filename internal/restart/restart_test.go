package restart

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-scooter/supervisor/internal/config"
	"github.com/mcp-scooter/supervisor/internal/events"
)

func TestDelay_WorkedExample(t *testing.T) {
	base, max, mult := uint64(1000), uint64(30000), 2.0
	expected := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
		30000 * time.Millisecond,
	}
	for i, want := range expected {
		attempt := i + 1
		assert.Equal(t, want, Delay(attempt, base, max, mult), "attempt %d", attempt)
	}
}

func TestDelay_CapsAtMax(t *testing.T) {
	d := Delay(10, 1000, 5000, 2.0)
	assert.Equal(t, 5000*time.Millisecond, d)
}

type fakeLauncher struct {
	attempts int32
	results  []launchOutcome
}

type launchOutcome struct {
	connected bool
	err       error
}

func (f *fakeLauncher) Start(ctx context.Context, name string) (bool, error) {
	i := atomic.AddInt32(&f.attempts, 1) - 1
	if int(i) >= len(f.results) {
		return false, nil
	}
	r := f.results[i]
	return r.connected, r.err
}

type fakeMonitor struct {
	shouldRestart []bool
	calls         int32
}

func (f *fakeMonitor) Watch(ctx context.Context, name string, stopRequested <-chan struct{}) bool {
	i := atomic.AddInt32(&f.calls, 1) - 1
	if int(i) >= len(f.shouldRestart) {
		return false
	}
	return f.shouldRestart[i]
}

func TestLoop_StopsWhenMonitorSaysDeliberate(t *testing.T) {
	launcher := &fakeLauncher{results: []launchOutcome{{connected: true}}}
	monitor := &fakeMonitor{shouldRestart: []bool{false}}
	stop := make(chan struct{})

	loop := &Loop{
		Name:          "svc",
		Settings:      config.Settings{BaseRestartDelayMs: 1, MaxRestartDelayMs: 10, BackoffMultiplier: 2},
		Launcher:      launcher,
		Monitor:       monitor,
		Bus:           events.NewBus(),
		StopRequested: stop,
	}

	done := make(chan struct{})
	go func() { loop.Run(context.Background()); close(done) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not return")
	}
	assert.EqualValues(t, 1, launcher.attempts)
	assert.EqualValues(t, 1, monitor.calls)
}

func TestLoop_InitialLaunchHasNoBackoffDelay(t *testing.T) {
	launcher := &fakeLauncher{results: []launchOutcome{{connected: true}}}
	monitor := &fakeMonitor{shouldRestart: []bool{false}}
	stop := make(chan struct{})

	loop := &Loop{
		Name: "svc",
		// A base delay large enough that the test would time out if the
		// initial attempt waited for it.
		Settings:      config.Settings{BaseRestartDelayMs: 10_000, MaxRestartDelayMs: 10_000, BackoffMultiplier: 2},
		Launcher:      launcher,
		Monitor:       monitor,
		Bus:           events.NewBus(),
		StopRequested: stop,
	}

	done := make(chan struct{})
	go func() { loop.Run(context.Background()); close(done) }()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("initial launch attempt should not wait for the restart backoff delay")
	}
	assert.EqualValues(t, 1, launcher.attempts)
}

func TestLoop_RestartsOnUnexpectedTermination(t *testing.T) {
	launcher := &fakeLauncher{results: []launchOutcome{{connected: true}, {connected: true}}}
	monitor := &fakeMonitor{shouldRestart: []bool{true, false}}
	stop := make(chan struct{})

	loop := &Loop{
		Name:          "svc",
		Settings:      config.Settings{BaseRestartDelayMs: 1, MaxRestartDelayMs: 10, BackoffMultiplier: 2},
		Launcher:      launcher,
		Monitor:       monitor,
		Bus:           events.NewBus(),
		StopRequested: stop,
	}

	done := make(chan struct{})
	go func() { loop.Run(context.Background()); close(done) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not return")
	}
	assert.EqualValues(t, 2, launcher.attempts)
	assert.EqualValues(t, 2, monitor.calls)
}

func TestLoop_GivesUpAfterMaxRestarts(t *testing.T) {
	// The restart counter resets to zero on every successful connect (it
	// bounds a crash loop, not lifetime restart count), so to exhaust it
	// the fake must connect once, get told to restart, then fail its
	// verification window repeatedly.
	launcher := &fakeLauncher{results: []launchOutcome{
		{connected: true},
		{connected: false},
		{connected: false},
	}}
	monitor := &fakeMonitor{shouldRestart: []bool{true}}
	stop := make(chan struct{})
	bus := events.NewBus()
	maxCh, unsub := bus.Subscribe(events.TopicMaxRestarts)
	defer unsub()

	loop := &Loop{
		Name:          "svc",
		Settings:      config.Settings{BaseRestartDelayMs: 1, MaxRestartDelayMs: 10, BackoffMultiplier: 2},
		MaxRestarts:   2,
		Launcher:      launcher,
		Monitor:       monitor,
		Bus:           bus,
		StopRequested: stop,
	}

	done := make(chan struct{})
	go func() { loop.Run(context.Background()); close(done) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not return")
	}

	select {
	case ev := <-maxCh:
		payload, ok := ev.Payload.(events.MaxRestartsReached)
		require.True(t, ok)
		assert.Equal(t, "svc", payload.Server)
	default:
		t.Fatal("expected mcp_max_restarts_reached event")
	}
}
