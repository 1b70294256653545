// Package elicitation bridges an HTTP MCP server's request for interactive
// user input to whatever host UI is attached to this run of the supervisor,
// correlating each request with its eventual reply (or timeout) exactly
// once.
package elicitation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcp-scooter/supervisor/internal/events"
	"github.com/mcp-scooter/supervisor/internal/mcpclient"
)

// Timeout is the hard ceiling on how long a pending elicitation waits for a
// human to respond before it is resolved as cancelled.
const Timeout = 300 * time.Second

// pending tracks one in-flight elicitation awaiting a reply. resolve is
// guarded by once so that a reply racing a timeout or a context
// cancellation can win at most one of the two outcomes.
type pending struct {
	request  Request
	resultCh chan mcpclient.ElicitationResult
	once     sync.Once
	resolved bool
}

// Request is the payload published on events.TopicElicitationCreate for the
// host UI to render.
type Request struct {
	ID       string                 `json:"id"`
	Server   string                 `json:"server"`
	Message  string                 `json:"message"`
	Schema   map[string]interface{} `json:"schema"`
}

// Bridge owns the pending-elicitation table and publishes/receives through
// a *events.Bus.
type Bridge struct {
	bus *events.Bus

	mu      sync.Mutex
	pending map[string]*pending
}

// NewBridge constructs a Bridge publishing requests on bus.
func NewBridge(bus *events.Bus) *Bridge {
	return &Bridge{bus: bus, pending: make(map[string]*pending)}
}

// Handler returns an mcpclient.ElicitationHandler bound to this bridge,
// suitable for passing to mcpclient.Dial when connecting an http-transport
// server.
func (b *Bridge) Handler() mcpclient.ElicitationHandler {
	return b.create
}

// create registers a new pending elicitation, publishes it for the host UI,
// and blocks until Reply is called, the caller's context is cancelled, or
// Timeout elapses -- whichever comes first. Exactly one of those three
// outcomes resolves the request; Reply after a timeout or context
// cancellation is a harmless no-op.
func (b *Bridge) create(ctx context.Context, serverName, message string, schema map[string]interface{}) (mcpclient.ElicitationResult, error) {
	id := uuid.NewString()
	p := &pending{
		request:  Request{ID: id, Server: serverName, Message: message, Schema: schema},
		resultCh: make(chan mcpclient.ElicitationResult, 1),
	}

	b.mu.Lock()
	b.pending[id] = p
	b.mu.Unlock()

	cleanup := func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}

	b.bus.Publish(events.TopicElicitationCreate, p.request)

	timer := time.NewTimer(Timeout)
	defer timer.Stop()

	select {
	case result := <-p.resultCh:
		cleanup()
		return result, nil
	case <-timer.C:
		timedOut := false
		p.once.Do(func() { timedOut = true; p.resolved = true })
		cleanup()
		if !timedOut {
			// A reply won the race in the instant between the timer
			// firing and once.Do running; take it instead of a synthetic
			// cancel.
			return <-p.resultCh, nil
		}
		return mcpclient.ElicitationResult{Action: mcpclient.ElicitCancel}, nil
	case <-ctx.Done():
		p.once.Do(func() { p.resolved = true })
		cleanup()
		return mcpclient.ElicitationResult{Action: mcpclient.ElicitCancel}, ctx.Err()
	}
}

// Reply resolves a pending elicitation by id with a host-supplied result.
// It is how the control API's reply endpoint hands a human's answer back
// to the waiting server connection. Returns an error if id is unknown --
// already resolved, timed out, or never existed.
func (b *Bridge) Reply(id string, result mcpclient.ElicitationResult) error {
	b.mu.Lock()
	p, ok := b.pending[id]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("elicitation: no pending request with id %q", id)
	}

	won := false
	p.once.Do(func() { won = true; p.resolved = true })
	if !won {
		return fmt.Errorf("elicitation: request %q already resolved", id)
	}
	p.resultCh <- result
	return nil
}

// Pending returns the requests currently awaiting a reply, for the control
// API's status surface.
func (b *Bridge) Pending() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, 0, len(b.pending))
	for _, p := range b.pending {
		out = append(out, p.request)
	}
	return out
}
