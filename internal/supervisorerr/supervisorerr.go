// Package supervisorerr gives every failure surfaced by the supervisor core
// a stable Kind, so callers (the control API, the CLI, the restart engine)
// can branch on failure category without parsing error strings.
package supervisorerr

import "fmt"

// Kind classifies why an operation against a server failed.
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindAlreadyRunning Kind = "already_running"
	KindSpawnFailed    Kind = "spawn_failed"
	KindHandshakeFailed Kind = "handshake_failed"
	KindPortInUse      Kind = "port_in_use"
	KindTimeout        Kind = "timeout"
	KindMaxRestarts    Kind = "max_restarts_reached"
	KindShuttingDown   Kind = "shutting_down"
	KindConfig         Kind = "config"
	KindOther          Kind = "other"
)

// Error is the concrete error type the supervisor uses for the failures it
// classifies itself (an unknown or already-registered server name). Launch
// failures reach the control API as the launcher's own errors, not wrapped
// in Error.
type Error struct {
	Kind   Kind
	Server string
	Msg    string
	Cause  error
}

func (e *Error) Error() string {
	if e.Server != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Server, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error with no underlying cause.
func New(kind Kind, server, msg string) *Error {
	return &Error{Kind: kind, Server: server, Msg: msg}
}

// Wrap constructs an Error carrying cause as its Unwrap target.
func Wrap(kind Kind, server string, cause error) *Error {
	return &Error{Kind: kind, Server: server, Msg: cause.Error(), Cause: cause}
}

// Is supports errors.Is(err, supervisorerr.New(KindX, "", "")) style checks:
// any *Error target with the same Kind matches, whatever its Server and Msg.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
