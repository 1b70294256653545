package cmd

import "strings"

// errorKind classifies a supervisorctl-to-supervisord transport failure so
// the CLI can suggest a next step instead of printing a raw Go error.
type errorKind string

const (
	errorKindOffline  errorKind = "offline"
	errorKindNotFound errorKind = "not-found"
	errorKindHTTP     errorKind = "http"
	errorKindOther    errorKind = "other"
)

type classifiedError struct {
	kind    errorKind
	message string
	hint    string
}

func (e classifiedError) Error() string { return e.message }

// classify inspects err's message for the handful of failure shapes a
// supervisorctl invocation can actually hit: the daemon isn't running, the
// named server doesn't exist, or the daemon returned some other HTTP error.
func classify(err error) classifiedError {
	if err == nil {
		return classifiedError{}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "timeout") || strings.Contains(msg, "no such host"):
		return classifiedError{
			kind:    errorKindOffline,
			message: err.Error(),
			hint:    "Is supervisord running? Start it, or check --addr.",
		}
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found") || strings.Contains(msg, "no such server"):
		return classifiedError{
			kind:    errorKindNotFound,
			message: err.Error(),
			hint:    "Check the server name with 'supervisorctl status'.",
		}
	case strings.Contains(msg, "supervisord returned"):
		return classifiedError{
			kind:    errorKindHTTP,
			message: err.Error(),
			hint:    "supervisord rejected the request; see its message above.",
		}
	default:
		return classifiedError{kind: errorKindOther, message: err.Error()}
	}
}
