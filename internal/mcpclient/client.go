// Package mcpclient defines the capability set the supervisor core drives
// against a connected MCP server, independent of how that server was reached.
package mcpclient

import "context"

// Tool describes a single tool exposed by a connected MCP server.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PeerInfo is the minimal identity a server reports back on connect.
type PeerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// CallResult is the result of a tools/call invocation.
type CallResult struct {
	Content []byte
	IsError bool
}

// Kind identifies which of the three transport shapes produced a Client.
type Kind string

const (
	KindNoInit        Kind = "stdio"
	KindWithInit      Kind = "sse"
	KindWithElicit    Kind = "http"
)

// Client is the capability set shared by all three transport variants:
// a stdio child process, an SSE endpoint, and an HTTP endpoint with
// elicitation support. The supervisor core never type-switches on the
// concrete transport — it only calls these four methods.
type Client interface {
	ListTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*CallResult, error)
	Cancel(ctx context.Context) error
	PeerInfo() PeerInfo
}

// ElicitationAction mirrors the three outcomes an MCP elicitation can end in.
type ElicitationAction string

const (
	ElicitAccept  ElicitationAction = "accept"
	ElicitDecline ElicitationAction = "decline"
	ElicitCancel  ElicitationAction = "cancel"
)

// ElicitationResult is what a client's elicitation callback must resolve to.
type ElicitationResult struct {
	Action  ElicitationAction
	Content map[string]interface{}
}

// ElicitationHandler is invoked by an http-transport Client when the remote
// server issues an elicitation request. It is bound to the Elicitation
// Bridge (internal/elicitation) at construction time.
type ElicitationHandler func(ctx context.Context, serverName, message string, schema map[string]interface{}) (ElicitationResult, error)
