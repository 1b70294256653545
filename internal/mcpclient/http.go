package mcpclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
)

// sseHTTPClient implements Client over a remote HTTP endpoint, either as the
// sse transport (WithInit variant, no elicitation) or as the
// elicitation-aware http transport (WithElicitation variant). The two share
// everything except whether an ElicitationHandler is wired; incoming
// elicitation notifications only arrive on endpoints that declare the
// capability during connect, so a nil handler simply never fires.
type sseHTTPClient struct {
	baseURL    string
	httpClient *http.Client
	headers    map[string]string
	elicit     ElicitationHandler
	serverName string

	mu        sync.Mutex
	peer      PeerInfo
	requestID int64

	kind Kind
}

// Dial connects to a remote MCP endpoint and performs the initialize
// handshake. kind selects the variant: KindWithInit (the "sse" transport)
// accepts either an SSE `data:` frame or a plain JSON body as a reply, and
// KindWithElicit (the "http" transport) asks for a plain JSON body; both send
// every request as its own POST. elicit may be nil for the sse variant,
// which never carries elicitation capability.
func Dial(ctx context.Context, kind Kind, serverName, url string, headers map[string]string, httpClient *http.Client, elicit ElicitationHandler) (Client, error) {
	c := &sseHTTPClient{
		baseURL:    url,
		httpClient: httpClient,
		headers:    headers,
		elicit:     elicit,
		serverName: serverName,
		kind:       kind,
	}

	initParams, _ := json.Marshal(map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities": map[string]interface{}{
			"elicitation": elicit != nil,
		},
		"clientInfo": map[string]string{
			"name":    "mcp-supervisor",
			"version": "0.1.0",
		},
	})

	resp, err := c.call(ctx, "initialize", initParams)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	var initResult struct {
		ServerInfo PeerInfo `json:"serverInfo"`
	}
	if len(resp.Result) > 0 {
		_ = json.Unmarshal(resp.Result, &initResult)
	}
	c.peer = initResult.ServerInfo

	_ = c.notify(ctx, "notifications/initialized")

	return c, nil
}

func (c *sseHTTPClient) nextID() int64 { return atomic.AddInt64(&c.requestID, 1) }

func (c *sseHTTPClient) call(ctx context.Context, method string, params json.RawMessage) (*jsonrpcResponse, error) {
	req := jsonrpcRequest{JSONRPC: "2.0", ID: c.nextID(), Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.kind == KindWithInit {
		httpReq.Header.Set("Accept", "text/event-stream, application/json")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}

	if resp.Header.Get("Content-Type") == "text/event-stream" {
		return readSSEResponse(resp.Body)
	}

	var jr jsonrpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&jr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &jr, nil
}

// readSSEResponse consumes one SSE `data:` frame carrying a JSON-RPC
// response, which is how the streamable-HTTP transport and SSE transport
// deliver request replies inline with the event stream.
func readSSEResponse(body io.Reader) (*jsonrpcResponse, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		const prefix = "data:"
		if len(line) <= len(prefix) || line[:len(prefix)] != prefix {
			continue
		}
		payload := line[len(prefix):]
		if len(payload) > 0 && payload[0] == ' ' {
			payload = payload[1:]
		}
		var jr jsonrpcResponse
		if err := json.Unmarshal([]byte(payload), &jr); err != nil {
			continue
		}
		return &jr, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("stream closed before a response frame arrived")
}

func (c *sseHTTPClient) notify(ctx context.Context, method string) error {
	req := jsonrpcRequest{JSONRPC: "2.0", Method: method}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// ListTools implements Client.
func (c *sseHTTPClient) ListTools(ctx context.Context) ([]Tool, error) {
	resp, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("tools/list error: %s", resp.Error.Message)
	}
	var result struct {
		Tools []Tool `json:"tools"`
	}
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, err
		}
	}
	return result.Tools, nil
}

// CallTool implements Client.
func (c *sseHTTPClient) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*CallResult, error) {
	params, err := json.Marshal(struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}{Name: name, Arguments: arguments})
	if err != nil {
		return nil, err
	}
	resp, err := c.call(ctx, "tools/call", params)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return &CallResult{IsError: true, Content: []byte(resp.Error.Message)}, nil
	}
	return &CallResult{Content: resp.Result}, nil
}

// Cancel implements Client: there is no process to kill, so this is just a
// best-effort notification that we are disconnecting.
func (c *sseHTTPClient) Cancel(ctx context.Context) error {
	return c.notify(ctx, "notifications/cancelled")
}

// PeerInfo implements Client.
func (c *sseHTTPClient) PeerInfo() PeerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peer
}

// HandleElicitationNotification is invoked by the caller's SSE/stream reader
// when an `elicitation/create` server-to-client request frame arrives. It
// correlates the request through c.elicit (bound to the Elicitation Bridge)
// and returns the wire-shaped response the server expects.
func (c *sseHTTPClient) HandleElicitationNotification(ctx context.Context, message string, schema map[string]interface{}) (map[string]interface{}, error) {
	if c.elicit == nil {
		return map[string]interface{}{"action": string(ElicitCancel)}, nil
	}
	result, err := c.elicit(ctx, c.serverName, message, schema)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{"action": string(result.Action)}
	if result.Action == ElicitAccept {
		out["content"] = result.Content
	}
	return out, nil
}
