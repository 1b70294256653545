package mcpclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// jsonrpcRequest and jsonrpcResponse are the wire shapes spoken over the
// child's stdin/stdout. Only the subset of JSON-RPC the supervisor core
// needs to drive (initialize, tools/list, tools/call) is modeled here --
// full MCP wire semantics are out of scope.
type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// StdioClient drives a child process over stdin/stdout with newline-delimited
// JSON-RPC 2.0, the NoInit variant in spec terms: no elicitation capability,
// no separate init-result stored after handshake.
type StdioClient struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	mu       sync.Mutex
	peer     PeerInfo
	requestID int64

	stderrTail *stderrRing

	// waitDone receives cmd.Wait()'s result exactly once. cmd.Wait may only
	// be called a single time per process, so the launcher starts the
	// waiting goroutine itself (it needs the result too, to detect an
	// early exit during the post-handshake verification window) and hands
	// the channel in here for Cancel to share.
	waitDone <-chan error
}

// NewStdioClient performs the MCP initialize handshake over an already
// spawned and piped child process and returns a ready-to-use Client.
// callTimeout bounds every individual request/response round trip. waitDone
// must be fed by the single cmd.Wait() call for this process.
func NewStdioClient(ctx context.Context, cmd *exec.Cmd, stdin io.WriteCloser, stdout io.Reader, stderrTail *stderrRing, waitDone <-chan error, callTimeout time.Duration) (*StdioClient, error) {
	c := &StdioClient{
		cmd:        cmd,
		stdin:      stdin,
		stdout:     bufio.NewReader(stdout),
		requestID:  0,
		stderrTail: stderrTail,
		waitDone:   waitDone,
	}

	initParams, _ := json.Marshal(map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo": map[string]string{
			"name":    "mcp-supervisor",
			"version": "0.1.0",
		},
	})

	resp, err := c.send(ctx, callTimeout, "initialize", initParams)
	if err != nil {
		return nil, c.wrapWithStderr(fmt.Errorf("initialize request failed: %w", err))
	}
	if resp.Error != nil {
		return nil, c.wrapWithStderr(fmt.Errorf("initialize error: %s (code %d)", resp.Error.Message, resp.Error.Code))
	}

	var initResult struct {
		ServerInfo PeerInfo `json:"serverInfo"`
	}
	if len(resp.Result) > 0 {
		_ = json.Unmarshal(resp.Result, &initResult)
	}
	c.peer = initResult.ServerInfo

	if err := c.notify("notifications/initialized", nil); err != nil {
		return nil, c.wrapWithStderr(fmt.Errorf("initialized notification failed: %w", err))
	}

	return c, nil
}

func (c *StdioClient) wrapWithStderr(err error) error {
	if c.stderrTail == nil {
		return err
	}
	if tail := c.stderrTail.String(); tail != "" {
		return fmt.Errorf("%w (stderr: %s)", err, tail)
	}
	return err
}

func (c *StdioClient) nextID() int64 {
	return atomic.AddInt64(&c.requestID, 1)
}

func (c *StdioClient) send(ctx context.Context, timeout time.Duration, method string, params json.RawMessage) (*jsonrpcResponse, error) {
	req := jsonrpcRequest{JSONRPC: "2.0", ID: c.nextID(), Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	payload = append(payload, '\n')

	c.mu.Lock()
	_, writeErr := c.stdin.Write(payload)
	c.mu.Unlock()
	if writeErr != nil {
		return nil, fmt.Errorf("failed to write request: %w", writeErr)
	}

	type readResult struct {
		resp *jsonrpcResponse
		err  error
	}
	resCh := make(chan readResult, 1)
	go func() {
		line, err := c.stdout.ReadBytes('\n')
		if err != nil {
			resCh <- readResult{err: err}
			return
		}
		var resp jsonrpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			resCh <- readResult{err: fmt.Errorf("failed to parse response: %w", err)}
			return
		}
		resCh <- readResult{resp: &resp}
	}()

	effectiveCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		effectiveCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case r := <-resCh:
		return r.resp, r.err
	case <-effectiveCtx.Done():
		return nil, effectiveCtx.Err()
	}
}

func (c *StdioClient) notify(method string, params json.RawMessage) error {
	req := jsonrpcRequest{JSONRPC: "2.0", Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	payload = append(payload, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.stdin.Write(payload)
	return err
}

// ListTools implements Client.
func (c *StdioClient) ListTools(ctx context.Context) ([]Tool, error) {
	resp, err := c.send(ctx, 60*time.Second, "tools/list", nil)
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
			return nil, fmt.Errorf("failed to parse tools/list result: %w", err)
		}
	}
	return result.Tools, nil
}

// CallTool implements Client.
func (c *StdioClient) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*CallResult, error) {
	params, err := json.Marshal(struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}{Name: name, Arguments: arguments})
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, 60*time.Second, "tools/call", params)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return &CallResult{IsError: true, Content: []byte(resp.Error.Message)}, nil
	}
	return &CallResult{Content: resp.Result}, nil
}

// Cancel implements Client: closes stdin so the child sees EOF, then waits
// briefly for it to exit on its own. The process reaper (internal/reaper)
// is the fallback if this does not suffice.
func (c *StdioClient) Cancel(ctx context.Context) error {
	c.mu.Lock()
	_ = c.stdin.Close()
	c.mu.Unlock()

	select {
	case <-c.waitDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PeerInfo implements Client.
func (c *StdioClient) PeerInfo() PeerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peer
}

// PID returns the child's process id, or 0 if the process was never
// started. It keeps returning the id after the child has exited.
func (c *StdioClient) PID() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// stderrRing is a small bounded ring buffer of the child's stderr lines,
// used to enrich error messages the way the teacher's stdio worker logs
// stderr output for diagnosis (internal/domain/discovery/stdio_new.go in
// the corpus).
type stderrRing struct {
	mu   sync.Mutex
	max  int
	buf  []string
}

func newStderrRing(max int) *stderrRing {
	return &stderrRing{max: max}
}

func (r *stderrRing) Add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = append(r.buf, line)
	if len(r.buf) > r.max {
		r.buf = r.buf[len(r.buf)-r.max:]
	}
}

func (r *stderrRing) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) == 0 {
		return ""
	}
	out := r.buf[0]
	for _, l := range r.buf[1:] {
		out += " | " + l
	}
	return out
}

// NewStderrTail constructs the ring buffer used by the Transport Launcher
// when piping a child's stderr.
func NewStderrTail() *stderrRing { return newStderrRing(20) }

// AddStderrLine feeds one line of a child's stderr into its tail buffer.
func AddStderrLine(tail *stderrRing, line string) {
	if tail != nil {
		tail.Add(line)
	}
}
