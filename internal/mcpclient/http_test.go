package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonRPCTestServer(t *testing.T, handle func(method string) (json.RawMessage, *jsonrpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonrpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.ID == 0 {
			// Notification: no response body expected.
			w.WriteHeader(http.StatusOK)
			return
		}

		result, rpcErr := handle(req.Method)
		resp := jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result, Error: rpcErr}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestDial_PerformsHandshakeAndSetsElicitationCapability(t *testing.T) {
	var sawElicitCapability bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonrpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Method == "initialize" {
			var params struct {
				Capabilities struct {
					Elicitation bool `json:"elicitation"`
				} `json:"capabilities"`
			}
			require.NoError(t, json.Unmarshal(req.Params, &params))
			sawElicitCapability = params.Capabilities.Elicitation

			result, _ := json.Marshal(map[string]interface{}{
				"serverInfo": map[string]string{"name": "fake-server", "version": "1.0"},
			})
			resp := jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := Dial(context.Background(), KindWithElicit, "svc", srv.URL, nil, srv.Client(), func(ctx context.Context, server, message string, schema map[string]interface{}) (ElicitationResult, error) {
		return ElicitationResult{Action: ElicitAccept}, nil
	})
	require.NoError(t, err)
	assert.True(t, sawElicitCapability)
	assert.Equal(t, "fake-server", client.PeerInfo().Name)
}

func TestListTools_ParsesResult(t *testing.T) {
	srv := jsonRPCTestServer(t, func(method string) (json.RawMessage, *jsonrpcError) {
		switch method {
		case "initialize":
			result, _ := json.Marshal(map[string]interface{}{"serverInfo": map[string]string{"name": "s", "version": "1"}})
			return result, nil
		case "tools/list":
			result, _ := json.Marshal(map[string]interface{}{
				"tools": []Tool{{Name: "search", Description: "search the web"}},
			})
			return result, nil
		}
		return nil, &jsonrpcError{Code: -32601, Message: "method not found"}
	})
	defer srv.Close()

	client, err := Dial(context.Background(), KindWithInit, "svc", srv.URL, nil, srv.Client(), nil)
	require.NoError(t, err)

	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "search", tools[0].Name)
}

func TestCallTool_ErrorResultIsNotGoError(t *testing.T) {
	srv := jsonRPCTestServer(t, func(method string) (json.RawMessage, *jsonrpcError) {
		switch method {
		case "initialize":
			result, _ := json.Marshal(map[string]interface{}{"serverInfo": map[string]string{"name": "s", "version": "1"}})
			return result, nil
		case "tools/call":
			return nil, &jsonrpcError{Code: -32000, Message: "tool exploded"}
		}
		return nil, nil
	})
	defer srv.Close()

	client, err := Dial(context.Background(), KindWithInit, "svc", srv.URL, nil, srv.Client(), nil)
	require.NoError(t, err)

	result, err := client.CallTool(context.Background(), "search", nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, string(result.Content), "tool exploded")
}

func TestReadSSEResponse_ParsesDataFrame(t *testing.T) {
	resp := jsonrpcResponse{JSONRPC: "2.0", ID: 1, Result: json.RawMessage(`{"ok":true}`)}
	payload, _ := json.Marshal(resp)
	body := fmt.Sprintf("event: message\ndata: %s\n\n", payload)

	parsed, err := readSSEResponse(stringReader(body))
	require.NoError(t, err)
	assert.Equal(t, int64(1), parsed.ID)
}

type stringReaderType struct{ s string; i int }

func (r *stringReaderType) Read(p []byte) (int, error) {
	if r.i >= len(r.s) {
		return 0, fmt.Errorf("EOF")
	}
	n := copy(p, r.s[r.i:])
	r.i += n
	return n, nil
}

func stringReader(s string) *stringReaderType { return &stringReaderType{s: s} }
