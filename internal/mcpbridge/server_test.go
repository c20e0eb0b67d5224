package mcpbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/anchorhq/anchor/internal/daemon"
)

// scriptedHandler records the last translated request and returns a canned
// response per request type.
type scriptedHandler struct {
	last      *daemon.Request
	responses map[string]daemon.Response
}

func (h *scriptedHandler) Handle(_ context.Context, req *daemon.Request) daemon.Response {
	h.last = req
	if resp, ok := h.responses[req.Type]; ok {
		return resp
	}
	return daemon.Response{OK: "unscripted"}
}

func newScriptedHandler() *scriptedHandler {
	return &scriptedHandler{
		responses: map[string]daemon.Response{
			daemon.ReqSearch:  {OK: []map[string]any{{"name": "Login", "file_path": "auth.go"}}},
			daemon.ReqContext: {OK: []map[string]any{{"name": "Login", "code": "func Login() {}"}}},
		},
	}
}

func sendAndReceive(t *testing.T, h Handler, requests ...string) []jsonRPCResponse {
	t.Helper()
	input := strings.Join(requests, "\n") + "\n"
	reader := strings.NewReader(input)
	var output bytes.Buffer

	server := NewServerWithIO(h, reader, &output)
	if err := server.Run(context.Background()); err != nil {
		t.Fatalf("server.Run error: %v", err)
	}

	var responses []jsonRPCResponse
	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		if line == "" {
			continue
		}
		var resp jsonRPCResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("failed to parse response: %v\nline: %s", err, line)
		}
		responses = append(responses, resp)
	}
	return responses
}

func TestInitialize(t *testing.T) {
	responses := sendAndReceive(t, newScriptedHandler(),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
	)

	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	resp := responses[0]
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	resultBytes, _ := json.Marshal(resp.Result)
	var result initializeResult
	if err := json.Unmarshal(resultBytes, &result); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if result.ProtocolVersion != protocolVersion {
		t.Errorf("expected protocol version %q, got %q", protocolVersion, result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "anchor" {
		t.Errorf("expected server name 'anchor', got %q", result.ServerInfo.Name)
	}
}

func TestInitializedNotification(t *testing.T) {
	// "initialized" is a notification (no id), should produce no response.
	responses := sendAndReceive(t, newScriptedHandler(),
		`{"jsonrpc":"2.0","method":"initialized"}`,
	)
	if len(responses) != 0 {
		t.Errorf("expected no responses for notification, got %d", len(responses))
	}
}

func TestToolsListExposesFiveTools(t *testing.T) {
	responses := sendAndReceive(t, newScriptedHandler(),
		`{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{}}`,
	)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}

	resultBytes, _ := json.Marshal(responses[0].Result)
	var result struct {
		Tools []toolDefinition `json:"tools"`
	}
	if err := json.Unmarshal(resultBytes, &result); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if len(result.Tools) != len(ToolNames) {
		t.Fatalf("expected %d tools, got %d", len(ToolNames), len(result.Tools))
	}
	for i, name := range ToolNames {
		if result.Tools[i].Name != name {
			t.Errorf("tool %d: expected %q, got %q", i, name, result.Tools[i].Name)
		}
	}
}

func TestToolsCallSearchTranslates(t *testing.T) {
	h := newScriptedHandler()
	responses := sendAndReceive(t, h,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"search","arguments":{"query":"Login","limit":5}}}`,
	)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Error != nil {
		t.Fatalf("unexpected error: %v", responses[0].Error)
	}

	if h.last == nil || h.last.Type != daemon.ReqSearch {
		t.Fatalf("expected a search request, got %+v", h.last)
	}
	if h.last.Query != "Login" || h.last.Limit != 5 {
		t.Errorf("arguments not carried: %+v", h.last)
	}

	resultBytes, _ := json.Marshal(responses[0].Result)
	var result toolCallResult
	if err := json.Unmarshal(resultBytes, &result); err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Error("expected success")
	}
	if !strings.Contains(result.Content[0].Text, "Login") {
		t.Errorf("expected result text to carry the hit, got %q", result.Content[0].Text)
	}
}

func TestToolsCallWriteOrdered(t *testing.T) {
	h := newScriptedHandler()
	sendAndReceive(t, h,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"write","arguments":{"mode":"ordered","ops":[{"path":"a.go","content":"x","symbol":"A"}]}}}`,
	)
	if h.last == nil || h.last.Type != daemon.ReqWriteOrdered {
		t.Fatalf("expected an ordered write request, got %+v", h.last)
	}
	if len(h.last.Ops) != 1 || h.last.Ops[0].Symbol != "A" {
		t.Errorf("ops not carried: %+v", h.last.Ops)
	}
}

func TestToolsCallDaemonErrorIsToolError(t *testing.T) {
	h := newScriptedHandler()
	h.responses[daemon.ReqImpact] = daemon.Response{Error: "no such symbol"}

	responses := sendAndReceive(t, h,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"impact","arguments":{"symbol":"Ghost"}}}`,
	)
	resultBytes, _ := json.Marshal(responses[0].Result)
	var result toolCallResult
	if err := json.Unmarshal(resultBytes, &result); err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected IsError for a daemon error response")
	}
	if result.Content[0].Text != "no such symbol" {
		t.Errorf("expected error text carried, got %q", result.Content[0].Text)
	}
}

func TestToolsCallUnknownTool(t *testing.T) {
	responses := sendAndReceive(t, newScriptedHandler(),
		`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"nope","arguments":{}}}`,
	)
	resultBytes, _ := json.Marshal(responses[0].Result)
	var result toolCallResult
	if err := json.Unmarshal(resultBytes, &result); err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected IsError for an unknown tool")
	}
}

func TestUnknownMethod(t *testing.T) {
	responses := sendAndReceive(t, newScriptedHandler(),
		`{"jsonrpc":"2.0","id":7,"method":"bogus/method"}`,
	)
	if len(responses) != 1 || responses[0].Error == nil {
		t.Fatalf("expected a method-not-found error, got %+v", responses)
	}
	if responses[0].Error.Code != -32601 {
		t.Errorf("expected -32601, got %d", responses[0].Error.Code)
	}
}

func TestParseError(t *testing.T) {
	responses := sendAndReceive(t, newScriptedHandler(), `{broken json`)
	if len(responses) != 1 || responses[0].Error == nil {
		t.Fatalf("expected a parse error, got %+v", responses)
	}
	if responses[0].Error.Code != -32700 {
		t.Errorf("expected -32700, got %d", responses[0].Error.Code)
	}
}
