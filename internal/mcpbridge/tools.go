// Package mcpbridge adapts the daemon's request surface into the five
// agent-facing tools of the external boundary: context, search, map,
// impact, and write. The stdio JSON-RPC transport in server.go is the
// same newline-delimited shape the daemon socket speaks, pointed at an
// in-process handler instead of a connection.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anchorhq/anchor/internal/daemon"
)

// Handler is the graph-backed request surface the bridge dispatches onto.
// *daemon.Server implements it.
type Handler interface {
	Handle(ctx context.Context, req *daemon.Request) daemon.Response
}

// ContextRequest asks for graph-sliced code for a set of symbols.
type ContextRequest struct {
	Symbols []string `json:"symbols"`
	Limit   int      `json:"limit,omitempty"`
	Full    bool     `json:"full,omitempty"`
}

// SearchRequest asks for a symbol search, optionally by regex pattern.
type SearchRequest struct {
	Query   string `json:"query"`
	Pattern string `json:"pattern,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// MapRequest asks for a graph-aware codebase map around a scope.
type MapRequest struct {
	Scope string `json:"scope,omitempty"`
	Depth int    `json:"depth,omitempty"`
}

// ImpactRequest asks what breaks if a symbol's signature changes.
type ImpactRequest struct {
	Symbol       string `json:"symbol"`
	NewSignature string `json:"new_signature,omitempty"`
}

// WriteRequest is a range or ordered write.
type WriteRequest struct {
	Mode      string               `json:"mode"` // range | ordered
	Path      string               `json:"path,omitempty"`
	StartLine int                  `json:"start_line,omitempty"`
	EndLine   int                  `json:"end_line,omitempty"`
	Content   string               `json:"content,omitempty"`
	Ops       []daemon.RequestedOp `json:"ops,omitempty"`
}

// ToolNames lists the five exposed tools in listing order.
var ToolNames = []string{"context", "search", "map", "impact", "write"}

// Dispatch translates one named tool call onto the daemon request surface
// and renders the response as text. The boolean reports tool-level success
// (a daemon {error: ...} response is a failed call, not a protocol error).
func Dispatch(ctx context.Context, h Handler, name string, args map[string]any) (string, bool, error) {
	req, err := translate(name, args)
	if err != nil {
		return "", false, err
	}

	resp := h.Handle(ctx, req)
	if resp.Error != "" {
		return resp.Error, false, nil
	}
	if resp.Pong || resp.Goodbye {
		return "ok", true, nil
	}

	data, err := json.Marshal(resp.OK)
	if err != nil {
		return "", false, fmt.Errorf("encode result: %w", err)
	}
	return string(data), true, nil
}

func translate(name string, args map[string]any) (*daemon.Request, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}

	switch name {
	case "context":
		var r ContextRequest
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("context arguments: %w", err)
		}
		return &daemon.Request{Type: daemon.ReqContext, Symbols: r.Symbols, Limit: r.Limit, Full: r.Full}, nil
	case "search":
		var r SearchRequest
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("search arguments: %w", err)
		}
		return &daemon.Request{Type: daemon.ReqSearch, Query: r.Query, Pattern: r.Pattern, Limit: r.Limit}, nil
	case "map":
		var r MapRequest
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("map arguments: %w", err)
		}
		return &daemon.Request{Type: daemon.ReqOverview, Query: r.Scope, Depth: r.Depth}, nil
	case "impact":
		var r ImpactRequest
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("impact arguments: %w", err)
		}
		return &daemon.Request{Type: daemon.ReqImpact, Name: r.Symbol, NewSignature: r.NewSignature}, nil
	case "write":
		var r WriteRequest
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("write arguments: %w", err)
		}
		switch r.Mode {
		case "ordered":
			return &daemon.Request{Type: daemon.ReqWriteOrdered, Ops: r.Ops}, nil
		case "", "range":
			return &daemon.Request{
				Type:      daemon.ReqReplace,
				Mode:      "range",
				Path:      r.Path,
				StartLine: r.StartLine,
				EndLine:   r.EndLine,
				Content:   r.Content,
			}, nil
		default:
			return nil, fmt.Errorf("unknown write mode %q", r.Mode)
		}
	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

// definitions returns the tools/list payload.
func definitions() []toolDefinition {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	num := func(desc string) map[string]any {
		return map[string]any{"type": "number", "description": desc}
	}

	return []toolDefinition{
		{
			Name:        "context",
			Description: "Graph-sliced code for one or more symbols: signature, call sites with context, returns.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbols": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"limit":   num("maximum entries returned"),
					"full":    map[string]any{"type": "boolean", "description": "bypass slicing"},
				},
				"required": []string{"symbols"},
			},
		},
		{
			Name:        "search",
			Description: "Search symbols by name (exact, prefix, fuzzy) or by regex pattern.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":   str("symbol name or fragment"),
					"pattern": str("regex pattern; supports union, intersection (&) and negation (~)"),
					"limit":   num("maximum hits"),
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "map",
			Description: "Codebase map: BFS over the code graph from a file or symbol scope.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"scope": str("file path fragment or symbol name to center on"),
					"depth": num("traversal depth"),
				},
			},
		},
		{
			Name:        "impact",
			Description: "Impact analysis: dependents that break if a symbol's signature changes, with edit suggestions.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbol":        str("symbol name"),
					"new_signature": str("proposed replacement signature"),
				},
				"required": []string{"symbol"},
			},
		},
		{
			Name:        "write",
			Description: "Write files: a locked line-range replace, or a dependency-ordered multi-file write.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"mode":       str("range or ordered"),
					"path":       str("file path (range mode)"),
					"start_line": num("1-indexed inclusive start (range mode)"),
					"end_line":   num("1-indexed inclusive end (range mode)"),
					"content":    str("replacement text (range mode)"),
					"ops": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"path":    str("file path"),
								"content": str("file contents"),
								"symbol":  str("graph symbol ordering this write"),
							},
						},
					},
				},
				"required": []string{"mode"},
			},
		},
	}
}
