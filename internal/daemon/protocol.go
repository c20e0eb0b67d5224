package daemon

import (
	"encoding/json"

	"github.com/anchorhq/anchor/internal/graph"
	"github.com/anchorhq/anchor/internal/lock"
	"github.com/anchorhq/anchor/internal/query"
)

// Request is one line of the daemon wire protocol: a discriminant tag plus
// the parameters the tagged operation needs. Unused fields stay at their
// zero values.
type Request struct {
	Type string `json:"type"`

	// Search / Context / Overview / Deps / Impact.
	Query        string   `json:"query,omitempty"`
	Pattern      string   `json:"pattern,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	Symbols      []string `json:"symbols,omitempty"`
	Full         bool     `json:"full,omitempty"`
	Name         string   `json:"name,omitempty"`
	Direction    string   `json:"direction,omitempty"` // dependents | dependencies
	Depth        int      `json:"depth,omitempty"`
	NewSignature string   `json:"new_signature,omitempty"`

	// Create / Insert / Replace / ordered writes.
	Path      string        `json:"path,omitempty"`
	Content   string        `json:"content,omitempty"`
	Before    bool          `json:"before,omitempty"`
	Mode      string        `json:"mode,omitempty"` // replace: first | all | range
	Old       string        `json:"old,omitempty"`
	New       string        `json:"new,omitempty"`
	StartLine int           `json:"start_line,omitempty"`
	EndLine   int           `json:"end_line,omitempty"`
	Ops       []RequestedOp `json:"ops,omitempty"`

	// Locking.
	File      string `json:"file,omitempty"`
	TimeoutMS int64  `json:"timeout_ms,omitempty"`
}

// RequestedOp is one file in an ordered multi-file write.
type RequestedOp struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Symbol  string `json:"symbol,omitempty"`
}

// Request discriminants.
const (
	ReqPing         = "ping"
	ReqShutdown     = "shutdown"
	ReqStats        = "stats"
	ReqSearch       = "search"
	ReqContext      = "context"
	ReqDeps         = "deps"
	ReqOverview     = "overview"
	ReqImpact       = "impact"
	ReqCreate       = "create"
	ReqInsert       = "insert"
	ReqReplace      = "replace"
	ReqWriteOrdered = "write_ordered"
	ReqLockStatus   = "lock_status"
	ReqLocks        = "locks"
	ReqLockSymbol   = "lock_symbol"
	ReqUnlockSymbol = "unlock_symbol"
	ReqRebuild      = "rebuild"
)

// Response is one line back to the client: a value under "ok", an error
// string, or one of the two bare acknowledgements.
type Response struct {
	OK      any    `json:"ok,omitempty"`
	Error   string `json:"error,omitempty"`
	Pong    bool   `json:"pong,omitempty"`
	Goodbye bool   `json:"goodbye,omitempty"`
}

func okResponse(v any) Response       { return Response{OK: v} }
func errResponse(msg string) Response { return Response{Error: msg} }

// StatsResult mirrors graph.Stats on the wire.
type StatsResult struct {
	Files       int `json:"files"`
	Symbols     int `json:"symbols"`
	Edges       int `json:"edges"`
	UniqueNames int `json:"unique_names"`
}

// SymbolHit is one search or context hit on the wire.
type SymbolHit struct {
	Name     string         `json:"name"`
	Kind     graph.NodeKind `json:"kind"`
	FilePath string         `json:"file_path"`
	Line     int            `json:"line"`
	Score    int            `json:"score,omitempty"`
}

// ContextEntry is one symbol's graph-sliced rendering.
type ContextEntry struct {
	SymbolHit
	Code       string `json:"code"`
	TotalLines int    `json:"total_lines"`
	ShownLines int    `json:"shown_lines"`
	CallCount  int    `json:"call_count"`
	WasSliced  bool   `json:"was_sliced"`
}

// RelationHit is one dependents/dependencies entry on the wire.
type RelationHit struct {
	Name     string         `json:"name"`
	Kind     graph.NodeKind `json:"kind"`
	FilePath string         `json:"file_path"`
	Line     int            `json:"line"`
	EdgeKind graph.EdgeKind `json:"edge_kind"`
}

func relationHits(rels []query.Relation) []RelationHit {
	out := make([]RelationHit, 0, len(rels))
	for _, r := range rels {
		out = append(out, RelationHit{Name: r.Name, Kind: r.Kind, FilePath: r.FilePath, Line: r.Line, EdgeKind: r.EdgeKind})
	}
	return out
}

// OverviewResult is the wire form of a graph-aware search.
type OverviewResult struct {
	Symbols     []SymbolHit          `json:"symbols"`
	Connections []OverviewConnection `json:"connections"`
	Truncated   bool                 `json:"truncated"`
}

// OverviewConnection is one traversed edge in an overview.
type OverviewConnection struct {
	From graph.NodeID   `json:"from"`
	To   graph.NodeID   `json:"to"`
	Kind graph.EdgeKind `json:"kind"`
}

// LockKeyWire is a lock key on the wire.
type LockKeyWire struct {
	File string `json:"file"`
	Name string `json:"name"`
}

func wireKey(k lock.Key) LockKeyWire { return LockKeyWire{File: k.File, Name: k.Name} }

func wireKeys(ks []lock.Key) []LockKeyWire {
	out := make([]LockKeyWire, 0, len(ks))
	for _, k := range ks {
		out = append(out, wireKey(k))
	}
	return out
}

// AcquireWire is an Acquire outcome on the wire.
type AcquireWire struct {
	Status     string        `json:"status"` // acquired | acquired_after_wait | blocked
	Primary    LockKeyWire   `json:"primary,omitempty"`
	Dependents []LockKeyWire `json:"dependents,omitempty"`
	Blocker    *LockKeyWire  `json:"blocker,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	WaitedMS   int64         `json:"waited_ms,omitempty"`
}

func wireAcquire(res lock.AcquireResult) AcquireWire {
	out := AcquireWire{WaitedMS: res.WaitedMS}
	switch res.Status {
	case lock.Acquired:
		out.Status = "acquired"
	case lock.AcquiredAfterWait:
		out.Status = "acquired_after_wait"
	case lock.Blocked:
		out.Status = "blocked"
		b := wireKey(res.Blocker)
		out.Blocker = &b
		out.Reason = string(res.Reason)
		return out
	}
	out.Primary = wireKey(res.Primary)
	out.Dependents = wireKeys(res.Dependents)
	return out
}

// decodeRequest parses one wire line.
func decodeRequest(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
