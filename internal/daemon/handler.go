package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/anchorhq/anchor/internal/lock"
	"github.com/anchorhq/anchor/internal/query"
	"github.com/anchorhq/anchor/internal/write"
)

const defaultSearchLimit = 10

// Handle dispatches one decoded request. It is exported so the tool
// adapter can call the daemon in-process without a socket round trip.
func (s *Server) Handle(ctx context.Context, req *Request) Response {
	switch req.Type {
	case ReqPing:
		return Response{Pong: true}
	case ReqShutdown:
		s.Shutdown()
		return Response{Goodbye: true}
	case ReqStats:
		return s.handleStats()
	case ReqSearch:
		return s.handleSearch(req)
	case ReqContext:
		return s.handleContext(req)
	case ReqDeps:
		return s.handleDeps(req)
	case ReqOverview:
		return s.handleOverview(req)
	case ReqImpact:
		return s.handleImpact(req)
	case ReqCreate:
		return s.handleCreate(ctx, req)
	case ReqInsert:
		return s.handleInsert(ctx, req)
	case ReqReplace:
		return s.handleReplace(ctx, req)
	case ReqWriteOrdered:
		return s.handleWriteOrdered(ctx, req)
	case ReqLockStatus:
		st := s.locks.Status(req.File)
		return okResponse(map[string]any{
			"locked":  st.Locked,
			"primary": wireKey(st.Primary),
			"age_ms":  st.AgeMS,
		})
	case ReqLocks:
		return s.handleLocks()
	case ReqLockSymbol:
		return s.handleLockSymbol(req)
	case ReqUnlockSymbol:
		s.locks.Release(lock.Key{File: req.File, Name: req.Name})
		return okResponse("released")
	case ReqRebuild:
		stats, err := s.Rebuild(ctx)
		if err != nil {
			return errResponse(err.Error())
		}
		return okResponse(stats)
	default:
		return errResponse("unknown request type: " + req.Type)
	}
}

func (s *Server) handleStats() Response {
	s.mu.RLock()
	stats := s.g.Stats()
	s.mu.RUnlock()
	return okResponse(StatsResult{
		Files:       stats.LiveFiles,
		Symbols:     stats.LiveSymbols,
		Edges:       stats.TotalEdges,
		UniqueNames: stats.UniqueNames,
	})
}

func (s *Server) handleSearch(req *Request) Response {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if req.Pattern != "" {
		results, err := query.RegexSearch(s.g, req.Pattern, limit)
		if err != nil {
			return errResponse(err.Error())
		}
		return okResponse(searchHits(results))
	}
	return okResponse(searchHits(query.SymbolSearch(s.g, req.Query, limit)))
}

func searchHits(results []query.SearchResult) []SymbolHit {
	out := make([]SymbolHit, 0, len(results))
	for _, r := range results {
		out = append(out, SymbolHit{Name: r.Name, Kind: r.Kind, FilePath: r.FilePath, Line: r.Line, Score: r.Score})
	}
	return out
}

func (s *Server) handleContext(req *Request) Response {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []ContextEntry
	for _, name := range req.Symbols {
		if len(entries) >= limit {
			break
		}
		for _, id := range s.g.SymbolsNamed(name) {
			if len(entries) >= limit {
				break
			}
			n := s.g.LiveNode(id)
			if n == nil {
				continue
			}
			sliced := query.Slice(n, req.Full)
			entries = append(entries, ContextEntry{
				SymbolHit:  SymbolHit{Name: n.Name, Kind: n.Kind, FilePath: n.FilePath, Line: n.LineStart},
				Code:       sliced.Text,
				TotalLines: sliced.TotalLines,
				ShownLines: sliced.ShownLines,
				CallCount:  sliced.CallCount,
				WasSliced:  sliced.WasSliced,
			})
		}
	}
	return okResponse(entries)
}

func (s *Server) handleDeps(req *Request) Response {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch req.Direction {
	case "", "dependents":
		return okResponse(relationHits(query.Dependents(s.g, req.Name)))
	case "dependencies":
		return okResponse(relationHits(query.Dependencies(s.g, req.Name)))
	default:
		return errResponse("unknown direction: " + req.Direction)
	}
}

func (s *Server) handleOverview(req *Request) Response {
	depth := req.Depth
	if depth <= 0 {
		depth = 2
	}

	s.mu.RLock()
	res := query.GraphSearch(s.g, req.Query, depth)
	s.mu.RUnlock()

	out := OverviewResult{Symbols: searchHits(res.Symbols), Truncated: res.Truncated}
	for _, c := range res.Connections {
		out.Connections = append(out.Connections, OverviewConnection{From: c.From, To: c.To, Kind: c.Kind})
	}
	return okResponse(out)
}

func (s *Server) handleImpact(req *Request) Response {
	s.mu.RLock()
	res := query.Impact(s.g, req.Name, req.NewSignature)
	s.mu.RUnlock()
	return okResponse(res)
}

func (s *Server) handleLocks() Response {
	active := s.locks.ActiveLocks()
	out := make([]map[string]any, 0, len(active))
	for _, al := range active {
		out = append(out, map[string]any{
			"primary": wireKey(al.Primary),
			"locked":  wireKeys(al.Locked),
			"age_ms":  al.AgeMS,
		})
	}
	return okResponse(out)
}

func (s *Server) handleLockSymbol(req *Request) Response {
	timeout := s.lockTimeout
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}
	res := s.acquireWithGraph(lock.Key{File: req.File, Name: req.Name}, timeout)
	if res.Status == lock.Blocked {
		return errResponse(blockedMessage(res))
	}
	return okResponse(wireAcquire(res))
}

// acquireWithGraph retries zero-timeout acquires until the cone is free or
// the deadline passes. The graph read lock is held only for each attempt's
// cone computation, never across the wait — a waiter holding the read lock
// would block the very writer whose release it is waiting for.
func (s *Server) acquireWithGraph(key lock.Key, timeout time.Duration) lock.AcquireResult {
	deadline := time.Now().Add(timeout)
	start := time.Now()
	waited := false

	for {
		signal := s.locks.ReleaseSignal()

		s.mu.RLock()
		res := s.locks.Acquire(key, 0)
		s.mu.RUnlock()

		if res.Status != lock.Blocked {
			if waited {
				res.Status = lock.AcquiredAfterWait
				res.WaitedMS = time.Since(start).Milliseconds()
			}
			return res
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			if waited {
				res.Reason = lock.ReasonTimeout
			}
			return res
		}

		waited = true
		select {
		case <-signal:
		case <-time.After(remaining):
		}
	}
}

func blockedMessage(res lock.AcquireResult) string {
	return fmt.Sprintf("blocked by %s:%s (%s)", res.Blocker.File, res.Blocker.Name, res.Reason)
}

// handleCreate writes a new file and ingests it into the graph.
func (s *Server) handleCreate(ctx context.Context, req *Request) Response {
	if err := s.writes.CreateFile(ctx, req.Path, req.Content); err != nil {
		return errResponse(err.Error())
	}
	if err := s.UpdateFile(ctx, req.Path); err != nil {
		// The file is on disk; extraction failure only means the graph
		// lags until the next rebuild.
		s.log.Warnf("daemon: create %s: %v", req.Path, err)
	}
	return okResponse("created")
}

// handleInsert splices content at a literal pattern under a whole-file
// lock, then re-extracts.
func (s *Server) handleInsert(ctx context.Context, req *Request) Response {
	release, errResp := s.acquireFileCone(req.Path)
	if errResp != nil {
		return *errResp
	}
	defer release()

	var err error
	if req.Before {
		err = s.writes.InsertBefore(ctx, req.Path, req.Pattern, req.Content)
	} else {
		err = s.writes.InsertAfter(ctx, req.Path, req.Pattern, req.Content)
	}
	if err != nil {
		return errResponse(err.Error())
	}
	if err := s.UpdateFile(ctx, req.Path); err != nil {
		s.log.Warnf("daemon: re-extract %s: %v", req.Path, err)
	}
	return okResponse("inserted")
}

// handleReplace covers the three replace modes. Range replaces lock each
// overlapped symbol's cone; first/all fall back to the whole-file lock.
func (s *Server) handleReplace(ctx context.Context, req *Request) Response {
	switch req.Mode {
	case "", "range":
		return s.replaceRange(ctx, req)
	case "first", "all":
		return s.replaceLiteral(ctx, req)
	default:
		return errResponse("unknown replace mode: " + req.Mode)
	}
}

func (s *Server) replaceLiteral(ctx context.Context, req *Request) Response {
	release, errResp := s.acquireFileCone(req.Path)
	if errResp != nil {
		return *errResp
	}
	defer release()

	var result any
	var err error
	if req.Mode == "all" {
		var count int
		count, err = s.writes.ReplaceAll(ctx, req.Path, req.Old, req.New)
		result = map[string]int{"replaced": count}
	} else {
		err = s.writes.ReplaceFirst(ctx, req.Path, req.Old, req.New)
		result = "replaced"
	}
	if err != nil {
		return errResponse(err.Error())
	}
	if err := s.UpdateFile(ctx, req.Path); err != nil {
		s.log.Warnf("daemon: re-extract %s: %v", req.Path, err)
	}
	return okResponse(result)
}

// replaceRange is the locked write flow: enumerate overlapped symbols
// under the read lock, acquire their cones, run the range rewrite,
// re-extract under the write lock, release.
func (s *Server) replaceRange(ctx context.Context, req *Request) Response {
	release, errResp := s.acquireRangeCones(req.Path, req.StartLine, req.EndLine)
	if errResp != nil {
		return *errResp
	}
	defer release()

	if err := s.writes.ReplaceRange(ctx, req.Path, req.StartLine, req.EndLine, req.Content); err != nil {
		return errResponse(err.Error())
	}
	// The file is committed; re-extraction runs on the new content even if
	// the client never retries.
	if err := s.UpdateFile(ctx, req.Path); err != nil {
		s.log.Warnf("daemon: re-extract %s: %v", req.Path, err)
	}
	return okResponse("replaced")
}

// acquireRangeCones locks every live symbol overlapping the line range.
// Cones of symbols in the same range often overlap each other (one calls
// the next); a cone member already held by a primary this request owns is
// treated as covered rather than as a conflict.
func (s *Server) acquireRangeCones(path string, startLine, endLine int) (func(), *Response) {
	s.mu.RLock()
	overlapped := s.g.SymbolsInRange(path, startLine, endLine)
	keys := make([]lock.Key, 0, len(overlapped))
	for _, n := range overlapped {
		keys = append(keys, lock.Key{File: n.FilePath, Name: n.Name})
	}
	s.mu.RUnlock()

	if len(keys) == 0 {
		keys = []lock.Key{{File: path, Name: lock.FileLockName}}
	}
	return s.acquireAll(keys)
}

func (s *Server) acquireFileCone(path string) (func(), *Response) {
	return s.acquireAll([]lock.Key{{File: path, Name: lock.FileLockName}})
}

func (s *Server) acquireAll(keys []lock.Key) (func(), *Response) {
	var held []lock.Key
	release := func() {
		for _, k := range held {
			s.locks.Release(k)
		}
	}

	for _, k := range keys {
		res := s.acquireWithGraph(k, s.lockTimeout)
		if res.Status == lock.Blocked {
			if holdsPrimary(held, res.Blocker) {
				continue // already locked under this request
			}
			release()
			resp := errResponse(blockedMessage(res))
			return nil, &resp
		}
		held = append(held, k)
	}
	return release, nil
}

func holdsPrimary(held []lock.Key, blocker lock.Key) bool {
	for _, k := range held {
		if k == blocker {
			return true
		}
	}
	return false
}

func (s *Server) handleWriteOrdered(ctx context.Context, req *Request) Response {
	ops := make([]write.Operation, 0, len(req.Ops))
	for _, op := range req.Ops {
		ops = append(ops, write.Operation{Path: op.Path, Content: op.Content, Symbol: op.Symbol})
	}

	// Plan against the graph under the read lock; run the file writes
	// outside it.
	s.mu.RLock()
	order := write.PlanOrder(s.g, ops)
	s.mu.RUnlock()

	result := s.writes.Execute(ctx, ops, order)

	// Re-extract every written file so the graph tracks the new contents.
	for _, r := range result.Results {
		if r.Error != "" {
			continue
		}
		if err := s.UpdateFile(ctx, r.Path); err != nil {
			s.log.Warnf("daemon: re-extract %s: %v", r.Path, err)
		}
	}
	return okResponse(result)
}
