// Package mutate implements the graph-mutating operations Anchor exposes
// over an extraction result: full ingestion, incremental per-file update,
// file removal, and compaction. Incremental update is the load-bearing
// one: a symbol whose body is unchanged keeps its node id, so edges into
// it survive edits elsewhere in the file.
package mutate

import (
	"sort"

	"github.com/anchorhq/anchor/internal/extract"
	"github.com/anchorhq/anchor/internal/graph"
)

// BuildFromExtractions ingests a fresh batch of FileExtractions into g,
// following the five phases: symbols+imports, call resolution, call_lines
// finalization, containment, cross-language API linking.
func BuildFromExtractions(g *graph.Graph, extractions []*extract.FileExtraction) {
	queued := make(map[graph.NodeID]struct{})

	for _, fe := range extractions {
		ingestFile(g, fe, queued)
	}
	for _, fe := range extractions {
		resolveCallsFor(g, fe.FilePath, fe.Calls, queued)
	}
	finalizeCallLines(g, queued)
	for _, fe := range extractions {
		resolveContainment(g, fe, nil)
	}
	linkAPIEndpoints(g, extractions)
}

// ingestFile adds a file's nodes fresh: the File node, every symbol via
// ingestSymbol, and every import as a Kind Import node with an Imports
// edge. Every symbol added is queued for call resolution.
func ingestFile(g *graph.Graph, fe *extract.FileExtraction, queued map[graph.NodeID]struct{}) {
	fileID := g.AddFile(fe.FilePath)

	for _, sym := range fe.Symbols {
		id := ingestSymbol(g, fileID, fe.FilePath, sym)
		queued[id] = struct{}{}
	}
	for _, imp := range fe.Imports {
		id := g.AddSymbol(imp.Path, graph.KindImport, fe.FilePath, imp.Line, imp.Line, "")
		g.AddEdge(fileID, id, graph.EdgeImports)
	}
}

// ingestSymbol adds one symbol node, copies its features, and wires its
// Defines edge from the file.
func ingestSymbol(g *graph.Graph, fileID graph.NodeID, filePath string, sym extract.ExtractedSymbol) graph.NodeID {
	id := g.AddSymbol(sym.Name, sym.Kind, filePath, sym.LineStart, sym.LineEnd, sym.CodeSnippet)
	if n := g.Node(id); n != nil {
		n.Features = append([]string(nil), sym.Features...)
	}
	g.AddEdge(fileID, id, graph.EdgeDefines)
	return id
}

// resolveCallsFor resolves every call in calls whose Caller name matches a
// symbol in fe's file, restricted to callers present in queued.
func resolveCallsFor(g *graph.Graph, filePath string, calls []extract.ExtractedCall, queued map[graph.NodeID]struct{}) {
	for _, call := range calls {
		callerID, ok := g.FindQualified(filePath, call.Caller)
		if !ok {
			continue
		}
		if _, isQueued := queued[callerID]; !isQueued {
			continue
		}
		callees := g.SymbolsNamed(call.Callee)
		if len(callees) == 0 {
			continue
		}
		calleeID := callees[0]
		g.AddEdge(callerID, calleeID, graph.EdgeCalls)

		caller := g.Node(callerID)
		for line := call.Line; line <= call.LineEnd; line++ {
			caller.CallLines = append(caller.CallLines, line)
		}
	}
}

func finalizeCallLines(g *graph.Graph, ids map[graph.NodeID]struct{}) {
	for id := range ids {
		n := g.Node(id)
		if n == nil {
			continue
		}
		n.CallLines = dedupSortedInts(n.CallLines)
	}
}

func dedupSortedInts(xs []int) []int {
	if len(xs) == 0 {
		return xs
	}
	sort.Ints(xs)
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}

// resolveContainment adds a Contains edge from each symbol's recorded
// parent to the symbol itself, per build_from_extractions step 4.
// resolveContainment adds a Contains edge from each symbol's recorded
// parent to the symbol itself. If queued is non-nil, only symbols whose
// resolved node id is in queued are considered (the incremental-update
// path, which must not re-add edges for symbols that were left untouched).
func resolveContainment(g *graph.Graph, fe *extract.FileExtraction, queued map[graph.NodeID]struct{}) {
	for _, sym := range fe.Symbols {
		if sym.Parent == "" {
			continue
		}
		childID, ok := g.FindQualified(fe.FilePath, sym.Name)
		if !ok {
			continue
		}
		if queued != nil {
			if _, isQueued := queued[childID]; !isQueued {
				continue
			}
		}
		parentID, ok := g.FindQualified(fe.FilePath, sym.Parent)
		if !ok {
			continue
		}
		g.AddEdge(parentID, childID, graph.EdgeContains)
	}
}

// linkAPIEndpoints buckets every extraction's endpoints by role and, for
// each "consumes" endpoint whose scope resolves to a live node, adds an
// ApiCall edge to every "defines" endpoint with the same normalized URL.
// Method is advisory metadata, not part of the join key.
func linkAPIEndpoints(g *graph.Graph, extractions []*extract.FileExtraction) {
	type endpoint struct {
		filePath string
		scope    string
		url      string
	}
	var defines, consumes []endpoint

	for _, fe := range extractions {
		for _, ep := range fe.ApiEndpoints {
			e := endpoint{filePath: fe.FilePath, scope: ep.Scope, url: ep.URL}
			if ep.Role == extract.RoleDefines {
				defines = append(defines, e)
			} else {
				consumes = append(consumes, e)
			}
		}
	}

	for _, c := range consumes {
		if c.scope == "" {
			continue
		}
		consumerID, ok := g.FindQualified(c.filePath, c.scope)
		if !ok {
			continue
		}
		for _, d := range defines {
			if d.url != c.url || d.scope == "" {
				continue
			}
			providerID, ok := g.FindQualified(d.filePath, d.scope)
			if !ok {
				continue
			}
			g.AddEdge(consumerID, providerID, graph.EdgeApiCall)
		}
	}
}

// UpdateFileIncremental applies a fresh extraction for an already-indexed
// file path, preserving node identity for unchanged symbols.
func UpdateFileIncremental(g *graph.Graph, fe *extract.FileExtraction) {
	fileID := g.AddFile(fe.FilePath)

	type oldSym struct {
		id      graph.NodeID
		snippet string
	}
	old := make(map[string]oldSym)
	for _, n := range g.DefinedSymbols(fileID) {
		old[n.Name] = oldSym{id: n.ID, snippet: n.CodeSnippet}
	}

	newSyms := make(map[string]extract.ExtractedSymbol, len(fe.Symbols))
	for _, s := range fe.Symbols {
		newSyms[s.Name] = s
	}

	queued := make(map[graph.NodeID]struct{})

	// Step 3: old \ new -> removed.
	for name, o := range old {
		if _, ok := newSyms[name]; !ok {
			g.MarkRemoved(o.id)
		}
	}

	// Step 4: new \ old -> fresh nodes, queued.
	for name, sym := range newSyms {
		if _, ok := old[name]; ok {
			continue
		}
		id := ingestSymbol(g, fileID, fe.FilePath, sym)
		queued[id] = struct{}{}
	}

	// Step 5: old ∩ new.
	for name, sym := range newSyms {
		o, ok := old[name]
		if !ok {
			continue
		}
		n := g.Node(o.id)
		if n == nil {
			continue
		}
		if o.snippet != sym.CodeSnippet {
			n.CodeSnippet = sym.CodeSnippet
			n.LineStart = sym.LineStart
			n.LineEnd = sym.LineEnd
			n.CallLines = nil
			n.Features = append([]string(nil), sym.Features...)
			g.RemoveOutgoingCalls(o.id)
			queued[o.id] = struct{}{}
		} else {
			n.LineStart = sym.LineStart
			n.LineEnd = sym.LineEnd
		}
	}

	// Step 6: imports replaced wholesale.
	for _, n := range g.ImportNodes(fileID) {
		g.MarkRemoved(n.ID)
	}
	for _, imp := range fe.Imports {
		id := g.AddSymbol(imp.Path, graph.KindImport, fe.FilePath, imp.Line, imp.Line, "")
		g.AddEdge(fileID, id, graph.EdgeImports)
	}

	// Step 7: resolve calls for the queued set.
	resolveCallsFor(g, fe.FilePath, fe.Calls, queued)

	// Step 8: finalize call_lines and containment for the queued set.
	finalizeCallLines(g, queued)
	resolveContainment(g, fe, queued)

	// Step 9: drop ApiCall edges touching any live symbol of this file.
	touching := make(map[graph.NodeID]struct{})
	for _, n := range g.DefinedSymbols(fileID) {
		touching[n.ID] = struct{}{}
	}
	g.RemoveApiCallEdgesTouching(touching)
}

// RemoveFile marks the File node and every symbol and import it reaches by
// Defines or Imports as removed. Edges are left in place; their targets
// may still be referenced by other files.
func RemoveFile(g *graph.Graph, path string) {
	fileID, ok := g.FindFile(path)
	if !ok {
		return
	}
	for _, n := range g.DefinedSymbols(fileID) {
		g.MarkRemoved(n.ID)
	}
	for _, n := range g.ImportNodes(fileID) {
		g.MarkRemoved(n.ID)
	}
	g.MarkRemoved(fileID)
}

// Compact rebuilds a fresh graph containing only the live subset of g:
// every live node is copied (preserving features and call_lines) and every
// edge whose both endpoints are live is re-created. The new graph's node
// ids are internal to the rebuild; callers must not carry old ids across a
// Compact boundary.
func Compact(g *graph.Graph) *graph.Graph {
	out := graph.New()
	remap := make(map[graph.NodeID]graph.NodeID)

	for _, n := range g.AllFiles() {
		remap[n.ID] = out.AddFile(n.FilePath)
	}
	for _, n := range g.AllSymbols() {
		newID := out.AddSymbol(n.Name, n.Kind, n.FilePath, n.LineStart, n.LineEnd, n.CodeSnippet)
		remap[n.ID] = newID
		if dst := out.Node(newID); dst != nil {
			dst.Features = append([]string(nil), n.Features...)
			dst.CallLines = append([]int(nil), n.CallLines...)
		}
	}
	// Import nodes are not returned by AllSymbols (it excludes KindImport);
	// copy them explicitly so their Imports edges survive compaction.
	for _, file := range g.AllFiles() {
		for _, n := range g.ImportNodes(file.ID) {
			if _, done := remap[n.ID]; done {
				continue
			}
			remap[n.ID] = out.AddSymbol(n.Name, n.Kind, n.FilePath, n.LineStart, n.LineEnd, n.CodeSnippet)
		}
	}

	for _, e := range g.AllEdges() {
		src, sOK := remap[e.Source]
		dst, dOK := remap[e.Target]
		if sOK && dOK {
			out.AddEdge(src, dst, e.Kind)
		}
	}
	return out
}
