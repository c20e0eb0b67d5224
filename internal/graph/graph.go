package graph

import "sort"

// Direction specifies the traversal direction for edge queries.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

// Graph is the in-memory directed labeled graph: node and edge tables plus
// the three derived indexes (by file path, by symbol name, and by
// (file, name) qualified key).
//
// Graph performs no internal synchronization. The daemon wraps one Graph
// in a single reader-writer lock; mutation and query code runs
// synchronously on the caller's goroutine once that lock is held.
type Graph struct {
	nextID NodeID

	nodes map[NodeID]*Node

	outEdges map[NodeID][]*Edge
	inEdges  map[NodeID][]*Edge
	allEdges []*Edge

	fileIndex      map[string]NodeID
	symbolIndex    map[string]map[NodeID]struct{}
	qualifiedIndex map[QualifiedKey]NodeID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:          make(map[NodeID]*Node),
		outEdges:       make(map[NodeID][]*Edge),
		inEdges:        make(map[NodeID][]*Edge),
		fileIndex:      make(map[string]NodeID),
		symbolIndex:    make(map[string]map[NodeID]struct{}),
		qualifiedIndex: make(map[QualifiedKey]NodeID),
	}
}

// AddFile is idempotent: if path is already present, it returns the
// existing id and clears the removed flag.
func (g *Graph) AddFile(path string) NodeID {
	if id, ok := g.fileIndex[path]; ok {
		if n := g.nodes[id]; n != nil {
			n.Removed = false
			return id
		}
	}
	// A removed file node that fell out of fileIndex (compaction aside) is
	// re-created fresh; lookups by path only ever go through fileIndex, so
	// a stale removed node with no index entry is simply orphaned.
	n := &Node{
		ID:       g.allocID(),
		Kind:     KindFile,
		Name:     path,
		FilePath: path,
	}
	g.nodes[n.ID] = n
	g.fileIndex[path] = n.ID
	return n.ID
}

// AddSymbol always creates a new node and updates symbol_index and
// qualified_index.
func (g *Graph) AddSymbol(name string, kind NodeKind, filePath string, lineStart, lineEnd int, snippet string) NodeID {
	n := &Node{
		ID:          g.allocID(),
		Kind:        kind,
		Name:        name,
		FilePath:    filePath,
		LineStart:   lineStart,
		LineEnd:     lineEnd,
		CodeSnippet: snippet,
	}
	g.nodes[n.ID] = n
	g.indexSymbol(n)
	return n.ID
}

func (g *Graph) indexSymbol(n *Node) {
	if g.symbolIndex[n.Name] == nil {
		g.symbolIndex[n.Name] = make(map[NodeID]struct{})
	}
	g.symbolIndex[n.Name][n.ID] = struct{}{}
	g.qualifiedIndex[QualifiedKey{FilePath: n.FilePath, Name: n.Name}] = n.ID
}

func (g *Graph) unindexSymbol(n *Node) {
	delete(g.symbolIndex[n.Name], n.ID)
	if len(g.symbolIndex[n.Name]) == 0 {
		delete(g.symbolIndex, n.Name)
	}
	if id, ok := g.qualifiedIndex[QualifiedKey{FilePath: n.FilePath, Name: n.Name}]; ok && id == n.ID {
		delete(g.qualifiedIndex, QualifiedKey{FilePath: n.FilePath, Name: n.Name})
	}
}

// AddEdge adds a directed edge. Parallel edges between the same pair are
// permitted.
func (g *Graph) AddEdge(from, to NodeID, kind EdgeKind) {
	e := &Edge{Source: from, Target: to, Kind: kind}
	g.allEdges = append(g.allEdges, e)
	g.outEdges[from] = append(g.outEdges[from], e)
	g.inEdges[to] = append(g.inEdges[to], e)
}

// Node returns a node by id, or nil if absent. Callers must check Removed
// themselves if they bypass the documented read operations below.
func (g *Graph) Node(id NodeID) *Node {
	return g.nodes[id]
}

// LiveNode returns a node by id, or nil if absent or removed.
func (g *Graph) LiveNode(id NodeID) *Node {
	n := g.nodes[id]
	if n == nil || n.Removed {
		return nil
	}
	return n
}

// FindFile returns the live File node id for path, if any.
func (g *Graph) FindFile(path string) (NodeID, bool) {
	id, ok := g.fileIndex[path]
	if !ok {
		return 0, false
	}
	if n := g.nodes[id]; n == nil || n.Removed {
		return 0, false
	}
	return id, true
}

// FindQualified returns the live node id for (filePath, name), if any.
func (g *Graph) FindQualified(filePath, name string) (NodeID, bool) {
	id, ok := g.qualifiedIndex[QualifiedKey{FilePath: filePath, Name: name}]
	if !ok {
		return 0, false
	}
	if n := g.nodes[id]; n == nil || n.Removed {
		return 0, false
	}
	return id, true
}

// SymbolsNamed returns every live node id indexed under name, sorted by id.
// The liveness contract requires this check even though MarkRemoved already
// drops removed ids from the index.
func (g *Graph) SymbolsNamed(name string) []NodeID {
	set := g.symbolIndex[name]
	if len(set) == 0 {
		return nil
	}
	out := make([]NodeID, 0, len(set))
	for id := range set {
		if n := g.nodes[id]; n != nil && !n.Removed {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllSymbolNames returns every name with at least one live member, for
// substring/fuzzy scanning.
func (g *Graph) AllSymbolNames() []string {
	names := make([]string, 0, len(g.symbolIndex))
	for name := range g.symbolIndex {
		names = append(names, name)
	}
	return names
}

// Edges returns the edges of kind (or every kind, if kind is "") incident
// to id in the given direction, restricted to the id itself (not the
// neighbor's liveness — callers filter that).
func (g *Graph) Edges(id NodeID, dir Direction, kind EdgeKind) []*Edge {
	var src []*Edge
	if dir == Outgoing {
		src = g.outEdges[id]
	} else {
		src = g.inEdges[id]
	}
	if kind == "" {
		return append([]*Edge(nil), src...)
	}
	out := make([]*Edge, 0, len(src))
	for _, e := range src {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// RemoveOutgoingCalls deletes every outgoing Calls edge from id (used when
// a changed symbol's call sites must be re-resolved from scratch).
func (g *Graph) RemoveOutgoingCalls(id NodeID) {
	g.removeEdgesWhere(func(e *Edge) bool {
		return e.Source == id && e.Kind == EdgeCalls
	})
}

// RemoveApiCallEdgesTouching removes every ApiCall edge whose source or
// target is in ids.
func (g *Graph) RemoveApiCallEdgesTouching(ids map[NodeID]struct{}) {
	g.removeEdgesWhere(func(e *Edge) bool {
		if e.Kind != EdgeApiCall {
			return false
		}
		_, s := ids[e.Source]
		_, t := ids[e.Target]
		return s || t
	})
}

func (g *Graph) removeEdgesWhere(match func(*Edge) bool) {
	kept := g.allEdges[:0]
	removed := make([]*Edge, 0)
	for _, e := range g.allEdges {
		if match(e) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	g.allEdges = kept
	for _, e := range removed {
		g.outEdges[e.Source] = removeEdge(g.outEdges[e.Source], e)
		g.inEdges[e.Target] = removeEdge(g.inEdges[e.Target], e)
	}
}

func removeEdge(list []*Edge, target *Edge) []*Edge {
	for i, e := range list {
		if e == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// MarkRemoved sets the removed flag and drops the node from every index.
// Edges are left in place per the soft-deletion lifecycle.
func (g *Graph) MarkRemoved(id NodeID) {
	n := g.nodes[id]
	if n == nil || n.Removed {
		return
	}
	n.Removed = true
	switch n.Kind {
	case KindFile:
		if cur, ok := g.fileIndex[n.FilePath]; ok && cur == id {
			delete(g.fileIndex, n.FilePath)
		}
	default:
		g.unindexSymbol(n)
	}
}

// DefinedSymbols returns the live symbol nodes a File node points to via
// Defines, excluding Import nodes.
func (g *Graph) DefinedSymbols(fileID NodeID) []*Node {
	var out []*Node
	for _, e := range g.outEdges[fileID] {
		if e.Kind != EdgeDefines {
			continue
		}
		n := g.nodes[e.Target]
		if n != nil && !n.Removed && n.Kind != KindImport {
			out = append(out, n)
		}
	}
	return out
}

// ImportNodes returns the live Import nodes a File node points to via
// Imports.
func (g *Graph) ImportNodes(fileID NodeID) []*Node {
	var out []*Node
	for _, e := range g.outEdges[fileID] {
		if e.Kind != EdgeImports {
			continue
		}
		n := g.nodes[e.Target]
		if n != nil && !n.Removed {
			out = append(out, n)
		}
	}
	return out
}

// Stats returns live file count, live symbol count, total edges (no
// liveness filter), and unique symbol-name count.
func (g *Graph) Stats() Stats {
	var s Stats
	for _, n := range g.nodes {
		if n.Removed {
			continue
		}
		if n.Kind == KindFile {
			s.LiveFiles++
		} else if n.Kind != KindImport {
			s.LiveSymbols++
		}
	}
	s.TotalEdges = len(g.allEdges)
	for name, set := range g.symbolIndex {
		if len(set) > 0 {
			_ = name
			s.UniqueNames++
		}
	}
	return s
}

// AllFiles returns every live File node.
func (g *Graph) AllFiles() []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Kind == KindFile && !n.Removed {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FilePath < out[j].FilePath })
	return out
}

// AllSymbols returns every live non-File, non-Import node.
func (g *Graph) AllSymbols() []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if !n.Removed && n.Kind != KindFile && n.Kind != KindImport {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SymbolsInFile returns every live symbol (including imports) whose
// FilePath equals path.
func (g *Graph) SymbolsInFile(path string) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if !n.Removed && n.Kind != KindFile && n.FilePath == path {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineStart < out[j].LineStart })
	return out
}

// SymbolsInRange returns live symbols in path whose [LineStart, LineEnd]
// overlaps [start, end].
func (g *Graph) SymbolsInRange(path string, start, end int) []*Node {
	var out []*Node
	for _, n := range g.SymbolsInFile(path) {
		if n.Kind == KindImport {
			continue
		}
		if n.LineStart <= end && n.LineEnd >= start {
			out = append(out, n)
		}
	}
	return out
}

// AllEdges returns every edge in the graph, live or not; callers that care
// about liveness (e.g. Compact) check both endpoints themselves.
func (g *Graph) AllEdges() []*Edge {
	return append([]*Edge(nil), g.allEdges...)
}

func (g *Graph) allocID() NodeID {
	g.nextID++
	return g.nextID
}

// NextIDForTest exposes the counter for deterministic test fixtures.
func (g *Graph) NextIDForTest() NodeID { return g.nextID }
