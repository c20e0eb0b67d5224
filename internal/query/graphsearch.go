package query

import (
	"sort"
	"strings"

	"github.com/anchorhq/anchor/internal/graph"
)

const (
	graphSearchMaxInitialFiles   = 10
	graphSearchMaxInitialSymbols = 10
	graphSearchMaxSymbols        = 50
	graphSearchMaxConnections    = 100
)

// GraphConnection is one traversed edge in a GraphSearch result.
type GraphConnection struct {
	From graph.NodeID
	To   graph.NodeID
	Kind graph.EdgeKind
}

// GraphSearchResult is the output of GraphSearch: every visited symbol
// plus every traversed edge, in BFS order, with a truncation flag.
type GraphSearchResult struct {
	Symbols     []SearchResult
	Connections []GraphConnection
	Truncated   bool
}

// GraphSearch seeds from a file-path match (or, failing that, a
// symbol-name match), then BFS outward to depth across all edge kinds,
// capped at 50 symbols and 100 connections.
func GraphSearch(g *graph.Graph, query string, depth int) GraphSearchResult {
	lowerQ := strings.ToLower(query)
	seeds := seedFromFiles(g, lowerQ)
	if len(seeds) == 0 {
		seeds = seedFromSymbolNames(g, lowerQ)
	}

	result := GraphSearchResult{}
	visited := make(map[graph.NodeID]bool)
	connSeen := make(map[[2]graph.NodeID]bool)

	type frontierEntry struct {
		id    graph.NodeID
		depth int
	}
	var frontier []frontierEntry
	for _, id := range seeds {
		if !visited[id] {
			visited[id] = true
			frontier = append(frontier, frontierEntry{id: id, depth: 0})
		}
	}

	addSymbol := func(id graph.NodeID) bool {
		n := g.LiveNode(id)
		if n == nil || n.Kind == graph.KindFile {
			return true
		}
		if len(result.Symbols) >= graphSearchMaxSymbols {
			result.Truncated = true
			return false
		}
		result.Symbols = append(result.Symbols, toResult(n, 0))
		return true
	}

	for _, f := range frontier {
		if !addSymbol(f.id) {
			break
		}
	}

	for i := 0; i < len(frontier); i++ {
		cur := frontier[i]
		if cur.depth >= depth {
			continue
		}
		if len(result.Symbols) >= graphSearchMaxSymbols {
			result.Truncated = true
			break
		}

		neighbors := append(g.Edges(cur.id, graph.Outgoing, ""), g.Edges(cur.id, graph.Incoming, "")...)
		for _, e := range neighbors {
			other := e.Target
			if e.Source != cur.id {
				other = e.Source
			}
			key := [2]graph.NodeID{cur.id, other}
			if !connSeen[key] {
				if len(result.Connections) >= graphSearchMaxConnections {
					result.Truncated = true
					break
				}
				connSeen[key] = true
				result.Connections = append(result.Connections, GraphConnection{From: e.Source, To: e.Target, Kind: e.Kind})
			}
			if visited[other] {
				continue
			}
			visited[other] = true
			if !addSymbol(other) {
				continue
			}
			frontier = append(frontier, frontierEntry{id: other, depth: cur.depth + 1})
		}
	}

	sort.SliceStable(result.Symbols, func(i, j int) bool { return result.Symbols[i].Name < result.Symbols[j].Name })
	return result
}

func seedFromFiles(g *graph.Graph, lowerQ string) []graph.NodeID {
	var files []graph.NodeID
	for _, f := range g.AllFiles() {
		base := f.FilePath
		if i := strings.LastIndexByte(base, '/'); i >= 0 {
			base = base[i+1:]
		}
		if strings.Contains(strings.ToLower(f.FilePath), lowerQ) || strings.Contains(strings.ToLower(base), lowerQ) {
			files = append(files, f.ID)
			if len(files) == graphSearchMaxInitialFiles {
				break
			}
		}
	}
	if len(files) == 0 {
		return nil
	}

	var seeds []graph.NodeID
	for _, fid := range files {
		for _, sym := range g.DefinedSymbols(fid) {
			seeds = append(seeds, sym.ID)
			if len(seeds) == graphSearchMaxSymbols {
				return seeds
			}
		}
	}
	return seeds
}

func seedFromSymbolNames(g *graph.Graph, lowerQ string) []graph.NodeID {
	var seeds []graph.NodeID
	for _, name := range g.AllSymbolNames() {
		lowerName := strings.ToLower(name)
		if lowerName == lowerQ || strings.HasPrefix(lowerName, lowerQ) {
			for _, id := range g.SymbolsNamed(name) {
				if n := g.LiveNode(id); n != nil {
					seeds = append(seeds, id)
				}
			}
			if len(seeds) >= graphSearchMaxInitialSymbols {
				break
			}
		}
	}
	if len(seeds) > graphSearchMaxInitialSymbols {
		seeds = seeds[:graphSearchMaxInitialSymbols]
	}
	return seeds
}
