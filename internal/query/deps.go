package query

import (
	"strings"

	"github.com/anchorhq/anchor/internal/graph"
)

// Relation is one dependents/dependencies hit: a symbol on the other side
// of an edge, and the kind of edge that connected it.
type Relation struct {
	Name     string
	Kind     graph.NodeKind
	FilePath string
	Line     int
	EdgeKind graph.EdgeKind
}

// Dependents returns the union of incoming-edge sources of every live node
// named name, filtered to live sources.
func Dependents(g *graph.Graph, name string) []Relation {
	return relations(g, name, graph.Incoming)
}

// Dependencies is the dual of Dependents, over outgoing edges.
func Dependencies(g *graph.Graph, name string) []Relation {
	return relations(g, name, graph.Outgoing)
}

func relations(g *graph.Graph, name string, dir graph.Direction) []Relation {
	seen := make(map[graph.NodeID]bool)
	var out []Relation
	for _, id := range g.SymbolsNamed(name) {
		n := g.LiveNode(id)
		if n == nil {
			continue
		}
		for _, e := range g.Edges(id, dir, "") {
			other := e.Source
			if dir == graph.Outgoing {
				other = e.Target
			}
			if seen[other] {
				continue
			}
			on := g.LiveNode(other)
			if on == nil {
				continue
			}
			seen[other] = true
			out = append(out, Relation{Name: on.Name, Kind: on.Kind, FilePath: on.FilePath, Line: on.LineStart, EdgeKind: e.Kind})
		}
	}
	return out
}

// testMarked reports whether a file path looks like a test file, for the
// "tests to update" filter in impact analysis.
func testMarked(path string) bool {
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	return strings.Contains(base, "_test.") || strings.HasPrefix(base, "test_")
}
