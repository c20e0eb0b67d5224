// Package query implements every read-side operation over the code graph:
// symbol search, regex search, graph-aware BFS search,
// dependents/dependencies, graph-sliced code rendering, and impact
// analysis.
package query

import (
	"sort"
	"strings"

	"github.com/anchorhq/anchor/internal/graph"
)

// SearchResult is one symbol-search hit.
type SearchResult struct {
	NodeID   graph.NodeID
	Name     string
	Kind     graph.NodeKind
	FilePath string
	Line     int
	Score    int
}

// SymbolSearch returns exact name-index hits first; otherwise it runs a
// scored scan over name and feature-tag matches.
func SymbolSearch(g *graph.Graph, q string, limit int) []SearchResult {
	if limit <= 0 {
		return nil
	}

	if ids := g.SymbolsNamed(q); len(ids) > 0 {
		out := make([]SearchResult, 0, min(len(ids), limit))
		for _, id := range ids {
			n := g.LiveNode(id)
			if n == nil {
				continue
			}
			out = append(out, toResult(n, 0))
			if len(out) == limit {
				break
			}
		}
		return out
	}

	terms := significantTerms(q)
	var scored []SearchResult
	for _, name := range g.AllSymbolNames() {
		for _, id := range g.SymbolsNamed(name) {
			n := g.LiveNode(id)
			if n == nil {
				continue
			}
			if score, ok := scoreSymbol(n, q, terms); ok {
				scored = append(scored, toResult(n, score))
			}
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score < scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func toResult(n *graph.Node, score int) SearchResult {
	return SearchResult{NodeID: n.ID, Name: n.Name, Kind: n.Kind, FilePath: n.FilePath, Line: n.LineStart, Score: score}
}

// scoreSymbol ranks a candidate: 0 exact, 1 prefix, 2 substring, 3 all
// feature terms matched, 4 some feature terms matched.
func scoreSymbol(n *graph.Node, q string, terms []string) (int, bool) {
	if n.Name == q {
		return 0, true
	}
	lowerName := strings.ToLower(n.Name)
	lowerQ := strings.ToLower(q)
	if strings.HasPrefix(lowerName, lowerQ) {
		return 1, true
	}
	if strings.Contains(lowerName, lowerQ) {
		return 2, true
	}
	if len(terms) == 0 {
		return 0, false
	}
	matched := 0
	for _, term := range terms {
		for _, f := range n.Features {
			if strings.Contains(strings.ToLower(f), term) {
				matched++
				break
			}
		}
	}
	switch {
	case matched == len(terms):
		return 3, true
	case matched > 0:
		return 4, true
	default:
		return 0, false
	}
}

// significantTerms splits q on whitespace and keeps terms longer than 2
// characters, lowercased.
func significantTerms(q string) []string {
	var terms []string
	for _, t := range strings.Fields(q) {
		if len(t) > 2 {
			terms = append(terms, strings.ToLower(t))
		}
	}
	return terms
}
