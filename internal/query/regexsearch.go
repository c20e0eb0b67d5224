package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/anchorhq/anchor/internal/graph"
	"github.com/anchorhq/anchor/internal/query/rx"
)

// RegexSearch matches symbol names against a pattern: a regex engine based
// on Brzozowski derivatives supports union, intersection (&), negation
// (~), alternation,
// character classes, and the usual quantifiers. Inputs are lowercased on
// both sides; the pattern is compiled once and applied to every symbol
// name. Patterns using only the RE2-expressible subset (no top-level `&`
// or `~`) are compiled with the standard regexp package instead, since
// it is faster and better tested than the derivative engine for the
// common case.
func RegexSearch(g *graph.Graph, pattern string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	lowered := strings.ToLower(pattern)

	if !usesSetOperators(lowered) {
		re, err := regexp.Compile(lowered)
		if err != nil {
			return nil, fmt.Errorf("compile regex: %w", err)
		}
		return collectMatches(g, limit, func(lowerName string) bool {
			return re.MatchString(lowerName)
		})
	}

	node, err := rx.Parse(lowered)
	if err != nil {
		return nil, fmt.Errorf("compile regex: %w", err)
	}
	return collectMatches(g, limit, func(lowerName string) bool {
		return rx.Match(node, lowerName)
	})
}

func usesSetOperators(pattern string) bool {
	depth := 0
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '&', '~':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

func collectMatches(g *graph.Graph, limit int, match func(lowerName string) bool) ([]SearchResult, error) {
	var out []SearchResult
	for _, name := range g.AllSymbolNames() {
		if !match(strings.ToLower(name)) {
			continue
		}
		for _, id := range g.SymbolsNamed(name) {
			n := g.LiveNode(id)
			if n == nil {
				continue
			}
			out = append(out, toResult(n, 0))
			if len(out) == limit {
				return out, nil
			}
		}
	}
	return out, nil
}
