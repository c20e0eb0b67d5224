package query

import "github.com/anchorhq/anchor/internal/graph"

// EditSuggestion is one caller's rewritten call-site text, produced only
// when a new signature is supplied to Impact.
type EditSuggestion struct {
	Caller   Relation
	Original string
	Rewrite  string
}

// ImpactResult is the output of Impact.
type ImpactResult struct {
	Definitions   []SearchResult
	Dependents    []Relation
	Suggestions   []EditSuggestion
	TestsToUpdate []Relation
}

// Impact reports what breaks if name's signature changes. newSignature is
// optional: when empty, suggestions are omitted but the breakage list is
// still produced.
func Impact(g *graph.Graph, name string, newSignature string) ImpactResult {
	var defs []SearchResult
	for _, id := range g.SymbolsNamed(name) {
		if n := g.LiveNode(id); n != nil {
			defs = append(defs, toResult(n, 0))
		}
	}

	deps := Dependents(g, name)
	var callEdgeDeps []Relation
	for _, d := range deps {
		if d.EdgeKind == graph.EdgeCalls {
			callEdgeDeps = append(callEdgeDeps, d)
		}
	}

	var tests []Relation
	for _, d := range callEdgeDeps {
		if hasTestPrefix(d.Name) || testMarked(d.FilePath) {
			tests = append(tests, d)
		}
	}

	result := ImpactResult{Definitions: defs, Dependents: callEdgeDeps, TestsToUpdate: tests}
	if newSignature == "" {
		return result
	}

	for _, d := range callEdgeDeps {
		caller, ok := g.FindQualified(d.FilePath, d.Name)
		if !ok {
			continue
		}
		n := g.LiveNode(caller)
		if n == nil {
			continue
		}
		result.Suggestions = append(result.Suggestions, EditSuggestion{
			Caller:   d,
			Original: n.CodeSnippet,
			Rewrite:  rewriteCallSite(n.CodeSnippet, name, newSignature),
		})
	}
	return result
}

func hasTestPrefix(name string) bool {
	return len(name) > 5 && name[:5] == "test_"
}

// rewriteCallSite is a best-effort textual substitution: it replaces the
// callee name with the new signature wherever it appears as a call. Full
// argument-aware rewriting belongs to the editor UI, not this subsystem.
func rewriteCallSite(snippet, calleeName, newSignature string) string {
	var out []byte
	name := []byte(calleeName)
	src := []byte(snippet)
	for i := 0; i < len(src); {
		if i+len(name) <= len(src) && string(src[i:i+len(name)]) == calleeName {
			boundaryBefore := i == 0 || !isIdentByte(src[i-1])
			boundaryAfter := i+len(name) == len(src) || !isIdentByte(src[i+len(name)])
			if boundaryBefore && boundaryAfter {
				out = append(out, newSignature...)
				i += len(name)
				continue
			}
		}
		out = append(out, src[i])
		i++
	}
	return string(out)
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
