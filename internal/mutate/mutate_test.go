package mutate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorhq/anchor/internal/extract"
	"github.com/anchorhq/anchor/internal/graph"
)

func sym(name string, kind graph.NodeKind, start, end int, snippet string) extract.ExtractedSymbol {
	return extract.ExtractedSymbol{Name: name, Kind: kind, LineStart: start, LineEnd: end, CodeSnippet: snippet}
}

// Seed scenario 1: remove + re-add preserves uniqueness.
func TestRemoveAndReAddPreservesUniqueness(t *testing.T) {
	g := graph.New()
	fe := &extract.FileExtraction{
		FilePath: "src/auth.rs",
		Symbols:  []extract.ExtractedSymbol{sym("login", graph.KindFunction, 1, 10, "fn login() {}")},
	}
	BuildFromExtractions(g, []*extract.FileExtraction{fe})

	RemoveFile(g, "src/auth.rs")

	fe2 := &extract.FileExtraction{
		FilePath: "src/auth.rs",
		Symbols:  []extract.ExtractedSymbol{sym("login", graph.KindFunction, 1, 15, "fn login() { new_body() }")},
	}
	BuildFromExtractions(g, []*extract.FileExtraction{fe2})

	ids := g.SymbolsNamed("login")
	require.Len(t, ids, 1)
	n := g.LiveNode(ids[0])
	require.NotNil(t, n)
	assert.Contains(t, n.CodeSnippet, "new_body")
}

// Same-named symbols across files resolve by first hit in the name index:
// SymbolsNamed sorts by node id, so a call binds to the lowest-id (first
// ingested) symbol. This is the documented tie-break for ambiguous names.
func TestCallResolvesToLowestIDOnNameCollision(t *testing.T) {
	g := graph.New()
	first := &extract.FileExtraction{
		FilePath: "auth/login.rs",
		Symbols:  []extract.ExtractedSymbol{sym("login", graph.KindFunction, 1, 10, "fn login() { /* auth */ }")},
	}
	second := &extract.FileExtraction{
		FilePath: "admin/login.rs",
		Symbols:  []extract.ExtractedSymbol{sym("login", graph.KindFunction, 1, 8, "fn login() { /* admin */ }")},
	}
	caller := &extract.FileExtraction{
		FilePath: "main.rs",
		Symbols:  []extract.ExtractedSymbol{sym("main", graph.KindFunction, 1, 5, "fn main() { login() }")},
		Calls:    []extract.ExtractedCall{{Caller: "main", Callee: "login", Line: 2, LineEnd: 2}},
	}
	BuildFromExtractions(g, []*extract.FileExtraction{first, second, caller})

	firstID, ok := g.FindQualified("auth/login.rs", "login")
	require.True(t, ok)
	secondID, ok := g.FindQualified("admin/login.rs", "login")
	require.True(t, ok)
	require.Less(t, firstID, secondID, "ingestion order fixes the id order")

	mainID, ok := g.FindQualified("main.rs", "main")
	require.True(t, ok)
	calls := g.Edges(mainID, graph.Outgoing, graph.EdgeCalls)
	require.Len(t, calls, 1)
	assert.Equal(t, firstID, calls[0].Target, "the call binds to the lowest-id login")
	assert.Empty(t, g.Edges(secondID, graph.Incoming, graph.EdgeCalls))
}

// Seed scenario 2: cross-file call survives caller edit.
func TestCrossFileCallSurvivesCallerEdit(t *testing.T) {
	g := graph.New()
	a := &extract.FileExtraction{
		FilePath: "a.go",
		Symbols:  []extract.ExtractedSymbol{sym("main", graph.KindFunction, 1, 6, "func main() { login() }")},
		Calls:    []extract.ExtractedCall{{Caller: "main", Callee: "login", Line: 5, LineEnd: 5}},
	}
	b := &extract.FileExtraction{
		FilePath: "b.go",
		Symbols:  []extract.ExtractedSymbol{sym("login", graph.KindFunction, 1, 10, "func login() {}")},
	}
	BuildFromExtractions(g, []*extract.FileExtraction{a, b})

	loginID, ok := g.FindQualified("b.go", "login")
	require.True(t, ok)
	before := g.Edges(loginID, graph.Incoming, graph.EdgeCalls)
	require.Len(t, before, 1)

	edited := &extract.FileExtraction{
		FilePath: "a.go",
		Symbols:  []extract.ExtractedSymbol{sym("main", graph.KindFunction, 1, 8, "func main() {\n\n\n\n\n\n login() }")},
		Calls:    []extract.ExtractedCall{{Caller: "main", Callee: "login", Line: 7, LineEnd: 7}},
	}
	UpdateFileIncremental(g, edited)

	after := g.Edges(loginID, graph.Incoming, graph.EdgeCalls)
	require.Len(t, after, 1)
	mainID := after[0].Source
	mainNode := g.LiveNode(mainID)
	require.NotNil(t, mainNode)
	assert.Equal(t, 8, mainNode.LineEnd)
	assert.Contains(t, mainNode.CallLines, 7)
}

// Seed scenario 5: cross-language API join.
func TestCrossLanguageAPIJoin(t *testing.T) {
	g := graph.New()
	py := &extract.FileExtraction{
		FilePath: "server/app.py",
		Symbols:  []extract.ExtractedSymbol{sym("get_user", graph.KindFunction, 3, 5, "def get_user(id): ...")},
		ApiEndpoints: []extract.ExtractedApiEndpoint{
			{URL: "/api/users/:param", Method: "GET", Role: extract.RoleDefines, Scope: "get_user", Line: 2},
		},
	}
	goFile := &extract.FileExtraction{
		FilePath: "client.go",
		Symbols:  []extract.ExtractedSymbol{sym("fetchUser", graph.KindFunction, 1, 4, "func fetchUser() { http.Get(\"/api/users/42\") }")},
		ApiEndpoints: []extract.ExtractedApiEndpoint{
			{URL: "/api/users/:param", Method: "GET", Role: extract.RoleConsumes, Scope: "fetchUser", Line: 3},
		},
	}
	BuildFromExtractions(g, []*extract.FileExtraction{py, goFile})

	consumerID, ok := g.FindQualified("client.go", "fetchUser")
	require.True(t, ok)
	providerID, ok := g.FindQualified("server/app.py", "get_user")
	require.True(t, ok)

	edges := g.Edges(consumerID, graph.Outgoing, graph.EdgeApiCall)
	require.Len(t, edges, 1)
	assert.Equal(t, providerID, edges[0].Target)
}

func TestUpdateFileIncrementalUnchangedSnippetKeepsEdges(t *testing.T) {
	g := graph.New()
	fe := &extract.FileExtraction{
		FilePath: "m.go",
		Symbols: []extract.ExtractedSymbol{
			sym("helper", graph.KindFunction, 10, 12, "func helper() {}"),
			sym("caller", graph.KindFunction, 1, 5, "func caller() { helper() }"),
		},
		Calls: []extract.ExtractedCall{{Caller: "caller", Callee: "helper", Line: 2, LineEnd: 2}},
	}
	BuildFromExtractions(g, []*extract.FileExtraction{fe})

	helperID, ok := g.FindQualified("m.go", "helper")
	require.True(t, ok)
	before := g.Edges(helperID, graph.Incoming, graph.EdgeCalls)
	require.Len(t, before, 1)

	// Re-extract with helper's body unchanged but shifted down by one line.
	shifted := &extract.FileExtraction{
		FilePath: "m.go",
		Symbols: []extract.ExtractedSymbol{
			sym("helper", graph.KindFunction, 11, 13, "func helper() {}"),
			sym("caller", graph.KindFunction, 1, 5, "func caller() { helper() }"),
		},
		Calls: []extract.ExtractedCall{{Caller: "caller", Callee: "helper", Line: 2, LineEnd: 2}},
	}
	UpdateFileIncremental(g, shifted)

	after := g.Edges(helperID, graph.Incoming, graph.EdgeCalls)
	require.Len(t, after, 1, "unchanged snippet must keep its existing Calls edge")
	n := g.LiveNode(helperID)
	require.NotNil(t, n)
	assert.Equal(t, 11, n.LineStart)
	assert.Equal(t, 13, n.LineEnd)
}

func TestUpdateFileIncrementalChangedSnippetReresolves(t *testing.T) {
	g := graph.New()
	fe := &extract.FileExtraction{
		FilePath: "m.go",
		Symbols: []extract.ExtractedSymbol{
			sym("a", graph.KindFunction, 1, 3, "func a() { b() }"),
			sym("b", graph.KindFunction, 5, 7, "func b() {}"),
			sym("c", graph.KindFunction, 9, 11, "func c() {}"),
		},
		Calls: []extract.ExtractedCall{{Caller: "a", Callee: "b", Line: 2, LineEnd: 2}},
	}
	BuildFromExtractions(g, []*extract.FileExtraction{fe})

	edited := &extract.FileExtraction{
		FilePath: "m.go",
		Symbols: []extract.ExtractedSymbol{
			sym("a", graph.KindFunction, 1, 3, "func a() { c() }"),
			sym("b", graph.KindFunction, 5, 7, "func b() {}"),
			sym("c", graph.KindFunction, 9, 11, "func c() {}"),
		},
		Calls: []extract.ExtractedCall{{Caller: "a", Callee: "c", Line: 2, LineEnd: 2}},
	}
	UpdateFileIncremental(g, edited)

	aID, ok := g.FindQualified("m.go", "a")
	require.True(t, ok)
	bID, ok := g.FindQualified("m.go", "b")
	require.True(t, ok)
	cID, ok := g.FindQualified("m.go", "c")
	require.True(t, ok)

	assert.Empty(t, g.Edges(bID, graph.Incoming, graph.EdgeCalls))
	outgoing := g.Edges(aID, graph.Outgoing, graph.EdgeCalls)
	require.Len(t, outgoing, 1)
	assert.Equal(t, cID, outgoing[0].Target)
}

func TestUpdateFileIncrementalRemovesVanishedSymbols(t *testing.T) {
	g := graph.New()
	fe := &extract.FileExtraction{
		FilePath: "m.go",
		Symbols: []extract.ExtractedSymbol{
			sym("gone", graph.KindFunction, 1, 3, "func gone() {}"),
			sym("stays", graph.KindFunction, 5, 7, "func stays() {}"),
		},
	}
	BuildFromExtractions(g, []*extract.FileExtraction{fe})

	edited := &extract.FileExtraction{
		FilePath: "m.go",
		Symbols:  []extract.ExtractedSymbol{sym("stays", graph.KindFunction, 5, 7, "func stays() {}")},
	}
	UpdateFileIncremental(g, edited)

	assert.Empty(t, g.SymbolsNamed("gone"))
	assert.NotEmpty(t, g.SymbolsNamed("stays"))
}

func TestRemoveFileMarksSymbolsRemoved(t *testing.T) {
	g := graph.New()
	fe := &extract.FileExtraction{
		FilePath: "m.go",
		Symbols:  []extract.ExtractedSymbol{sym("f", graph.KindFunction, 1, 3, "func f() {}")},
		Imports:  []extract.ExtractedImport{{Path: "fmt", Line: 1}},
	}
	BuildFromExtractions(g, []*extract.FileExtraction{fe})

	RemoveFile(g, "m.go")

	_, ok := g.FindFile("m.go")
	assert.False(t, ok)
	assert.Empty(t, g.SymbolsNamed("f"))
	stats := g.Stats()
	assert.Equal(t, 0, stats.LiveFiles)
	assert.Equal(t, 0, stats.LiveSymbols)
}

func TestCompactDropsEdgesToRemovedNodes(t *testing.T) {
	g := graph.New()
	a := &extract.FileExtraction{
		FilePath: "a.go",
		Symbols:  []extract.ExtractedSymbol{sym("caller", graph.KindFunction, 1, 3, "func caller() { callee() }")},
		Calls:    []extract.ExtractedCall{{Caller: "caller", Callee: "callee", Line: 2, LineEnd: 2}},
	}
	b := &extract.FileExtraction{
		FilePath: "b.go",
		Symbols:  []extract.ExtractedSymbol{sym("callee", graph.KindFunction, 1, 3, "func callee() {}")},
	}
	BuildFromExtractions(g, []*extract.FileExtraction{a, b})
	RemoveFile(g, "b.go")

	compacted := Compact(g)

	stats := compacted.Stats()
	assert.Equal(t, 1, stats.LiveFiles)
	assert.Equal(t, 1, stats.LiveSymbols)
	assert.Empty(t, compacted.SymbolsNamed("callee"))

	callerID, ok := compacted.FindQualified("a.go", "caller")
	require.True(t, ok)
	assert.Empty(t, compacted.Edges(callerID, graph.Outgoing, graph.EdgeCalls))
}
