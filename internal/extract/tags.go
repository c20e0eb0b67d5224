package extract

import (
	"context"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/anchorhq/anchor/internal/anchorerr"
	"github.com/anchorhq/anchor/internal/graph"
)

// KindRefiner upgrades a node-type-derived kind to a precise one when one
// AST node type maps to more than one NodeKind (e.g. Rust's item_declaration
// family, or a "definition.class" tags capture that actually matched a
// struct). It returns base unchanged when no refinement applies.
type KindRefiner func(n *sitter.Node, source []byte, base graph.NodeKind) graph.NodeKind

// EndpointPattern is one (text pattern, method, role) rule used by the
// API-endpoint walker.
type EndpointPattern struct {
	Contains    string // substring the call/decorator/annotation text must contain
	Method      string
	Role        EndpointRole
	NodeTypes   map[string]bool // restrict the match to these AST node types; nil = any
	BackendOnly bool            // gate by extract.LooksBackend(filePath)
}

// LanguageSpec wires one tree-sitter grammar into the generic tags-based
// walker: which AST node types are definitions / calls / imports, how to
// pull a name out of each, and the endpoint pattern table. This plays the
// role of a grammar's tags query expressed as Go tables instead of a .scm
// query string, so every language shares one walker.
type LanguageSpec struct {
	Language Language
	Grammar  *sitter.Language

	// DefinitionTypes maps an AST node type to the base NodeKind it
	// introduces. Refine may upgrade that base kind further.
	DefinitionTypes map[string]graph.NodeKind
	Refine          KindRefiner

	// CallTypes maps an AST node type that represents a call/send
	// expression to the field name holding the callee sub-expression
	// ("function" in most C-family/Python/JS grammars). An empty field
	// name means "use the call node's own text".
	CallTypes map[string]string

	// ImportTypes are node types that represent an import/include/using
	// directive; their full text is cleaned into an ExtractedImport.
	ImportTypes map[string]bool

	Endpoints []EndpointPattern
}

type defSite struct {
	sym       *ExtractedSymbol
	startLine int
	endLine   int
}

type walker struct {
	spec   *LanguageSpec
	source []byte
	path   string
	defs   []defSite
}

// Extract parses source with spec's grammar, walks definitions, calls,
// imports, and API endpoints, and resolves parents.
func Extract(spec *LanguageSpec, path string, source []byte) (*FileExtraction, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(spec.Grammar)

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil || tree == nil {
		return nil, anchorerr.Wrap(anchorerr.TreeSitterParse, "parse "+path, err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, anchorerr.New(anchorerr.TreeSitterParse, "parse "+path+": nil root node")
	}

	w := &walker{spec: spec, source: source, path: path}
	w.walkDefinitions(root)

	symbols := make([]ExtractedSymbol, len(w.defs))
	for i, d := range w.defs {
		symbols[i] = *d.sym
	}
	resolveParents(symbols)

	fe := &FileExtraction{
		FilePath: path,
		Language: spec.Language,
		Symbols:  symbols,
		Calls:    w.walkCalls(root),
		Imports:  w.walkImports(root),
	}
	fe.ApiEndpoints = w.walkEndpoints(root)
	return fe, nil
}

func (w *walker) nodeText(n *sitter.Node) string { return n.Content(w.source) }

func (w *walker) walkDefinitions(root *sitter.Node) {
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if base, ok := w.spec.DefinitionTypes[n.Type()]; ok {
			if name, ok := w.definitionName(n); ok {
				kind := base
				if w.spec.Refine != nil {
					kind = w.spec.Refine(n, w.source, base)
				}
				start := int(n.StartPoint().Row) + 1
				end := int(n.EndPoint().Row) + 1
				sym := &ExtractedSymbol{
					Name:        name,
					Kind:        kind,
					LineStart:   start,
					LineEnd:     end,
					CodeSnippet: w.nodeText(n),
				}
				w.defs = append(w.defs, defSite{sym: sym, startLine: start, endLine: end})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
}

// definitionName extracts a definition node's name, trying the "name"
// field first and falling back to the first identifier-shaped descendant
// (covers grammars where the name is nested inside a declarator, e.g. C++
// function_definition -> function_declarator -> identifier).
func (w *walker) definitionName(n *sitter.Node) (string, bool) {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return w.nodeText(nameNode), true
	}
	var found *sitter.Node
	var visit func(c *sitter.Node, depth int)
	visit = func(c *sitter.Node, depth int) {
		if found != nil || depth > 4 {
			return
		}
		if strings.Contains(c.Type(), "identifier") {
			found = c
			return
		}
		for i := 0; i < int(c.ChildCount()); i++ {
			visit(c.Child(i), depth+1)
		}
	}
	visit(n, 0)
	if found == nil {
		return "", false
	}
	return w.nodeText(found), true
}

func (w *walker) walkCalls(root *sitter.Node) []ExtractedCall {
	var calls []ExtractedCall
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if field, ok := w.spec.CallTypes[n.Type()]; ok {
			callee := w.calleeName(n, field)
			caller := w.enclosingDefName(n)
			if callee != "" && caller != "" {
				calls = append(calls, ExtractedCall{
					Caller:  caller,
					Callee:  callee,
					Line:    int(n.StartPoint().Row) + 1,
					LineEnd: int(n.EndPoint().Row) + 1,
				})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
	return calls
}

func (w *walker) calleeName(n *sitter.Node, field string) string {
	target := n
	if field != "" {
		if f := n.ChildByFieldName(field); f != nil {
			target = f
		}
	}
	return lastIdentSegment(w.nodeText(target))
}

// enclosingDefName returns the name of the smallest recorded definition
// whose [startLine, endLine] contains n, by walking n's ancestors.
func (w *walker) enclosingDefName(n *sitter.Node) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		start := int(p.StartPoint().Row) + 1
		end := int(p.EndPoint().Row) + 1
		for _, d := range w.defs {
			if d.startLine == start && d.endLine == end {
				return d.sym.Name
			}
		}
	}
	return ""
}

// scopeFor resolves an endpoint-pattern match's enclosing scope. It first
// tries enclosingDefName (the match sits inside a function/method body).
// When that fails — as for a decorator line, which is a sibling of the
// function_definition it annotates rather than its ancestor — it falls
// back to the nearest definition that starts after n and still lies
// within n's parent's range.
func (w *walker) scopeFor(n *sitter.Node) string {
	if name := w.enclosingDefName(n); name != "" {
		return name
	}
	parent := n.Parent()
	if parent == nil {
		return ""
	}
	parentEnd := int(parent.EndPoint().Row) + 1
	nodeEnd := int(n.EndPoint().Row) + 1
	var best *defSite
	for i := range w.defs {
		d := &w.defs[i]
		if d.startLine >= nodeEnd && d.endLine <= parentEnd {
			if best == nil || d.startLine < best.startLine {
				best = d
			}
		}
	}
	if best != nil {
		return best.sym.Name
	}
	return ""
}

func lastIdentSegment(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.LastIndexAny(text, ".:>"); idx >= 0 {
		return text[idx+1:]
	}
	return text
}

// resolveParents assigns each non-container symbol the smallest enclosing
// container whose range fully encloses it, excluding self-match.
func resolveParents(symbols []ExtractedSymbol) {
	for i := range symbols {
		s := &symbols[i]
		if graph.IsContainer(s.Kind) {
			continue
		}
		var best *ExtractedSymbol
		for j := range symbols {
			if i == j {
				continue
			}
			c := &symbols[j]
			if !graph.IsContainer(c.Kind) {
				continue
			}
			if c.LineStart <= s.LineStart && c.LineEnd >= s.LineEnd && (c.LineStart != s.LineStart || c.LineEnd != s.LineEnd) {
				if best == nil || (c.LineEnd-c.LineStart) < (best.LineEnd-best.LineStart) {
					best = c
				}
			}
		}
		if best != nil {
			s.Parent = best.Name
		}
	}
}

func (w *walker) walkImports(root *sitter.Node) []ExtractedImport {
	if len(w.spec.ImportTypes) == 0 {
		return nil
	}
	var out []ExtractedImport
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if w.spec.ImportTypes[n.Type()] {
			if path, ok := cleanImportText(w.nodeText(n)); ok {
				out = append(out, ExtractedImport{Path: path, Line: int(n.StartPoint().Row) + 1})
			}
			// import statements do not nest further imports worth walking into
		} else {
			for i := 0; i < int(n.ChildCount()); i++ {
				visit(n.Child(i))
			}
		}
	}
	visit(root)
	return out
}

var importKeywords = []string{"use", "import", "from", "using", "#include", "require"}

func cleanImportText(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	text = strings.TrimRight(text, ";")
	if idx := strings.Index(text, " from "); idx >= 0 {
		text = text[idx+len(" from "):]
	}
	for _, kw := range importKeywords {
		if strings.HasPrefix(text, kw+" ") {
			text = strings.TrimSpace(strings.TrimPrefix(text, kw))
			break
		}
	}
	text = strings.Trim(text, `"'<>() `)
	if text == "" {
		return "", false
	}
	return text, true
}

func (w *walker) walkEndpoints(root *sitter.Node) []ExtractedApiEndpoint {
	if len(w.spec.Endpoints) == 0 {
		return nil
	}
	var out []ExtractedApiEndpoint
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		text := w.nodeText(n)
		for _, pat := range w.spec.Endpoints {
			if pat.NodeTypes != nil && !pat.NodeTypes[n.Type()] {
				continue
			}
			if !strings.Contains(text, pat.Contains) {
				continue
			}
			if pat.BackendOnly && !LooksBackend(w.path) {
				continue
			}
			lit, ok := FirstURLLiteral(text)
			if !ok || !AdmitURL(lit) {
				continue
			}
			out = append(out, ExtractedApiEndpoint{
				URL:    NormalizeURL(lit),
				Method: pat.Method,
				Role:   pat.Role,
				Scope:  w.scopeFor(n),
				Line:   int(n.StartPoint().Row) + 1,
			})
			break
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}
