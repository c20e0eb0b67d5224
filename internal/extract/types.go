// Package extract turns source text into a FileExtraction: the per-file
// bundle of symbols, imports, calls, and API endpoints that Mutation
// ingests into the Code Graph Engine.
package extract

import "github.com/anchorhq/anchor/internal/graph"

// Language is one of the source languages the extractor understands.
type Language string

const (
	LangRust       Language = "rust"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangGo         Language = "go"
	LangJava       Language = "java"
	LangCSharp     Language = "csharp"
	LangRuby       Language = "ruby"
	LangCPP        Language = "cpp"
	LangSwift      Language = "swift"
)

// FileExtensions maps each language to its recognized file extensions.
var FileExtensions = map[Language][]string{
	LangRust:       {".rs"},
	LangPython:     {".py", ".pyi"},
	LangJavaScript: {".js", ".jsx", ".mjs", ".cjs"},
	LangTypeScript: {".ts"},
	LangTSX:        {".tsx"},
	LangGo:         {".go"},
	LangJava:       {".java"},
	LangCSharp:     {".cs"},
	LangRuby:       {".rb"},
	LangCPP:        {".cc", ".cpp", ".cxx", ".hpp", ".hh", ".h"},
	LangSwift:      {".swift"},
}

// ExtSuffixLanguage returns the language registered for a file extension.
// ext must equal a registered extension exactly (".cjs", not "cjs").
func ExtSuffixLanguage(ext string) (Language, bool) {
	for lang, exts := range FileExtensions {
		for _, e := range exts {
			if e == ext {
				return lang, true
			}
		}
	}
	return "", false
}

// EndpointRole distinguishes a server route definition from a client call.
type EndpointRole string

const (
	RoleDefines  EndpointRole = "defines"
	RoleConsumes EndpointRole = "consumes"
)

// ExtractedSymbol is one definition found in a file.
type ExtractedSymbol struct {
	Name        string
	Kind        graph.NodeKind
	LineStart   int
	LineEnd     int
	CodeSnippet string
	Parent      string // enclosing container's name, if nested; "" at top level
	Features    []string
}

// ExtractedCall is one invocation site.
type ExtractedCall struct {
	Caller  string
	Callee  string
	Line    int
	LineEnd int
}

// ExtractedImport is one import directive.
type ExtractedImport struct {
	Path          string
	ImportedNames []string
	Line          int
}

// ExtractedApiEndpoint is one server route or client call.
type ExtractedApiEndpoint struct {
	URL    string
	Method string
	Role   EndpointRole
	Scope  string // enclosing function/method name
	Line   int
}

// FileExtraction is the Extractor's output for one file.
type FileExtraction struct {
	FilePath     string
	Language     Language
	Symbols      []ExtractedSymbol
	Imports      []ExtractedImport
	Calls        []ExtractedCall
	ApiEndpoints []ExtractedApiEndpoint
}
