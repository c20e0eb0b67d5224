package extract

import (
	"github.com/smacker/go-tree-sitter/swift"

	"github.com/anchorhq/anchor/internal/graph"
)

func swiftSpec() *LanguageSpec {
	return &LanguageSpec{
		Language: LangSwift,
		Grammar:  swift.GetLanguage(),
		DefinitionTypes: map[string]graph.NodeKind{
			"function_declaration": graph.KindFunction,
			"class_declaration":    graph.KindClass,
			"protocol_declaration": graph.KindInterface,
		},
		CallTypes: map[string]string{
			"call_expression": "function",
		},
		ImportTypes: map[string]bool{
			"import_declaration": true,
		},
	}
}
