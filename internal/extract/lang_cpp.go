package extract

import (
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/anchorhq/anchor/internal/graph"
)

func cppSpec() *LanguageSpec {
	return &LanguageSpec{
		Language: LangCPP,
		Grammar:  cpp.GetLanguage(),
		DefinitionTypes: map[string]graph.NodeKind{
			"function_definition": graph.KindFunction,
			"struct_specifier":    graph.KindStruct,
			"class_specifier":     graph.KindClass,
			"enum_specifier":      graph.KindEnum,
		},
		CallTypes: map[string]string{
			"call_expression": "function",
		},
		ImportTypes: map[string]bool{
			"preproc_include": true,
		},
	}
}
