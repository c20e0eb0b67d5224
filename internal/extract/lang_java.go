package extract

import (
	"github.com/smacker/go-tree-sitter/java"

	"github.com/anchorhq/anchor/internal/graph"
)

func javaSpec() *LanguageSpec {
	return &LanguageSpec{
		Language: LangJava,
		Grammar:  java.GetLanguage(),
		DefinitionTypes: map[string]graph.NodeKind{
			"method_declaration":    graph.KindMethod,
			"class_declaration":     graph.KindClass,
			"interface_declaration": graph.KindInterface,
			"enum_declaration":      graph.KindEnum,
		},
		CallTypes: map[string]string{
			// method_invocation carries the callee identifier directly in
			// its "name" field, unlike the C-family's nested "function".
			"method_invocation": "name",
		},
		ImportTypes: map[string]bool{
			"import_declaration": true,
		},
		Endpoints: []EndpointPattern{
			{Contains: "@RequestMapping", Method: "GET", Role: RoleDefines, NodeTypes: map[string]bool{"annotation": true, "marker_annotation": true}},
			{Contains: "@GetMapping", Method: "GET", Role: RoleDefines, NodeTypes: map[string]bool{"annotation": true, "marker_annotation": true}},
			{Contains: "@PostMapping", Method: "POST", Role: RoleDefines, NodeTypes: map[string]bool{"annotation": true, "marker_annotation": true}},
		},
	}
}
