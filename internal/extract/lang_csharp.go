package extract

import (
	"github.com/smacker/go-tree-sitter/csharp"

	"github.com/anchorhq/anchor/internal/graph"
)

func csharpSpec() *LanguageSpec {
	return &LanguageSpec{
		Language: LangCSharp,
		Grammar:  csharp.GetLanguage(),
		DefinitionTypes: map[string]graph.NodeKind{
			"method_declaration":    graph.KindMethod,
			"class_declaration":     graph.KindClass,
			"interface_declaration": graph.KindInterface,
			"struct_declaration":    graph.KindStruct,
			"enum_declaration":      graph.KindEnum,
		},
		CallTypes: map[string]string{
			// C# direct invocations: the callee expression is nested under
			// "function", same shape as the other C-family grammars.
			"invocation_expression": "function",
		},
		ImportTypes: map[string]bool{
			"using_directive": true,
		},
		Endpoints: []EndpointPattern{
			{Contains: "[Route", Method: "GET", Role: RoleDefines, NodeTypes: map[string]bool{"attribute": true}},
			{Contains: "[HttpGet", Method: "GET", Role: RoleDefines, NodeTypes: map[string]bool{"attribute": true}},
			{Contains: "[HttpPost", Method: "POST", Role: RoleDefines, NodeTypes: map[string]bool{"attribute": true}},
		},
	}
}
