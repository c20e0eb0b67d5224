package extract

import (
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/anchorhq/anchor/internal/graph"
)

func javascriptSpec() *LanguageSpec {
	return &LanguageSpec{
		Language: LangJavaScript,
		Grammar:  javascript.GetLanguage(),
		DefinitionTypes: map[string]graph.NodeKind{
			"function_declaration": graph.KindFunction,
			"method_definition":    graph.KindMethod,
			"class_declaration":    graph.KindClass,
		},
		CallTypes: map[string]string{
			"call_expression": "function",
		},
		ImportTypes: map[string]bool{
			"import_statement": true,
		},
		Endpoints: []EndpointPattern{
			{Contains: "app.get", Method: "GET", Role: RoleDefines, BackendOnly: true, NodeTypes: map[string]bool{"call_expression": true}},
			{Contains: "app.post", Method: "POST", Role: RoleDefines, BackendOnly: true, NodeTypes: map[string]bool{"call_expression": true}},
			{Contains: "router.get", Method: "GET", Role: RoleDefines, BackendOnly: true, NodeTypes: map[string]bool{"call_expression": true}},
			{Contains: "fetch(", Method: "GET", Role: RoleConsumes, NodeTypes: map[string]bool{"call_expression": true}},
			{Contains: "axios.get", Method: "GET", Role: RoleConsumes, NodeTypes: map[string]bool{"call_expression": true}},
		},
	}
}
