package extract

import (
	tsxgrammar "github.com/smacker/go-tree-sitter/typescript/tsx"
	tsgrammar "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/anchorhq/anchor/internal/graph"
)

func typescriptDefinitionTypes() map[string]graph.NodeKind {
	return map[string]graph.NodeKind{
		"function_declaration":   graph.KindFunction,
		"method_definition":      graph.KindMethod,
		"class_declaration":      graph.KindClass,
		"interface_declaration":  graph.KindInterface,
		"type_alias_declaration": graph.KindType,
		"enum_declaration":       graph.KindEnum,
	}
}

func typescriptEndpoints() []EndpointPattern {
	return []EndpointPattern{
		{Contains: "app.get", Method: "GET", Role: RoleDefines, BackendOnly: true, NodeTypes: map[string]bool{"call_expression": true}},
		{Contains: "app.post", Method: "POST", Role: RoleDefines, BackendOnly: true, NodeTypes: map[string]bool{"call_expression": true}},
		{Contains: "router.get", Method: "GET", Role: RoleDefines, BackendOnly: true, NodeTypes: map[string]bool{"call_expression": true}},
		{Contains: "fetch(", Method: "GET", Role: RoleConsumes, NodeTypes: map[string]bool{"call_expression": true}},
		{Contains: "axios.get", Method: "GET", Role: RoleConsumes, NodeTypes: map[string]bool{"call_expression": true}},
	}
}

func typescriptSpec() *LanguageSpec {
	return &LanguageSpec{
		Language:        LangTypeScript,
		Grammar:         tsgrammar.GetLanguage(),
		DefinitionTypes: typescriptDefinitionTypes(),
		CallTypes: map[string]string{
			"call_expression": "function",
		},
		ImportTypes: map[string]bool{
			"import_statement": true,
		},
		Endpoints: typescriptEndpoints(),
	}
}

func tsxSpec() *LanguageSpec {
	return &LanguageSpec{
		Language:        LangTSX,
		Grammar:         tsxgrammar.GetLanguage(),
		DefinitionTypes: typescriptDefinitionTypes(),
		CallTypes: map[string]string{
			"call_expression": "function",
		},
		ImportTypes: map[string]bool{
			"import_statement": true,
		},
		Endpoints: typescriptEndpoints(),
	}
}
