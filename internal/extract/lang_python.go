package extract

import (
	"github.com/smacker/go-tree-sitter/python"

	"github.com/anchorhq/anchor/internal/graph"
)

func pythonSpec() *LanguageSpec {
	return &LanguageSpec{
		Language: LangPython,
		Grammar:  python.GetLanguage(),
		DefinitionTypes: map[string]graph.NodeKind{
			"function_definition": graph.KindFunction,
			"class_definition":    graph.KindClass,
		},
		CallTypes: map[string]string{
			"call": "function",
		},
		ImportTypes: map[string]bool{
			"import_statement":      true,
			"import_from_statement": true,
		},
		Endpoints: []EndpointPattern{
			{Contains: "@app.route", Method: "GET", Role: RoleDefines, NodeTypes: map[string]bool{"decorator": true}},
			{Contains: "@router.get", Method: "GET", Role: RoleDefines, NodeTypes: map[string]bool{"decorator": true}},
			{Contains: "@router.post", Method: "POST", Role: RoleDefines, NodeTypes: map[string]bool{"decorator": true}},
			{Contains: "requests.get", Method: "GET", Role: RoleConsumes, NodeTypes: map[string]bool{"call": true}},
			{Contains: "requests.post", Method: "POST", Role: RoleConsumes, NodeTypes: map[string]bool{"call": true}},
		},
	}
}
