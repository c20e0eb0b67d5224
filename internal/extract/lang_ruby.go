package extract

import (
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/anchorhq/anchor/internal/graph"
)

func rubySpec() *LanguageSpec {
	return &LanguageSpec{
		Language: LangRuby,
		Grammar:  ruby.GetLanguage(),
		DefinitionTypes: map[string]graph.NodeKind{
			"method": graph.KindMethod,
			"class":  graph.KindClass,
			"module": graph.KindModule,
		},
		CallTypes: map[string]string{
			// Ruby's bare and receiver calls both surface the callee under
			// "method"; require/require_relative ride along as ordinary calls
			// since Ruby has no dedicated import node type.
			"call": "method",
		},
		Endpoints: []EndpointPattern{
			{Contains: "get '", Method: "GET", Role: RoleDefines, BackendOnly: true, NodeTypes: map[string]bool{"call": true}},
			{Contains: "post '", Method: "POST", Role: RoleDefines, BackendOnly: true, NodeTypes: map[string]bool{"call": true}},
			{Contains: "get \"", Method: "GET", Role: RoleDefines, BackendOnly: true, NodeTypes: map[string]bool{"call": true}},
			{Contains: "post \"", Method: "POST", Role: RoleDefines, BackendOnly: true, NodeTypes: map[string]bool{"call": true}},
		},
	}
}
