package extract

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/anchorhq/anchor/internal/graph"
)

func goSpec() *LanguageSpec {
	return &LanguageSpec{
		Language: LangGo,
		Grammar:  golang.GetLanguage(),
		DefinitionTypes: map[string]graph.NodeKind{
			"function_declaration": graph.KindFunction,
			"method_declaration":   graph.KindMethod,
			"type_spec":            graph.KindType,
			"const_spec":           graph.KindConstant,
			"var_spec":             graph.KindVariable,
		},
		Refine: func(n *sitter.Node, source []byte, base graph.NodeKind) graph.NodeKind {
			if n.Type() != "type_spec" {
				return base
			}
			// Go's grammar nests struct_type/interface_type inside
			// type_spec rather than giving them their own top-level
			// definition node, so the precise kind must be read off
			// the spec's "type" field.
			if v := n.ChildByFieldName("type"); v != nil {
				switch v.Type() {
				case "struct_type":
					return graph.KindStruct
				case "interface_type":
					return graph.KindInterface
				}
			}
			return base
		},
		CallTypes: map[string]string{
			"call_expression": "function",
		},
		ImportTypes: map[string]bool{
			"import_spec": true,
		},
		Endpoints: []EndpointPattern{
			{Contains: "http.Get", Method: "GET", Role: RoleConsumes, NodeTypes: map[string]bool{"call_expression": true}},
			{Contains: "http.Post", Method: "POST", Role: RoleConsumes, NodeTypes: map[string]bool{"call_expression": true}},
			{Contains: "HandleFunc", Method: "GET", Role: RoleDefines, NodeTypes: map[string]bool{"call_expression": true}},
		},
	}
}
