package extract

import (
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/anchorhq/anchor/internal/graph"
)

func rustSpec() *LanguageSpec {
	return &LanguageSpec{
		Language: LangRust,
		Grammar:  rust.GetLanguage(),
		DefinitionTypes: map[string]graph.NodeKind{
			"function_item": graph.KindFunction,
			"impl_item":     graph.KindImpl,
			"struct_item":   graph.KindStruct,
			"enum_item":     graph.KindEnum,
			"trait_item":    graph.KindTrait,
			"mod_item":      graph.KindModule,
			"const_item":    graph.KindConstant,
		},
		CallTypes: map[string]string{
			// Plain calls: callee is the "function" field.
			"call_expression": "function",
		},
		ImportTypes: map[string]bool{
			"use_declaration": true,
		},
	}
}
