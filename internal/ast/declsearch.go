package ast

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/lci-refactor/internal/types"
)

// functionNodeKinds and classNodeKinds are the per-grammar node kinds the
// list_functions/list_classes dispatcher operations walk for, grounded on
// each grammar's node-types.json naming (function_declaration for
// JS/TS, function_definition for Python/C++, function_item for Rust;
// Rust has no class keyword so struct_item/enum_item stand in for it).
var functionNodeKinds = map[types.Language][]string{
	types.LangJavaScript: {"function_declaration", "method_definition", "generator_function_declaration"},
	types.LangTypeScript: {"function_declaration", "method_definition", "generator_function_declaration"},
	types.LangPython:     {"function_definition"},
	types.LangRust:       {"function_item"},
	types.LangCPP:        {"function_definition"},
}

var classNodeKinds = map[types.Language][]string{
	types.LangJavaScript: {"class_declaration"},
	types.LangTypeScript: {"class_declaration", "interface_declaration"},
	types.LangPython:     {"class_definition"},
	types.LangRust:       {"struct_item", "enum_item", "trait_item"},
	types.LangCPP:        {"class_specifier", "struct_specifier"},
}

// Declaration is one named node found by FindDeclarations: a function or
// class-shaped node plus the line it starts on and its declared name (when
// the grammar exposes a "name" field).
type Declaration struct {
	Name string
	Line int // 1-based
	Kind string
}

// FindDeclarations walks root for nodes whose kind is in kinds, returning
// one Declaration per match in document order. Nodes without a "name"
// field (e.g. every C++ function_definition, whose name sits under its
// "declarator" field instead) are reported with an empty Name rather than
// skipped, so counts still reflect every match.
func FindDeclarations(root *tree_sitter.Node, content []byte, kinds []string) []Declaration {
	want := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []Declaration
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		if want[n.Kind()] {
			name := ""
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				name = text(content, nameNode)
			}
			out = append(out, Declaration{Name: name, Line: lineOf(content, n.StartByte()), Kind: n.Kind()})
		}
		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return out
}

// FunctionKindsFor returns the function-shaped node kinds for lang, or nil
// if the language is unsupported.
func FunctionKindsFor(lang types.Language) []string { return functionNodeKinds[lang] }

// ClassKindsFor returns the class-shaped node kinds for lang, or nil if
// the language is unsupported.
func ClassKindsFor(lang types.Language) []string { return classNodeKinds[lang] }

// Match is one structural match produced by FindNodesOfKind: the exact
// source snippet of a node whose kind equals the requested kind.
type Match struct {
	Line int // 1-based
	Text string
}

// FindNodesOfKind walks root for every node whose kind equals nodeKind,
// used by the search_ast dispatcher operation for raw structural queries
// that don't map to the function/class taxonomy above.
func FindNodesOfKind(root *tree_sitter.Node, content []byte, nodeKind string) []Match {
	var out []Match
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		if n.Kind() == nodeKind {
			out = append(out, Match{Line: lineOf(content, n.StartByte()), Text: text(content, n)})
		}
		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return out
}
