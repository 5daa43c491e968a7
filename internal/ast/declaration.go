package ast

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// ExtractVariableDeclaration finds the enclosing variable declaration at
// offset and extracts its name, initializer text, full statement byte
// range and language-normalized mutability (spec.md §4.2).
func ExtractVariableDeclaration(lang types.Language, root *tree_sitter.Node, content []byte, offset uint) (*types.VariableDeclaration, error) {
	node := NodeAtOffset(root, offset)
	if node == nil {
		return nil, refactorerrors.New(refactorerrors.KindParseError, "ast.ExtractVariableDeclaration", "no node at offset")
	}

	switch lang {
	case types.LangJavaScript, types.LangTypeScript:
		return extractJSDeclaration(node, content)
	case types.LangPython:
		return extractPythonDeclaration(node, content)
	case types.LangRust:
		return extractRustDeclaration(node, content)
	case types.LangCPP:
		return extractCppDeclaration(node, content)
	default:
		return nil, refactorerrors.New(refactorerrors.KindParseError, "ast.ExtractVariableDeclaration", "unsupported language")
	}
}

func text(content []byte, n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

func findAncestorOfKind(n *tree_sitter.Node, kinds ...string) *tree_sitter.Node {
	want := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	for cur := n; cur != nil; cur = cur.Parent() {
		if want[cur.Kind()] {
			return cur
		}
	}
	return nil
}

func lineOf(content []byte, byteOffset uint) int {
	line := 1
	for i := uint(0); i < byteOffset && int(i) < len(content); i++ {
		if content[i] == '\n' {
			line++
		}
	}
	return line
}
