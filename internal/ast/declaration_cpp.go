package ast

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// extractCppDeclaration handles `[const] T name = expr;`. Mutability is
// derived from the text "const " appearing anywhere in the declaration
// statement, initializer included; its absence is treated as
// mutable-binding (C++ locals default to mutable).
func extractCppDeclaration(node *tree_sitter.Node, content []byte) (*types.VariableDeclaration, error) {
	stmt := findAncestorOfKind(node, "declaration")
	if stmt == nil {
		return nil, refactorerrors.New(refactorerrors.KindParseError, "ast.extractCppDeclaration", "no declaration at location")
	}

	declarator := findDescendantOfKind(stmt, "init_declarator")
	if declarator == nil {
		return nil, refactorerrors.New(refactorerrors.KindParseError, "ast.extractCppDeclaration", "declaration has no initializer")
	}
	nameNode := declarator.ChildByFieldName("declarator")
	valueNode := declarator.ChildByFieldName("value")
	if nameNode == nil || valueNode == nil {
		return nil, refactorerrors.New(refactorerrors.KindParseError, "ast.extractCppDeclaration", "init_declarator missing name/value")
	}

	mutability := types.MutabilityMutable
	if strings.Contains(text(content, stmt), "const ") {
		mutability = types.MutabilityImmutable
	}

	return &types.VariableDeclaration{
		Name:            text(content, nameNode),
		Initializer:     text(content, valueNode),
		StmtStartByte:   int(stmt.StartByte()),
		StmtEndByte:     int(stmt.EndByte()),
		Mutability:      mutability,
		DeclarationLine: lineOf(content, stmt.StartByte()),
	}, nil
}

func findDescendantOfKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	if n == nil {
		return nil
	}
	if n.Kind() == kind {
		return n
	}
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		if found := findDescendantOfKind(n.Child(i), kind); found != nil {
			return found
		}
	}
	return nil
}
