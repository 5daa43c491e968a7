package ast

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// extractJSDeclaration handles `let`/`const`/`var x = ...` via
// variable_declarator nodes under a lexical_declaration or
// variable_declaration statement. Class field initializers are not
// handled: they have neither of those ancestors.
func extractJSDeclaration(node *tree_sitter.Node, content []byte) (*types.VariableDeclaration, error) {
	declarator := findAncestorOfKind(node, "variable_declarator")
	stmt := findAncestorOfKind(node, "lexical_declaration", "variable_declaration")
	if declarator == nil || stmt == nil {
		return nil, refactorerrors.New(refactorerrors.KindParseError, "ast.extractJSDeclaration", "no variable declaration at location")
	}

	nameNode := declarator.ChildByFieldName("name")
	valueNode := declarator.ChildByFieldName("value")
	if nameNode == nil || valueNode == nil {
		return nil, refactorerrors.New(refactorerrors.KindParseError, "ast.extractJSDeclaration", "declaration has no initializer")
	}

	keyword := ""
	if stmt.ChildCount() > 0 {
		keyword = text(content, stmt.Child(0))
	}
	mutability := types.MutabilityMutable
	if keyword == "const" {
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
