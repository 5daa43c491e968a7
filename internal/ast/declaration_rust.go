package ast

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// extractRustDeclaration handles `let [mut] name = expr;`. A
// mutable_specifier child between `let` and the pattern marks the binding
// mutable; its absence means immutable-binding.
func extractRustDeclaration(node *tree_sitter.Node, content []byte) (*types.VariableDeclaration, error) {
	stmt := findAncestorOfKind(node, "let_declaration")
	if stmt == nil {
		return nil, refactorerrors.New(refactorerrors.KindParseError, "ast.extractRustDeclaration", "no let declaration at location")
	}

	patternNode := stmt.ChildByFieldName("pattern")
	valueNode := stmt.ChildByFieldName("value")
	if patternNode == nil || valueNode == nil {
		return nil, refactorerrors.New(refactorerrors.KindParseError, "ast.extractRustDeclaration", "let declaration has no initializer")
	}

	mutability := types.MutabilityImmutable
	count := stmt.ChildCount()
	for i := uint(0); i < count; i++ {
		if stmt.Child(i).Kind() == "mutable_specifier" {
			mutability = types.MutabilityMutable
			break
		}
	}

	return &types.VariableDeclaration{
		Name:            text(content, patternNode),
		Initializer:     text(content, valueNode),
		StmtStartByte:   int(stmt.StartByte()),
		StmtEndByte:     int(stmt.EndByte()),
		Mutability:      mutability,
		DeclarationLine: lineOf(content, stmt.StartByte()),
	}, nil
}
