package ast

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// extractPythonDeclaration handles `name = expr`. Python has no
// declaration-keyword distinction between mutable and immutable bindings,
// so mutability is always MutabilityUnknown (spec.md §4.2); inline refuses
// to proceed for any language where the category isn't immutable-binding,
// so Python locals are never inlined by this heuristic. This mirrors the
// closed mutability set the spec defines rather than guessing.
func extractPythonDeclaration(node *tree_sitter.Node, content []byte) (*types.VariableDeclaration, error) {
	assignment := findAncestorOfKind(node, "assignment")
	if assignment == nil {
		return nil, refactorerrors.New(refactorerrors.KindParseError, "ast.extractPythonDeclaration", "no assignment at location")
	}

	nameNode := assignment.ChildByFieldName("left")
	valueNode := assignment.ChildByFieldName("right")
	if nameNode == nil || valueNode == nil {
		return nil, refactorerrors.New(refactorerrors.KindParseError, "ast.extractPythonDeclaration", "assignment has no initializer")
	}

	stmt := assignment
	if parent := assignment.Parent(); parent != nil && parent.Kind() == "expression_statement" {
		stmt = parent
	}

	return &types.VariableDeclaration{
		Name:            text(content, nameNode),
		Initializer:     text(content, valueNode),
		StmtStartByte:   int(stmt.StartByte()),
		StmtEndByte:     int(stmt.EndByte()),
		Mutability:      types.MutabilityUnknown,
		DeclarationLine: lineOf(content, stmt.StartByte()),
	}, nil
}
