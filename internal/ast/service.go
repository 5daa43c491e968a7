// Package ast wraps a tree-sitter parser and query engine per language,
// giving refactorings that do not need cross-file data (inline-variable)
// and the import analyzers a single parse/traverse surface. Grounded on
// the teacher's internal/parser package: one *tree_sitter.Parser per
// language, lazily constructed and reused.
package ast

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// Service is the language-agnostic AST interface over per-language
// tree-sitter parsers (spec.md §4.2).
type Service struct {
	mu      sync.Mutex
	parsers map[types.Language]*tree_sitter.Parser
}

// NewService constructs an empty Service; parsers are built lazily on
// first use of a given language, mirroring the teacher's lazy-init model
// in internal/parser/parser.go.
func NewService() *Service {
	return &Service{parsers: make(map[types.Language]*tree_sitter.Parser)}
}

func languageBinding(lang types.Language) (*tree_sitter.Language, error) {
	switch lang {
	case types.LangJavaScript:
		return tree_sitter.NewLanguage(tree_sitter_javascript.Language()), nil
	case types.LangTypeScript:
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), nil
	case types.LangPython:
		return tree_sitter.NewLanguage(tree_sitter_python.Language()), nil
	case types.LangRust:
		return tree_sitter.NewLanguage(tree_sitter_rust.Language()), nil
	case types.LangCPP:
		return tree_sitter.NewLanguage(tree_sitter_cpp.Language()), nil
	default:
		return nil, fmt.Errorf("unsupported language %q", lang)
	}
}

func (s *Service) parserFor(lang types.Language) (*tree_sitter.Parser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.parsers[lang]; ok {
		return p, nil
	}
	binding, err := languageBinding(lang)
	if err != nil {
		return nil, err
	}
	p := tree_sitter.NewParser()
	if err := p.SetLanguage(binding); err != nil {
		return nil, err
	}
	s.parsers[lang] = p
	return p, nil
}

// Parse produces a syntax tree for content in the given language.
func (s *Service) Parse(lang types.Language, content []byte) (*tree_sitter.Tree, error) {
	p, err := s.parserFor(lang)
	if err != nil {
		return nil, refactorerrors.Wrap(refactorerrors.KindParseError, "ast.Parse", err)
	}
	tree := p.Parse(content, nil)
	if tree == nil {
		return nil, refactorerrors.New(refactorerrors.KindParseError, "ast.Parse", "parser returned no tree")
	}
	return tree, nil
}

// NodeAtOffset descends from root to the deepest node whose byte range
// contains offset.
func NodeAtOffset(root *tree_sitter.Node, offset uint) *tree_sitter.Node {
	if root == nil {
		return nil
	}
	if offset < root.StartByte() || offset >= root.EndByte() {
		return nil
	}
	best := root
	for {
		var next *tree_sitter.Node
		count := best.ChildCount()
		for i := uint(0); i < count; i++ {
			child := best.Child(i)
			if child == nil {
				continue
			}
			if offset >= child.StartByte() && offset < child.EndByte() {
				next = child
				break
			}
		}
		if next == nil {
			return best
		}
		best = next
	}
}

// CollectIdentifiers walks the subtree rooted at root, yielding every
// identifier-kind leaf whose source text equals name, in document order.
func CollectIdentifiers(root *tree_sitter.Node, content []byte, name string) []types.Reference {
	var out []types.Reference
	if root == nil {
		return out
	}
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		if isIdentifierKind(n.Kind()) {
			text := string(content[n.StartByte():n.EndByte()])
			if text == name {
				out = append(out, types.Reference{
					StartByte: int(n.StartByte()),
					EndByte:   int(n.EndByte()),
					Name:      text,
				})
			}
		}
		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return out
}

// identifierKinds is the closed set of tree-sitter node kinds treated as
// identifier leaves across the supported grammars.
var identifierKinds = map[string]bool{
	"identifier":          true,
	"property_identifier": true,
	"shorthand_property_identifier": true,
	"type_identifier":     true,
	"field_identifier":    true,
}

func isIdentifierKind(kind string) bool {
	return identifierKinds[kind]
}
