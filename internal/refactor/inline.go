package refactor

import (
	"os"
	"sort"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	astpkg "github.com/standardbeagle/lci-refactor/internal/ast"
	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/txn"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// enclosingBlockKinds is the per-grammar node kind that bounds the
// conservative scope inline-variable searches for references in. A
// reference outside this block is left untouched rather than risk
// inlining into an unrelated shadowing scope (spec.md §4.7 step 4).
var enclosingBlockKinds = map[types.Language][]string{
	types.LangJavaScript: {"statement_block", "program"},
	types.LangTypeScript: {"statement_block", "program"},
	types.LangPython:     {"block", "module"},
	types.LangRust:       {"block", "source_file"},
	types.LangCPP:        {"compound_statement", "translation_unit"},
}

// InlineVariable inlines the single-use-site-agnostic local variable
// declared at loc: every reference to it within its enclosing block is
// replaced by its initializer expression, and the declaration statement
// is removed. It never consults the Index Reader; everything it needs
// comes from a single file's syntax tree (spec.md §4.7 "bypasses the
// cross-file index entirely").
func (e *Engine) InlineVariable(loc types.Location) (*txn.Transaction, error) {
	lang := astpkg.LanguageFromPath(loc.Path)
	raw, err := os.ReadFile(loc.Path)
	if err != nil {
		return nil, refactorerrors.Wrap(refactorerrors.KindIO, "refactor.InlineVariable", err)
	}
	content := raw

	tree, err := e.AST.Parse(lang, content)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()

	offset := byteOffsetForPosition(content, loc.Line, loc.Column)
	decl, err := astpkg.ExtractVariableDeclaration(lang, root, content, offset)
	if err != nil {
		return nil, err
	}

	if decl.Mutability != types.MutabilityImmutable {
		return nil, refactorerrors.New(refactorerrors.KindMutableBinding, "refactor.InlineVariable",
			"'"+decl.Name+"' is not an immutable binding and cannot be safely inlined")
	}
	if astpkg.HasPossibleSideEffect(decl.Initializer) {
		return nil, refactorerrors.New(refactorerrors.KindSideEffect, "refactor.InlineVariable",
			"initializer of '"+decl.Name+"' may have a side effect and will not be inlined")
	}

	declNode := astpkg.NodeAtOffset(root, offset)
	scope := enclosingScope(declNode, lang)
	if scope == nil {
		scope = root
	}

	refs := astpkg.CollectIdentifiers(scope, content, decl.Name)
	var sites []types.Reference
	for _, r := range refs {
		if r.StartByte >= decl.StmtStartByte && r.EndByte <= decl.StmtEndByte {
			continue // the declaration's own name token
		}
		// A same-named binding declared earlier in the same scope
		// (shadowing/re-declaration) must not have its prior uses
		// rewritten: only identifiers after the declaration's own
		// statement can reference it (spec.md §4.7 step 4).
		if r.StartByte < decl.StmtEndByte {
			continue
		}
		sites = append(sites, r)
	}
	if len(sites) == 0 {
		return nil, refactorerrors.New(refactorerrors.KindNoReferences, "refactor.InlineVariable",
			"'"+decl.Name+"' has no references within its enclosing scope")
	}

	sort.Slice(sites, func(i, j int) bool { return sites[i].StartByte > sites[j].StartByte })

	replacement := astpkg.WrapIfNeeded(decl.Initializer)
	text := string(content)
	for _, site := range sites {
		if site.EndByte > len(text) || text[site.StartByte:site.EndByte] != decl.Name {
			return nil, refactorerrors.New(refactorerrors.KindParseError, "refactor.InlineVariable", "source changed during inlining")
		}
		text = text[:site.StartByte] + replacement + text[site.EndByte:]
	}

	text = removeDeclarationStatement(text, decl.StmtStartByte, decl.StmtEndByte)

	tr := txn.New(false)
	if err := tr.Stage(loc.Path, text, types.ChangeInline, nil); err != nil {
		return nil, err
	}
	return tr, nil
}

// enclosingScope walks up from node to the nearest block-shaped ancestor
// so reference collection stays within the declaration's lexical scope.
func enclosingScope(node *tree_sitter.Node, lang types.Language) *tree_sitter.Node {
	kinds := enclosingBlockKinds[lang]
	if len(kinds) == 0 || node == nil {
		return nil
	}
	want := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	for cur := node; cur != nil; cur = cur.Parent() {
		if want[cur.Kind()] {
			return cur
		}
	}
	return nil
}

// removeDeclarationStatement deletes the byte range [start,end) plus one
// trailing newline, so removing a whole-line declaration does not leave a
// blank line behind.
func removeDeclarationStatement(content string, start, end int) string {
	if end < len(content) && content[end] == '\n' {
		end++
	}
	lineStart := start
	for lineStart > 0 && content[lineStart-1] != '\n' {
		lineStart--
	}
	allBlank := true
	for i := lineStart; i < start; i++ {
		if content[i] != ' ' && content[i] != '\t' {
			allBlank = false
			break
		}
	}
	if allBlank {
		start = lineStart
	}
	return content[:start] + content[end:]
}

// byteOffsetForPosition converts a 1-based (line, column) into a byte
// offset into content. This is the one place inline-variable crosses the
// 1-based/0-based boundary, since it never touches the Index Reader.
func byteOffsetForPosition(content []byte, line, column int) uint {
	curLine := 1
	i := 0
	for curLine < line && i < len(content) {
		if content[i] == '\n' {
			curLine++
		}
		i++
	}
	offset := i + column - 1
	if offset < 0 {
		offset = 0
	}
	if offset > len(content) {
		offset = len(content)
	}
	return uint(offset)
}
