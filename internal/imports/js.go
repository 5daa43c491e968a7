package imports

import (
	"strings"

	"github.com/standardbeagle/lci-refactor/internal/ast"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

type jsAnalyzer struct {
	svc  *ast.Service
	lang types.Language
}

func (a *jsAnalyzer) Find(content []byte) ([]types.ImportStatement, error) {
	tree, err := a.svc.Parse(a.lang, content)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()
	var out []types.ImportStatement
	count := root.ChildCount()
	for i := uint(0); i < count; i++ {
		n := root.Child(i)
		if n.Kind() != "import_statement" {
			continue
		}
		out = append(out, jsImportStatement(n, content))
	}
	return out, nil
}

func jsImportStatement(n nodeLike, content []byte) types.ImportStatement {
	raw := string(content[n.StartByte():n.EndByte()])
	stmt := types.ImportStatement{
		StartByte: int(n.StartByte()),
		EndByte:   int(n.EndByte()),
	}
	if idx := strings.LastIndex(raw, "from"); idx >= 0 {
		rest := strings.TrimSpace(raw[idx+len("from"):])
		stmt.Module = strings.Trim(strings.TrimSuffix(rest, ";"), "'\"")
	} else {
		stmt.Module = strings.Trim(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(raw), "import"), ";"), " '\"")
		stmt.Kind = types.ImportSideEffect
		return stmt
	}

	switch {
	case strings.Contains(raw, "{"):
		stmt.Kind = types.ImportNamed
		open := strings.Index(raw, "{")
		close := strings.Index(raw, "}")
		if open >= 0 && close > open {
			for _, part := range strings.Split(raw[open+1:close], ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if as := strings.Index(part, " as "); as >= 0 {
					part = strings.TrimSpace(part[:as])
				}
				stmt.ImportedNames = append(stmt.ImportedNames, part)
			}
		}
	case strings.Contains(raw, "* as "):
		stmt.Kind = types.ImportNamespace
		idx := strings.Index(raw, "* as ")
		rest := strings.TrimSpace(raw[idx+len("* as "):])
		rest = strings.TrimSpace(strings.Split(rest, "from")[0])
		stmt.ImportedNames = []string{rest}
	default:
		stmt.Kind = types.ImportDefault
		name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "import"))
		name = strings.TrimSpace(strings.Split(name, "from")[0])
		stmt.ImportedNames = []string{name}
	}
	return stmt
}

// nodeLike is the subset of *tree_sitter.Node this package needs, kept as
// an interface so helpers can be unit tested without a live parse.
type nodeLike interface {
	StartByte() uint
	EndByte() uint
}

func (a *jsAnalyzer) Rename(content []byte, oldIdent, newIdent string) (string, bool, error) {
	stmts, err := a.Find(content)
	if err != nil {
		return string(content), false, err
	}
	out := string(content)
	changed := false
	for _, stmt := range stmts {
		for _, name := range stmt.ImportedNames {
			if name != oldIdent {
				continue
			}
			raw := out[stmt.StartByte:stmt.EndByte]
			rewritten := replaceWholeWord(raw, oldIdent, newIdent)
			if rewritten != raw {
				out = out[:stmt.StartByte] + rewritten + out[stmt.EndByte:]
				changed = true
			}
		}
	}
	return out, changed, nil
}

func (a *jsAnalyzer) Add(content []byte, module string, names []string, kind types.ImportKind) (string, error) {
	stmts, err := a.Find(content)
	if err != nil {
		return "", err
	}
	line := renderJSImport(module, names, kind)
	src := string(content)
	if len(stmts) > 0 {
		last := stmts[len(stmts)-1]
		sep := lineEnding(src)
		insertAt := last.EndByte
		return src[:insertAt] + sep + line + src[insertAt:], nil
	}
	insertAt := topInsertionPoint(src)
	sep := lineEnding(src)
	return src[:insertAt] + line + sep + src[insertAt:], nil
}

func renderJSImport(module string, names []string, kind types.ImportKind) string {
	switch kind {
	case types.ImportDefault:
		return "import " + names[0] + " from '" + module + "';"
	case types.ImportNamespace:
		return "import * as " + names[0] + " from '" + module + "';"
	case types.ImportSideEffect:
		return "import '" + module + "';"
	default:
		return "import { " + strings.Join(names, ", ") + " } from '" + module + "';"
	}
}

func (a *jsAnalyzer) Remove(content []byte, importedName string) (string, bool, error) {
	stmts, err := a.Find(content)
	if err != nil {
		return string(content), false, err
	}
	src := string(content)
	for _, stmt := range stmts {
		idx := indexOf(stmt.ImportedNames, importedName)
		if idx < 0 {
			continue
		}
		if len(stmt.ImportedNames) == 1 {
			return removeWholeLine(src, stmt.StartByte, stmt.EndByte), true, nil
		}
		raw := src[stmt.StartByte:stmt.EndByte]
		rewritten := removeNamedImport(raw, importedName)
		return src[:stmt.StartByte] + rewritten + src[stmt.EndByte:], true, nil
	}
	return src, false, nil
}

func (a *jsAnalyzer) UpdateModulePath(content []byte, oldModule, newModule string) (string, error) {
	stmts, err := a.Find(content)
	if err != nil {
		return "", err
	}
	src := string(content)
	for _, stmt := range stmts {
		if stmt.Module != oldModule {
			continue
		}
		raw := src[stmt.StartByte:stmt.EndByte]
		rewritten := strings.Replace(raw, "'"+oldModule+"'", "'"+newModule+"'", 1)
		rewritten = strings.Replace(rewritten, "\""+oldModule+"\"", "\""+newModule+"\"", 1)
		return src[:stmt.StartByte] + rewritten + src[stmt.EndByte:], nil
	}
	return src, nil
}
