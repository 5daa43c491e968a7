package imports

import (
	"strings"

	"github.com/standardbeagle/lci-refactor/internal/ast"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

type rustAnalyzer struct {
	svc *ast.Service
}

func (a *rustAnalyzer) Find(content []byte) ([]types.ImportStatement, error) {
	tree, err := a.svc.Parse(types.LangRust, content)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()
	var out []types.ImportStatement
	count := root.ChildCount()
	for i := uint(0); i < count; i++ {
		n := root.Child(i)
		if n.Kind() != "use_declaration" {
			continue
		}
		raw := strings.TrimSuffix(string(content[n.StartByte():n.EndByte()]), ";")
		path := strings.TrimSpace(strings.TrimPrefix(raw, "use"))
		kind := types.ImportNamed
		var names []string
		switch {
		case strings.Contains(path, "{"):
			open := strings.Index(path, "{")
			closeIdx := strings.LastIndex(path, "}")
			base := strings.TrimSuffix(path[:open], "::")
			for _, part := range strings.Split(path[open+1:closeIdx], ",") {
				part = strings.TrimSpace(part)
				if part != "" {
					names = append(names, part)
				}
			}
			path = base
		case strings.Contains(path, " as "):
			idx := strings.Index(path, " as ")
			names = []string{strings.TrimSpace(path[idx+4:])}
			path = strings.TrimSpace(path[:idx])
		default:
			segs := strings.Split(path, "::")
			names = []string{segs[len(segs)-1]}
			kind = types.ImportDefault
		}
		out = append(out, types.ImportStatement{
			Module:        path,
			ImportedNames: names,
			StartByte:     int(n.StartByte()),
			EndByte:       int(n.EndByte()),
			Kind:          kind,
		})
	}
	return out, nil
}

func (a *rustAnalyzer) Rename(content []byte, oldIdent, newIdent string) (string, bool, error) {
	stmts, err := a.Find(content)
	if err != nil {
		return string(content), false, err
	}
	out := string(content)
	changed := false
	for _, stmt := range stmts {
		if indexOf(stmt.ImportedNames, oldIdent) < 0 {
			continue
		}
		raw := out[stmt.StartByte:stmt.EndByte]
		rewritten := replaceWholeWord(raw, oldIdent, newIdent)
		if rewritten != raw {
			out = out[:stmt.StartByte] + rewritten + out[stmt.EndByte:]
			changed = true
		}
	}
	return out, changed, nil
}

func (a *rustAnalyzer) Add(content []byte, module string, names []string, kind types.ImportKind) (string, error) {
	stmts, err := a.Find(content)
	if err != nil {
		return "", err
	}
	var line string
	if len(names) == 1 && kind == types.ImportDefault {
		line = "use " + module + ";"
	} else {
		line = "use " + module + "::{" + strings.Join(names, ", ") + "};"
	}
	src := string(content)
	sep := lineEnding(src)
	if len(stmts) > 0 {
		last := stmts[len(stmts)-1]
		return src[:last.EndByte] + sep + line + src[last.EndByte:], nil
	}
	insertAt := topInsertionPoint(src)
	return src[:insertAt] + line + sep + src[insertAt:], nil
}

func (a *rustAnalyzer) Remove(content []byte, importedName string) (string, bool, error) {
	stmts, err := a.Find(content)
	if err != nil {
		return string(content), false, err
	}
	src := string(content)
	for _, stmt := range stmts {
		if indexOf(stmt.ImportedNames, importedName) < 0 {
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

func (a *rustAnalyzer) UpdateModulePath(content []byte, oldModule, newModule string) (string, error) {
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
		rewritten := strings.Replace(raw, oldModule, newModule, 1)
		return src[:stmt.StartByte] + rewritten + src[stmt.EndByte:], nil
	}
	return src, nil
}
