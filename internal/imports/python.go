package imports

import (
	"strings"

	"github.com/standardbeagle/lci-refactor/internal/ast"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

type pythonAnalyzer struct {
	svc *ast.Service
}

func (a *pythonAnalyzer) Find(content []byte) ([]types.ImportStatement, error) {
	tree, err := a.svc.Parse(types.LangPython, content)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()
	var out []types.ImportStatement
	count := root.ChildCount()
	for i := uint(0); i < count; i++ {
		n := root.Child(i)
		switch n.Kind() {
		case "import_statement":
			out = append(out, pythonImportStatement(n, content))
		case "import_from_statement":
			out = append(out, pythonFromStatement(n, content))
		}
	}
	return out, nil
}

func pythonImportStatement(n nodeLike, content []byte) types.ImportStatement {
	raw := string(content[n.StartByte():n.EndByte()])
	module := strings.TrimSpace(strings.TrimPrefix(raw, "import"))
	names := []string{module}
	if as := strings.Index(module, " as "); as >= 0 {
		module = strings.TrimSpace(module[:as])
		names = []string{strings.TrimSpace(module[as+4:])}
	}
	return types.ImportStatement{
		Module:        module,
		ImportedNames: names,
		StartByte:     int(n.StartByte()),
		EndByte:       int(n.EndByte()),
		Kind:          types.ImportDefault,
	}
}

func pythonFromStatement(n nodeLike, content []byte) types.ImportStatement {
	raw := string(content[n.StartByte():n.EndByte()])
	rest := strings.TrimSpace(strings.TrimPrefix(raw, "from"))
	idx := strings.Index(rest, "import")
	module := strings.TrimSpace(rest[:idx])
	namesPart := strings.TrimSpace(rest[idx+len("import"):])
	var names []string
	for _, part := range strings.Split(namesPart, ",") {
		part = strings.TrimSpace(part)
		if as := strings.Index(part, " as "); as >= 0 {
			part = strings.TrimSpace(part[:as])
		}
		if part != "" {
			names = append(names, part)
		}
	}
	return types.ImportStatement{
		Module:        module,
		ImportedNames: names,
		StartByte:     int(n.StartByte()),
		EndByte:       int(n.EndByte()),
		Kind:          types.ImportNamed,
	}
}

func (a *pythonAnalyzer) Rename(content []byte, oldIdent, newIdent string) (string, bool, error) {
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

func (a *pythonAnalyzer) Add(content []byte, module string, names []string, kind types.ImportKind) (string, error) {
	stmts, err := a.Find(content)
	if err != nil {
		return "", err
	}
	var line string
	if kind == types.ImportDefault {
		line = "import " + module
	} else {
		line = "from " + module + " import " + strings.Join(names, ", ")
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

func (a *pythonAnalyzer) Remove(content []byte, importedName string) (string, bool, error) {
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
		rewritten := removeNamedPythonImport(raw, importedName)
		return src[:stmt.StartByte] + rewritten + src[stmt.EndByte:], true, nil
	}
	return src, false, nil
}

func removeNamedPythonImport(raw, name string) string {
	idx := strings.Index(raw, "import")
	if idx < 0 {
		return raw
	}
	prefix := raw[:idx+len("import")]
	parts := strings.Split(raw[idx+len("import"):], ",")
	var kept []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		base := trimmed
		if as := strings.Index(trimmed, " as "); as >= 0 {
			base = strings.TrimSpace(trimmed[:as])
		}
		if base == name {
			continue
		}
		kept = append(kept, trimmed)
	}
	return prefix + " " + strings.Join(kept, ", ")
}

func (a *pythonAnalyzer) UpdateModulePath(content []byte, oldModule, newModule string) (string, error) {
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
