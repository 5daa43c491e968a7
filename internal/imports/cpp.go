package imports

import (
	"strings"

	"github.com/standardbeagle/lci-refactor/internal/ast"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

type cppAnalyzer struct {
	svc *ast.Service
}

func (a *cppAnalyzer) Find(content []byte) ([]types.ImportStatement, error) {
	tree, err := a.svc.Parse(types.LangCPP, content)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()
	var out []types.ImportStatement
	count := root.ChildCount()
	for i := uint(0); i < count; i++ {
		n := root.Child(i)
		if n.Kind() != "preproc_include" {
			continue
		}
		raw := strings.TrimSpace(string(content[n.StartByte():n.EndByte()]))
		path := strings.TrimSpace(strings.TrimPrefix(raw, "#include"))
		kind := types.ImportIncludeQuoted
		module := path
		if strings.HasPrefix(path, "<") && strings.HasSuffix(path, ">") {
			kind = types.ImportIncludeAngle
			module = strings.Trim(path, "<>")
		} else {
			module = strings.Trim(path, "\"")
		}
		// The preproc_include node ends after its line terminator; stop the
		// statement's range before it so it matches the other languages.
		end := int(n.EndByte())
		for end > int(n.StartByte()) && (content[end-1] == '\n' || content[end-1] == '\r') {
			end--
		}
		out = append(out, types.ImportStatement{
			Module:    module,
			StartByte: int(n.StartByte()),
			EndByte:   end,
			Kind:      kind,
		})
	}
	return out, nil
}

// Rename is a no-op for C++ includes: #include directives name files, not
// identifiers, so there is nothing for a symbol rename to rewrite here.
func (a *cppAnalyzer) Rename(content []byte, oldIdent, newIdent string) (string, bool, error) {
	return string(content), false, nil
}

func (a *cppAnalyzer) Add(content []byte, module string, names []string, kind types.ImportKind) (string, error) {
	stmts, err := a.Find(content)
	if err != nil {
		return "", err
	}
	delim := "\"" + module + "\""
	if kind == types.ImportIncludeAngle {
		delim = "<" + module + ">"
	}
	line := "#include " + delim
	src := string(content)
	sep := lineEnding(src)
	if len(stmts) > 0 {
		last := stmts[len(stmts)-1]
		return src[:last.EndByte] + sep + line + src[last.EndByte:], nil
	}
	insertAt := topInsertionPoint(src)
	return src[:insertAt] + line + sep + src[insertAt:], nil
}

func (a *cppAnalyzer) Remove(content []byte, importedName string) (string, bool, error) {
	stmts, err := a.Find(content)
	if err != nil {
		return string(content), false, err
	}
	src := string(content)
	for _, stmt := range stmts {
		if stmt.Module != importedName {
			continue
		}
		return removeWholeLine(src, stmt.StartByte, stmt.EndByte), true, nil
	}
	return src, false, nil
}

func (a *cppAnalyzer) UpdateModulePath(content []byte, oldModule, newModule string) (string, error) {
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
