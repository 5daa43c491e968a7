package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci-refactor/internal/ast"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

func TestAnalyzer_Add(t *testing.T) {
	svc := ast.NewService()
	tests := []struct {
		name    string
		lang    types.Language
		content string
		module  string
		names   []string
		kind    types.ImportKind
		want    string
	}{
		{
			name:    "javascript named import appended after last import",
			lang:    types.LangJavaScript,
			content: "import { a } from './a';\n",
			module:  "./b",
			names:   []string{"b"},
			kind:    types.ImportNamed,
			want:    "import { a } from './a';\nimport { b } from './b';\n",
		},
		{
			name:    "python default import appended after last import",
			lang:    types.LangPython,
			content: "import os\n",
			module:  "sys",
			kind:    types.ImportDefault,
			want:    "import os\nimport sys\n",
		},
		{
			name:    "python named import inserted at top of empty file",
			lang:    types.LangPython,
			content: "",
			module:  "collections",
			names:   []string{"OrderedDict", "defaultdict"},
			kind:    types.ImportNamed,
			want:    "from collections import OrderedDict, defaultdict\n",
		},
		{
			name:    "rust default use appended after last use",
			lang:    types.LangRust,
			content: "use std::fmt;\n",
			module:  "std::collections::HashMap",
			names:   []string{"HashMap"},
			kind:    types.ImportDefault,
			want:    "use std::fmt;\nuse std::collections::HashMap;\n",
		},
		{
			name:    "cpp angle include appended after last include",
			lang:    types.LangCPP,
			content: "#include <iostream>\n",
			module:  "vector",
			kind:    types.ImportIncludeAngle,
			want:    "#include <iostream>\n#include <vector>\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := For(tt.lang, svc)
			require.NotNil(t, a)
			got, err := a.Add([]byte(tt.content), tt.module, tt.names, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyzer_Remove(t *testing.T) {
	svc := ast.NewService()
	tests := []struct {
		name         string
		lang         types.Language
		content      string
		importedName string
		want         string
		wantChanged  bool
	}{
		{
			name:         "javascript drops one name from a multi-name import",
			lang:         types.LangJavaScript,
			content:      "import { a, b } from './mod';\n",
			importedName: "a",
			want:         "import { b } from './mod';\n",
			wantChanged:  true,
		},
		{
			name:         "javascript removes the whole statement when its only name goes",
			lang:         types.LangJavaScript,
			content:      "import { only } from './x';\nconsole.log(1);\n",
			importedName: "only",
			want:         "console.log(1);\n",
			wantChanged:  true,
		},
		{
			name:         "python drops one name from a multi-name from-import",
			lang:         types.LangPython,
			content:      "from collections import OrderedDict, defaultdict\n",
			importedName: "OrderedDict",
			want:         "from collections import defaultdict\n",
			wantChanged:  true,
		},
		{
			name:         "rust drops one name from a braced use",
			lang:         types.LangRust,
			content:      "use std::collections::{HashMap, HashSet};\n",
			importedName: "HashMap",
			want:         "use std::collections::{ HashSet };\n",
			wantChanged:  true,
		},
		{
			name:         "cpp removes the whole include directive",
			lang:         types.LangCPP,
			content:      "#include \"local.h\"\n#include <vector>\n",
			importedName: "local.h",
			want:         "#include <vector>\n",
			wantChanged:  true,
		},
		{
			name:         "no matching import leaves content untouched",
			lang:         types.LangJavaScript,
			content:      "import { a } from './a';\n",
			importedName: "nonexistent",
			want:         "import { a } from './a';\n",
			wantChanged:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := For(tt.lang, svc)
			require.NotNil(t, a)
			got, changed, err := a.Remove([]byte(tt.content), tt.importedName)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyzer_UpdateModulePath(t *testing.T) {
	svc := ast.NewService()
	tests := []struct {
		name      string
		lang      types.Language
		content   string
		oldModule string
		newModule string
		want      string
	}{
		{
			name:      "javascript rewrites the quoted module specifier",
			lang:      types.LangJavaScript,
			content:   "import { a } from './old';\n",
			oldModule: "./old",
			newModule: "./new",
			want:      "import { a } from './new';\n",
		},
		{
			name:      "python rewrites the dotted module path",
			lang:      types.LangPython,
			content:   "from pkg.old import thing\n",
			oldModule: "pkg.old",
			newModule: "pkg.new",
			want:      "from pkg.new import thing\n",
		},
		{
			name:      "rust rewrites the full use path",
			lang:      types.LangRust,
			content:   "use old::module::Thing;\n",
			oldModule: "old::module::Thing",
			newModule: "new::module::Thing",
			want:      "use new::module::Thing;\n",
		},
		{
			name:      "cpp rewrites the quoted include path",
			lang:      types.LangCPP,
			content:   "#include \"old/path.h\"\n",
			oldModule: "old/path.h",
			newModule: "new/path.h",
			want:      "#include \"new/path.h\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := For(tt.lang, svc)
			require.NotNil(t, a)
			got, err := a.UpdateModulePath([]byte(tt.content), tt.oldModule, tt.newModule)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestAnalyzer_CppRenameIsANoOp documents that #include directives name
// files, not identifiers, so Rename never touches them (unlike the other
// three languages, which all rewrite imported-name occurrences).
func TestAnalyzer_CppRenameIsANoOp(t *testing.T) {
	svc := ast.NewService()
	content := "#include \"thing.h\"\n"
	a := For(types.LangCPP, svc)
	got, changed, err := a.Rename([]byte(content), "thing", "renamed")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, content, got)
}
