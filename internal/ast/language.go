package ast

import (
	"path/filepath"
	"strings"

	"github.com/standardbeagle/lci-refactor/internal/types"
)

// LanguageFromPath maps a file's extension to the language Parse expects,
// mirroring the teacher's GetLanguageFromExtension table.
func LanguageFromPath(path string) types.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".tsx":
		return types.LangTypeScript
	case ".js", ".jsx", ".mjs", ".cjs":
		return types.LangJavaScript
	case ".py":
		return types.LangPython
	case ".rs":
		return types.LangRust
	case ".cpp", ".cc", ".cxx", ".c", ".h", ".hpp":
		return types.LangCPP
	default:
		return types.LangUnknown
	}
}
