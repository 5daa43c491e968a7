package refactor

import (
	"regexp"

	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

var (
	jsIdentifier    = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	snakeIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true, "assert": true,
	"async": true, "await": true, "break": true, "class": true, "continue": true,
	"def": true, "del": true, "elif": true, "else": true, "except": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true, "import": true, "in": true,
	"is": true, "lambda": true, "nonlocal": true, "not": true, "or": true, "pass": true,
	"raise": true, "return": true, "try": true, "while": true, "with": true, "yield": true,
}

var rustKeywords = map[string]bool{
	"as": true, "break": true, "const": true, "continue": true, "crate": true, "else": true,
	"enum": true, "extern": true, "false": true, "fn": true, "for": true, "if": true,
	"impl": true, "in": true, "let": true, "loop": true, "match": true, "mod": true,
	"move": true, "mut": true, "pub": true, "ref": true, "return": true, "self": true,
	"Self": true, "static": true, "struct": true, "super": true, "trait": true, "true": true,
	"type": true, "unsafe": true, "use": true, "where": true, "while": true,
}

var cppKeywords = map[string]bool{
	"alignas": true, "alignof": true, "auto": true, "bool": true, "break": true, "case": true,
	"catch": true, "char": true, "class": true, "const": true, "continue": true, "default": true,
	"delete": true, "do": true, "double": true, "else": true, "enum": true, "explicit": true,
	"export": true, "extern": true, "false": true, "float": true, "for": true, "friend": true,
	"goto": true, "if": true, "inline": true, "int": true, "long": true, "namespace": true,
	"new": true, "operator": true, "private": true, "protected": true, "public": true,
	"return": true, "short": true, "signed": true, "sizeof": true, "static": true,
	"struct": true, "switch": true, "template": true, "this": true, "throw": true, "true": true,
	"try": true, "typedef": true, "typename": true, "union": true, "unsigned": true,
	"using": true, "virtual": true, "void": true, "volatile": true, "while": true,
}

// validateIdentifier rejects a new name that is syntactically invalid for
// lang or collides with a reserved word (spec.md §4.6 step 2).
func validateIdentifier(lang types.Language, name string) error {
	if name == "" {
		return refactorerrors.New(refactorerrors.KindInvalidName, "refactor.validateIdentifier", "name must not be empty")
	}

	var pattern *regexp.Regexp
	var keywords map[string]bool
	switch lang {
	case types.LangJavaScript, types.LangTypeScript:
		pattern = jsIdentifier
	case types.LangPython:
		pattern = snakeIdentifier
		keywords = pythonKeywords
	case types.LangRust:
		pattern = snakeIdentifier
		keywords = rustKeywords
	case types.LangCPP:
		pattern = snakeIdentifier
		keywords = cppKeywords
	default:
		return refactorerrors.New(refactorerrors.KindInvalidName, "refactor.validateIdentifier", "unsupported language")
	}

	if !pattern.MatchString(name) {
		return refactorerrors.New(refactorerrors.KindInvalidName, "refactor.validateIdentifier", "'"+name+"' is not a valid identifier for "+string(lang))
	}
	if keywords[name] {
		return refactorerrors.New(refactorerrors.KindInvalidName, "refactor.validateIdentifier", "'"+name+"' is a reserved word in "+string(lang))
	}
	return nil
}
