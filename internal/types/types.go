// Package types holds the data model shared across the refactoring kernel:
// locations, symbols, documents, references, import statements and staged
// changes. All coordinates exposed by this package are 1-based; the index
// package is the only place a 0-based value is allowed to exist.
package types

import "fmt"

// Language is the closed set of source languages the kernel understands.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangCPP        Language = "cpp"
	LangUnknown    Language = "unknown"
)

// Location is an absolute file path plus a 1-based line/column range.
// EndLine and EndColumn are zero when the location is a point, not a range.
type Location struct {
	Path      string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
}

// Role tags an Occurrence with what kind of use it represents.
type Role string

const (
	RoleDefinition Role = "definition"
	RoleRead       Role = "read"
	RoleWrite      Role = "write"
	RoleImport     Role = "import"
)

// Symbol is an opaque, globally unique identifier produced by the cross-file
// index. It is compared by equality only; its textual form is never parsed.
type Symbol struct {
	ID string
}

func (s Symbol) Equal(o Symbol) bool { return s.ID == o.ID }

// Occurrence is one appearance of a Symbol at a specific source range.
// StartByte/EndByte are byte offsets into the document's file content and
// are used to drive exact-range replacement during rename.
type Occurrence struct {
	Symbol     Symbol
	Location   Location
	Role       Role
	Name       string // expected identifier text at this range
	StartByte  int
	EndByte    int
}

// Document is one file's worth of occurrences inside a loaded index.
type Document struct {
	RelPath     string
	Language    Language
	Occurrences []Occurrence // sorted by StartByte ascending
	LocalSymbol []Symbol
	LoadedAt    int64 // unix nanos; used to break ties between re-indexed docs
}

// MutabilityCategory is the closed set of language-normalized mutability
// categories produced by the AST Service's declaration extractor.
type MutabilityCategory string

const (
	MutabilityImmutable MutabilityCategory = "immutable-binding"
	MutabilityMutable   MutabilityCategory = "mutable-binding"
	MutabilityUnknown   MutabilityCategory = "unknown"
)

// VariableDeclaration is what the AST Service extracts for inline-variable.
type VariableDeclaration struct {
	Name            string
	Initializer     string // raw source substring
	StmtStartByte   int    // full declaration statement, for deletion
	StmtEndByte     int
	Mutability      MutabilityCategory
	DeclarationLine int // 1-based
}

// Reference is a location plus the exact byte range of the identifier token.
type Reference struct {
	Location  Location
	StartByte int
	EndByte   int
	Name      string
}

// ImportKind is the closed, language-normalized set of import statement
// shapes.
type ImportKind string

const (
	ImportNamed         ImportKind = "named"
	ImportDefault       ImportKind = "default"
	ImportNamespace     ImportKind = "namespace"
	ImportSideEffect    ImportKind = "side-effect"
	ImportIncludeQuoted ImportKind = "include-quoted"
	ImportIncludeAngle  ImportKind = "include-angle"
)

// ImportStatement describes one import/include statement in a source file.
type ImportStatement struct {
	Module        string // module designator text, after the import keyword
	ImportedNames []string
	StartByte     int
	EndByte       int
	Kind          ImportKind
}

// StagedChange is a file path plus the intended full new content, staged
// inside a single Transaction.
type StagedChange struct {
	Path       string
	NewContent string
}

// ChangeKind is the closed set of tags attached to a rendered code change.
type ChangeKind string

const (
	ChangeRename        ChangeKind = "rename"
	ChangeInline        ChangeKind = "inline"
	ChangeImportAdd     ChangeKind = "import-add"
	ChangeImportRemove  ChangeKind = "import-remove"
	ChangeImportUpdate  ChangeKind = "import-update"
	ChangeBatchReplace  ChangeKind = "batch-replace"
)

// RiskTier is the closed set of risk levels computed for a preview.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)
