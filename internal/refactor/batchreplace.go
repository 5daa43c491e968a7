package refactor

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"

	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/txn"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// BatchReplaceRequest describes one regex-driven multi-file replacement
// (spec.md §4.8).
type BatchReplaceRequest struct {
	ProjectRoot    string
	Glob           string         // doublestar pattern, relative to ProjectRoot
	Pattern        *regexp.Regexp // compiled with regexp.Compile/regexp.MustCompile by the caller
	Template       string         // replacement template; supports Go's $1/${name} capture-group syntax
	IgnorePatterns []string
}

// BatchReplace enumerates every file under req.ProjectRoot matching
// req.Glob, skips anything matching req.IgnorePatterns, and stages a
// regex-substituted rewrite for every file whose content actually
// changes. Files where the pattern does not match are left unstaged;
// BatchReplace never errors solely because zero files changed.
func (e *Engine) BatchReplace(req BatchReplaceRequest) (*txn.Transaction, error) {
	matches, err := doublestar.Glob(os.DirFS(req.ProjectRoot), req.Glob)
	if err != nil {
		return nil, refactorerrors.Wrap(refactorerrors.KindIO, "refactor.BatchReplace", err)
	}

	tr := txn.New(false)
	for _, rel := range matches {
		if matchesAnyIgnore(rel, req.IgnorePatterns) {
			continue
		}

		abs := filepath.Join(req.ProjectRoot, rel)
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}

		raw, err := os.ReadFile(abs)
		if err != nil {
			return nil, refactorerrors.Wrap(refactorerrors.KindIO, "refactor.BatchReplace", err)
		}

		original := string(raw)
		replaced := req.Pattern.ReplaceAllString(original, req.Template)
		if replaced == original {
			continue
		}

		if err := tr.Stage(abs, replaced, types.ChangeBatchReplace, nil); err != nil {
			return nil, err
		}
	}
	return tr, nil
}

func matchesAnyIgnore(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
