// Package config loads project-level refactor settings and detects which
// per-language indexers a project needs, without ever parsing the
// project's own build configuration beyond checking that the relevant
// marker file exists (and, for Cargo.toml, that it parses as TOML).
package config

import (
	"os"
	"path/filepath"

	"github.com/standardbeagle/lci-refactor/internal/types"
)

// DefaultDebounceMs is the file watcher's default debounce window (§4.9).
const DefaultDebounceMs = 2000

// DefaultCriticalGlobs is the default glob set used by the risk-tier
// computation in §4.5 to flag import removal from entrypoint-shaped files.
var DefaultCriticalGlobs = []string{"index.*", "main.*", "lib.*"}

// DefaultIgnorePatterns is the default ignore set from §6: version-control
// metadata, common build-output directories, and the index artifacts
// themselves.
var DefaultIgnorePatterns = []string{
	"**/.git/**",
	"**/target/**",
	"**/node_modules/**",
	"**/dist/**",
	"**/build/**",
	"**/*.scip",
	"**/*.meta",
}

// Config is the merged project configuration: defaults, then an optional
// .refactor.kdl file. No CLI flag overrides these settings.
type Config struct {
	ProjectRoot    string
	IgnorePatterns []string
	CriticalGlobs  []string
	DebounceMs     int
}

// Default returns the zero-config defaults for a project root.
func Default(projectRoot string) *Config {
	return &Config{
		ProjectRoot:    projectRoot,
		IgnorePatterns: append([]string(nil), DefaultIgnorePatterns...),
		CriticalGlobs:  append([]string(nil), DefaultCriticalGlobs...),
		DebounceMs:     DefaultDebounceMs,
	}
}

// Load reads an optional .refactor.kdl file under projectRoot, falling back
// to Default when it is absent.
func Load(projectRoot string) (*Config, error) {
	cfg := Default(projectRoot)

	kdlPath := filepath.Join(projectRoot, ".refactor.kdl")
	if _, err := os.Stat(kdlPath); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, err
	}
	if err := mergeKDL(cfg, content); err != nil {
		return nil, err
	}
	return cfg, nil
}

// languageMarker pairs a marker file name with the language it enables, per
// spec.md §6's detection table.
type languageMarker struct {
	file string
	lang types.Language
}

var languageMarkers = []languageMarker{
	{"package.json", types.LangTypeScript},
	{"tsconfig.json", types.LangTypeScript},
	{"pyproject.toml", types.LangPython},
	{"setup.py", types.LangPython},
	{"requirements.txt", types.LangPython},
	{"Cargo.toml", types.LangRust},
	{"compile_commands.json", types.LangCPP},
}

// DetectLanguages returns the set of languages enabled for projectRoot by
// the presence of their marker files. A project with both package.json and
// tsconfig.json still yields typescript exactly once.
func DetectLanguages(projectRoot string) []types.Language {
	seen := make(map[types.Language]bool)
	var langs []types.Language
	for _, m := range languageMarkers {
		path := filepath.Join(projectRoot, m.file)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if m.lang == types.LangRust {
			if !validCargoToml(path) {
				continue
			}
		}
		if !seen[m.lang] {
			seen[m.lang] = true
			langs = append(langs, m.lang)
		}
	}
	return langs
}
