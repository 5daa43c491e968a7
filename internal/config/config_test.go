package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AbsentKDLFileFallsBackToDefault(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounceMs, cfg.DebounceMs)
	assert.Equal(t, DefaultCriticalGlobs, cfg.CriticalGlobs)
}

func TestLoad_KDLOverridesDebounceCriticalAndIgnore(t *testing.T) {
	root := t.TempDir()
	kdl := `watcher {
    debounce-ms 500
}
risk {
    critical "app.*" "server.*"
}
ignore {
    pattern "**/vendor/**"
}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".refactor.kdl"), []byte(kdl), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.DebounceMs)
	assert.Equal(t, []string{"app.*", "server.*"}, cfg.CriticalGlobs)
	assert.Contains(t, cfg.IgnorePatterns, "**/vendor/**")
	assert.Contains(t, cfg.IgnorePatterns, "**/.git/**")
}

func TestDetectLanguages_DedupesTypeScriptMarkersAndValidatesCargo(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tsconfig.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "requirements.txt"), []byte("requests\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("[package]\nname = \"x\"\n"), 0o644))

	langs := DetectLanguages(root)
	var names []string
	for _, l := range langs {
		names = append(names, string(l))
	}
	assert.ElementsMatch(t, []string{"typescript", "python", "rust"}, names)
}

func TestDetectLanguages_InvalidCargoTomlIsIgnored(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("not valid toml : : :"), 0o644))

	langs := DetectLanguages(root)
	assert.Empty(t, langs)
}
