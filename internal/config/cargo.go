package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// validCargoToml confirms path parses as TOML before enabling the rust
// language tag. Mirrors build_artifact_detector.go's "read the marker file
// far enough to trust it" approach: the core never interprets Cargo.toml's
// build settings, only uses its presence-and-validity to drive language
// detection (spec.md §6).
func validCargoToml(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var probe map[string]interface{}
	return toml.Unmarshal(data, &probe) == nil
}
