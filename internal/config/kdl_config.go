package config

import (
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// mergeKDL overlays fields found in a .refactor.kdl document onto cfg.
// Missing nodes leave the existing default untouched, mirroring
// internal/config/kdl_config.go's "defaults first, override what's present"
// approach in the teacher.
//
// Expected shape:
//
//	watcher {
//	    debounce-ms 2000
//	}
//	risk {
//	    critical "index.*" "main.*" "lib.*"
//	}
//	ignore {
//	    pattern "**/vendor/**"
//	}
func mergeKDL(cfg *Config, content []byte) error {
	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return err
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "watcher":
			for _, cn := range n.Children {
				if nodeName(cn) == "debounce-ms" {
					if v, ok := firstIntArg(cn); ok {
						cfg.DebounceMs = v
					}
				}
			}
		case "risk":
			for _, cn := range n.Children {
				if nodeName(cn) != "critical" {
					continue
				}
				var globs []string
				for _, arg := range cn.Arguments {
					if s, ok := arg.Value.(string); ok {
						globs = append(globs, s)
					}
				}
				if len(globs) > 0 {
					cfg.CriticalGlobs = globs
				}
			}
		case "ignore":
			var patterns []string
			for _, cn := range n.Children {
				if nodeName(cn) != "pattern" {
					continue
				}
				if s, ok := firstStringArg(cn); ok {
					patterns = append(patterns, s)
				}
			}
			if len(patterns) > 0 {
				cfg.IgnorePatterns = append(cfg.IgnorePatterns, patterns...)
			}
		}
	}
	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}
