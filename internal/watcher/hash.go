package watcher

import (
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// inputHash hashes a cheap fingerprint of files (path, size, mtime) so
// skipIfUnchanged can detect a no-op batch without re-reading file
// contents. files is assumed sorted for a stable hash across runs.
func inputHash(files []string) uint64 {
	var b strings.Builder
	for _, path := range files {
		b.WriteString(path)
		b.WriteByte('\x00')
		if info, err := os.Stat(path); err == nil {
			b.WriteString(strconv.FormatInt(info.Size(), 10))
			b.WriteByte('\x00')
			b.WriteString(strconv.FormatInt(info.ModTime().UnixNano(), 10))
		}
		b.WriteByte('\x00')
	}
	return xxhash.Sum64([]byte(b.String()))
}
