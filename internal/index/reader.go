package index

import (
	"bufio"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// indexFileNames returns the recognized per-language index file names for a
// project root, per spec.md §6, plus the legacy single-file name.
func indexFileNames(root string) []string {
	var names []string
	for _, lang := range []types.Language{types.LangTypeScript, types.LangJavaScript, types.LangPython, types.LangRust, types.LangCPP} {
		names = append(names, filepath.Join(root, "index."+string(lang)+".scip"))
	}
	names = append(names, filepath.Join(root, "index.scip"))
	return names
}

// docRecord is the Reader's internal, 0-based representation of one
// Document, tagged with the load time of the index it came from so the
// Reader can resolve path collisions across reloaded indexes.
type docRecord struct {
	relPath      string
	language     types.Language
	occurrences  []fileOccurrence // sorted by StartByte
	localSymbols []types.Symbol
	loadedAt     int64
}

// Reader answers cross-file symbol queries over the set of index files
// loaded for one project root. It is shared-read, single-writer: many
// goroutines may call its query methods concurrently; Reload builds a new
// document set and swaps it in atomically (§5, §9 "Ownership and sharing").
type Reader struct {
	projectRoot string

	mu        sync.RWMutex
	documents map[string]*docRecord // relPath -> winning record
}

// Load builds a Reader from every recognized index file under projectRoot.
// A decode failure on one file is logged and that file is skipped; an
// empty resulting set (no files found, or every file failed to decode) is
// reported as IndexAbsent.
func Load(projectRoot string) (*Reader, error) {
	r := &Reader{projectRoot: projectRoot, documents: make(map[string]*docRecord)}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-scans the index files on disk and swaps in a fresh document
// set, built fully before the swap so concurrent readers never observe a
// half-built index.
func (r *Reader) Reload() error {
	return r.reload()
}

func (r *Reader) reload() error {
	next := make(map[string]*docRecord)
	loadedAny := false

	for _, path := range indexFileNames(r.projectRoot) {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		fi, err := decodeFile(path)
		if err != nil {
			log.Printf("index: skipping %s: %v", path, err)
			continue
		}
		loadedAny = true
		loadedAt := info.ModTime().UnixNano()
		lang := languageFromString(fi.Language)
		for _, doc := range fi.Documents {
			rec := &docRecord{
				relPath:     doc.RelPath,
				language:    lang,
				occurrences: sortedOccurrences(doc.Occurrences),
				loadedAt:    loadedAt,
			}
			for _, s := range doc.LocalSymbols {
				rec.localSymbols = append(rec.localSymbols, types.Symbol{ID: s})
			}
			existing, ok := next[doc.RelPath]
			if !ok || rec.loadedAt >= existing.loadedAt {
				next[doc.RelPath] = rec
			}
		}
	}

	if !loadedAny || len(next) == 0 {
		return errors.New(errors.KindIndexAbsent, "index.Load", "no cross-file index found for project root "+r.projectRoot)
	}

	r.mu.Lock()
	r.documents = next
	r.mu.Unlock()
	return nil
}

func sortedOccurrences(occs []fileOccurrence) []fileOccurrence {
	sort.Slice(occs, func(i, j int) bool { return occs[i].StartByte < occs[j].StartByte })
	return occs
}

func decodeFile(path string) (*fileIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var fi fileIndex
	dec := json.NewDecoder(bufio.NewReader(f))
	if err := dec.Decode(&fi); err != nil {
		return nil, err
	}
	return &fi, nil
}

func (r *Reader) relPath(absPath string) string {
	if filepath.IsAbs(absPath) {
		if rel, err := filepath.Rel(r.projectRoot, absPath); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(absPath)
}

func (r *Reader) doc(relPath string) (*docRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.documents[relPath]
	return d, ok
}

// SymbolAtPosition resolves a 1-based (file, line, column) to a Symbol. It
// is the system's first safety gate: a candidate occurrence is only
// accepted once the bytes on disk at its reported column are re-read and
// confirmed to equal the occurrence's expected identifier text.
func (r *Reader) SymbolAtPosition(loc types.Location) (types.Symbol, error) {
	rel := r.relPath(loc.Path)
	doc, ok := r.doc(rel)
	if !ok {
		return types.Symbol{}, errors.New(errors.KindSymbolNotFound, "index.SymbolAtPosition", "no document indexed for "+loc.Path)
	}

	line0 := loc.Line - 1
	col0 := loc.Column - 1

	for _, occ := range doc.occurrences {
		if occ.Line != line0 {
			continue
		}
		end := occ.Column + len(occ.Name)
		if col0 < occ.Column || col0 >= end {
			continue
		}
		if !validateOccurrence(loc.Path, occ) {
			continue
		}
		return types.Symbol{ID: occ.Symbol}, nil
	}

	msg := "no symbol at " + loc.String()
	if suggestion := suggestNearestIdentifier(loc.Path, doc, line0, col0); suggestion != "" {
		msg += "; did you mean '" + suggestion + "'?"
	}
	return types.Symbol{}, errors.New(errors.KindSymbolNotFound, "index.SymbolAtPosition", msg)
}

// validateOccurrence re-reads the referenced line from disk and checks that
// the bytes starting at the reported column equal the occurrence's
// expected name. This defends against indexers (notably for dynamically
// typed languages, per spec.md §9) that emit off-by-N column data.
func validateOccurrence(path string, occ fileOccurrence) bool {
	line, ok := readLine(path, occ.Line)
	if !ok {
		return false
	}
	col := occ.Column
	if col < 0 || col+len(occ.Name) > len(line) {
		return false
	}
	return line[col:col+len(occ.Name)] == occ.Name
}

// readLine returns the 0-based line-th line of path without its terminator.
func readLine(path string, line int) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	n := 0
	for scanner.Scan() {
		if n == line {
			return scanner.Text(), true
		}
		n++
	}
	return "", false
}

// FindDefinition returns the occurrence tagged as definition for symbol,
// searching every loaded document. Locations returned are 1-based.
func (r *Reader) FindDefinition(symbol types.Symbol) (types.Occurrence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *types.Occurrence
	var bestLoaded int64
	for relPath, doc := range r.documents {
		for _, occ := range doc.occurrences {
			if occ.Symbol != symbol.ID || roleFromString(occ.Role) != types.RoleDefinition {
				continue
			}
			if !validateOccurrence(filepath.Join(r.projectRoot, relPath), occ) {
				continue
			}
			converted := toExternalOccurrence(r.projectRoot, relPath, doc.language, occ)
			if best == nil || doc.loadedAt > bestLoaded {
				best = &converted
				bestLoaded = doc.loadedAt
			}
		}
	}
	if best == nil {
		return types.Occurrence{}, errors.New(errors.KindSymbolNotFound, "index.FindDefinition", "no definition occurrence for symbol")
	}
	return *best, nil
}

// FindReferences returns every occurrence matching symbol across all
// documents, deduplicated by (file, start-line, start-column) and sorted
// by file then position. If includeDefinition is false, the definition
// occurrence is excluded. An empty result is reported as NoReferences;
// callers that tolerate a no-op rename on usages should treat that kind as
// non-fatal (spec.md §4.1).
func (r *Reader) FindReferences(symbol types.Symbol, includeDefinition bool) ([]types.Occurrence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type key struct {
		path string
		line int
		col  int
	}
	seen := make(map[key]bool)
	var out []types.Occurrence

	for relPath, doc := range r.documents {
		absPath := filepath.Join(r.projectRoot, relPath)
		for _, occ := range doc.occurrences {
			if occ.Symbol != symbol.ID {
				continue
			}
			role := roleFromString(occ.Role)
			if role == types.RoleDefinition && !includeDefinition {
				continue
			}
			if !validateOccurrence(absPath, occ) {
				continue
			}
			converted := toExternalOccurrence(r.projectRoot, relPath, doc.language, occ)
			k := key{path: converted.Location.Path, line: converted.Location.Line, col: converted.Location.Column}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, converted)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Location.Path != out[j].Location.Path {
			return out[i].Location.Path < out[j].Location.Path
		}
		if out[i].Location.Line != out[j].Location.Line {
			return out[i].Location.Line < out[j].Location.Line
		}
		return out[i].Location.Column < out[j].Location.Column
	})

	if len(out) == 0 {
		return nil, errors.New(errors.KindNoReferences, "index.FindReferences", "symbol has no references")
	}
	return out, nil
}

// toExternalOccurrence converts a 0-based internal occurrence to the
// 1-based types.Occurrence the rest of the system consumes. This is the
// single point where the on-disk coordinate base is translated outward.
func toExternalOccurrence(projectRoot, relPath string, lang types.Language, occ fileOccurrence) types.Occurrence {
	return types.Occurrence{
		Symbol: types.Symbol{ID: occ.Symbol},
		Location: types.Location{
			Path:      filepath.Join(projectRoot, relPath),
			Line:      occ.Line + 1,
			Column:    occ.Column + 1,
			EndLine:   occ.EndLine + 1,
			EndColumn: occ.EndColumn + 1,
		},
		Role:      roleFromString(occ.Role),
		Name:      occ.Name,
		StartByte: occ.StartByte,
		EndByte:   occ.EndByte,
	}
}

// Stats is a point-in-time roll-up of the loaded index set, backing the
// stats CLI subcommand.
type Stats struct {
	Documents      int
	Symbols        int
	Occurrences    int
	NewestLoadedAt int64 // unix nanos of the most recently loaded index file
}

// Stats summarizes the currently loaded document set.
func (r *Reader) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s Stats
	symbols := make(map[string]bool)
	for _, doc := range r.documents {
		s.Documents++
		s.Occurrences += len(doc.occurrences)
		for _, occ := range doc.occurrences {
			symbols[occ.Symbol] = true
		}
		if doc.loadedAt > s.NewestLoadedAt {
			s.NewestLoadedAt = doc.loadedAt
		}
	}
	s.Symbols = len(symbols)
	return s
}

// DocumentLanguage returns the recorded language for a loaded document, or
// LangUnknown if the path isn't indexed.
func (r *Reader) DocumentLanguage(path string) types.Language {
	rel := r.relPath(path)
	if doc, ok := r.doc(rel); ok {
		return doc.language
	}
	return types.LangUnknown
}
