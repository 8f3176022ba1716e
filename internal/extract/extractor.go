// Package extract walks an acquired working tree and turns each retained
// file into a language-tagged FileRecord with best-effort declarations.
package extract

import (
	"bytes"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/pders01/repolens/internal/extract/lang"
	"github.com/pders01/repolens/internal/models"
	"github.com/pders01/repolens/internal/source"
)

// binarySampleSize is how much of a file's head is inspected for binary content.
const binarySampleSize = 8 * 1024

// defaultExcludeDirs are never descended into.
var defaultExcludeDirs = map[string]bool{
	".git": true, ".svn": true, ".hg": true,
	"__pycache__": true, ".pytest_cache": true, ".mypy_cache": true,
	".ruff_cache": true, ".tox": true,
	"node_modules": true, "vendor": true, "deps": true,
	"venv": true, ".venv": true, "env": true, ".env": true,
	"build": true, "dist": true, "_build": true, "target": true,
	"bin": true, "obj": true, ".gradle": true,
	".idea": true, ".vscode": true, ".next": true, ".nuxt": true,
	"coverage": true, ".coverage": true,
}

// binaryExtensions short-circuit content sniffing.
var binaryExtensions = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".dat": true, ".pdf": true, ".doc": true, ".docx": true, ".xls": true,
	".xlsx": true, ".ppt": true, ".pptx": true, ".jpg": true, ".jpeg": true,
	".png": true, ".gif": true, ".bmp": true, ".ico": true, ".mp3": true,
	".mp4": true, ".avi": true, ".mov": true, ".wmv": true, ".zip": true,
	".rar": true, ".tar": true, ".gz": true, ".7z": true, ".jar": true,
	".war": true, ".pyc": true, ".pyo": true, ".pyd": true, ".wasm": true,
}

// lockFiles carry no structure worth extracting.
var lockFiles = map[string]bool{
	"package-lock.json": true, "yarn.lock": true, "poetry.lock": true,
	"Pipfile.lock": true, "composer.lock": true, "go.sum": true,
	"Cargo.lock": true,
}

// Filters bounds one extraction pass.
type Filters struct {
	ExcludeDirs      []string // additional directory names to skip
	MaxFileSizeBytes int64
	MaxFiles         int
	MaxExcerptBytes  int
	IncludeLanguages []string // empty = all
}

// Stats counts traversal outcomes. Skips are warnings, never errors.
type Stats struct {
	Considered     int
	Retained       int
	SkippedBinary  int
	SkippedSize    int
	SkippedIgnored int
	ParseFailures  int
}

// Extract traverses the working tree in lexicographic path order and parses
// each retained file. Given identical tree content and filters, the output
// is byte-for-byte identical across runs.
func Extract(tree *source.WorkingTree, filters Filters) ([]models.FileRecord, Stats) {
	var (
		records []models.FileRecord
		stats   Stats
	)

	if filters.MaxFileSizeBytes <= 0 {
		filters.MaxFileSizeBytes = 1024 * 1024
	}
	if filters.MaxExcerptBytes <= 0 {
		filters.MaxExcerptBytes = 4096
	}

	excluded := make(map[string]bool, len(defaultExcludeDirs)+len(filters.ExcludeDirs))
	for name := range defaultExcludeDirs {
		excluded[name] = true
	}
	for _, name := range filters.ExcludeDirs {
		excluded[name] = true
	}

	included := make(map[string]bool, len(filters.IncludeLanguages))
	for _, l := range filters.IncludeLanguages {
		included[l] = true
	}

	gi := loadGitignore(tree.Path)

	// WalkDir visits entries in lexical order, which carries the
	// determinism guarantee; no extra sort is needed.
	filepath.WalkDir(tree.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path == tree.Path {
				return nil
			}
			if excluded[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(tree.Path, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		stats.Considered++

		if lockFiles[name] || (gi != nil && gi.MatchesPath(rel)) {
			stats.SkippedIgnored++
			return nil
		}

		ext := filepath.Ext(name)
		if binaryExtensions[strings.ToLower(ext)] {
			stats.SkippedBinary++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > filters.MaxFileSizeBytes {
			stats.SkippedSize++
			return nil
		}

		// MaxFiles reached: keep counting, stop extracting.
		if filters.MaxFiles > 0 && stats.Retained >= filters.MaxFiles {
			return nil
		}

		language := lang.ForExtension(ext)
		if len(included) > 0 && !included[language] {
			stats.SkippedIgnored++
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("failed to read file", "path", rel, "error", err)
			return nil
		}
		if isBinary(content) {
			stats.SkippedBinary++
			return nil
		}

		record := buildRecord(rel, language, content, filters.MaxExcerptBytes)
		if record.ParseFailed {
			stats.ParseFailures++
		}
		records = append(records, record)
		stats.Retained++
		return nil
	})

	return records, stats
}

func buildRecord(rel, language string, content []byte, maxExcerpt int) models.FileRecord {
	record := models.FileRecord{
		Path:      rel,
		Language:  language,
		SizeBytes: int64(len(content)),
		Lines:     countLines(content),
		Excerpt:   excerpt(content, maxExcerpt),
	}

	extractor := lang.ExtractorFor(language)
	if extractor == nil {
		return record
	}

	decls, err := extractor.DetectDeclarations(content)
	if err != nil {
		// Parse failure is data, not an error: the record survives.
		record.ParseFailed = true
		slog.Debug("declaration extraction failed", "path", rel, "error", err)
		return record
	}
	record.Declarations = decls
	return record
}

// isBinary reports a NUL byte or invalid UTF-8 in the leading sample.
func isBinary(content []byte) bool {
	sample := content
	truncated := false
	if len(sample) > binarySampleSize {
		sample = sample[:binarySampleSize]
		truncated = true
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	if !truncated {
		return !utf8.Valid(sample)
	}
	// The sample may end mid-rune; trim up to one rune before judging.
	for i := 0; i < utf8.UTFMax && len(sample) > 0; i++ {
		if utf8.Valid(sample) {
			return false
		}
		sample = sample[:len(sample)-1]
	}
	return !utf8.Valid(sample)
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	return n
}

// excerpt truncates at the cap without splitting a UTF-8 rune.
func excerpt(content []byte, max int) string {
	if len(content) <= max {
		return string(content)
	}
	cut := content[:max]
	for len(cut) > 0 && !utf8.Valid(cut) {
		cut = cut[:len(cut)-1]
	}
	return string(cut)
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
