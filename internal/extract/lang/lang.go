// Package lang maps file extensions to language tags and provides
// per-language declaration extractors. Tree-sitter grammars cover the
// structurally parsed languages; everything else falls back to a
// pattern-based line scanner.
package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/pders01/repolens/internal/models"
)

// Extractor detects declarations in source text. Implementations are
// best-effort: a non-nil error marks the file parseFailed, it never
// aborts the batch.
type Extractor interface {
	DetectDeclarations(source []byte) ([]models.Declaration, error)
}

// extensionMap is the fixed extension → language tag table.
var extensionMap = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".go":    "go",
	".java":  "java",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".rb":    "ruby",
	".rs":    "rust",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".r":     "r",
	".sql":   "sql",
	".sh":    "bash",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".xml":   "xml",
	".html":  "html",
	".css":   "css",
	".md":    "markdown",
	".txt":   "text",
	".rst":   "restructuredtext",
}

// fallbackLanguages are scanned with the generic pattern extractor.
var fallbackLanguages = map[string]bool{
	"java": true, "c": true, "cpp": true, "csharp": true, "php": true,
	"ruby": true, "rust": true, "swift": true, "kotlin": true,
	"scala": true, "r": true, "sql": true, "bash": true,
}

// ForExtension returns the language tag for a file extension, or
// models.LanguageUnknown when the extension is not mapped.
func ForExtension(ext string) string {
	if tag, ok := extensionMap[strings.ToLower(ext)]; ok {
		return tag
	}
	return models.LanguageUnknown
}

// ExtractorFor returns the declaration extractor for a language tag, or nil
// when no extraction is attempted (markup, data, unknown).
func ExtractorFor(language string) Extractor {
	switch language {
	case "go":
		return goExtractor{}
	case "python":
		return pythonExtractor{}
	case "javascript":
		return jsExtractor{typescript: false}
	case "typescript":
		return jsExtractor{typescript: true}
	}
	if fallbackLanguages[language] {
		return patternExtractor{}
	}
	return nil
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

func lineOf(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// leadingComment collects the comment block immediately above node,
// stripping comment markers. Used for doc extraction in Go and JS.
func leadingComment(node *sitter.Node, source []byte) string {
	var lines []string
	prev := node.PrevSibling()
	wantRow := int(node.StartPoint().Row) - 1
	for prev != nil && prev.Type() == "comment" && int(prev.EndPoint().Row) == wantRow {
		text := nodeText(prev, source)
		text = strings.TrimPrefix(text, "//")
		text = strings.TrimPrefix(text, "/*")
		text = strings.TrimSuffix(text, "*/")
		lines = append([]string{strings.TrimSpace(text)}, lines...)
		wantRow = int(prev.StartPoint().Row) - 1
		prev = prev.PrevSibling()
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
