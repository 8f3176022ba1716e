package models

// DeclarationKind is the syntactic kind of an extracted declaration.
type DeclarationKind string

const (
	KindClass    DeclarationKind = "class"
	KindFunction DeclarationKind = "function"
	KindVariable DeclarationKind = "variable"
	KindModule   DeclarationKind = "module"
)

// LanguageUnknown is assigned to files whose extension is not mapped.
const LanguageUnknown = "unknown"

// Declaration is a named code construct found inside a file.
// Extraction is best-effort: a missing or empty list never fails the file.
type Declaration struct {
	Kind DeclarationKind `json:"kind"`
	Name string          `json:"name"`
	Line int             `json:"line"`
	Doc  string          `json:"doc,omitempty"`
}

// FileRecord is the structural summary of one retained file.
// Immutable once produced by extraction.
type FileRecord struct {
	Path         string        `json:"path"`
	Language     string        `json:"language"`
	SizeBytes    int64         `json:"size_bytes"`
	Lines        int           `json:"lines"`
	Declarations []Declaration `json:"declarations,omitempty"`
	Excerpt      string        `json:"excerpt,omitempty"`
	ParseFailed  bool          `json:"parse_failed,omitempty"`
}

// CountKind returns how many declarations of the given kind the record holds.
func (r *FileRecord) CountKind(kind DeclarationKind) int {
	n := 0
	for _, d := range r.Declarations {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
