package models

import "time"

// LanguageStat aggregates per-language file and line counts.
type LanguageStat struct {
	Files int `json:"files"`
	Lines int `json:"lines"`
}

// RepoInfo describes the acquired repository head, for report headers.
type RepoInfo struct {
	URL          string `json:"url"`
	Commit       string `json:"commit,omitempty"`
	Subject      string `json:"subject,omitempty"`
	SizeBytes    int64  `json:"size_bytes"`
	FilesOnDisk  int    `json:"files_on_disk"`
}

// Corpus is the aggregated, budget-bounded view of a repository.
// Records keep traversal order; Selected is a subsequence of Records
// ordered by importance, sized to fit the context budget.
// Mutated only during assembly, read-only afterwards.
type Corpus struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Repo        RepoInfo                `json:"repo"`
	Records     []FileRecord            `json:"records"`
	Selected    []FileRecord            `json:"selected"`
	Languages   map[string]LanguageStat `json:"languages"`

	FilesConsidered int `json:"files_considered"`
	FilesRetained   int `json:"files_retained"`
	SkippedBinary   int `json:"skipped_binary"`
	SkippedSize     int `json:"skipped_size"`
	TotalLines      int `json:"total_lines"`
	TotalFunctions  int `json:"total_functions"`
	TotalClasses    int `json:"total_classes"`
}

// Record returns the retained record with the given path, or nil.
func (c *Corpus) Record(path string) *FileRecord {
	for i := range c.Records {
		if c.Records[i].Path == path {
			return &c.Records[i]
		}
	}
	return nil
}
