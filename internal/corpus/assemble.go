// Package corpus aggregates file records into a budget-bounded corpus
// whose selected subset fits an LLM context window.
package corpus

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pders01/repolens/internal/extract"
	"github.com/pders01/repolens/internal/models"
)

// Budget bounds the selected subset.
type Budget struct {
	MaxContextChars     int
	PerFileExcerptChars int
}

// Assemble computes aggregate counters and the priority-ordered selected
// subset. The subset is a subsequence of records, greedily filled in
// descending importance until the next record would exceed the budget.
func Assemble(records []models.FileRecord, stats extract.Stats, info models.RepoInfo, budget Budget) *models.Corpus {
	c := &models.Corpus{
		GeneratedAt:     time.Now().UTC(),
		Repo:            info,
		Records:         records,
		Languages:       make(map[string]models.LanguageStat),
		FilesConsidered: stats.Considered,
		FilesRetained:   stats.Retained,
		SkippedBinary:   stats.SkippedBinary,
		SkippedSize:     stats.SkippedSize,
	}

	for i := range records {
		r := &records[i]
		stat := c.Languages[r.Language]
		stat.Files++
		stat.Lines += r.Lines
		c.Languages[r.Language] = stat

		c.TotalLines += r.Lines
		c.TotalFunctions += r.CountKind(models.KindFunction)
		c.TotalClasses += r.CountKind(models.KindClass)
	}

	c.Selected = selectSubset(records, budget)
	return c
}

// selectSubset scores every record, stable-sorts by descending score, and
// greedily adds rendered records while they fit.
func selectSubset(records []models.FileRecord, budget Budget) []models.FileRecord {
	if len(records) == 0 || budget.MaxContextChars <= 0 {
		return nil
	}
	if budget.PerFileExcerptChars <= 0 {
		budget.PerFileExcerptChars = 2000
	}

	type scored struct {
		index int
		score float64
	}
	order := make([]scored, len(records))
	for i := range records {
		order[i] = scored{index: i, score: Score(&records[i])}
	}
	// Stable: ties keep traversal order.
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].score > order[j].score
	})

	used := 0
	picked := make(map[int]bool)
	for _, s := range order {
		r := records[s.index]
		r.Excerpt = truncateChars(r.Excerpt, budget.PerFileExcerptChars)
		size := len(Render(&r))
		if used+size > budget.MaxContextChars {
			break
		}
		used += size
		picked[s.index] = true
	}

	// Subset keeps the original traversal order.
	var selected []models.FileRecord
	for i := range records {
		if !picked[i] {
			continue
		}
		r := records[i]
		r.Excerpt = truncateChars(r.Excerpt, budget.PerFileExcerptChars)
		selected = append(selected, r)
	}
	return selected
}

// Score rates a record's importance for context selection. Entry points,
// docs, and config files rank high; declaration-dense and larger files
// gain, very deep or oversized files lose.
func Score(r *models.FileRecord) float64 {
	score := 0.0
	path := strings.ToLower(r.Path)
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}

	for _, keyword := range []string{"main", "index", "app", "server", "api", "__init__"} {
		if strings.Contains(base, keyword) {
			score += 50
			break
		}
	}
	if strings.Contains(base, "readme") || strings.Contains(path, "doc") {
		score += 40
	}
	if strings.Contains(base, "config") || strings.Contains(base, "settings") || strings.Contains(base, "setup") {
		score += 30
	}
	switch base {
	case "requirements.txt", "package.json", "pom.xml", "cargo.toml", "go.mod":
		score += 35
	}

	switch r.Language {
	case "python", "javascript", "typescript", "go", "java", "cpp", "rust":
		score += 20
	case "markdown", "yaml", "json":
		score += 10
	}

	if r.Lines > 100 {
		extra := float64(r.Lines / 50)
		if extra > 20 {
			extra = 20
		}
		score += extra
	}
	if r.Lines > 2000 {
		score -= 20
	}

	if n := len(r.Declarations); n > 0 {
		extra := float64(n * 3)
		if extra > 30 {
			extra = 30
		}
		score += extra
	}

	// Root-level and src/ files over deeply nested ones.
	if strings.Count(r.Path, "/") <= 1 || strings.Contains(path, "/src/") {
		score += 15
	}

	return score
}

// Render serializes one record into its prompt-context block. Selection
// measures this exact form against the context budget.
func Render(r *models.FileRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s (%s, %d lines)\n", r.Path, r.Language, r.Lines)
	if len(r.Declarations) > 0 {
		b.WriteString("Declarations:\n")
		for _, d := range r.Declarations {
			fmt.Fprintf(&b, "  %s %s (line %d)\n", d.Kind, d.Name, d.Line)
		}
	}
	if r.ParseFailed {
		b.WriteString("(structure extraction failed; excerpt only)\n")
	}
	if r.Excerpt != "" {
		fmt.Fprintf(&b, "Excerpt:\n```%s\n%s\n```\n", r.Language, r.Excerpt)
	}
	b.WriteString("\n")
	return b.String()
}

// RenderContext serializes the selected subset for prompt injection.
func RenderContext(c *models.Corpus) string {
	var b strings.Builder
	for i := range c.Selected {
		b.WriteString(Render(&c.Selected[i]))
	}
	return b.String()
}

// RenderStats serializes the aggregate counters for prompt injection.
func RenderStats(c *models.Corpus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Files considered: %d, retained: %d\n", c.FilesConsidered, c.FilesRetained)
	fmt.Fprintf(&b, "Total lines: %d, functions: %d, classes: %d\n", c.TotalLines, c.TotalFunctions, c.TotalClasses)

	langs := make([]string, 0, len(c.Languages))
	for l := range c.Languages {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	b.WriteString("Languages:\n")
	for _, l := range langs {
		stat := c.Languages[l]
		fmt.Fprintf(&b, "  %s: %d files, %d lines\n", l, stat.Files, stat.Lines)
	}
	return b.String()
}

func truncateChars(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
