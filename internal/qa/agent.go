// Package qa answers questions about an analyzed repository by trimming
// the corpus to the most relevant records and asking the LLM.
package qa

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pders01/repolens/internal/corpus"
	"github.com/pders01/repolens/internal/llm"
	"github.com/pders01/repolens/internal/models"
)

// Completer is the slice of the LLM client the agent needs. Answers go
// through the cache; repeated identical questions are served from it.
type Completer interface {
	CachedComplete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Agent holds everything one Q&A session needs.
type Agent struct {
	client          Completer
	scorer          Scorer
	maxContextChars int
}

// Answer is one question's outcome, with the records that backed it.
type Answer struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
}

// NewAgent builds an agent. A nil scorer falls back to lexical matching.
func NewAgent(client Completer, scorer Scorer, maxContextChars int) *Agent {
	if scorer == nil {
		scorer = LexicalScorer{}
	}
	if maxContextChars <= 0 {
		maxContextChars = 24000
	}
	return &Agent{client: client, scorer: scorer, maxContextChars: maxContextChars}
}

// Answer scores the selected records against the question, keeps the best
// ones that fit the context budget, and completes against that context.
func (a *Agent) Answer(ctx context.Context, question string, c *models.Corpus) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}

	relevant, err := a.relevantRecords(ctx, question, c)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", c.Repo.URL)
	b.WriteString(corpus.RenderStats(c))
	b.WriteString("\nRelevant files:\n")
	sources := make([]string, 0, len(relevant))
	for i := range relevant {
		b.WriteString(corpus.Render(&relevant[i]))
		sources = append(sources, relevant[i].Path)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", question)

	system := "You are a senior engineer answering questions about a specific " +
		"repository. Ground every claim in the provided files and statistics. " +
		"When the context does not contain the answer, say so instead of guessing."

	resp, err := a.client.CachedComplete(ctx, llm.Request{System: system, Prompt: b.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to answer question: %w", err)
	}
	return &Answer{Text: strings.TrimSpace(resp.Text), Sources: sources}, nil
}

// relevantRecords sorts the selected subset by descending relevance and
// greedily keeps records while their rendered forms fit the budget.
func (a *Agent) relevantRecords(ctx context.Context, question string, c *models.Corpus) ([]models.FileRecord, error) {
	records := c.Selected
	scores, err := a.scorer.Scores(ctx, question, records)
	if err != nil {
		return nil, fmt.Errorf("failed to score records: %w", err)
	}

	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	used := 0
	var kept []models.FileRecord
	for _, idx := range order {
		size := len(corpus.Render(&records[idx]))
		if used+size > a.maxContextChars && len(kept) > 0 {
			break
		}
		used += size
		kept = append(kept, records[idx])
	}
	return kept, nil
}

// Suggest proposes starter questions from what the corpus shows.
func (a *Agent) Suggest(c *models.Corpus) []string {
	suggestions := []string{
		"What does this repository do and how is it organized?",
		"Where is the main entry point and what happens at startup?",
	}

	langs := make([]string, 0, len(c.Languages))
	for l := range c.Languages {
		if l != models.LanguageUnknown {
			langs = append(langs, l)
		}
	}
	sort.Slice(langs, func(i, j int) bool {
		if c.Languages[langs[i]].Lines != c.Languages[langs[j]].Lines {
			return c.Languages[langs[i]].Lines > c.Languages[langs[j]].Lines
		}
		return langs[i] < langs[j]
	})
	if len(langs) > 0 {
		suggestions = append(suggestions,
			fmt.Sprintf("How is the %s code structured and what are its key modules?", langs[0]))
	}

	best := ""
	bestScore := -1.0
	for i := range c.Selected {
		if s := corpus.Score(&c.Selected[i]); s > bestScore {
			bestScore = s
			best = c.Selected[i].Path
		}
	}
	if best != "" {
		suggestions = append(suggestions, fmt.Sprintf("What does %s do?", best))
	}

	if c.TotalClasses > 0 {
		suggestions = append(suggestions, "What are the central types and how do they relate?")
	}
	return suggestions
}
