// Package summarize turns a corpus into natural-language summaries with a
// two-pass flow: each selected file first, then the repository from those.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pders01/repolens/internal/corpus"
	"github.com/pders01/repolens/internal/llm"
	"github.com/pders01/repolens/internal/models"
)

// Unavailable is the sentinel recorded for a file whose summary request
// failed after retries. The repository pass still runs without it.
const Unavailable = "summary unavailable"

// Completer is the slice of the LLM client the summarizer needs. The cached
// variant is used so reruns over an unchanged corpus skip the network.
type Completer interface {
	CachedComplete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Result is the outcome of a repository pass.
type Result struct {
	Repository string            `json:"repository"`
	Files      map[string]string `json:"files"`
	Degraded   []string          `json:"degraded,omitempty"`
}

// Summarizer fans file summaries out over a bounded worker pool.
type Summarizer struct {
	client      Completer
	prompts     PromptBuilder
	concurrency int
}

// New builds a summarizer. A nil prompts uses the default prompt set.
func New(client Completer, prompts PromptBuilder, concurrency int) *Summarizer {
	if prompts == nil {
		prompts = DefaultPrompts{}
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Summarizer{client: client, prompts: prompts, concurrency: concurrency}
}

// File summarizes one record.
func (s *Summarizer) File(ctx context.Context, r *models.FileRecord) (string, error) {
	system, prompt := s.prompts.FilePrompt(r)
	resp, err := s.client.CachedComplete(ctx, llm.Request{System: system, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to summarize %s: %w", r.Path, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// Explain describes one named declaration of a record in depth, grounded
// in the record's rendered context. The name must match a declaration
// extraction found in the file.
func (s *Summarizer) Explain(ctx context.Context, r *models.FileRecord, name string) (string, error) {
	var target *models.Declaration
	for i := range r.Declarations {
		if r.Declarations[i].Name == name {
			target = &r.Declarations[i]
			break
		}
	}
	if target == nil {
		return "", fmt.Errorf("declaration %q not found in %s", name, r.Path)
	}

	system := "You are a senior engineer explaining one declaration from a " +
		"source file. Describe what it does, its inputs and outputs, and how " +
		"it fits into the file. Ground the explanation in the provided context."

	var b strings.Builder
	fmt.Fprintf(&b, "Explain %s %s (line %d) from %s.\n", target.Kind, target.Name, target.Line, r.Path)
	if target.Doc != "" {
		fmt.Fprintf(&b, "Documented as: %s\n", target.Doc)
	}
	b.WriteString("\n")
	b.WriteString(corpus.Render(r))

	resp, err := s.client.CachedComplete(ctx, llm.Request{System: system, Prompt: b.String()})
	if err != nil {
		return "", fmt.Errorf("failed to explain %s: %w", name, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// Repository summarizes every selected file concurrently, then produces
// the repository summary from whatever file summaries succeeded. Only a
// canceled context or a fully failed repository pass returns an error;
// individual file failures degrade to the Unavailable sentinel.
func (s *Summarizer) Repository(ctx context.Context, c *models.Corpus) (*Result, error) {
	result := &Result{Files: make(map[string]string, len(c.Selected))}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range c.Selected {
		record := &c.Selected[i]
		g.Go(func() error {
			summary, err := s.File(gctx, record)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("file summary degraded", "path", record.Path, "error", err)
				result.Files[record.Path] = Unavailable
				result.Degraded = append(result.Degraded, record.Path)
				return nil
			}
			result.Files[record.Path] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(result.Degraded)

	system, prompt := s.prompts.RepoPrompt(c, result.Files)
	resp, err := s.client.CachedComplete(ctx, llm.Request{System: system, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to summarize repository: %w", err)
	}
	result.Repository = strings.TrimSpace(resp.Text)
	return result, nil
}

// PromptBuilder renders the prompts for both passes.
type PromptBuilder interface {
	FilePrompt(r *models.FileRecord) (system, prompt string)
	RepoPrompt(c *models.Corpus, files map[string]string) (system, prompt string)
}

// DefaultPrompts is the stock prompt set.
type DefaultPrompts struct{}

func (DefaultPrompts) FilePrompt(r *models.FileRecord) (string, string) {
	system := "You are a senior engineer reviewing source code. " +
		"Summarize what the file does, its key declarations, and how it fits " +
		"into a larger codebase. Be concise and factual; two to four sentences."
	return system, corpus.Render(r)
}

func (DefaultPrompts) RepoPrompt(c *models.Corpus, files map[string]string) (string, string) {
	system := "You are a senior engineer writing an onboarding overview of a " +
		"repository. From the statistics and per-file summaries, describe the " +
		"project's purpose, architecture, main components, and likely entry " +
		"points. Note any files whose summary is unavailable without guessing " +
		"at their contents."

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", c.Repo.URL)
	b.WriteString(corpus.RenderStats(c))
	b.WriteString("\nFile summaries:\n")
	for _, p := range paths {
		fmt.Fprintf(&b, "- %s: %s\n", p, files[p])
	}
	return system, b.String()
}
