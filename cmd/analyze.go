package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/alpkeskin/gotoon"
	"github.com/spf13/cobra"

	"github.com/pders01/repolens/internal/config"
	"github.com/pders01/repolens/internal/models"
	"github.com/pders01/repolens/internal/summarize"
)

var (
	analyzeRef           string
	analyzeToken         string
	analyzeJSON          bool
	analyzeToon          bool
	analyzeStructureOnly bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <repository-url>",
	Short: "Fetch a repository and summarize it with an LLM",
	Long: `Analyze fetches a public repository, extracts its structure, and
produces a per-file plus whole-repository summary.

Examples:
  repolens analyze github.com/spf13/cobra
  repolens analyze https://gitlab.com/owner/repo --ref v2
  repolens analyze github.com/owner/repo --structure-only --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeRef, "ref", "", "Branch or tag to analyze")
	analyzeCmd.Flags().StringVar(&analyzeToken, "token", "", "Access token for private repositories")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeToon, "toon", false, "Output as Toon (LLM-friendly format)")
	analyzeCmd.Flags().BoolVar(&analyzeStructureOnly, "structure-only", false, "Skip LLM summaries, output structure only")
}

type analysisReport struct {
	Repo            models.RepoInfo                `json:"repo"`
	Languages       map[string]models.LanguageStat `json:"languages"`
	FilesConsidered int                            `json:"files_considered"`
	FilesRetained   int                            `json:"files_retained"`
	TotalLines      int                            `json:"total_lines"`
	TotalFunctions  int                            `json:"total_functions"`
	TotalClasses    int                            `json:"total_classes"`
	Selected        []string                       `json:"selected"`
	Summary         *summarize.Result              `json:"summary,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), config.AnalysisTimeout())
	defer cancel()

	c, err := buildCorpus(ctx, args[0], analyzeRef, analyzeToken)
	if err != nil {
		return err
	}

	report := analysisReport{
		Repo:            c.Repo,
		Languages:       c.Languages,
		FilesConsidered: c.FilesConsidered,
		FilesRetained:   c.FilesRetained,
		TotalLines:      c.TotalLines,
		TotalFunctions:  c.TotalFunctions,
		TotalClasses:    c.TotalClasses,
	}
	for i := range c.Selected {
		report.Selected = append(report.Selected, c.Selected[i].Path)
	}

	if !analyzeStructureOnly {
		client := newLLMClient()
		defer client.Close()

		s := summarize.New(client, nil, config.SummarizeConcurrency())
		result, err := s.Repository(ctx, c)
		if err != nil {
			return fmt.Errorf("failed to summarize: %w", err)
		}
		report.Summary = result
	}

	// Output JSON if requested
	if analyzeJSON {
		output, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	// Output Toon if requested
	if analyzeToon {
		output, err := gotoon.Encode(report)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	printReport(&report)
	return nil
}

func printReport(report *analysisReport) {
	fmt.Printf("Repository: %s", report.Repo.URL)
	if report.Repo.Commit != "" {
		fmt.Printf(" @ %s", report.Repo.Commit)
	}
	fmt.Println()
	if report.Repo.Subject != "" {
		fmt.Printf("Head:       %s\n", report.Repo.Subject)
	}
	fmt.Printf("Files:      %d retained of %d considered\n", report.FilesRetained, report.FilesConsidered)
	fmt.Printf("Lines:      %d (%d functions, %d classes)\n\n", report.TotalLines, report.TotalFunctions, report.TotalClasses)

	langs := make([]string, 0, len(report.Languages))
	for l := range report.Languages {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool {
		return report.Languages[langs[i]].Lines > report.Languages[langs[j]].Lines
	})
	fmt.Println("Languages:")
	for _, l := range langs {
		stat := report.Languages[l]
		fmt.Printf("  %-14s %4d files %8d lines\n", l, stat.Files, stat.Lines)
	}
	fmt.Println()

	if report.Summary == nil {
		fmt.Printf("Selected files (%d):\n", len(report.Selected))
		for _, p := range report.Selected {
			fmt.Printf("  %s\n", p)
		}
		return
	}

	fmt.Println("Summary:")
	fmt.Println(report.Summary.Repository)
	fmt.Println()

	paths := make([]string, 0, len(report.Summary.Files))
	for p := range report.Summary.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	fmt.Println("Files:")
	for _, p := range paths {
		fmt.Printf("  %s\n    %s\n", p, report.Summary.Files[p])
	}

	if len(report.Summary.Degraded) > 0 {
		fmt.Printf("\nWarning: %d file summaries unavailable: %v\n",
			len(report.Summary.Degraded), report.Summary.Degraded)
	}
}
