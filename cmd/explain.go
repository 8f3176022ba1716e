package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alpkeskin/gotoon"
	"github.com/spf13/cobra"

	"github.com/pders01/repolens/internal/config"
	"github.com/pders01/repolens/internal/summarize"
)

var (
	explainRef   string
	explainToken string
	explainJSON  bool
	explainToon  bool
)

var explainCmd = &cobra.Command{
	Use:   "explain <repository-url> <file-path> <declaration>",
	Short: "Explain one declaration from a repository file",
	Long: `Explain fetches a repository, locates the named declaration in the given
file, and describes what it does grounded in the file's extracted context.

Examples:
  repolens explain github.com/owner/repo src/auth.py login
  repolens explain github.com/owner/repo cmd/root.go Execute --json`,
	Args: cobra.ExactArgs(3),
	RunE: runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().StringVar(&explainRef, "ref", "", "Branch or tag to analyze")
	explainCmd.Flags().StringVar(&explainToken, "token", "", "Access token for private repositories")
	explainCmd.Flags().BoolVar(&explainJSON, "json", false, "Output as JSON")
	explainCmd.Flags().BoolVar(&explainToon, "toon", false, "Output as Toon (LLM-friendly format)")
}

func runExplain(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), config.AnalysisTimeout())
	defer cancel()

	c, err := buildCorpus(ctx, args[0], explainRef, explainToken)
	if err != nil {
		return err
	}

	record := c.Record(args[1])
	if record == nil {
		return fmt.Errorf("file %s not found in corpus", args[1])
	}

	client := newLLMClient()
	defer client.Close()

	s := summarize.New(client, nil, config.SummarizeConcurrency())
	text, err := s.Explain(ctx, record, args[2])
	if err != nil {
		return err
	}

	report := struct {
		File        string `json:"file"`
		Declaration string `json:"declaration"`
		Explanation string `json:"explanation"`
	}{File: record.Path, Declaration: args[2], Explanation: text}

	// Output JSON if requested
	if explainJSON {
		output, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	// Output Toon if requested
	if explainToon {
		output, err := gotoon.Encode(report)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	fmt.Printf("%s %s\n\n%s\n", record.Path, args[2], text)
	return nil
}
