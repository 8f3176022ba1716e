package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alpkeskin/gotoon"
	"github.com/spf13/cobra"

	"github.com/pders01/repolens/internal/config"
	"github.com/pders01/repolens/internal/qa"
)

var (
	askRef     string
	askToken   string
	askJSON    bool
	askToon    bool
	askSuggest bool
)

var askCmd = &cobra.Command{
	Use:   "ask <repository-url> [question]",
	Short: "Ask a question about a repository",
	Long: `Ask fetches a repository, builds its corpus, and answers a free-form
question grounded in the extracted code.

Examples:
  repolens ask github.com/owner/repo "How is authentication handled?"
  repolens ask github.com/owner/repo --suggest`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askRef, "ref", "", "Branch or tag to analyze")
	askCmd.Flags().StringVar(&askToken, "token", "", "Access token for private repositories")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Output as JSON")
	askCmd.Flags().BoolVar(&askToon, "toon", false, "Output as Toon (LLM-friendly format)")
	askCmd.Flags().BoolVar(&askSuggest, "suggest", false, "Print suggested questions instead of answering")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if !askSuggest && len(args) < 2 {
		return fmt.Errorf("question required (or pass --suggest)")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), config.AnalysisTimeout())
	defer cancel()

	c, err := buildCorpus(ctx, args[0], askRef, askToken)
	if err != nil {
		return err
	}

	client := newLLMClient()
	defer client.Close()

	agent := qa.NewAgent(client, buildScorer(), config.MaxContextChars())

	if askSuggest {
		fmt.Println("Suggested questions:")
		for _, q := range agent.Suggest(c) {
			fmt.Printf("  - %s\n", q)
		}
		return nil
	}

	answer, err := agent.Answer(ctx, args[1], c)
	if err != nil {
		return err
	}

	// Output JSON if requested
	if askJSON {
		output, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	// Output Toon if requested
	if askToon {
		output, err := gotoon.Encode(answer)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println("\nBased on:")
		for _, s := range answer.Sources {
			fmt.Printf("  %s\n", s)
		}
	}
	return nil
}
