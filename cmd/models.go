package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/alpkeskin/gotoon"
	"github.com/spf13/cobra"

	"github.com/pders01/repolens/internal/config"
)

var (
	modelsJSON  bool
	modelsToon  bool
	modelsCheck bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models the configured LLM endpoint serves",
	Long: `Models queries the configured endpoint for its model catalog.

With --check it only verifies that the endpoint is reachable and the
API key is accepted.`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output as JSON")
	modelsCmd.Flags().BoolVar(&modelsToon, "toon", false, "Output as Toon (LLM-friendly format)")
	modelsCmd.Flags().BoolVar(&modelsCheck, "check", false, "Only verify endpoint connectivity")
}

func runModels(cmd *cobra.Command, args []string) error {
	client := newLLMClient()
	defer client.Close()

	if modelsCheck {
		if err := client.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("endpoint check failed: %w", err)
		}
		fmt.Println("Endpoint reachable, API key accepted")
		return nil
	}

	models, err := client.Models(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	// Output JSON if requested
	if modelsJSON {
		output, err := json.MarshalIndent(models, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	// Output Toon if requested
	if modelsToon {
		output, err := gotoon.Encode(models)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	fmt.Printf("Found %d model(s) at %s:\n\n", len(models), config.BaseURL())
	for _, m := range models {
		if m.Name != "" && m.Name != m.ID {
			fmt.Printf("  %s  (%s)\n", m.ID, m.Name)
		} else {
			fmt.Printf("  %s\n", m.ID)
		}
	}
	return nil
}
