package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/repolens/internal/config"
	"github.com/pders01/repolens/internal/source"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove all staged working trees",
	Long: `Cleanup removes every cloned working tree under the staging directory.

Normal runs clean up after themselves; this recovers the space left by
interrupted ones.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	staging := config.StagingDir()
	if err := source.CleanupStaging(staging); err != nil {
		return err
	}
	fmt.Printf("Cleaned staging directory %s\n", staging)
	return nil
}
