package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "repolens",
	Short: "Analyze public repositories with LLM-backed summaries and Q&A",
	Long: `repolens fetches a public repository, extracts its structure into a
compact corpus, and uses an LLM to:
  - summarize each important file and the repository as a whole
  - answer free-form questions grounded in the extracted code

Repositories are cloned shallowly into a staging area and removed after
each run. Set REPOLENS_API_KEY (or OPENROUTER_API_KEY) for the LLM.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/repolens/config.toml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "repolens")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("llm.model", "anthropic/claude-3.5-haiku")
	viper.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("llm.max_tokens", 4000)
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.timeout_seconds", 60)
	viper.SetDefault("llm.max_attempts", 3)
	viper.SetDefault("llm.requests_per_second", 2.0)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl_seconds", 3600)
	viper.SetDefault("extract.max_files", 200)
	viper.SetDefault("extract.max_file_size_mb", 1)
	viper.SetDefault("corpus.max_context_chars", 48000)
	viper.SetDefault("corpus.per_file_excerpt_chars", 2000)
	viper.SetDefault("acquire.staging_dir", filepath.Join(os.TempDir(), "repolens"))
	viper.SetDefault("acquire.max_repo_size_mb", 500)
	viper.SetDefault("acquire.clone_timeout_seconds", 300)
	viper.SetDefault("analysis.timeout_minutes", 15)
	viper.SetDefault("summarize.concurrency", 4)
	viper.SetDefault("embeddings.enabled", false)
	viper.SetDefault("embeddings.model", "nomic-embed-text")
	viper.SetDefault("embeddings.ollama_url", "http://localhost:11434")
	viper.SetDefault("search.keyword_weight", 0.3)
	viper.SetDefault("search.semantic_weight", 0.7)
	viper.SetDefault("log.level", "warn")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func initLogging() {
	level := slog.LevelWarn
	switch viper.GetString("log.level") {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
