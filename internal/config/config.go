package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Model returns the completion model identifier.
func Model() string {
	return viper.GetString("llm.model")
}

// BaseURL returns the chat-completions endpoint base URL.
func BaseURL() string {
	return viper.GetString("llm.base_url")
}

// APIKey returns the bearer credential for the completion service.
// A local .env file is honored so the key never lives in config files.
func APIKey() string {
	_ = godotenv.Load()
	if key := os.Getenv("REPOLENS_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("OPENROUTER_API_KEY")
}

// MaxTokens returns the generation token ceiling per request.
func MaxTokens() int {
	return viper.GetInt("llm.max_tokens")
}

// Temperature returns the generation temperature.
func Temperature() float64 {
	return viper.GetFloat64("llm.temperature")
}

// RequestTimeout returns the per-call gateway timeout.
func RequestTimeout() time.Duration {
	return time.Duration(viper.GetInt("llm.timeout_seconds")) * time.Second
}

// MaxAttempts returns the retry ceiling for transient gateway failures.
func MaxAttempts() int {
	return viper.GetInt("llm.max_attempts")
}

// RequestsPerSecond returns the gateway rate-limit spacing.
func RequestsPerSecond() float64 {
	return viper.GetFloat64("llm.requests_per_second")
}

// CacheEnabled reports whether gateway responses are cached.
func CacheEnabled() bool {
	return viper.GetBool("cache.enabled")
}

// CacheTTL returns how long a cached response stays fresh.
func CacheTTL() time.Duration {
	return time.Duration(viper.GetInt("cache.ttl_seconds")) * time.Second
}

// MaxFiles returns the traversal retention cap.
func MaxFiles() int {
	return viper.GetInt("extract.max_files")
}

// MaxFileSizeBytes returns the per-file size cap.
func MaxFileSizeBytes() int64 {
	return int64(viper.GetInt("extract.max_file_size_mb")) * 1024 * 1024
}

// MaxContextChars returns the corpus context budget.
func MaxContextChars() int {
	return viper.GetInt("corpus.max_context_chars")
}

// PerFileExcerptChars returns the per-record excerpt cap inside the context.
func PerFileExcerptChars() int {
	return viper.GetInt("corpus.per_file_excerpt_chars")
}

// StagingDir returns the root under which working trees are created.
func StagingDir() string {
	return viper.GetString("acquire.staging_dir")
}

// MaxRepoSizeBytes returns the acquisition size ceiling.
func MaxRepoSizeBytes() int64 {
	return int64(viper.GetInt("acquire.max_repo_size_mb")) * 1024 * 1024
}

// CloneTimeout returns the acquisition wall-clock timeout.
func CloneTimeout() time.Duration {
	return time.Duration(viper.GetInt("acquire.clone_timeout_seconds")) * time.Second
}

// AnalysisTimeout returns the overall run ceiling.
func AnalysisTimeout() time.Duration {
	return time.Duration(viper.GetInt("analysis.timeout_minutes")) * time.Minute
}

// SummarizeConcurrency returns the per-file summarization fan-out limit.
func SummarizeConcurrency() int {
	return viper.GetInt("summarize.concurrency")
}

// GetEmbeddingsEnabled reports whether semantic relevance scoring is enabled.
func GetEmbeddingsEnabled() bool {
	return viper.GetBool("embeddings.enabled")
}

// GetEmbeddingModel returns the Ollama embedding model name.
func GetEmbeddingModel() string {
	return viper.GetString("embeddings.model")
}

// GetOllamaURL returns the Ollama API endpoint.
func GetOllamaURL() string {
	return viper.GetString("embeddings.ollama_url")
}

// GetKeywordWeight returns the keyword share of the hybrid relevance score.
func GetKeywordWeight() float64 {
	return viper.GetFloat64("search.keyword_weight")
}

// GetSemanticWeight returns the semantic share of the hybrid relevance score.
func GetSemanticWeight() float64 {
	return viper.GetFloat64("search.semantic_weight")
}

// LogLevel returns the slog level name ("debug", "info", "warn", "error").
func LogLevel() string {
	return viper.GetString("log.level")
}
