package cmd

import (
	"context"
	"fmt"

	"github.com/pders01/repolens/internal/config"
	"github.com/pders01/repolens/internal/corpus"
	"github.com/pders01/repolens/internal/extract"
	"github.com/pders01/repolens/internal/llm"
	"github.com/pders01/repolens/internal/models"
	"github.com/pders01/repolens/internal/ollama"
	"github.com/pders01/repolens/internal/qa"
	"github.com/pders01/repolens/internal/source"
)

// newLLMClient assembles the completion client from configuration.
func newLLMClient() *llm.Client {
	var cache *llm.Cache
	if config.CacheEnabled() {
		cache = llm.NewCache(256, config.CacheTTL())
	}
	return llm.NewClient(llm.Options{
		BaseURL:           config.BaseURL(),
		APIKey:            config.APIKey(),
		Model:             config.Model(),
		MaxTokens:         config.MaxTokens(),
		Temperature:       config.Temperature(),
		Timeout:           config.RequestTimeout(),
		MaxAttempts:       config.MaxAttempts(),
		RequestsPerSecond: config.RequestsPerSecond(),
		Cache:             cache,
	})
}

// buildCorpus runs acquisition, extraction, and assembly for one locator.
// The working tree is removed before returning.
func buildCorpus(ctx context.Context, rawURL, ref, token string) (*models.Corpus, error) {
	repo, err := source.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	repo.Ref = ref
	repo.Token = token

	tree, err := source.Acquire(ctx, repo, config.StagingDir(), source.Limits{
		MaxRepoSizeBytes: config.MaxRepoSizeBytes(),
		CloneTimeout:     config.CloneTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire repository: %w", err)
	}
	defer tree.Remove()

	records, stats := extract.Extract(tree, extract.Filters{
		MaxFileSizeBytes: config.MaxFileSizeBytes(),
		MaxFiles:         config.MaxFiles(),
		MaxExcerptBytes:  config.PerFileExcerptChars() * 2,
	})
	if len(records) == 0 {
		return nil, fmt.Errorf("no analyzable files found in %s", repo.FullName())
	}

	c := corpus.Assemble(records, stats, tree.Info(), corpus.Budget{
		MaxContextChars:     config.MaxContextChars(),
		PerFileExcerptChars: config.PerFileExcerptChars(),
	})
	return c, nil
}

// buildScorer picks hybrid scoring when embeddings are enabled and the
// Ollama endpoint responds, keyword matching otherwise.
func buildScorer() qa.Scorer {
	if config.GetEmbeddingsEnabled() && ollama.IsAvailable(config.GetOllamaURL()) {
		client, err := ollama.NewClient(config.GetOllamaURL(), config.GetEmbeddingModel())
		if err == nil {
			fmt.Println("Using hybrid search (keyword + semantic)")
			return &qa.EmbeddingScorer{
				Client:         client,
				KeywordWeight:  config.GetKeywordWeight(),
				SemanticWeight: config.GetSemanticWeight(),
			}
		}
	}
	return qa.LexicalScorer{}
}
