package qa

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pders01/repolens/internal/embeddings"
	"github.com/pders01/repolens/internal/models"
	"github.com/pders01/repolens/internal/ollama"
)

// Scorer rates how relevant each record is to a question. Scores are
// positionally aligned with records; higher is more relevant.
type Scorer interface {
	Scores(ctx context.Context, question string, records []models.FileRecord) ([]float64, error)
}

// LexicalScorer counts question-word occurrences in a record's path,
// declarations, and excerpt, with bonuses for path and name hits.
type LexicalScorer struct{}

func (LexicalScorer) Scores(_ context.Context, question string, records []models.FileRecord) ([]float64, error) {
	words := strings.Fields(strings.ToLower(question))
	scores := make([]float64, len(records))
	for i := range records {
		scores[i] = float64(lexicalScore(words, &records[i]))
	}
	return scores, nil
}

func lexicalScore(queryWords []string, r *models.FileRecord) int {
	score := 0
	path := strings.ToLower(r.Path)
	excerpt := strings.ToLower(r.Excerpt)

	var names strings.Builder
	for _, d := range r.Declarations {
		names.WriteString(strings.ToLower(d.Name))
		names.WriteString(" ")
		names.WriteString(strings.ToLower(d.Doc))
		names.WriteString(" ")
	}
	nameText := names.String()

	for _, word := range queryWords {
		if len(word) < 3 {
			continue
		}
		score += strings.Count(excerpt, word) * 10

		// Bonus points for matches in the path
		if strings.Contains(path, word) {
			score += 50
		}
		// Bonus points for declaration name and doc matches
		score += strings.Count(nameText, word) * 30
	}

	return score
}

// EmbeddingScorer blends lexical scores with cosine similarity between
// the question embedding and each record's excerpt embedding. When the
// embedding backend fails, it degrades to lexical only.
type EmbeddingScorer struct {
	Client         *ollama.Client
	KeywordWeight  float64
	SemanticWeight float64
}

func (s *EmbeddingScorer) Scores(ctx context.Context, question string, records []models.FileRecord) ([]float64, error) {
	lexical, _ := LexicalScorer{}.Scores(ctx, question, records)

	queryVec, err := s.Client.GenerateEmbedding(ctx, question)
	if err != nil {
		slog.Warn("semantic scoring unavailable, using keyword only", "error", err)
		return lexical, nil
	}

	scores := make([]float64, len(records))
	for i := range records {
		// Normalize keyword score to a 0-100 range
		keyword := lexical[i] / 2.0
		if keyword > 100 {
			keyword = 100
		}

		semantic := 0.0
		text := records[i].Path + "\n" + records[i].Excerpt
		recVec, err := s.Client.GenerateEmbedding(ctx, text)
		if err == nil {
			if sim, err := embeddings.CosineSimilarity(queryVec, recVec); err == nil {
				// Map similarity from [-1, 1] to [0, 100]
				semantic = (sim + 1) * 50
			}
		}

		scores[i] = s.KeywordWeight*keyword + s.SemanticWeight*semantic
	}
	return scores, nil
}
