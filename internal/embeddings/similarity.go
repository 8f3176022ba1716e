// Package embeddings holds vector math for semantic scoring.
package embeddings

import (
	"fmt"
	"math"
)

// CosineSimilarity computes the cosine of the angle between two vectors.
// Returns a value in [-1, 1] where 1 means identical direction.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensions mismatch: %d != %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vectors cannot be empty")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("vector magnitude is zero")
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
