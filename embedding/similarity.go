package embedding

import (
	"fmt"
	"math"
	"sort"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have same length: %d != %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vectors must not be empty")
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("vectors must not be zero vectors")
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// TopKSimilar finds the top K most similar vectors to a query vector by
// cosine similarity. Ties keep their input order.
func TopKSimilar(query []float64, vectors [][]float64, k int) ([]int, []float64, error) {
	if k <= 0 {
		return nil, nil, fmt.Errorf("k must be positive")
	}
	if len(vectors) == 0 {
		return nil, nil, nil
	}
	if k > len(vectors) {
		k = len(vectors)
	}

	type scoredIndex struct {
		index int
		score float64
	}
	scores := make([]scoredIndex, len(vectors))
	for i, v := range vectors {
		sim, err := CosineSimilarity(query, v)
		if err != nil {
			return nil, nil, fmt.Errorf("error computing similarity for vector %d: %w", i, err)
		}
		scores[i] = scoredIndex{index: i, score: sim}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	indices := make([]int, k)
	similarities := make([]float64, k)
	for i := 0; i < k; i++ {
		indices[i] = scores[i].index
		similarities[i] = scores[i].score
	}
	return indices, similarities, nil
}
