package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// MockEmbeddingModel is a mock implementation of the EmbeddingModel interface.
// With Embedding set it returns that vector for every input. Otherwise it
// hashes each word of the input into one of Dims buckets, so texts sharing
// words land close together.
type MockEmbeddingModel struct {
	Embedding []float64
	Dims      int
	Err       error
}

func (m *MockEmbeddingModel) GetTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	return m.embed(text)
}

func (m *MockEmbeddingModel) GetQueryEmbedding(ctx context.Context, query string) ([]float64, error) {
	return m.embed(query)
}

func (m *MockEmbeddingModel) embed(text string) ([]float64, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Embedding != nil {
		return m.Embedding, nil
	}

	dims := m.Dims
	if dims <= 0 {
		dims = 32
	}
	vec := make([]float64, dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(dims)]++
	}
	// keep empty input away from the zero vector
	vec[0] += 0.01
	return vec, nil
}
