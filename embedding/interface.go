// Package embedding turns text into dense vectors for indexing and retrieval.
package embedding

import "context"

// EmbeddingModel is the interface for generating text embeddings.
type EmbeddingModel interface {
	// GetTextEmbedding generates an embedding for a chunk of indexed text.
	GetTextEmbedding(ctx context.Context, text string) ([]float64, error)
	// GetQueryEmbedding generates an embedding for a user query.
	GetQueryEmbedding(ctx context.Context, query string) ([]float64, error)
}

// EmbeddingModelWithBatch extends EmbeddingModel with batch processing.
type EmbeddingModelWithBatch interface {
	EmbeddingModel
	// GetTextEmbeddingsBatch generates embeddings for multiple texts.
	// The callback is optional and can be used to track progress.
	GetTextEmbeddingsBatch(ctx context.Context, texts []string, callback ProgressCallback) ([][]float64, error)
}

// ProgressCallback is called during batch operations to report progress.
// current is the number of items processed, total is the total number of items.
type ProgressCallback func(current, total int)

// GetTextEmbeddings embeds texts with the batch API when the model has one
// and one call per text otherwise.
func GetTextEmbeddings(ctx context.Context, model EmbeddingModel, texts []string, callback ProgressCallback) ([][]float64, error) {
	if batcher, ok := model.(EmbeddingModelWithBatch); ok {
		return batcher.GetTextEmbeddingsBatch(ctx, texts, callback)
	}

	out := make([][]float64, len(texts))
	for i, text := range texts {
		emb, err := model.GetTextEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
		if callback != nil {
			callback(i+1, len(texts))
		}
	}
	return out, nil
}
