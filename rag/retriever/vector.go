package retriever

import (
	"context"
	"errors"
	"fmt"

	"github.com/aqua777/indexquery/embedding"
	"github.com/aqua777/indexquery/rag/store"
	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/storage/docstore"
)

// DefaultTopK is the number of nodes retrieved when none is configured.
const DefaultTopK = 2

// VectorRetriever retrieves relevant nodes using a vector store and embedding model.
type VectorRetriever struct {
	// VectorStore is the vector store to query.
	VectorStore store.VectorStore
	// EmbeddingModel is the model used to embed queries.
	EmbeddingModel embedding.EmbeddingModel
	// TopK is the number of results to return.
	TopK int
	// DocStore, when set, replaces store hits with the full stored nodes.
	DocStore docstore.DocStore
	// NodeIDs maps vector store IDs to docstore IDs. Missing entries map to themselves.
	NodeIDs map[string]string
}

// VectorRetrieverOption is a functional option for VectorRetriever.
type VectorRetrieverOption func(*VectorRetriever)

// WithTopK sets the number of results to return.
func WithTopK(topK int) VectorRetrieverOption {
	return func(vr *VectorRetriever) {
		if topK > 0 {
			vr.TopK = topK
		}
	}
}

// WithDocStore resolves store hits through ds.
func WithDocStore(ds docstore.DocStore, nodeIDs map[string]string) VectorRetrieverOption {
	return func(vr *VectorRetriever) {
		vr.DocStore = ds
		vr.NodeIDs = nodeIDs
	}
}

// NewVectorRetriever creates a new VectorRetriever.
func NewVectorRetriever(
	vectorStore store.VectorStore,
	embeddingModel embedding.EmbeddingModel,
	opts ...VectorRetrieverOption,
) *VectorRetriever {
	vr := &VectorRetriever{
		VectorStore:    vectorStore,
		EmbeddingModel: embeddingModel,
		TopK:           DefaultTopK,
	}
	for _, opt := range opts {
		opt(vr)
	}
	return vr
}

// Retrieve retrieves nodes from the vector store.
func (vr *VectorRetriever) Retrieve(ctx context.Context, query schema.QueryBundle) ([]schema.NodeWithScore, error) {
	queryEmbedding, err := vr.EmbeddingModel.GetQueryEmbedding(ctx, query.QueryString)
	if err != nil {
		return nil, fmt.Errorf("failed to get query embedding: %w", err)
	}

	hits, err := vr.VectorStore.Query(ctx, schema.NewVectorStoreQuery(queryEmbedding, vr.TopK))
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}
	if vr.DocStore == nil {
		return hits, nil
	}

	out := make([]schema.NodeWithScore, 0, len(hits))
	for _, hit := range hits {
		id := hit.Node.ID
		if mapped, ok := vr.NodeIDs[id]; ok {
			id = mapped
		}
		node, err := vr.DocStore.GetNode(ctx, id)
		switch {
		case errors.Is(err, docstore.ErrNodeNotFound):
			// keep what the vector store knows
			out = append(out, hit)
		case err != nil:
			return nil, err
		default:
			out = append(out, schema.NodeWithScore{Node: node, Score: hit.Score})
		}
	}
	return out, nil
}

var _ Retriever = (*VectorRetriever)(nil)
