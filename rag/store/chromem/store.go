// Package chromem adapts chromem-go as a persistent vector store.
package chromem

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/philippgille/chromem-go"

	"github.com/aqua777/indexquery/rag/store"
	"github.com/aqua777/indexquery/schema"
)

const (
	// DefaultCollection is the collection every group index writes to.
	DefaultCollection = "nodes"
	// Dir is the subdirectory of a persist dir that holds the database.
	Dir = "chromem"

	metaRefDocID = "ref_doc_id"
)

// ChromemStore is a vector store implementation using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemStore creates a new ChromemStore. An empty persistDir keeps the
// store in memory; otherwise the database lives in persistDir/chromem and
// every Add is written through to disk.
func NewChromemStore(persistDir string, collectionName string) (*ChromemStore, error) {
	if collectionName == "" {
		collectionName = DefaultCollection
	}

	var db *chromem.DB
	if persistDir != "" {
		var err error
		db, err = chromem.NewPersistentDB(filepath.Join(persistDir, Dir), false)
		if err != nil {
			return nil, fmt.Errorf("failed to create persistent chromem db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	// embeddings are computed upstream, so no embedding func
	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection: %w", err)
	}

	return &ChromemStore{db: db, collection: collection}, nil
}

// Add adds nodes to the store.
func (s *ChromemStore) Add(ctx context.Context, nodes []schema.Node) ([]string, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	docs := make([]chromem.Document, len(nodes))
	ids := make([]string, len(nodes))
	for i, node := range nodes {
		if len(node.Embedding) == 0 {
			return nil, fmt.Errorf("node %s has no embedding", node.ID)
		}

		embedding32 := make([]float32, len(node.Embedding))
		for j, v := range node.Embedding {
			embedding32[j] = float32(v)
		}

		docs[i] = chromem.Document{
			ID:        node.ID,
			Content:   node.Text,
			Metadata:  map[string]string{metaRefDocID: node.RefDocID},
			Embedding: embedding32,
		}
		ids[i] = node.ID
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("failed to add documents to chromem collection: %w", err)
	}
	return ids, nil
}

// Query finds the top-k most similar nodes to the query embedding.
func (s *ChromemStore) Query(ctx context.Context, query schema.VectorStoreQuery) ([]schema.NodeWithScore, error) {
	n := query.TopK
	if count := s.collection.Count(); n > count {
		// chromem rejects nResults above the collection size
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	queryEmbedding32 := make([]float32, len(query.Embedding))
	for i, v := range query.Embedding {
		queryEmbedding32[i] = float32(v)
	}

	res, err := s.collection.QueryEmbedding(ctx, queryEmbedding32, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromem collection: %w", err)
	}

	out := make([]schema.NodeWithScore, len(res))
	for i, doc := range res {
		out[i] = schema.NodeWithScore{
			Node: schema.Node{
				ID:       doc.ID,
				Text:     doc.Content,
				Type:     schema.ObjectTypeText,
				RefDocID: doc.Metadata[metaRefDocID],
			},
			Score: float64(doc.Similarity),
		}
	}
	return out, nil
}

// Delete removes every node that came from refDocID.
func (s *ChromemStore) Delete(ctx context.Context, refDocID string) error {
	if err := s.collection.Delete(ctx, map[string]string{metaRefDocID: refDocID}, nil); err != nil {
		return fmt.Errorf("failed to delete from chromem collection: %w", err)
	}
	return nil
}

// Count returns the number of stored nodes.
func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

var _ store.VectorStore = (*ChromemStore)(nil)
