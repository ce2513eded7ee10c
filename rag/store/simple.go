package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aqua777/indexquery/embedding"
	"github.com/aqua777/indexquery/schema"
)

// SimpleVectorStoreFile is the file the simple store persists to.
const SimpleVectorStoreFile = "vector_store.json"

// simpleData is the persisted layout.
type simpleData struct {
	EmbeddingDict  map[string][]float64 `json:"embedding_dict"`
	TextIDToRefDoc map[string]string    `json:"text_id_to_ref_doc_id"`
}

// SimpleVectorStore is an in-memory vector store persisted as one JSON file.
type SimpleVectorStore struct {
	mu   sync.RWMutex
	data simpleData
}

// NewSimpleVectorStore creates a new SimpleVectorStore.
func NewSimpleVectorStore() *SimpleVectorStore {
	return &SimpleVectorStore{
		data: simpleData{
			EmbeddingDict:  make(map[string][]float64),
			TextIDToRefDoc: make(map[string]string),
		},
	}
}

// LoadSimpleVectorStore reads vector_store.json from dir.
func LoadSimpleVectorStore(dir string) (*SimpleVectorStore, error) {
	path := filepath.Join(dir, SimpleVectorStoreFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vector store %s: %w", path, err)
	}

	s := NewSimpleVectorStore()
	if err := json.Unmarshal(b, &s.data); err != nil {
		return nil, fmt.Errorf("failed to decode vector store %s: %w", path, err)
	}
	if s.data.EmbeddingDict == nil {
		s.data.EmbeddingDict = make(map[string][]float64)
	}
	if s.data.TextIDToRefDoc == nil {
		s.data.TextIDToRefDoc = make(map[string]string)
	}
	return s, nil
}

func (s *SimpleVectorStore) Add(ctx context.Context, nodes []schema.Node) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if node.ID == "" {
			return nil, errors.New("node ID cannot be empty")
		}
		if len(node.Embedding) == 0 {
			return nil, fmt.Errorf("node %s has no embedding", node.ID)
		}
		s.data.EmbeddingDict[node.ID] = node.Embedding
		s.data.TextIDToRefDoc[node.ID] = node.RefDocID
		ids = append(ids, node.ID)
	}
	return ids, nil
}

func (s *SimpleVectorStore) Query(ctx context.Context, query schema.VectorStoreQuery) ([]schema.NodeWithScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data.EmbeddingDict) == 0 || query.TopK <= 0 {
		return nil, nil
	}

	// stable id order keeps ties deterministic
	ids := make([]string, 0, len(s.data.EmbeddingDict))
	for id := range s.data.EmbeddingDict {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	vectors := make([][]float64, len(ids))
	for i, id := range ids {
		vectors[i] = s.data.EmbeddingDict[id]
	}

	idx, scores, err := embedding.TopKSimilar(query.Embedding, vectors, query.TopK)
	if err != nil {
		return nil, fmt.Errorf("failed to rank vectors: %w", err)
	}

	out := make([]schema.NodeWithScore, len(idx))
	for i, j := range idx {
		out[i] = schema.NodeWithScore{
			Node:  schema.Node{ID: ids[j], RefDocID: s.data.TextIDToRefDoc[ids[j]]},
			Score: scores[i],
		}
	}
	return out, nil
}

// Delete removes every node that came from refDocID.
func (s *SimpleVectorStore) Delete(ctx context.Context, refDocID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ref := range s.data.TextIDToRefDoc {
		if ref == refDocID {
			delete(s.data.EmbeddingDict, id)
			delete(s.data.TextIDToRefDoc, id)
		}
	}
	return nil
}

// Len returns the number of stored vectors.
func (s *SimpleVectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.EmbeddingDict)
}

// Persist writes vector_store.json into dir.
func (s *SimpleVectorStore) Persist(ctx context.Context, dir string) error {
	s.mu.RLock()
	b, err := json.Marshal(s.data)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode vector store: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, SimpleVectorStoreFile)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write vector store %s: %w", path, err)
	}
	return nil
}

var (
	_ VectorStore = (*SimpleVectorStore)(nil)
	_ Persister   = (*SimpleVectorStore)(nil)
)
