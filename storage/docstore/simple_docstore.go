package docstore

import (
	"context"

	"github.com/aqua777/indexquery/storage/kvstore"
)

// DefaultPersistFilename is the file a persist dir keeps nodes in.
const DefaultPersistFilename = "docstore.json"

// SimpleDocumentStore is an in-memory document store that persists to one
// JSON file. It wraps a KVDocumentStore backed by a SimpleKVStore.
type SimpleDocumentStore struct {
	*KVDocumentStore
	kvstore *kvstore.SimpleKVStore
}

// NewSimpleDocumentStore creates a new SimpleDocumentStore.
func NewSimpleDocumentStore(opts ...KVDocumentStoreOption) *SimpleDocumentStore {
	return newSimpleDocumentStore(kvstore.NewSimpleKVStore(), opts...)
}

func newSimpleDocumentStore(kv *kvstore.SimpleKVStore, opts ...KVDocumentStoreOption) *SimpleDocumentStore {
	return &SimpleDocumentStore{
		KVDocumentStore: NewKVDocumentStore(kv, opts...),
		kvstore:         kv,
	}
}

// LoadSimpleDocumentStore reads a store written by Persist. A missing file
// yields an empty store.
func LoadSimpleDocumentStore(ctx context.Context, persistPath string, opts ...KVDocumentStoreOption) (*SimpleDocumentStore, error) {
	kv, err := kvstore.LoadSimpleKVStore(ctx, persistPath)
	if err != nil {
		return nil, err
	}
	return newSimpleDocumentStore(kv, opts...), nil
}

// Persist saves the document store to persistPath.
func (s *SimpleDocumentStore) Persist(ctx context.Context, persistPath string) error {
	return s.kvstore.Persist(ctx, persistPath)
}

// Len returns the number of stored nodes.
func (s *SimpleDocumentStore) Len() int {
	return s.kvstore.Len(s.nodeCollection)
}

var _ DocStore = (*SimpleDocumentStore)(nil)
