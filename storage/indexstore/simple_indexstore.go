package indexstore

import (
	"context"

	"github.com/aqua777/indexquery/storage/kvstore"
)

// DefaultPersistFilename is the file a persist dir keeps index structs in.
const DefaultPersistFilename = "index_store.json"

// SimpleIndexStore is an in-memory index store that persists to one JSON file.
type SimpleIndexStore struct {
	*KVIndexStore
	kvstore *kvstore.SimpleKVStore
}

// NewSimpleIndexStore creates a new SimpleIndexStore.
func NewSimpleIndexStore(opts ...KVIndexStoreOption) *SimpleIndexStore {
	kv := kvstore.NewSimpleKVStore()
	return &SimpleIndexStore{KVIndexStore: NewKVIndexStore(kv, opts...), kvstore: kv}
}

// LoadSimpleIndexStore reads a store written by Persist. A missing file
// yields an empty store.
func LoadSimpleIndexStore(ctx context.Context, persistPath string, opts ...KVIndexStoreOption) (*SimpleIndexStore, error) {
	kv, err := kvstore.LoadSimpleKVStore(ctx, persistPath)
	if err != nil {
		return nil, err
	}
	return &SimpleIndexStore{KVIndexStore: NewKVIndexStore(kv, opts...), kvstore: kv}, nil
}

// Persist saves the index store to persistPath.
func (s *SimpleIndexStore) Persist(ctx context.Context, persistPath string) error {
	return s.kvstore.Persist(ctx, persistPath)
}

var _ IndexStore = (*SimpleIndexStore)(nil)
