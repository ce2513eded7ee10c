package indexstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aqua777/indexquery/storage/kvstore"
)

const collectionSuffix = "/data"

// KVIndexStore is an index store backed by a KVStore.
type KVIndexStore struct {
	kvstore    kvstore.KVStore
	namespace  string
	collection string
}

// KVIndexStoreOption is a functional option for KVIndexStore.
type KVIndexStoreOption func(*KVIndexStore)

// WithIndexStoreNamespace sets the namespace for the index store.
func WithIndexStoreNamespace(namespace string) KVIndexStoreOption {
	return func(s *KVIndexStore) {
		s.namespace = namespace
	}
}

// NewKVIndexStore creates a new KVIndexStore.
func NewKVIndexStore(kv kvstore.KVStore, opts ...KVIndexStoreOption) *KVIndexStore {
	store := &KVIndexStore{
		kvstore:   kv,
		namespace: DefaultNamespace,
	}
	for _, opt := range opts {
		opt(store)
	}
	store.collection = store.namespace + collectionSuffix
	return store
}

// AddIndexStruct adds an index struct to the store.
func (s *KVIndexStore) AddIndexStruct(ctx context.Context, indexStruct *IndexStruct) error {
	if indexStruct.IndexID == "" {
		return fmt.Errorf("index id not set")
	}
	return kvstore.PutJSON(ctx, s.kvstore, s.collection, indexStruct.IndexID, indexStruct)
}

// DeleteIndexStruct removes an index struct from the store.
func (s *KVIndexStore) DeleteIndexStruct(ctx context.Context, indexID string) error {
	_, err := s.kvstore.Delete(ctx, s.collection, indexID)
	return err
}

// GetIndexStruct retrieves an index struct by ID.
func (s *KVIndexStore) GetIndexStruct(ctx context.Context, indexID string) (*IndexStruct, error) {
	if indexID == "" {
		structs, err := s.IndexStructs(ctx)
		if err != nil {
			return nil, err
		}
		switch len(structs) {
		case 0:
			return nil, ErrIndexStructNotFound
		case 1:
			return structs[0], nil
		default:
			return nil, ErrMultipleIndexStructs
		}
	}

	is, ok, err := kvstore.GetJSON[*IndexStruct](ctx, s.kvstore, s.collection, indexID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexStructNotFound, indexID)
	}
	return is, nil
}

// IndexStructs returns all index structs ordered by ID.
func (s *KVIndexStore) IndexStructs(ctx context.Context) ([]*IndexStruct, error) {
	raw, err := s.kvstore.GetAll(ctx, s.collection)
	if err != nil {
		return nil, err
	}

	structs := make([]*IndexStruct, 0, len(raw))
	for id, b := range raw {
		var is IndexStruct
		if err := json.Unmarshal(b, &is); err != nil {
			return nil, fmt.Errorf("failed to decode index struct %s: %w", id, err)
		}
		structs = append(structs, &is)
	}
	sort.Slice(structs, func(i, j int) bool { return structs[i].IndexID < structs[j].IndexID })
	return structs, nil
}

// GetIndexStructByType returns the first index struct of the given type.
func (s *KVIndexStore) GetIndexStructByType(ctx context.Context, structType IndexStructType) (*IndexStruct, error) {
	structs, err := s.IndexStructs(ctx)
	if err != nil {
		return nil, err
	}
	for _, is := range structs {
		if is.Type == structType {
			return is, nil
		}
	}
	return nil, fmt.Errorf("%w: type %s", ErrIndexStructNotFound, structType)
}

var _ IndexStore = (*KVIndexStore)(nil)
