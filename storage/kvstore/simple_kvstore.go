package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DataType maps collection names to their key-value pairs.
type DataType map[string]map[string]json.RawMessage

// SimpleKVStore is an in-memory key-value store that can be written to a
// single JSON file. It is safe for concurrent use.
type SimpleKVStore struct {
	mu   sync.RWMutex
	data DataType
}

// NewSimpleKVStore creates a new SimpleKVStore.
func NewSimpleKVStore() *SimpleKVStore {
	return &SimpleKVStore{data: make(DataType)}
}

// LoadSimpleKVStore reads a store written by Persist. A missing file
// yields an empty store.
func LoadSimpleKVStore(ctx context.Context, persistPath string) (*SimpleKVStore, error) {
	s := NewSimpleKVStore()

	b, err := os.ReadFile(persistPath)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s.data); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", persistPath, err)
	}
	if s.data == nil {
		s.data = make(DataType)
	}
	return s, nil
}

func collectionOrDefault(collection string) string {
	if collection == "" {
		return DefaultCollection
	}
	return collection
}

// Put stores a key-value pair in the specified collection.
func (s *SimpleKVStore) Put(ctx context.Context, collection, key string, val json.RawMessage) error {
	collection = collectionOrDefault(collection)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[collection]; !ok {
		s.data[collection] = make(map[string]json.RawMessage)
	}
	s.data[collection][key] = bytes.Clone(val)
	return nil
}

// Get retrieves a value by key from the specified collection.
func (s *SimpleKVStore) Get(ctx context.Context, collection, key string) (json.RawMessage, bool, error) {
	collection = collectionOrDefault(collection)

	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[collection][key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(val), true, nil
}

// GetAll retrieves all key-value pairs from the specified collection.
func (s *SimpleKVStore) GetAll(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	collection = collectionOrDefault(collection)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]json.RawMessage, len(s.data[collection]))
	for k, v := range s.data[collection] {
		result[k] = bytes.Clone(v)
	}
	return result, nil
}

// Delete removes a key-value pair from the specified collection.
func (s *SimpleKVStore) Delete(ctx context.Context, collection, key string) (bool, error) {
	collection = collectionOrDefault(collection)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[collection][key]; !ok {
		return false, nil
	}
	delete(s.data[collection], key)
	return true, nil
}

// Persist writes the store to persistPath, creating parent directories.
// The file is replaced in one rename so readers never see a partial write.
func (s *SimpleKVStore) Persist(ctx context.Context, persistPath string) error {
	s.mu.RLock()
	b, err := json.Marshal(s.data)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(persistPath), 0o755); err != nil {
		return err
	}
	tmp := persistPath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, persistPath)
}

// Len returns the number of keys in a collection.
func (s *SimpleKVStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[collectionOrDefault(collection)])
}

var (
	_ KVStore            = (*SimpleKVStore)(nil)
	_ PersistableKVStore = (*SimpleKVStore)(nil)
)
