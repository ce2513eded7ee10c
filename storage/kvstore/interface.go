// Package kvstore provides the key-value layer under the document and index stores.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// DefaultCollection is used when a caller passes an empty collection name.
const DefaultCollection = "data"

// KVStore holds JSON values grouped into named collections.
type KVStore interface {
	// Put stores val under key in collection, replacing any previous value.
	Put(ctx context.Context, collection, key string, val json.RawMessage) error

	// Get retrieves a value. The bool is false if the key does not exist.
	Get(ctx context.Context, collection, key string) (json.RawMessage, bool, error)

	// GetAll retrieves every key-value pair of a collection.
	GetAll(ctx context.Context, collection string) (map[string]json.RawMessage, error)

	// Delete removes a key. It reports whether the key existed.
	Delete(ctx context.Context, collection, key string) (bool, error)
}

// PersistableKVStore extends KVStore with persistence capabilities.
type PersistableKVStore interface {
	KVStore

	// Persist saves the store to the specified file.
	Persist(ctx context.Context, persistPath string) error
}

// PutJSON encodes v and stores it under key.
func PutJSON[T any](ctx context.Context, kv KVStore, collection, key string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, key, err)
	}
	return kv.Put(ctx, collection, key, b)
}

// GetJSON loads key and decodes it into a T.
func GetJSON[T any](ctx context.Context, kv KVStore, collection, key string) (T, bool, error) {
	var v T
	raw, ok, err := kv.Get(ctx, collection, key)
	if err != nil || !ok {
		return v, ok, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("failed to decode %s/%s: %w", collection, key, err)
	}
	return v, true, nil
}
