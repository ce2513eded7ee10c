// Package storage groups the document, index and vector stores of one index
// and moves them to and from a persist directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/aqua777/indexquery/rag/store"
	"github.com/aqua777/indexquery/rag/store/chromem"
	"github.com/aqua777/indexquery/storage/docstore"
	"github.com/aqua777/indexquery/storage/indexstore"
)

const (
	// DocStoreFilename is the file the document store persists to.
	DocStoreFilename = docstore.DefaultPersistFilename
	// IndexStoreFilename is the file the index store persists to.
	IndexStoreFilename = indexstore.DefaultPersistFilename
)

// StorageContext is a unified container for the stores of one index.
type StorageContext struct {
	// DocStore stores text nodes and their source document bookkeeping.
	DocStore docstore.DocStore
	// IndexStore stores index structures.
	IndexStore indexstore.IndexStore
	// VectorStore stores node embeddings.
	VectorStore store.VectorStore
}

// NewStorageContext creates an in-memory StorageContext around vs.
// A nil vs gets a SimpleVectorStore.
func NewStorageContext(vs store.VectorStore) *StorageContext {
	if vs == nil {
		vs = store.NewSimpleVectorStore()
	}
	return &StorageContext{
		DocStore:    docstore.NewSimpleDocumentStore(),
		IndexStore:  indexstore.NewSimpleIndexStore(),
		VectorStore: vs,
	}
}

// NewStorageContextForDir creates an empty StorageContext whose vector store
// of the given kind will live in dir.
func NewStorageContextForDir(dir string, kind store.Kind) (*StorageContext, error) {
	vs, err := newVectorStore(dir, kind, false)
	if err != nil {
		return nil, err
	}
	return NewStorageContext(vs), nil
}

func newVectorStore(dir string, kind store.Kind, load bool) (store.VectorStore, error) {
	switch kind {
	case store.KindChromem, "":
		return chromem.NewChromemStore(dir, chromem.DefaultCollection)
	case store.KindSimple:
		if load {
			return store.LoadSimpleVectorStore(dir)
		}
		return store.NewSimpleVectorStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector store kind %q", kind)
	}
}

// FromPersistDir loads a StorageContext written by Persist.
// The directory contents are not validated beyond what decoding requires.
func FromPersistDir(ctx context.Context, dir string, kind store.Kind) (*StorageContext, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("failed to open persist dir: %w", err)
	}

	ds, err := docstore.LoadSimpleDocumentStore(ctx, filepath.Join(dir, DocStoreFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to load docstore: %w", err)
	}
	is, err := indexstore.LoadSimpleIndexStore(ctx, filepath.Join(dir, IndexStoreFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to load index store: %w", err)
	}
	vs, err := newVectorStore(dir, kind, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load vector store: %w", err)
	}

	return &StorageContext{DocStore: ds, IndexStore: is, VectorStore: vs}, nil
}

type persister interface {
	Persist(ctx context.Context, path string) error
}

// Persist writes the stores to dir. Stores that write through on every
// change are skipped.
func (sc *StorageContext) Persist(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if p, ok := sc.DocStore.(persister); ok {
		if err := p.Persist(ctx, filepath.Join(dir, DocStoreFilename)); err != nil {
			return fmt.Errorf("failed to persist docstore: %w", err)
		}
	}
	if p, ok := sc.IndexStore.(persister); ok {
		if err := p.Persist(ctx, filepath.Join(dir, IndexStoreFilename)); err != nil {
			return fmt.Errorf("failed to persist index store: %w", err)
		}
	}
	if p, ok := sc.VectorStore.(store.Persister); ok {
		if err := p.Persist(ctx, dir); err != nil {
			return fmt.Errorf("failed to persist vector store: %w", err)
		}
	}
	return nil
}

// BuildFunc fills a fresh StorageContext.
type BuildFunc func(ctx context.Context, sc *StorageContext) error

// BuildAndPersist runs build against a StorageContext staged in a sibling
// directory of dir, persists it there and renames it to dir. A failed build
// leaves nothing at dir. It fails if dir already exists.
func BuildAndPersist(ctx context.Context, dir string, kind store.Kind, build BuildFunc) (*StorageContext, error) {
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("persist dir %s already exists", dir)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, err
	}
	staging := filepath.Join(parent, "."+filepath.Base(dir)+".staging-"+uuid.NewString())

	sc, err := NewStorageContextForDir(staging, kind)
	if err != nil {
		os.RemoveAll(staging)
		return nil, err
	}

	if err := build(ctx, sc); err != nil {
		os.RemoveAll(staging)
		return nil, err
	}
	if err := sc.Persist(ctx, staging); err != nil {
		os.RemoveAll(staging)
		return nil, err
	}
	if err := os.Rename(staging, dir); err != nil {
		os.RemoveAll(staging)
		return nil, fmt.Errorf("failed to move %s into place: %w", dir, err)
	}
	return sc, nil
}
