// Package store holds the vector stores that back a vector index.
package store

import (
	"context"

	"github.com/aqua777/indexquery/schema"
)

// VectorStore is the interface for storing and querying vectors.
type VectorStore interface {
	// Add adds embedded nodes to the store.
	Add(ctx context.Context, nodes []schema.Node) ([]string, error)
	// Query finds the top-k most similar nodes to the query embedding.
	// Returned nodes may carry only their ID; callers resolve full nodes
	// from the document store.
	Query(ctx context.Context, query schema.VectorStoreQuery) ([]schema.NodeWithScore, error)
	// Delete removes every node that came from refDocID.
	Delete(ctx context.Context, refDocID string) error
}

// Persister is implemented by stores that write themselves to a directory
// on demand. Stores that write through on every Add do not implement it.
type Persister interface {
	Persist(ctx context.Context, dir string) error
}

// Kind names a vector store backend.
type Kind string

const (
	KindSimple  Kind = "simple"
	KindChromem Kind = "chromem"
)
