// Package docstore keeps the text nodes an index refers to by ID.
package docstore

import (
	"context"
	"errors"

	"github.com/aqua777/indexquery/schema"
)

// DefaultNamespace is the default namespace for document stores.
const DefaultNamespace = "docstore"

var (
	// ErrNodeNotFound is returned when a node ID is not in the store.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNodeExists is returned when adding a node that is already stored
	// without allowing updates.
	ErrNodeExists = errors.New("node already exists")
)

// RefDocInfo lists the nodes a source document was split into.
type RefDocInfo struct {
	NodeIDs  []string               `json:"node_ids"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// DocStore is the interface for document stores.
type DocStore interface {
	// AddNodes stores nodes. If allowUpdate is false, an existing ID is an error.
	AddNodes(ctx context.Context, nodes []schema.Node, allowUpdate bool) error

	// GetNode retrieves a node by ID, or ErrNodeNotFound.
	GetNode(ctx context.Context, nodeID string) (schema.Node, error)

	// NodeExists checks if a node exists in the store.
	NodeExists(ctx context.Context, nodeID string) (bool, error)

	// DeleteNode removes a node, or returns ErrNodeNotFound.
	DeleteNode(ctx context.Context, nodeID string) error

	// Nodes returns every stored node keyed by ID.
	Nodes(ctx context.Context) (map[string]schema.Node, error)

	// SetDocumentHash records the hash of a source document.
	SetDocumentHash(ctx context.Context, docID, hash string) error

	// GetDocumentHash returns the recorded hash, or "" if none.
	GetDocumentHash(ctx context.Context, docID string) (string, error)

	// GetRefDocInfo returns the node list of a source document, or nil.
	GetRefDocInfo(ctx context.Context, refDocID string) (*RefDocInfo, error)

	// DeleteRefDoc deletes a source document and all nodes split from it.
	DeleteRefDoc(ctx context.Context, refDocID string) error
}

// GetNodes retrieves nodes in the order of nodeIDs. Missing IDs fail the call.
func GetNodes(ctx context.Context, store DocStore, nodeIDs []string) ([]schema.Node, error) {
	nodes := make([]schema.Node, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		node, err := store.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}
