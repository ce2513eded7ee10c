// Package indexstore persists the structures that describe each index.
package indexstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// DefaultNamespace is the default namespace for index stores.
const DefaultNamespace = "index_store"

// IndexStructType represents the type of index structure.
type IndexStructType string

const (
	// IndexStructTypeVectorStore is a vector index: node IDs live in the
	// vector store and the docstore.
	IndexStructTypeVectorStore IndexStructType = "vector_store"
	// IndexStructTypeList is an ordered list of node IDs.
	IndexStructTypeList IndexStructType = "list"
)

var (
	ErrSummaryNotSet        = errors.New("summary field not set")
	ErrMultipleIndexStructs = errors.New("multiple index structs found, specify an index id")
	ErrIndexStructNotFound  = errors.New("index struct not found")
)

// IndexStruct describes one index.
type IndexStruct struct {
	IndexID string          `json:"index_id"`
	Summary string          `json:"summary,omitempty"`
	Type    IndexStructType `json:"type"`

	// NodesDict maps vector store IDs to docstore node IDs.
	NodesDict map[string]string `json:"nodes_dict,omitempty"`

	// Nodes keeps list order.
	Nodes []string `json:"nodes,omitempty"`
}

// NewIndexStruct creates a new IndexStruct with a generated ID.
func NewIndexStruct(structType IndexStructType) *IndexStruct {
	return &IndexStruct{
		IndexID:   uuid.New().String(),
		Type:      structType,
		NodesDict: make(map[string]string),
	}
}

// NewVectorStoreIndex creates a new vector store index struct.
func NewVectorStoreIndex() *IndexStruct {
	return NewIndexStruct(IndexStructTypeVectorStore)
}

// NewListIndex creates a new list index struct.
func NewListIndex() *IndexStruct {
	return NewIndexStruct(IndexStructTypeList)
}

// GetSummary returns the summary, or ErrSummaryNotSet.
func (is *IndexStruct) GetSummary() (string, error) {
	if is.Summary == "" {
		return "", ErrSummaryNotSet
	}
	return is.Summary, nil
}

// AddNode records a node of a vector index. textID defaults to nodeID.
func (is *IndexStruct) AddNode(nodeID, textID string) string {
	if textID == "" {
		textID = nodeID
	}
	if is.NodesDict == nil {
		is.NodesDict = make(map[string]string)
	}
	is.NodesDict[textID] = nodeID
	return textID
}

// DeleteNode removes a node from a vector index.
func (is *IndexStruct) DeleteNode(textID string) {
	delete(is.NodesDict, textID)
}

// AddToList appends a node to a list index.
func (is *IndexStruct) AddToList(nodeID string) {
	is.Nodes = append(is.Nodes, nodeID)
}

// IndexStore is the interface for index stores.
type IndexStore interface {
	// IndexStructs returns all index structs in the store.
	IndexStructs(ctx context.Context) ([]*IndexStruct, error)

	// AddIndexStruct adds or replaces an index struct.
	AddIndexStruct(ctx context.Context, indexStruct *IndexStruct) error

	// DeleteIndexStruct removes an index struct from the store.
	DeleteIndexStruct(ctx context.Context, indexID string) error

	// GetIndexStruct retrieves an index struct by ID. An empty indexID
	// returns the only struct in the store.
	GetIndexStruct(ctx context.Context, indexID string) (*IndexStruct, error)
}
