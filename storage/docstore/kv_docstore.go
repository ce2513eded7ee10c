package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/storage/kvstore"
)

const (
	nodeCollectionSuffix     = "/data"
	refDocCollectionSuffix   = "/ref_doc_info"
	metadataCollectionSuffix = "/metadata"
)

// nodeMetadata is the bookkeeping record kept per node or document.
type nodeMetadata struct {
	DocHash  string `json:"doc_hash,omitempty"`
	RefDocID string `json:"ref_doc_id,omitempty"`
}

// KVDocumentStore is a document store backed by a KVStore.
type KVDocumentStore struct {
	kvstore            kvstore.KVStore
	namespace          string
	nodeCollection     string
	refDocCollection   string
	metadataCollection string
}

// KVDocumentStoreOption is a functional option for KVDocumentStore.
type KVDocumentStoreOption func(*KVDocumentStore)

// WithNamespace sets the namespace for the document store.
func WithNamespace(namespace string) KVDocumentStoreOption {
	return func(s *KVDocumentStore) {
		s.namespace = namespace
	}
}

// NewKVDocumentStore creates a new KVDocumentStore.
func NewKVDocumentStore(kv kvstore.KVStore, opts ...KVDocumentStoreOption) *KVDocumentStore {
	store := &KVDocumentStore{
		kvstore:   kv,
		namespace: DefaultNamespace,
	}
	for _, opt := range opts {
		opt(store)
	}

	store.nodeCollection = store.namespace + nodeCollectionSuffix
	store.refDocCollection = store.namespace + refDocCollectionSuffix
	store.metadataCollection = store.namespace + metadataCollectionSuffix
	return store
}

// AddNodes adds nodes to the store and tracks them under their ref doc.
func (s *KVDocumentStore) AddNodes(ctx context.Context, nodes []schema.Node, allowUpdate bool) error {
	for _, node := range nodes {
		if node.ID == "" {
			return fmt.Errorf("node id not set")
		}

		if !allowUpdate {
			exists, err := s.NodeExists(ctx, node.ID)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %s", ErrNodeExists, node.ID)
			}
		}

		if err := kvstore.PutJSON(ctx, s.kvstore, s.nodeCollection, node.ID, node); err != nil {
			return err
		}

		meta := nodeMetadata{DocHash: node.GetHash(), RefDocID: node.RefDocID}
		if node.RefDocID != "" {
			if err := s.addToRefDoc(ctx, node.RefDocID, node.ID); err != nil {
				return err
			}
		}
		if err := kvstore.PutJSON(ctx, s.kvstore, s.metadataCollection, node.ID, meta); err != nil {
			return err
		}
	}
	return nil
}

func (s *KVDocumentStore) addToRefDoc(ctx context.Context, refDocID, nodeID string) error {
	info, err := s.GetRefDocInfo(ctx, refDocID)
	if err != nil {
		return err
	}
	if info == nil {
		info = &RefDocInfo{}
	}
	if !slices.Contains(info.NodeIDs, nodeID) {
		info.NodeIDs = append(info.NodeIDs, nodeID)
	}
	return kvstore.PutJSON(ctx, s.kvstore, s.refDocCollection, refDocID, info)
}

// GetNode retrieves a node by ID.
func (s *KVDocumentStore) GetNode(ctx context.Context, nodeID string) (schema.Node, error) {
	node, ok, err := kvstore.GetJSON[schema.Node](ctx, s.kvstore, s.nodeCollection, nodeID)
	if err != nil {
		return schema.Node{}, err
	}
	if !ok {
		return schema.Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	return node, nil
}

// NodeExists checks if a node exists in the store.
func (s *KVDocumentStore) NodeExists(ctx context.Context, nodeID string) (bool, error) {
	_, ok, err := s.kvstore.Get(ctx, s.nodeCollection, nodeID)
	return ok, err
}

// Nodes returns all nodes in the store.
func (s *KVDocumentStore) Nodes(ctx context.Context) (map[string]schema.Node, error) {
	raw, err := s.kvstore.GetAll(ctx, s.nodeCollection)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]schema.Node, len(raw))
	for id, b := range raw {
		var node schema.Node
		if err := json.Unmarshal(b, &node); err != nil {
			return nil, fmt.Errorf("failed to decode node %s: %w", id, err)
		}
		nodes[id] = node
	}
	return nodes, nil
}

// DeleteNode removes a node and unlinks it from its ref doc.
func (s *KVDocumentStore) DeleteNode(ctx context.Context, nodeID string) error {
	meta, _, err := kvstore.GetJSON[nodeMetadata](ctx, s.kvstore, s.metadataCollection, nodeID)
	if err != nil {
		return err
	}
	if meta.RefDocID != "" {
		if err := s.removeFromRefDoc(ctx, meta.RefDocID, nodeID); err != nil {
			return err
		}
	}

	deleted, err := s.kvstore.Delete(ctx, s.nodeCollection, nodeID)
	if err != nil {
		return err
	}
	if _, err := s.kvstore.Delete(ctx, s.metadataCollection, nodeID); err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	return nil
}

func (s *KVDocumentStore) removeFromRefDoc(ctx context.Context, refDocID, nodeID string) error {
	info, err := s.GetRefDocInfo(ctx, refDocID)
	if err != nil || info == nil {
		return err
	}
	info.NodeIDs = slices.DeleteFunc(info.NodeIDs, func(id string) bool { return id == nodeID })
	if len(info.NodeIDs) == 0 {
		_, err := s.kvstore.Delete(ctx, s.refDocCollection, refDocID)
		return err
	}
	return kvstore.PutJSON(ctx, s.kvstore, s.refDocCollection, refDocID, info)
}

// SetDocumentHash records the hash of a source document.
func (s *KVDocumentStore) SetDocumentHash(ctx context.Context, docID, hash string) error {
	meta, _, err := kvstore.GetJSON[nodeMetadata](ctx, s.kvstore, s.metadataCollection, docID)
	if err != nil {
		return err
	}
	meta.DocHash = hash
	return kvstore.PutJSON(ctx, s.kvstore, s.metadataCollection, docID, meta)
}

// GetDocumentHash returns the recorded hash of a document.
func (s *KVDocumentStore) GetDocumentHash(ctx context.Context, docID string) (string, error) {
	meta, _, err := kvstore.GetJSON[nodeMetadata](ctx, s.kvstore, s.metadataCollection, docID)
	return meta.DocHash, err
}

// GetRefDocInfo retrieves reference document info by ID.
func (s *KVDocumentStore) GetRefDocInfo(ctx context.Context, refDocID string) (*RefDocInfo, error) {
	info, ok, err := kvstore.GetJSON[RefDocInfo](ctx, s.kvstore, s.refDocCollection, refDocID)
	if err != nil || !ok {
		return nil, err
	}
	return &info, nil
}

// DeleteRefDoc deletes a reference document and all its nodes.
// Deleting an unknown ref doc is not an error.
func (s *KVDocumentStore) DeleteRefDoc(ctx context.Context, refDocID string) error {
	info, err := s.GetRefDocInfo(ctx, refDocID)
	if err != nil {
		return err
	}
	if info != nil {
		for _, id := range info.NodeIDs {
			if _, err := s.kvstore.Delete(ctx, s.nodeCollection, id); err != nil {
				return err
			}
			if _, err := s.kvstore.Delete(ctx, s.metadataCollection, id); err != nil {
				return err
			}
		}
	}

	for _, collection := range []string{s.refDocCollection, s.metadataCollection} {
		if _, err := s.kvstore.Delete(ctx, collection, refDocID); err != nil {
			return err
		}
	}
	return nil
}

var _ DocStore = (*KVDocumentStore)(nil)
