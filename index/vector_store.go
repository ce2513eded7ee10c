package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/aqua777/indexquery/embedding"
	"github.com/aqua777/indexquery/rag/queryengine"
	"github.com/aqua777/indexquery/rag/retriever"
	"github.com/aqua777/indexquery/rag/synthesizer"
	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/settings"
	"github.com/aqua777/indexquery/storage"
	"github.com/aqua777/indexquery/storage/indexstore"
)

// DefaultInsertBatchSize is the number of nodes embedded and stored per batch.
const DefaultInsertBatchSize = 2048

// VectorStoreIndex is an index backed by a vector store. Nodes are embedded
// into the vector store and kept whole in the docstore.
type VectorStoreIndex struct {
	*BaseIndex
	insertBatchSize int
}

// VectorStoreIndexOption configures VectorStoreIndex creation.
type VectorStoreIndexOption func(*VectorStoreIndex)

// WithVectorIndexStorage applies base index options.
func WithVectorIndexStorage(opts ...BaseIndexOption) VectorStoreIndexOption {
	return func(vsi *VectorStoreIndex) {
		for _, opt := range opts {
			opt(vsi.BaseIndex)
		}
	}
}

// WithInsertBatchSize sets the batch size for inserting nodes.
func WithInsertBatchSize(size int) VectorStoreIndexOption {
	return func(vsi *VectorStoreIndex) {
		if size > 0 {
			vsi.insertBatchSize = size
		}
	}
}

func newVectorStoreIndex(is *indexstore.IndexStruct, svc *settings.ServiceContext, opts []VectorStoreIndexOption) *VectorStoreIndex {
	vsi := &VectorStoreIndex{
		BaseIndex:       &BaseIndex{indexStruct: is, serviceContext: svc},
		insertBatchSize: DefaultInsertBatchSize,
	}
	for _, opt := range opts {
		opt(vsi)
	}
	if vsi.storageContext == nil {
		vsi.storageContext = storage.NewStorageContext(nil)
	}
	return vsi
}

// NewVectorStoreIndex creates a new VectorStoreIndex from nodes.
func NewVectorStoreIndex(ctx context.Context, nodes []schema.Node, svc *settings.ServiceContext, opts ...VectorStoreIndexOption) (*VectorStoreIndex, error) {
	if svc == nil {
		return nil, errors.New("vector store index requires a service context")
	}
	vsi := newVectorStoreIndex(indexstore.NewVectorStoreIndex(), svc, opts)

	if err := vsi.InsertNodes(ctx, nodes); err != nil {
		return nil, err
	}
	if err := vsi.saveIndexStruct(ctx); err != nil {
		return nil, err
	}
	return vsi, nil
}

// NewVectorStoreIndexFromDocuments splits documents with the service
// context splitter and indexes the resulting nodes.
func NewVectorStoreIndexFromDocuments(
	ctx context.Context,
	documents []schema.Document,
	svc *settings.ServiceContext,
	opts ...VectorStoreIndexOption,
) (*VectorStoreIndex, error) {
	if svc == nil {
		return nil, errors.New("vector store index requires a service context")
	}
	vsi := newVectorStoreIndex(indexstore.NewVectorStoreIndex(), svc, opts)

	if err := vsi.InsertDocuments(ctx, documents); err != nil {
		return nil, err
	}
	if err := vsi.saveIndexStruct(ctx); err != nil {
		return nil, err
	}
	return vsi, nil
}

// InsertDocuments splits, embeds and stores documents, recording each
// document hash.
func (vsi *VectorStoreIndex) InsertDocuments(ctx context.Context, documents []schema.Document) error {
	nodes, err := NodesFromDocuments(documents, vsi.serviceContext.Splitter)
	if err != nil {
		return err
	}
	vsi.logger().Info("Parsed documents", "documents", len(documents), "nodes", len(nodes))

	if err := vsi.InsertNodes(ctx, nodes); err != nil {
		return err
	}
	for _, doc := range documents {
		if err := vsi.storageContext.DocStore.SetDocumentHash(ctx, doc.ID, doc.GetHash()); err != nil {
			return fmt.Errorf("failed to record document hash: %w", err)
		}
	}
	return vsi.saveIndexStruct(ctx)
}

// InsertNodes embeds nodes and adds them to the vector store and docstore.
// Nodes without content are skipped.
func (vsi *VectorStoreIndex) InsertNodes(ctx context.Context, nodes []schema.Node) error {
	var contentNodes []schema.Node
	for _, node := range nodes {
		if node.GetContent(schema.MetadataModeEmbed) != "" {
			contentNodes = append(contentNodes, node)
		}
	}

	for i := 0; i < len(contentNodes); i += vsi.insertBatchSize {
		end := min(i+vsi.insertBatchSize, len(contentNodes))
		if err := vsi.addBatch(ctx, contentNodes[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (vsi *VectorStoreIndex) addBatch(ctx context.Context, batch []schema.Node) error {
	texts := make([]string, len(batch))
	for i, node := range batch {
		texts[i] = node.GetContent(schema.MetadataModeEmbed)
	}

	embeddings, err := embedding.GetTextEmbeddings(ctx, vsi.serviceContext.EmbedModel, texts, func(current, total int) {
		vsi.logger().Debug("Embedding nodes", "current", current, "total", total)
	})
	if err != nil {
		return fmt.Errorf("failed to embed nodes: %w", err)
	}

	embedded := make([]schema.Node, len(batch))
	for i, node := range batch {
		node.Embedding = embeddings[i]
		embedded[i] = node
	}

	textIDs, err := vsi.storageContext.VectorStore.Add(ctx, embedded)
	if err != nil {
		return fmt.Errorf("failed to add nodes to vector store: %w", err)
	}

	for i := range embedded {
		vsi.indexStruct.AddNode(embedded[i].ID, textIDs[i])
		// the vector store owns the embedding
		embedded[i].Embedding = nil
	}
	if err := vsi.storageContext.DocStore.AddNodes(ctx, embedded, true); err != nil {
		return fmt.Errorf("failed to add nodes to docstore: %w", err)
	}
	return nil
}

// DeleteRefDoc removes every node of a source document.
func (vsi *VectorStoreIndex) DeleteRefDoc(ctx context.Context, refDocID string) error {
	if err := vsi.storageContext.VectorStore.Delete(ctx, refDocID); err != nil {
		return err
	}

	info, err := vsi.storageContext.DocStore.GetRefDocInfo(ctx, refDocID)
	if err != nil {
		return err
	}
	if info != nil {
		deleted := make(map[string]bool, len(info.NodeIDs))
		for _, id := range info.NodeIDs {
			deleted[id] = true
		}
		for textID, nodeID := range vsi.indexStruct.NodesDict {
			if deleted[nodeID] {
				vsi.indexStruct.DeleteNode(textID)
			}
		}
	}
	if err := vsi.storageContext.DocStore.DeleteRefDoc(ctx, refDocID); err != nil {
		return err
	}
	return vsi.saveIndexStruct(ctx)
}

// RefreshDocuments inserts new documents and re-indexes changed ones.
// The result reports, per document, whether it was (re)indexed.
func (vsi *VectorStoreIndex) RefreshDocuments(ctx context.Context, documents []schema.Document) ([]bool, error) {
	refreshed := make([]bool, len(documents))

	for i, doc := range documents {
		existingHash, err := vsi.storageContext.DocStore.GetDocumentHash(ctx, doc.ID)
		if err != nil {
			return refreshed, err
		}
		switch existingHash {
		case doc.GetHash():
			continue
		case "":
		default:
			if err := vsi.DeleteRefDoc(ctx, doc.ID); err != nil {
				return refreshed, err
			}
		}
		if err := vsi.InsertDocuments(ctx, []schema.Document{doc}); err != nil {
			return refreshed, err
		}
		refreshed[i] = true
	}

	return refreshed, nil
}

// AsRetriever returns a retriever for this index.
func (vsi *VectorStoreIndex) AsRetriever(opts ...RetrieverOption) retriever.Retriever {
	config := &RetrieverConfig{SimilarityTopK: retriever.DefaultTopK}
	for _, opt := range opts {
		opt(config)
	}

	return retriever.NewVectorRetriever(
		vsi.storageContext.VectorStore,
		vsi.serviceContext.EmbedModel,
		retriever.WithTopK(config.SimilarityTopK),
		retriever.WithDocStore(vsi.storageContext.DocStore, vsi.indexStruct.NodesDict),
	)
}

// AsQueryEngine returns a query engine for this index. Compact is the default mode.
func (vsi *VectorStoreIndex) AsQueryEngine(opts ...QueryEngineOption) (queryengine.QueryEngine, error) {
	config := newQueryEngineConfig(synthesizer.ResponseModeCompact, vsi.logger(), opts)

	synth, err := config.synthesizerFor(vsi.serviceContext)
	if err != nil {
		return nil, err
	}
	ret := vsi.AsRetriever(WithSimilarityTopK(config.SimilarityTopK))

	return queryengine.NewRetrieverQueryEngine(ret, synth, queryengine.WithLogger(config.Logger)), nil
}

var _ Index = (*VectorStoreIndex)(nil)
