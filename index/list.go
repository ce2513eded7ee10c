package index

import (
	"context"
	"fmt"

	"github.com/aqua777/indexquery/rag/queryengine"
	"github.com/aqua777/indexquery/rag/retriever"
	"github.com/aqua777/indexquery/rag/synthesizer"
	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/settings"
	"github.com/aqua777/indexquery/storage/indexstore"
)

// ListIndex keeps its nodes in order and hands all of them to the
// synthesizer at query time. Nothing is embedded.
type ListIndex struct {
	*BaseIndex
}

// NewListIndex creates a new ListIndex over nodes.
func NewListIndex(ctx context.Context, nodes []schema.Node, svc *settings.ServiceContext, opts ...BaseIndexOption) (*ListIndex, error) {
	li := &ListIndex{BaseIndex: NewBaseIndex(indexstore.NewListIndex(), svc, opts...)}

	if err := li.InsertNodes(ctx, nodes); err != nil {
		return nil, err
	}
	if err := li.saveIndexStruct(ctx); err != nil {
		return nil, err
	}
	return li, nil
}

// InsertNodes appends nodes to the list.
func (li *ListIndex) InsertNodes(ctx context.Context, nodes []schema.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	if err := li.storageContext.DocStore.AddNodes(ctx, nodes, true); err != nil {
		return fmt.Errorf("failed to add nodes to docstore: %w", err)
	}
	for _, node := range nodes {
		li.indexStruct.AddToList(node.ID)
	}
	return nil
}

// AsRetriever returns a retriever yielding every node of the list.
func (li *ListIndex) AsRetriever(opts ...RetrieverOption) retriever.Retriever {
	return retriever.NewListRetriever(li.storageContext.DocStore, li.indexStruct.Nodes)
}

// AsQueryEngine returns a query engine for this index. Compact is the default mode.
func (li *ListIndex) AsQueryEngine(opts ...QueryEngineOption) (queryengine.QueryEngine, error) {
	config := newQueryEngineConfig(synthesizer.ResponseModeCompact, li.logger(), opts)

	synth, err := config.synthesizerFor(li.serviceContext)
	if err != nil {
		return nil, err
	}
	return queryengine.NewRetrieverQueryEngine(li.AsRetriever(), synth, queryengine.WithLogger(config.Logger)), nil
}

var _ Index = (*ListIndex)(nil)
