package retriever

import (
	"context"

	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/storage/docstore"
)

// ListRetriever returns every node of a list index, in list order.
type ListRetriever struct {
	DocStore docstore.DocStore
	NodeIDs  []string
}

// NewListRetriever creates a new ListRetriever.
func NewListRetriever(ds docstore.DocStore, nodeIDs []string) *ListRetriever {
	return &ListRetriever{DocStore: ds, NodeIDs: nodeIDs}
}

// Retrieve ignores the query and returns all nodes.
func (lr *ListRetriever) Retrieve(ctx context.Context, query schema.QueryBundle) ([]schema.NodeWithScore, error) {
	nodes, err := docstore.GetNodes(ctx, lr.DocStore, lr.NodeIDs)
	if err != nil {
		return nil, err
	}
	out := make([]schema.NodeWithScore, len(nodes))
	for i, n := range nodes {
		out[i] = schema.NodeWithScore{Node: n, Score: 1}
	}
	return out, nil
}

var _ Retriever = (*ListRetriever)(nil)
