package index

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aqua777/indexquery/rag/queryengine"
	"github.com/aqua777/indexquery/rag/retriever"
	"github.com/aqua777/indexquery/rag/synthesizer"
	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/settings"
	"github.com/aqua777/indexquery/storage"
	"github.com/aqua777/indexquery/storage/indexstore"
)

// ComposableGraph is a list index whose nodes stand in for child indexes.
// Querying it queries every child and combines their answers.
type ComposableGraph struct {
	root     *ListIndex
	children map[string]Index
	names    []string
}

// NewComposableGraph builds a graph over children, keyed by name, with one
// summary per child. Children are listed in name order. The graph lives in
// memory only.
func NewComposableGraph(
	ctx context.Context,
	children map[string]Index,
	summaries map[string]string,
	svc *settings.ServiceContext,
) (*ComposableGraph, error) {
	if len(children) == 0 {
		return nil, errors.New("composable graph needs at least one child index")
	}
	for name := range summaries {
		if _, ok := children[name]; !ok {
			return nil, fmt.Errorf("summary for unknown child index %q", name)
		}
	}

	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	slices.Sort(names)

	byID := make(map[string]Index, len(children))
	nodes := make([]schema.Node, 0, len(children))
	for _, name := range names {
		summary, ok := summaries[name]
		if !ok || summary == "" {
			return nil, fmt.Errorf("child index %q: %w", name, indexstore.ErrSummaryNotSet)
		}
		child := children[name]
		byID[child.IndexID()] = child

		node := schema.NewIndexNode(child.IndexID(), summary)
		node.Metadata[queryengine.MetadataKeyIndexName] = name
		nodes = append(nodes, node)
	}

	root, err := NewListIndex(ctx, nodes, svc, WithStorageContext(storage.NewStorageContext(nil)))
	if err != nil {
		return nil, fmt.Errorf("failed to build graph root: %w", err)
	}
	return &ComposableGraph{root: root, children: byID, names: names}, nil
}

// IndexID returns the root index ID.
func (g *ComposableGraph) IndexID() string {
	return g.root.IndexID()
}

// Root returns the root list index.
func (g *ComposableGraph) Root() *ListIndex {
	return g.root
}

// ChildNames returns the child names in list order.
func (g *ComposableGraph) ChildNames() []string {
	return slices.Clone(g.names)
}

// AsRetriever returns the root retriever, which yields one index node per child.
func (g *ComposableGraph) AsRetriever(opts ...RetrieverOption) retriever.Retriever {
	return g.root.AsRetriever(opts...)
}

// AsQueryEngine returns an engine that queries every child and combines the
// answers. Tree summarize is the default mode for the combination; children
// get the options passed with WithChildQueryEngineOptions.
func (g *ComposableGraph) AsQueryEngine(opts ...QueryEngineOption) (queryengine.QueryEngine, error) {
	config := newQueryEngineConfig(synthesizer.ResponseModeTreeSummarize, g.root.logger(), opts)

	synth, err := config.synthesizerFor(g.root.serviceContext)
	if err != nil {
		return nil, err
	}

	engines := make(map[string]queryengine.QueryEngine, len(g.children))
	for id, child := range g.children {
		engine, err := child.AsQueryEngine(config.ChildOptions...)
		if err != nil {
			return nil, fmt.Errorf("failed to create child query engine: %w", err)
		}
		engines[id] = engine
	}

	return queryengine.NewComposableGraphQueryEngine(g.root.AsRetriever(), engines, synth,
		queryengine.WithLogger(config.Logger)), nil
}
