package queryengine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/aqua777/indexquery/rag/retriever"
	"github.com/aqua777/indexquery/rag/synthesizer"
	"github.com/aqua777/indexquery/schema"
)

// Metadata keys set on the nodes built from child answers.
const (
	MetadataKeyIndexID   = "index_id"
	MetadataKeyIndexName = "index_name"
)

// DefaultChildConcurrency bounds how many child engines run at once.
const DefaultChildConcurrency = 4

// ErrChildNotFound is returned when a root node points at an index with no engine.
var ErrChildNotFound = errors.New("no query engine for child index")

// ComposableGraphQueryEngine answers through a root retriever whose nodes stand
// in for child indexes. Each child engine is queried and the child answers are
// synthesized into one.
type ComposableGraphQueryEngine struct {
	*BaseQueryEngine
	// Root yields the nodes of the root index.
	Root retriever.Retriever
	// Children maps a child index ID to its engine.
	Children map[string]QueryEngine
	// Synthesizer combines the child answers.
	Synthesizer synthesizer.Synthesizer
	// Concurrency bounds the number of child queries in flight.
	Concurrency int
}

// NewComposableGraphQueryEngine creates a new ComposableGraphQueryEngine.
func NewComposableGraphQueryEngine(
	root retriever.Retriever,
	children map[string]QueryEngine,
	synth synthesizer.Synthesizer,
	opts ...Option,
) *ComposableGraphQueryEngine {
	return &ComposableGraphQueryEngine{
		BaseQueryEngine: newBase(opts),
		Root:            root,
		Children:        children,
		Synthesizer:     synth,
		Concurrency:     DefaultChildConcurrency,
	}
}

// Query executes a query against every child the root yields.
func (g *ComposableGraphQueryEngine) Query(ctx context.Context, query string) (*synthesizer.Response, error) {
	rootNodes, err := g.Root.Retrieve(ctx, schema.QueryBundle{QueryString: query})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve root nodes: %w", err)
	}

	for _, n := range rootNodes {
		if n.Node.IsIndexNode() {
			if _, ok := g.Children[n.Node.IndexID]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrChildNotFound, n.Node.IndexID)
			}
		}
	}

	nodes := make([]schema.NodeWithScore, len(rootNodes))
	eg, egCtx := errgroup.WithContext(ctx)
	if g.Concurrency > 0 {
		eg.SetLimit(g.Concurrency)
	}
	for i, n := range rootNodes {
		if !n.Node.IsIndexNode() {
			nodes[i] = n
			continue
		}
		engine := g.Children[n.Node.IndexID]
		eg.Go(func() error {
			node, err := g.queryChild(egCtx, engine, n, query)
			if err != nil {
				return err
			}
			nodes[i] = node
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.Logger.Info("Combining child answers", "children", len(nodes))
	resp, err := g.Synthesizer.Synthesize(ctx, query, nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to combine child answers: %w", err)
	}
	return resp, nil
}

func (g *ComposableGraphQueryEngine) queryChild(ctx context.Context, engine QueryEngine, n schema.NodeWithScore, query string) (schema.NodeWithScore, error) {
	name, _ := n.Node.Metadata[MetadataKeyIndexName].(string)
	if name == "" {
		name = n.Node.IndexID
	}
	g.Logger.Debug("Querying child index", "index", name)

	resp, err := engine.Query(ctx, query)
	if err != nil {
		return schema.NodeWithScore{}, fmt.Errorf("child index %s: %w", name, err)
	}

	node := schema.NewTextNode(resp.Response)
	node.Metadata[MetadataKeyIndexName] = name
	node.Metadata[MetadataKeyIndexID] = n.Node.IndexID
	node.ExcludedLLMMetadataKeys = []string{MetadataKeyIndexID}
	return schema.NodeWithScore{Node: *node, Score: n.Score}, nil
}

var _ QueryEngine = (*ComposableGraphQueryEngine)(nil)
