// Package queryengine turns retrievers and synthesizers into question answering engines.
package queryengine

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aqua777/indexquery/rag/retriever"
	"github.com/aqua777/indexquery/rag/synthesizer"
	"github.com/aqua777/indexquery/schema"
)

// QueryEngine is the interface for query engines.
type QueryEngine interface {
	// Query executes a query and returns a response.
	Query(ctx context.Context, query string) (*synthesizer.Response, error)
}

// QueryEngineWithRetrieval extends QueryEngine with separate retrieve/synthesize.
type QueryEngineWithRetrieval interface {
	QueryEngine
	// Retrieve retrieves nodes for a query.
	Retrieve(ctx context.Context, query schema.QueryBundle) ([]schema.NodeWithScore, error)
	// Synthesize synthesizes a response from nodes.
	Synthesize(ctx context.Context, query string, nodes []schema.NodeWithScore) (*synthesizer.Response, error)
}

// BaseQueryEngine provides common functionality for query engines.
type BaseQueryEngine struct {
	Logger *slog.Logger
}

// NewBaseQueryEngine creates a new BaseQueryEngine.
func NewBaseQueryEngine() *BaseQueryEngine {
	return &BaseQueryEngine{
		Logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
}

// Option is a functional option shared by the engines in this package.
type Option func(*BaseQueryEngine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *BaseQueryEngine) {
		if logger != nil {
			b.Logger = logger
		}
	}
}

func newBase(opts []Option) *BaseQueryEngine {
	b := NewBaseQueryEngine()
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RetrieverQueryEngine combines a retriever and synthesizer.
type RetrieverQueryEngine struct {
	*BaseQueryEngine
	// Retriever retrieves relevant nodes.
	Retriever retriever.Retriever
	// Synthesizer generates responses from nodes.
	Synthesizer synthesizer.Synthesizer
}

// NewRetrieverQueryEngine creates a new RetrieverQueryEngine.
func NewRetrieverQueryEngine(
	ret retriever.Retriever,
	synth synthesizer.Synthesizer,
	opts ...Option,
) *RetrieverQueryEngine {
	return &RetrieverQueryEngine{
		BaseQueryEngine: newBase(opts),
		Retriever:       ret,
		Synthesizer:     synth,
	}
}

// Query executes a query and returns a response. The query string is passed
// through as given, empty or not.
func (rqe *RetrieverQueryEngine) Query(ctx context.Context, query string) (*synthesizer.Response, error) {
	nodes, err := rqe.Retrieve(ctx, schema.QueryBundle{QueryString: query})
	if err != nil {
		return nil, err
	}
	rqe.Logger.Debug("Retrieved nodes", "count", len(nodes))

	return rqe.Synthesize(ctx, query, nodes)
}

// Retrieve retrieves nodes for a query.
func (rqe *RetrieverQueryEngine) Retrieve(ctx context.Context, query schema.QueryBundle) ([]schema.NodeWithScore, error) {
	nodes, err := rqe.Retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve nodes: %w", err)
	}
	return nodes, nil
}

// Synthesize synthesizes a response from nodes.
func (rqe *RetrieverQueryEngine) Synthesize(ctx context.Context, query string, nodes []schema.NodeWithScore) (*synthesizer.Response, error) {
	resp, err := rqe.Synthesizer.Synthesize(ctx, query, nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize response: %w", err)
	}
	return resp, nil
}

var _ QueryEngine = (*RetrieverQueryEngine)(nil)
var _ QueryEngineWithRetrieval = (*RetrieverQueryEngine)(nil)
