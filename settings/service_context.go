// Package settings holds the service context shared by indexing and querying.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aqua777/indexquery/embedding"
	"github.com/aqua777/indexquery/llm"
	"github.com/aqua777/indexquery/textsplitter"
)

// ServiceContext bundles the clients and sizing used by every index and
// query engine. It is built once and only read afterwards.
type ServiceContext struct {
	LLM          llm.LLM
	EmbedModel   embedding.EmbeddingModel
	PromptHelper *PromptHelper
	Splitter     textsplitter.MetadataAwareSplitter
	// SentenceStrategy finds sentence boundaries for the default splitter.
	SentenceStrategy textsplitter.SentenceSplitterStrategy
	Logger           *slog.Logger
}

// ServiceContextOption configures a ServiceContext.
type ServiceContextOption func(*ServiceContext)

// WithPromptHelper sets the prompt helper.
func WithPromptHelper(p *PromptHelper) ServiceContextOption {
	return func(sc *ServiceContext) {
		sc.PromptHelper = p
	}
}

// WithSplitter sets the splitter used to chunk documents.
func WithSplitter(s textsplitter.MetadataAwareSplitter) ServiceContextOption {
	return func(sc *ServiceContext) {
		sc.Splitter = s
	}
}

// WithSentenceStrategy sets the sentence strategy of the default splitter.
func WithSentenceStrategy(s textsplitter.SentenceSplitterStrategy) ServiceContextOption {
	return func(sc *ServiceContext) {
		sc.SentenceStrategy = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceContextOption {
	return func(sc *ServiceContext) {
		sc.Logger = logger
	}
}

// NewServiceContext creates a ServiceContext. Without options it uses the
// default prompt helper and a punkt sentence splitter sized by it.
func NewServiceContext(l llm.LLM, embed embedding.EmbeddingModel, opts ...ServiceContextOption) (*ServiceContext, error) {
	if l == nil {
		return nil, errors.New("service context requires an LLM")
	}
	if embed == nil {
		return nil, errors.New("service context requires an embedding model")
	}

	sc := &ServiceContext{LLM: l, EmbedModel: embed}
	for _, opt := range opts {
		opt(sc)
	}

	if sc.Logger == nil {
		sc.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	if sc.PromptHelper == nil {
		ph, err := DefaultPromptHelper()
		if err != nil {
			return nil, fmt.Errorf("failed to create prompt helper: %w", err)
		}
		sc.PromptHelper = ph
	}
	if sc.Splitter == nil {
		if sc.SentenceStrategy == nil {
			strategy, err := textsplitter.NewNeurosnapSplitterStrategy()
			if err != nil {
				return nil, err
			}
			sc.SentenceStrategy = strategy
		}
		splitter, err := textsplitter.NewSentenceSplitter(
			textsplitter.WithSplitterStrategy(sc.SentenceStrategy),
			textsplitter.WithChunkSize(sc.PromptHelper.ChunkSizeLimit),
			textsplitter.WithChunkOverlap(sc.PromptHelper.MaxChunkOverlap),
			textsplitter.WithTokenizer(sc.PromptHelper.Tokenizer()),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create text splitter: %w", err)
		}
		sc.Splitter = splitter
	}
	return sc, nil
}
