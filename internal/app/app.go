// Package app wires configuration into the clients, indexes and query
// engines the commands run on.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aqua777/indexquery/embedding"
	"github.com/aqua777/indexquery/index"
	"github.com/aqua777/indexquery/internal/catalog"
	"github.com/aqua777/indexquery/internal/chat"
	"github.com/aqua777/indexquery/internal/config"
	"github.com/aqua777/indexquery/internal/indexes"
	"github.com/aqua777/indexquery/internal/metrics"
	"github.com/aqua777/indexquery/internal/registry"
	"github.com/aqua777/indexquery/llm"
	"github.com/aqua777/indexquery/rag/store"
	"github.com/aqua777/indexquery/rag/synthesizer"
	"github.com/aqua777/indexquery/settings"
	"github.com/aqua777/indexquery/textsplitter"
)

// App holds everything built from a Config.
type App struct {
	Config  *config.Config
	Catalog *catalog.Catalog
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	llm       llm.LLM
	embed     embedding.EmbeddingModel
	tokenizer textsplitter.Tokenizer
	svc       *settings.ServiceContext
}

// Option configures an App.
type Option func(*App)

// WithLLM replaces the configured LLM client.
func WithLLM(l llm.LLM) Option {
	return func(a *App) {
		a.llm = l
	}
}

// WithEmbedding replaces the configured embedding client.
func WithEmbedding(e embedding.EmbeddingModel) Option {
	return func(a *App) {
		a.embed = e
	}
}

// WithTokenizer replaces the tiktoken tokenizer used to size prompts.
func WithTokenizer(tok textsplitter.Tokenizer) Option {
	return func(a *App) {
		a.tokenizer = tok
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.Logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) {
		a.Metrics = m
	}
}

// New creates the clients and the service context described by cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		a.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	cat, err := loadCatalog(cfg.Data)
	if err != nil {
		return nil, err
	}
	a.Catalog = cat
	if cfg.Server.DefaultIndex == "" {
		resolved := *cfg
		resolved.Server.DefaultIndex = cat.DefaultIndex
		a.Config = &resolved
	}

	if a.llm == nil {
		if a.llm, err = newLLM(ctx, cfg, a.Logger); err != nil {
			return nil, err
		}
	}
	if a.embed == nil {
		if a.embed, err = newEmbedding(ctx, cfg, a.Logger); err != nil {
			return nil, err
		}
	}
	if a.tokenizer == nil {
		tok, err := textsplitter.DefaultTokenizer()
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer: %w", err)
		}
		a.tokenizer = tok
	}

	ph := cfg.PromptHelper
	helper, err := settings.NewPromptHelper(ph.MaxInputSize, ph.NumOutput, ph.MaxChunkOverlap, ph.ChunkSizeLimit, a.tokenizer)
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt helper: %w", err)
	}
	strategy, err := textsplitter.NewSplitterStrategy(ph.SentenceSplitter)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentence splitter: %w", err)
	}
	a.svc, err = settings.NewServiceContext(a.llm, a.embed,
		settings.WithPromptHelper(helper),
		settings.WithSentenceStrategy(strategy),
		settings.WithLogger(a.Logger),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func loadCatalog(cfg config.DataConfig) (*catalog.Catalog, error) {
	if cfg.CatalogFile != "" {
		return catalog.LoadFile(cfg.CatalogFile)
	}
	cat := catalog.Default(cfg.Years)
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

func newLLM(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llm.LLM, error) {
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAILLM(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.APIKey,
			llm.WithOpenAIMaxTokens(cfg.LLM.MaxTokens),
			llm.WithOpenAILogger(logger),
		), nil
	case config.ProviderBedrock:
		return llm.NewBedrockLLM(ctx,
			llm.WithBedrockRegion(cfg.Bedrock.Region),
			llm.WithBedrockModel(cfg.Bedrock.Model),
			llm.WithBedrockMaxTokens(cfg.LLM.MaxTokens),
			llm.WithBedrockTemperature(cfg.LLM.Temperature),
			llm.WithBedrockLogger(logger),
		)
	}
	return llm.NewAzureOpenAILLM(
		llm.WithAzureEndpoint(cfg.Azure.Endpoint),
		llm.WithAzureAPIKey(cfg.Azure.APIKey),
		llm.WithAzureAPIVersion(cfg.Azure.APIVersion),
		llm.WithAzureDeployment(cfg.LLM.Deployment),
		llm.WithAzureMaxTokens(cfg.LLM.MaxTokens),
		llm.WithAzureTemperature(cfg.LLM.Temperature),
		llm.WithAzureLogger(logger),
	), nil
}

func newEmbedding(ctx context.Context, cfg *config.Config, logger *slog.Logger) (embedding.EmbeddingModel, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderOpenAI:
		return embedding.NewOpenAIEmbedding(cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Model), nil
	case config.ProviderBedrock:
		return embedding.NewBedrockEmbedding(ctx,
			embedding.WithBedrockEmbeddingRegion(cfg.Bedrock.Region),
			embedding.WithBedrockEmbeddingModel(cfg.Bedrock.EmbeddingModel),
			embedding.WithBedrockEmbeddingDimensions(cfg.Bedrock.EmbeddingDimensions),
			embedding.WithBedrockEmbeddingLogger(logger),
		)
	}
	return embedding.NewAzureOpenAIEmbedding(
		embedding.WithAzureEmbeddingEndpoint(cfg.Azure.Endpoint),
		embedding.WithAzureEmbeddingAPIKey(cfg.Azure.APIKey),
		embedding.WithAzureEmbeddingAPIVersion(cfg.Azure.APIVersion),
		embedding.WithAzureEmbeddingDeployment(cfg.Embedding.Deployment),
		embedding.WithAzureEmbeddingBatchSize(cfg.Embedding.BatchSize),
		embedding.WithAzureEmbeddingLogger(logger),
	), nil
}

// Builder returns an index builder over the configured directories.
func (a *App) Builder() *indexes.Builder {
	return indexes.NewBuilder(a.Catalog, a.svc, a.Config.Data.DocsDir, a.Config.Data.StorageDir,
		indexes.WithVectorStoreKind(store.Kind(a.Config.Data.VectorStore)),
		indexes.WithReadWorkers(a.Config.Data.ReadWorkers),
		indexes.WithMetrics(a.Metrics),
		indexes.WithLogger(a.Logger),
	)
}

// Build builds every index that is not on disk yet and reports how many it built.
func (a *App) Build(ctx context.Context) (int, error) {
	built, err := a.Builder().BuildMissing(ctx)
	if err != nil {
		return 0, err
	}
	return len(built), nil
}

// Registry builds missing indexes, loads the rest, composes the graph and
// returns the complete registry. Nothing is served before it returns.
func (a *App) Registry(ctx context.Context) (*registry.Registry, error) {
	b := a.Builder()

	built, err := b.BuildMissing(ctx)
	if err != nil {
		return nil, err
	}
	all, err := b.LoadRemaining(ctx, built)
	if err != nil {
		return nil, err
	}

	var graph *index.ComposableGraph
	if a.Catalog.HasGraph() {
		graph, err = b.ComposeGraph(ctx, all)
		if err != nil {
			return nil, err
		}
	}

	q := a.Config.Query
	engines, err := b.Engines(all, graph, indexes.EngineConfig{
		TopK:              q.TopK,
		ResponseMode:      synthesizer.ResponseMode(q.ResponseMode),
		GraphResponseMode: synthesizer.ResponseMode(q.GraphResponseMode),
		MaxRetries:        q.MaxRetries,
		RetryDelay:        q.RetryDelay,
	})
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(engines, a.Catalog.Selector)
	if err != nil {
		return nil, err
	}
	a.Logger.Info("Query engines ready", "indexes", reg.Names())
	return reg, nil
}

// Chat returns a chat handler over a freshly built registry.
func (a *App) Chat(ctx context.Context) (*chat.Handler, error) {
	reg, err := a.Registry(ctx)
	if err != nil {
		return nil, err
	}
	return chat.NewHandler(reg,
		chat.WithMetrics(a.Metrics),
		chat.WithLogger(a.Logger),
		chat.WithTimeout(a.Config.Server.QueryTimeout),
	), nil
}
