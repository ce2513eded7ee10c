// Package index builds, loads and queries the indexes a query engine answers from.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aqua777/indexquery/rag/queryengine"
	"github.com/aqua777/indexquery/rag/retriever"
	"github.com/aqua777/indexquery/rag/synthesizer"
	"github.com/aqua777/indexquery/settings"
	"github.com/aqua777/indexquery/storage"
	"github.com/aqua777/indexquery/storage/indexstore"
)

// ErrUnsupportedIndexType is returned when a stored index struct has a type
// this package cannot rebuild.
var ErrUnsupportedIndexType = errors.New("unsupported index type")

// Index is the base interface for all index types.
type Index interface {
	// IndexID returns the unique identifier for this index.
	IndexID() string

	// IndexStruct returns the underlying index structure.
	IndexStruct() *indexstore.IndexStruct

	// StorageContext returns the storage context.
	StorageContext() *storage.StorageContext

	// Summary returns the index summary, empty if unset.
	Summary() string

	// AsRetriever returns a retriever for this index.
	AsRetriever(opts ...RetrieverOption) retriever.Retriever

	// AsQueryEngine returns a query engine for this index.
	AsQueryEngine(opts ...QueryEngineOption) (queryengine.QueryEngine, error)
}

// RetrieverOption configures retriever creation.
type RetrieverOption func(*RetrieverConfig)

// RetrieverConfig holds retriever configuration.
type RetrieverConfig struct {
	SimilarityTopK int
}

// WithSimilarityTopK sets the number of top results to return.
func WithSimilarityTopK(k int) RetrieverOption {
	return func(c *RetrieverConfig) {
		c.SimilarityTopK = k
	}
}

// QueryEngineOption configures query engine creation.
type QueryEngineOption func(*QueryEngineConfig)

// QueryEngineConfig holds query engine configuration.
type QueryEngineConfig struct {
	ResponseMode synthesizer.ResponseMode
	Synthesizer  synthesizer.Synthesizer
	Logger       *slog.Logger
	// ChildOptions configure the child engines of a composable graph.
	ChildOptions []QueryEngineOption
	RetrieverConfig
}

// WithResponseMode sets the response synthesis mode.
func WithResponseMode(mode synthesizer.ResponseMode) QueryEngineOption {
	return func(c *QueryEngineConfig) {
		c.ResponseMode = mode
	}
}

// WithQueryEngineSynthesizer sets a custom synthesizer.
func WithQueryEngineSynthesizer(s synthesizer.Synthesizer) QueryEngineOption {
	return func(c *QueryEngineConfig) {
		c.Synthesizer = s
	}
}

// WithQueryEngineTopK sets the number of top results for retrieval.
func WithQueryEngineTopK(k int) QueryEngineOption {
	return func(c *QueryEngineConfig) {
		c.SimilarityTopK = k
	}
}

// WithQueryEngineLogger sets the engine logger.
func WithQueryEngineLogger(logger *slog.Logger) QueryEngineOption {
	return func(c *QueryEngineConfig) {
		c.Logger = logger
	}
}

// WithChildQueryEngineOptions sets the options used for the child engines
// of a composable graph.
func WithChildQueryEngineOptions(opts ...QueryEngineOption) QueryEngineOption {
	return func(c *QueryEngineConfig) {
		c.ChildOptions = opts
	}
}

func newQueryEngineConfig(mode synthesizer.ResponseMode, logger *slog.Logger, opts []QueryEngineOption) *QueryEngineConfig {
	c := &QueryEngineConfig{ResponseMode: mode, Logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// synthesizerFor returns the configured synthesizer or builds one for the mode.
func (c *QueryEngineConfig) synthesizerFor(svc *settings.ServiceContext) (synthesizer.Synthesizer, error) {
	if c.Synthesizer != nil {
		return c.Synthesizer, nil
	}
	synth, err := synthesizer.FromServiceContext(c.ResponseMode, svc)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	return synth, nil
}

// BaseIndex provides common functionality for all index types.
type BaseIndex struct {
	indexStruct    *indexstore.IndexStruct
	storageContext *storage.StorageContext
	serviceContext *settings.ServiceContext
}

// BaseIndexOption configures index creation.
type BaseIndexOption func(*BaseIndex)

// WithStorageContext sets the storage context. Without it an index lives in memory.
func WithStorageContext(sc *storage.StorageContext) BaseIndexOption {
	return func(bi *BaseIndex) {
		bi.storageContext = sc
	}
}

// NewBaseIndex creates a new BaseIndex.
func NewBaseIndex(indexStruct *indexstore.IndexStruct, svc *settings.ServiceContext, opts ...BaseIndexOption) *BaseIndex {
	bi := &BaseIndex{
		indexStruct:    indexStruct,
		serviceContext: svc,
	}
	for _, opt := range opts {
		opt(bi)
	}
	if bi.storageContext == nil {
		bi.storageContext = storage.NewStorageContext(nil)
	}
	return bi
}

// IndexID returns the unique identifier for this index.
func (bi *BaseIndex) IndexID() string {
	return bi.indexStruct.IndexID
}

// IndexStruct returns the underlying index structure.
func (bi *BaseIndex) IndexStruct() *indexstore.IndexStruct {
	return bi.indexStruct
}

// StorageContext returns the storage context.
func (bi *BaseIndex) StorageContext() *storage.StorageContext {
	return bi.storageContext
}

// ServiceContext returns the service context.
func (bi *BaseIndex) ServiceContext() *settings.ServiceContext {
	return bi.serviceContext
}

// Summary returns the index summary.
func (bi *BaseIndex) Summary() string {
	return bi.indexStruct.Summary
}

// SetSummary sets the index summary.
func (bi *BaseIndex) SetSummary(ctx context.Context, summary string) error {
	bi.indexStruct.Summary = summary
	return bi.saveIndexStruct(ctx)
}

func (bi *BaseIndex) saveIndexStruct(ctx context.Context) error {
	if err := bi.storageContext.IndexStore.AddIndexStruct(ctx, bi.indexStruct); err != nil {
		return fmt.Errorf("failed to save index struct: %w", err)
	}
	return nil
}

func (bi *BaseIndex) logger() *slog.Logger {
	if bi.serviceContext != nil && bi.serviceContext.Logger != nil {
		return bi.serviceContext.Logger
	}
	return slog.Default()
}
