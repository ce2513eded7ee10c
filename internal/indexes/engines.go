package indexes

import (
	"fmt"
	"time"

	"github.com/aqua777/indexquery/index"
	"github.com/aqua777/indexquery/rag/queryengine"
	"github.com/aqua777/indexquery/rag/synthesizer"
)

// EngineConfig shapes the query engines built over the indexes.
type EngineConfig struct {
	TopK              int
	ResponseMode      synthesizer.ResponseMode
	GraphResponseMode synthesizer.ResponseMode
	MaxRetries        int
	RetryDelay        time.Duration
}

// Engines builds one query engine per index plus one for graph under
// graphName. Every engine retries transient failures.
func (b *Builder) Engines(all map[string]index.Index, graph *index.ComposableGraph, cfg EngineConfig) (map[string]queryengine.QueryEngine, error) {
	groupOpts := []index.QueryEngineOption{
		index.WithQueryEngineTopK(cfg.TopK),
		index.WithQueryEngineLogger(b.logger),
	}
	if cfg.ResponseMode != "" {
		groupOpts = append(groupOpts, index.WithResponseMode(cfg.ResponseMode))
	}

	engines := make(map[string]queryengine.QueryEngine, len(all)+1)
	for name, idx := range all {
		engine, err := idx.AsQueryEngine(groupOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create query engine for %s: %w", name, err)
		}
		engines[name] = b.withRetry(engine, cfg)
	}

	if graph != nil {
		graphOpts := []index.QueryEngineOption{
			index.WithQueryEngineLogger(b.logger),
			index.WithChildQueryEngineOptions(groupOpts...),
		}
		if cfg.GraphResponseMode != "" {
			graphOpts = append(graphOpts, index.WithResponseMode(cfg.GraphResponseMode))
		}
		engine, err := graph.AsQueryEngine(graphOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create graph query engine: %w", err)
		}
		engines[b.catalog.GraphName] = b.withRetry(engine, cfg)
	}
	return engines, nil
}

func (b *Builder) withRetry(engine queryengine.QueryEngine, cfg EngineConfig) queryengine.QueryEngine {
	return queryengine.NewRetryQueryEngine(engine,
		queryengine.WithMaxRetries(cfg.MaxRetries),
		queryengine.WithRetryDelay(cfg.RetryDelay),
		queryengine.WithRetryLogger(b.logger),
	)
}
