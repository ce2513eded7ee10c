// Package chat answers one query against one named index.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aqua777/indexquery/internal/metrics"
	"github.com/aqua777/indexquery/internal/registry"
	"github.com/aqua777/indexquery/rag/synthesizer"
)

// Handler routes queries to the engines of a registry.
type Handler struct {
	registry *registry.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
	timeout  time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetrics records every query.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithTimeout bounds each query. Zero means no bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.timeout = d
	}
}

// NewHandler creates a Handler over reg.
func NewHandler(reg *registry.Registry, opts ...Option) *Handler {
	h := &Handler{
		registry: reg,
		logger:   slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Answer returns the answer text of the engine registered as indexName.
// The query is passed on as given, including when it is empty.
func (h *Handler) Answer(ctx context.Context, query, indexName string) (string, error) {
	resp, err := h.Query(ctx, query, indexName)
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Query is Answer with the full response, sources included.
func (h *Handler) Query(ctx context.Context, query, indexName string) (*synthesizer.Response, error) {
	engine, err := h.registry.Get(indexName)
	if err != nil {
		h.metrics.ObserveQuery(indexName, metrics.OutcomeUnknownIndex, 0)
		return nil, err
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := engine.Query(ctx, query)
	elapsed := time.Since(start)
	if err != nil {
		h.metrics.ObserveQuery(indexName, metrics.OutcomeError, elapsed)
		h.logger.Error("Query failed", "index", indexName, "elapsed", elapsed, "error", err)
		return nil, fmt.Errorf("query on index %s failed: %w", indexName, err)
	}

	h.metrics.ObserveQuery(indexName, metrics.OutcomeOK, elapsed)
	h.logger.Info("Query answered", "index", indexName, "query_len", len(query), "sources", len(resp.SourceNodes), "elapsed", elapsed)
	return resp, nil
}

// Indexes returns the selectable index names in display order.
func (h *Handler) Indexes() []string {
	return h.registry.Names()
}

// IsUnknownIndex reports whether err comes from an unregistered index name.
func IsUnknownIndex(err error) bool {
	return errors.Is(err, registry.ErrUnknownIndex)
}
