// Package indexes builds, loads and composes the per-group indexes at startup.
package indexes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"

	"github.com/aqua777/indexquery/index"
	"github.com/aqua777/indexquery/internal/catalog"
	"github.com/aqua777/indexquery/internal/metrics"
	"github.com/aqua777/indexquery/rag/store"
	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/settings"
	"github.com/aqua777/indexquery/storage"
)

// Builder turns the catalog's groups into indexes. A group's persist
// directory decides between building and loading: present means load.
type Builder struct {
	catalog     *catalog.Catalog
	svc         *settings.ServiceContext
	docsDir     string
	storageDir  string
	kind        store.Kind
	readWorkers int
	metrics     *metrics.Metrics
	logger      *slog.Logger

	// documents read during this run, by group
	read map[string][]schema.Document
}

// Option configures a Builder.
type Option func(*Builder)

// WithVectorStoreKind selects the vector store written by new builds and
// expected by loads.
func WithVectorStoreKind(kind store.Kind) Option {
	return func(b *Builder) {
		b.kind = kind
	}
}

// WithReadWorkers sets how many files are read in parallel.
func WithReadWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.readWorkers = n
		}
	}
}

// WithMetrics records build, skip and load steps.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a Builder reading documents under docsDir and keeping
// indexes under storageDir.
func NewBuilder(cat *catalog.Catalog, svc *settings.ServiceContext, docsDir, storageDir string, opts ...Option) *Builder {
	b := &Builder{
		catalog:     cat,
		svc:         svc,
		docsDir:     docsDir,
		storageDir:  storageDir,
		kind:        store.KindChromem,
		readWorkers: 1,
		logger:      svc.Logger,
		read:        make(map[string][]schema.Document),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PersistDir returns where a group's index lives.
func (b *Builder) PersistDir(g catalog.Group) string {
	return filepath.Join(b.storageDir, g.PersistDir)
}

// BuildMissing builds and persists the index of every group whose persist
// directory does not exist, and returns the indexes it built. Aggregate
// groups are handled after the groups they draw from.
func (b *Builder) BuildMissing(ctx context.Context) (map[string]index.Index, error) {
	built := make(map[string]index.Index)

	for _, g := range b.ordered() {
		dir := b.PersistDir(g)
		exists, err := dirExists(dir)
		if err != nil {
			return nil, err
		}
		if exists {
			b.logger.Info("Skipping indexing", "group", g.Name, "dir", dir)
			b.metrics.IndexBuild(g.Name, metrics.ActionSkipped)
			continue
		}

		b.logger.Info("Performing indexing", "group", g.Name, "dir", dir)
		idx, err := b.build(ctx, g, dir)
		if err != nil {
			b.metrics.IndexBuild(g.Name, metrics.ActionFailed)
			return nil, fmt.Errorf("failed to build index %s: %w", g.Name, err)
		}
		b.metrics.IndexBuild(g.Name, metrics.ActionBuilt)
		built[g.Name] = idx
	}
	return built, nil
}

func (b *Builder) build(ctx context.Context, g catalog.Group, dir string) (index.Index, error) {
	docs, err := b.documents(ctx, g)
	if err != nil {
		return nil, err
	}

	var idx *index.VectorStoreIndex
	_, err = storage.BuildAndPersist(ctx, dir, b.kind, func(ctx context.Context, sc *storage.StorageContext) error {
		var err error
		idx, err = index.NewVectorStoreIndexFromDocuments(ctx, docs, b.svc,
			index.WithVectorIndexStorage(index.WithStorageContext(sc)))
		if err != nil {
			return err
		}
		return idx.SetSummary(ctx, g.Summary)
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// LoadRemaining loads from disk every group missing from resident and
// returns the complete set. The persisted contents are not validated.
func (b *Builder) LoadRemaining(ctx context.Context, resident map[string]index.Index) (map[string]index.Index, error) {
	all := maps.Clone(resident)
	if all == nil {
		all = make(map[string]index.Index)
	}

	for _, g := range b.catalog.Groups {
		if _, ok := all[g.Name]; ok {
			continue
		}
		dir := b.PersistDir(g)
		b.logger.Info("Loading index", "group", g.Name, "dir", dir)

		sc, err := storage.FromPersistDir(ctx, dir, b.kind)
		if err != nil {
			b.metrics.IndexBuild(g.Name, metrics.ActionFailed)
			return nil, fmt.Errorf("failed to load index %s: %w", g.Name, err)
		}
		idx, err := index.LoadIndexFromStorage(ctx, sc, b.svc, "")
		if err != nil {
			b.metrics.IndexBuild(g.Name, metrics.ActionFailed)
			return nil, fmt.Errorf("failed to load index %s: %w", g.Name, err)
		}
		b.metrics.IndexBuild(g.Name, metrics.ActionLoaded)
		all[g.Name] = idx
	}
	return all, nil
}

// ComposeGraph builds the composable graph over the catalog's graph members,
// each with its group summary.
func (b *Builder) ComposeGraph(ctx context.Context, all map[string]index.Index) (*index.ComposableGraph, error) {
	members := b.catalog.GraphMembers()
	children := make(map[string]index.Index, len(members))
	summaries := make(map[string]string, len(members))
	for _, g := range members {
		idx, ok := all[g.Name]
		if !ok {
			return nil, fmt.Errorf("graph member %s has no index", g.Name)
		}
		children[g.Name] = idx
		summaries[g.Name] = g.Summary
	}

	graph, err := index.NewComposableGraph(ctx, children, summaries, b.svc)
	if err != nil {
		return nil, fmt.Errorf("failed to compose graph: %w", err)
	}
	b.logger.Info("Composed graph", "name", b.catalog.GraphName, "children", len(members))
	return graph, nil
}

// ordered returns plain groups first, then aggregates.
func (b *Builder) ordered() []catalog.Group {
	var plain, aggregates []catalog.Group
	for _, g := range b.catalog.Groups {
		if g.Loader == catalog.LoaderAggregate {
			aggregates = append(aggregates, g)
		} else {
			plain = append(plain, g)
		}
	}
	return append(plain, aggregates...)
}

func dirExists(dir string) (bool, error) {
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		return info.IsDir(), nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
