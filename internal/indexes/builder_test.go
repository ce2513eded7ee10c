package indexes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/indexquery/embedding"
	"github.com/aqua777/indexquery/internal/catalog"
	"github.com/aqua777/indexquery/internal/metrics"
	"github.com/aqua777/indexquery/internal/registry"
	"github.com/aqua777/indexquery/llm"
	"github.com/aqua777/indexquery/rag/store"
	"github.com/aqua777/indexquery/settings"
)

type countingEmbedding struct {
	embedding.MockEmbeddingModel
	texts atomic.Int64
}

func (c *countingEmbedding) GetTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	c.texts.Add(1)
	return c.MockEmbeddingModel.GetTextEmbedding(ctx, text)
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func docsFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for year, body := range map[string]string{
		"2020": "Uber revenue in 2020 was 11.1 billion dollars. Mobility trips fell during the pandemic.",
		"2021": "Uber revenue in 2021 was 17.5 billion dollars. Delivery grew faster than mobility.",
	} {
		writeFile(t, filepath.Join(dir, "uber", "UBER_"+year+".html"),
			"<html><head><title>UBER "+year+"</title></head><body><article><p>"+body+"</p></article></body></html>")
	}
	writeFile(t, filepath.Join(dir, "mixed", "notes.txt"), "Quarterly planning notes. Hiring is frozen until March.")
	writeFile(t, filepath.Join(dir, "mixed", ".hidden.txt"), "should never be indexed")
	writeFile(t, filepath.Join(dir, "blake", "beats.md"), "# Beat sheet\n\nThe catalyst comes on page twelve. The midpoint raises the stakes.")
	return dir
}

type fixture struct {
	cat        *catalog.Catalog
	svc        *settings.ServiceContext
	embed      *countingEmbedding
	llm        *llm.MockLLM
	docsDir    string
	storageDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cat:        catalog.Default([]int{2020, 2021}),
		embed:      &countingEmbedding{},
		llm:        llm.NewMockLLM("an answer"),
		docsDir:    docsFixture(t),
		storageDir: t.TempDir(),
	}
	helper, err := settings.NewPromptHelper(3000, 256, 20, 512, nil)
	require.NoError(t, err)
	f.svc, err = settings.NewServiceContext(f.llm, f.embed,
		settings.WithPromptHelper(helper),
		settings.WithLogger(quiet()),
	)
	require.NoError(t, err)
	return f
}

func (f *fixture) builder(opts ...Option) *Builder {
	opts = append([]Option{WithVectorStoreKind(store.KindSimple), WithLogger(quiet())}, opts...)
	return NewBuilder(f.cat, f.svc, f.docsDir, f.storageDir, opts...)
}

func TestBuildMissing(t *testing.T) {
	ctx := context.Background()

	t.Run("builds every group once", func(t *testing.T) {
		f := newFixture(t)
		m := metrics.New()

		built, err := f.builder(WithMetrics(m)).BuildMissing(ctx)
		require.NoError(t, err)
		assert.Len(t, built, len(f.cat.Groups))

		for _, g := range f.cat.Groups {
			assert.DirExists(t, filepath.Join(f.storageDir, g.PersistDir), g.Name)
			assert.Equal(t, g.Summary, built[g.Name].Summary(), g.Name)
		}
		assert.DirExists(t, filepath.Join(f.storageDir, "uber", "2020"))

		// all_docs holds both filings plus mixed
		assert.Len(t, built[catalog.AllDocs].IndexStruct().NodesDict, 3)
		assert.Len(t, built[catalog.Mixed].IndexStruct().NodesDict, 1)

		embedded := f.embed.texts.Load()
		assert.Positive(t, embedded)

		again, err := f.builder().BuildMissing(ctx)
		require.NoError(t, err)
		assert.Empty(t, again)
		assert.Equal(t, embedded, f.embed.texts.Load(), "existing indexes must not be re-embedded")
	})

	t.Run("rebuilds only the missing group", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.builder().BuildMissing(ctx)
		require.NoError(t, err)

		require.NoError(t, os.RemoveAll(filepath.Join(f.storageDir, catalog.AllDocs)))

		built, err := f.builder().BuildMissing(ctx)
		require.NoError(t, err)
		require.Len(t, built, 1)
		assert.Len(t, built[catalog.AllDocs].IndexStruct().NodesDict, 3)
	})

	t.Run("group metadata reaches the nodes", func(t *testing.T) {
		f := newFixture(t)
		built, err := f.builder().BuildMissing(ctx)
		require.NoError(t, err)

		ds := built["2021"].StorageContext().DocStore
		for nodeID := range built["2021"].IndexStruct().NodesDict {
			node, err := ds.GetNode(ctx, nodeID)
			require.NoError(t, err)
			assert.EqualValues(t, 2021, node.Metadata["year"])
		}
	})

	t.Run("missing source file fails without leaving a directory", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, os.Remove(filepath.Join(f.docsDir, "uber", "UBER_2021.html")))

		_, err := f.builder().BuildMissing(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2021")
		assert.NoDirExists(t, filepath.Join(f.storageDir, "uber", "2021"))
	})
}

func TestLoadRemaining(t *testing.T) {
	ctx := context.Background()

	t.Run("loads what was not built", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.builder().BuildMissing(ctx)
		require.NoError(t, err)

		b := f.builder()
		built, err := b.BuildMissing(ctx)
		require.NoError(t, err)

		all, err := b.LoadRemaining(ctx, built)
		require.NoError(t, err)
		require.Len(t, all, len(f.cat.Groups))
		assert.Equal(t, "Video workshop collection of documents", all[catalog.Blake].Summary())
		assert.Len(t, all[catalog.AllDocs].IndexStruct().NodesDict, 3)
	})

	t.Run("keeps resident indexes", func(t *testing.T) {
		f := newFixture(t)
		b := f.builder()
		built, err := b.BuildMissing(ctx)
		require.NoError(t, err)

		all, err := b.LoadRemaining(ctx, built)
		require.NoError(t, err)
		for name, idx := range built {
			assert.Same(t, idx, all[name])
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.builder().LoadRemaining(ctx, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}

func TestEngines(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.builder()

	built, err := b.BuildMissing(ctx)
	require.NoError(t, err)
	all, err := b.LoadRemaining(ctx, built)
	require.NoError(t, err)

	graph, err := b.ComposeGraph(ctx, all)
	require.NoError(t, err)
	assert.Equal(t, []string{"2020", "2021"}, graph.ChildNames())

	engines, err := b.Engines(all, graph, EngineConfig{TopK: 2, MaxRetries: 0, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	assert.Len(t, engines, len(f.cat.Groups)+1)

	reg, err := registry.New(engines, f.cat.Selector)
	require.NoError(t, err)
	assert.Equal(t, []string{"2020", "2021", "graph", "blake", "mixed", "all_docs"}, reg.Names())

	for _, name := range []string{catalog.Mixed, catalog.GraphName} {
		engine, err := reg.Get(name)
		require.NoError(t, err)
		resp, err := engine.Query(ctx, "What was revenue?")
		require.NoError(t, err, name)
		assert.Equal(t, "an answer", resp.Response, name)
	}
}

func TestComposeGraphMissingMember(t *testing.T) {
	f := newFixture(t)
	_, err := f.builder().ComposeGraph(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no index")
}
