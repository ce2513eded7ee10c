package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/indexquery/rag/store"
	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/storage/indexstore"
)

func fill(t *testing.T) BuildFunc {
	return func(ctx context.Context, sc *StorageContext) error {
		node := schema.NewTextNode("Persisted content")
		node.ID = "n1"
		node.RefDocID = "doc1"
		node.Embedding = []float64{1, 0, 0}
		if err := sc.DocStore.AddNodes(ctx, []schema.Node{*node}, false); err != nil {
			return err
		}
		if _, err := sc.VectorStore.Add(ctx, []schema.Node{*node}); err != nil {
			return err
		}
		is := indexstore.NewVectorStoreIndex()
		is.IndexID = "persisted-index"
		is.AddNode("n1", "")
		return sc.IndexStore.AddIndexStruct(ctx, is)
	}
}

func TestNewStorageContext(t *testing.T) {
	sc := NewStorageContext(nil)
	assert.NotNil(t, sc.DocStore)
	assert.NotNil(t, sc.IndexStore)
	assert.IsType(t, &store.SimpleVectorStore{}, sc.VectorStore)
}

func TestNewStorageContextForDirUnknownKind(t *testing.T) {
	_, err := NewStorageContextForDir(t.TempDir(), store.Kind("faiss"))
	assert.Error(t, err)
}

func TestBuildAndPersistRoundTrip(t *testing.T) {
	for _, kind := range []store.Kind{store.KindSimple, store.KindChromem} {
		t.Run(string(kind), func(t *testing.T) {
			ctx := context.Background()
			dir := filepath.Join(t.TempDir(), "uber", "2021")

			_, err := BuildAndPersist(ctx, dir, kind, fill(t))
			require.NoError(t, err)

			for _, f := range []string{DocStoreFilename, IndexStoreFilename} {
				_, err := os.Stat(filepath.Join(dir, f))
				assert.NoError(t, err, f)
			}

			entries, err := os.ReadDir(filepath.Dir(dir))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "staging dir should be gone")

			sc, err := FromPersistDir(ctx, dir, kind)
			require.NoError(t, err)

			exists, err := sc.DocStore.NodeExists(ctx, "n1")
			require.NoError(t, err)
			assert.True(t, exists)

			is, err := sc.IndexStore.GetIndexStruct(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, "persisted-index", is.IndexID)

			res, err := sc.VectorStore.Query(ctx, schema.NewVectorStoreQuery([]float64{1, 0, 0}, 2))
			require.NoError(t, err)
			require.Len(t, res, 1)
			assert.Equal(t, "n1", res[0].Node.ID)
		})
	}
}

func TestBuildAndPersistFailureLeavesNoDir(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := filepath.Join(root, "mixed")
	boom := errors.New("boom")

	_, err := BuildAndPersist(ctx, dir, store.KindChromem, func(ctx context.Context, sc *StorageContext) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuildAndPersistExistingDir(t *testing.T) {
	dir := t.TempDir()
	_, err := BuildAndPersist(context.Background(), dir, store.KindSimple, fill(t))
	assert.Error(t, err)
}

func TestFromPersistDirMissing(t *testing.T) {
	_, err := FromPersistDir(context.Background(), filepath.Join(t.TempDir(), "none"), store.KindSimple)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
