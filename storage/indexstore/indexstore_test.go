package indexstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/indexquery/storage/kvstore"
)

func TestIndexStruct(t *testing.T) {
	t.Run("vector index", func(t *testing.T) {
		is := NewVectorStoreIndex()
		assert.NotEmpty(t, is.IndexID)
		assert.Equal(t, IndexStructTypeVectorStore, is.Type)

		assert.Equal(t, "n1", is.AddNode("n1", ""))
		assert.Equal(t, "t2", is.AddNode("n2", "t2"))
		assert.Equal(t, map[string]string{"n1": "n1", "t2": "n2"}, is.NodesDict)

		is.DeleteNode("n1")
		assert.Len(t, is.NodesDict, 1)
	})

	t.Run("list index keeps order", func(t *testing.T) {
		is := NewListIndex()
		is.AddToList("b")
		is.AddToList("a")
		assert.Equal(t, []string{"b", "a"}, is.Nodes)
	})

	t.Run("summary", func(t *testing.T) {
		is := NewListIndex()
		_, err := is.GetSummary()
		assert.ErrorIs(t, err, ErrSummaryNotSet)

		is.Summary = "UBER 10-k filings"
		s, err := is.GetSummary()
		require.NoError(t, err)
		assert.Equal(t, "UBER 10-k filings", s)
	})
}

func TestSimpleIndexStore(t *testing.T) {
	ctx := context.Background()
	store := NewSimpleIndexStore()

	_, err := store.GetIndexStruct(ctx, "")
	assert.ErrorIs(t, err, ErrIndexStructNotFound)

	first := NewVectorStoreIndex()
	first.AddNode("n1", "")
	require.NoError(t, store.AddIndexStruct(ctx, first))

	only, err := store.GetIndexStruct(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, first.IndexID, only.IndexID)
	assert.Equal(t, first.NodesDict, only.NodesDict)

	second := NewListIndex()
	require.NoError(t, store.AddIndexStruct(ctx, second))

	_, err = store.GetIndexStruct(ctx, "")
	assert.ErrorIs(t, err, ErrMultipleIndexStructs)

	byType, err := store.GetIndexStructByType(ctx, IndexStructTypeList)
	require.NoError(t, err)
	assert.Equal(t, second.IndexID, byType.IndexID)

	structs, err := store.IndexStructs(ctx)
	require.NoError(t, err)
	assert.Len(t, structs, 2)

	require.NoError(t, store.DeleteIndexStruct(ctx, second.IndexID))
	_, err = store.GetIndexStruct(ctx, second.IndexID)
	assert.ErrorIs(t, err, ErrIndexStructNotFound)
}

func TestSimpleIndexStorePersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), DefaultPersistFilename)

	store := NewSimpleIndexStore()
	is := NewVectorStoreIndex()
	is.Summary = "mixed folder"
	is.AddNode("n1", "")
	require.NoError(t, store.AddIndexStruct(ctx, is))
	require.NoError(t, store.Persist(ctx, path))

	loaded, err := LoadSimpleIndexStore(ctx, path)
	require.NoError(t, err)

	got, err := loaded.GetIndexStruct(ctx, is.IndexID)
	require.NoError(t, err)
	assert.Equal(t, is, got)
}

func TestKVIndexStoreWithNamespace(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewSimpleKVStore()

	a := NewKVIndexStore(kv, WithIndexStoreNamespace("a"))
	b := NewKVIndexStore(kv, WithIndexStoreNamespace("b"))

	require.NoError(t, a.AddIndexStruct(ctx, NewListIndex()))

	structs, err := b.IndexStructs(ctx)
	require.NoError(t, err)
	assert.Empty(t, structs)
	assert.Equal(t, 1, kv.Len("a/data"))
}
