package chromem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/indexquery/schema"
)

func testNodes() []schema.Node {
	return []schema.Node{
		{ID: "1", Text: "Uber mobility revenue.", Type: schema.ObjectTypeText, RefDocID: "doc-2021", Embedding: []float64{1, 0, 0}},
		{ID: "2", Text: "Screenplay midpoint beat.", Type: schema.ObjectTypeText, RefDocID: "doc-blake", Embedding: []float64{0, 1, 0}},
		{ID: "3", Text: "Uber delivery revenue.", Type: schema.ObjectTypeText, RefDocID: "doc-2021", Embedding: []float64{0.9, 0.1, 0}},
	}
}

func TestChromemStore(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewChromemStore(dir, "")
	require.NoError(t, err)

	ids, err := s.Add(ctx, testNodes())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)
	assert.Equal(t, 3, s.Count())

	t.Run("query ranks by similarity", func(t *testing.T) {
		res, err := s.Query(ctx, schema.NewVectorStoreQuery([]float64{1, 0, 0}, 2))
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, "1", res[0].Node.ID)
		assert.Equal(t, "3", res[1].Node.ID)
		assert.Equal(t, "doc-2021", res[0].Node.RefDocID)
		assert.Equal(t, "Uber mobility revenue.", res[0].Node.Text)
		assert.InDelta(t, 1.0, res[0].Score, 1e-4)
	})

	t.Run("top k above count is capped", func(t *testing.T) {
		res, err := s.Query(ctx, schema.NewVectorStoreQuery([]float64{0, 1, 0}, 10))
		require.NoError(t, err)
		assert.Len(t, res, 3)
		assert.Equal(t, "2", res[0].Node.ID)
	})

	t.Run("database lives under the persist dir", func(t *testing.T) {
		info, err := os.Stat(filepath.Join(dir, Dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("reopen", func(t *testing.T) {
		s2, err := NewChromemStore(dir, "")
		require.NoError(t, err)
		assert.Equal(t, 3, s2.Count())

		res, err := s2.Query(ctx, schema.NewVectorStoreQuery([]float64{1, 0, 0}, 1))
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "1", res[0].Node.ID)
	})

	t.Run("delete by ref doc", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "doc-2021"))
		assert.Equal(t, 1, s.Count())
	})
}

func TestChromemStore_InMemory(t *testing.T) {
	ctx := context.Background()
	s, err := NewChromemStore("", "mem")
	require.NoError(t, err)

	res, err := s.Query(ctx, schema.NewVectorStoreQuery([]float64{1, 0}, 2))
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = s.Add(ctx, []schema.Node{{ID: "A", Text: "Alpha", Embedding: []float64{0.5, 0.5}}})
	require.NoError(t, err)

	res, err = s.Query(ctx, schema.NewVectorStoreQuery([]float64{0.5, 0.5}, 1))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "A", res[0].Node.ID)

	_, err = s.Add(ctx, []schema.Node{{ID: "B", Text: "no vector"}})
	assert.Error(t, err)
}
