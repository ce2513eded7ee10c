package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/indexquery/embedding"
	"github.com/aqua777/indexquery/rag/store"
	"github.com/aqua777/indexquery/schema"
	"github.com/aqua777/indexquery/storage/docstore"
)

func embeddedNode(t *testing.T, model *embedding.MockEmbeddingModel, id, text string) schema.Node {
	t.Helper()
	node := schema.NewTextNode(text)
	node.ID = id
	node.RefDocID = "doc-" + id
	emb, err := model.GetTextEmbedding(context.Background(), text)
	require.NoError(t, err)
	node.Embedding = emb
	return *node
}

func setup(t *testing.T) (*store.SimpleVectorStore, *docstore.SimpleDocumentStore, *embedding.MockEmbeddingModel) {
	t.Helper()
	ctx := context.Background()
	model := &embedding.MockEmbeddingModel{}
	vs := store.NewSimpleVectorStore()
	ds := docstore.NewSimpleDocumentStore()

	nodes := []schema.Node{
		embeddedNode(t, model, "rev", "revenue grew strongly in 2021"),
		embeddedNode(t, model, "drv", "drivers are independent contractors"),
		embeddedNode(t, model, "eat", "delivery orders from restaurants"),
	}
	_, err := vs.Add(ctx, nodes)
	require.NoError(t, err)
	for i := range nodes {
		nodes[i].Embedding = nil
		nodes[i].Metadata["source"] = "stored"
	}
	require.NoError(t, ds.AddNodes(ctx, nodes, false))
	return vs, ds, model
}

func TestVectorRetriever(t *testing.T) {
	ctx := context.Background()
	vs, ds, model := setup(t)

	t.Run("store hits only", func(t *testing.T) {
		r := NewVectorRetriever(vs, model, WithTopK(1))
		res, err := r.Retrieve(ctx, schema.QueryBundle{QueryString: "revenue grew"})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "rev", res[0].Node.ID)
		assert.Empty(t, res[0].Node.Metadata)
	})

	t.Run("hydrated from docstore", func(t *testing.T) {
		r := NewVectorRetriever(vs, model, WithDocStore(ds, nil))
		assert.Equal(t, DefaultTopK, r.TopK)

		res, err := r.Retrieve(ctx, schema.QueryBundle{QueryString: "drivers contractors"})
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, "drv", res[0].Node.ID)
		assert.Equal(t, "stored", res[0].Node.Metadata["source"])
		assert.Equal(t, "drivers are independent contractors", res[0].Node.Text)
	})

	t.Run("missing docstore node falls back to hit", func(t *testing.T) {
		require.NoError(t, ds.DeleteNode(ctx, "eat"))
		r := NewVectorRetriever(vs, model, WithDocStore(ds, nil), WithTopK(3))
		res, err := r.Retrieve(ctx, schema.QueryBundle{QueryString: "delivery restaurants"})
		require.NoError(t, err)
		require.NotEmpty(t, res)
		assert.Equal(t, "eat", res[0].Node.ID)
	})

	t.Run("embedding error", func(t *testing.T) {
		boom := errors.New("boom")
		r := NewVectorRetriever(vs, &embedding.MockEmbeddingModel{Err: boom})
		_, err := r.Retrieve(ctx, schema.QueryBundle{QueryString: "x"})
		assert.ErrorIs(t, err, boom)
	})
}

func TestListRetriever(t *testing.T) {
	ctx := context.Background()
	_, ds, _ := setup(t)

	r := NewListRetriever(ds, []string{"eat", "rev"})
	res, err := r.Retrieve(ctx, schema.QueryBundle{})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "eat", res[0].Node.ID)
	assert.Equal(t, "rev", res[1].Node.ID)

	_, err = NewListRetriever(ds, []string{"nope"}).Retrieve(ctx, schema.QueryBundle{})
	assert.ErrorIs(t, err, docstore.ErrNodeNotFound)
}

func TestRetrieverFunc(t *testing.T) {
	var r Retriever = RetrieverFunc(func(ctx context.Context, q schema.QueryBundle) ([]schema.NodeWithScore, error) {
		return []schema.NodeWithScore{{Node: schema.Node{ID: q.QueryString}}}, nil
	})
	res, err := r.Retrieve(context.Background(), schema.QueryBundle{QueryString: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", res[0].Node.ID)
}
