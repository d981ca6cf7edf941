package retrieval

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corpusrepo "github.com/yungbote/pitwall/internal/data/repos/corpus"
	"github.com/yungbote/pitwall/internal/data/repos/testutil"
	"github.com/yungbote/pitwall/internal/domain/corpus"
	"github.com/yungbote/pitwall/internal/platform/logger"
	"github.com/yungbote/pitwall/internal/platform/qdrant"
)

func TestScanIndex_Search(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	testutil.SeedChunk(t, ctx, db, "Lewis Hamilton won.", []float32{1, 0, 0})
	testutil.SeedChunk(t, ctx, db, "Monaco is tight.", []float32{0, 1, 0})
	testutil.SeedChunk(t, ctx, db, "Broken row.", []float32{1, 0})
	for i := 0; i < 6; i++ {
		testutil.SeedChunk(t, ctx, db, "filler", []float32{0, 0.01, 1})
	}

	idx := NewScanIndex(logger.Nop(), corpusrepo.NewChunkRepo(db, logger.Nop()))
	res, err := idx.Search(ctx, []float32{0.9, 0.1, 0}, DefaultTopK)
	require.NoError(t, err)
	require.Len(t, res, 5)
	assert.Equal(t, "Lewis Hamilton won.", res[0].Chunk.Text)
	assert.Equal(t, "Monaco is tight.", res[1].Chunk.Text)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}
}

func TestScanIndex_EmptyCorpus(t *testing.T) {
	db := testutil.SQLite(t)
	idx := NewScanIndex(logger.Nop(), corpusrepo.NewChunkRepo(db, logger.Nop()))
	res, err := idx.Search(context.Background(), []float32{1}, DefaultTopK)
	require.NoError(t, err)
	assert.Empty(t, res)
}

type failingIndex struct{ calls int }

func (f *failingIndex) Search(ctx context.Context, q []float32, k int) ([]Result, error) {
	f.calls++
	return nil, errors.New("db down")
}

type bigIndex struct{}

func (bigIndex) Search(ctx context.Context, q []float32, k int) ([]Result, error) {
	out := make([]Result, 9)
	for i := range out {
		out[i] = Result{Chunk: &corpus.TextChunk{Text: "x"}, Score: 1 - float64(i)/10}
	}
	return out, nil
}

func TestRetriever_ReadFailureIsEmpty(t *testing.T) {
	idx := &failingIndex{}
	r := NewRetriever(logger.Nop(), idx, 0)
	assert.Empty(t, r.Retrieve(context.Background(), []float32{1}))
	assert.Equal(t, 1, idx.calls)

	assert.Empty(t, r.Retrieve(context.Background(), nil))
	assert.Equal(t, 1, idx.calls, "empty query vector never reaches the index")
}

func TestRetriever_CapsResults(t *testing.T) {
	r := NewRetriever(logger.Nop(), bigIndex{}, 5)
	assert.Len(t, r.Retrieve(context.Background(), []float32{1}), 5)
}

func TestQdrantIndex_IndexAndSearch(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	chunks := corpusrepo.NewChunkRepo(db, logger.Nop())
	a := testutil.SeedChunk(t, ctx, db, "Verstappen", []float32{1, 0})
	b := testutil.SeedChunk(t, ctx, db, "Leclerc", []float32{0, 1})

	var upserts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/pitwall_chunks":
			_, _ = w.Write([]byte(`{"result":{"config":{"params":{"vectors":{"size":2,"distance":"Cosine"}}}},"status":"ok"}`))
		case r.URL.Path == "/collections/pitwall_chunks/points":
			upserts++
			_, _ = w.Write([]byte(`{"result":{},"status":"ok"}`))
		case r.URL.Path == "/collections/pitwall_chunks/points/search":
			_, _ = w.Write([]byte(`{"result":[{"id":"` + b.ID.String() + `","score":0.97},{"id":"` + a.ID.String() + `","score":0.2}],"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := qdrant.NewClient(logger.Nop(), qdrant.Config{URL: srv.URL})
	require.NoError(t, err)
	idx := NewQdrantIndex(logger.Nop(), client, chunks)

	require.NoError(t, idx.Index(ctx, []*corpus.TextChunk{a, b}))
	assert.Equal(t, 1, upserts)

	res, err := idx.Search(ctx, []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Leclerc", res[0].Chunk.Text)
	assert.InDelta(t, 0.97, res[0].Score, 1e-9)
}
