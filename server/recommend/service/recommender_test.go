package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbot_server/server/recommend/domain"
)

func TestHashEmbedderIsDeterministicAndNormalised(t *testing.T) {
	e := NewHashEmbedder(64)
	out, err := e.Embed(context.Background(), []string{"Room near campus", "room NEAR campus!", ""})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, out[0], out[1])
	assert.Len(t, out[0], 64)

	var norm float32
	for _, v := range out[0] {
		norm += v * v
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
	assert.Equal(t, make([]float32, 64), out[2])
}

func TestIndexSearchOrdersByDistanceAndKeepsTies(t *testing.T) {
	idx, err := NewIndex([][]float32{{1, 0}, {0, 1}, {1, 0}, {5, 5}})
	require.NoError(t, err)

	hits, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 0, hits[0].Position)
	assert.Equal(t, 2, hits[1].Position)
	assert.Equal(t, 1, hits[2].Position)
	assert.Zero(t, hits[0].Distance)

	hits, err = idx.Search([]float32{1, 0}, 99)
	require.NoError(t, err)
	assert.Len(t, hits, 4)

	hits, err = idx.Search([]float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	_, err = idx.Search([]float32{1}, 1)
	assert.Error(t, err)
}

func TestNewIndexRejectsMismatchedDimensions(t *testing.T) {
	_, err := NewIndex([][]float32{{1, 2}, {1}})
	assert.Error(t, err)
	_, err = NewIndex(nil)
	assert.Error(t, err)
}

func TestRecommendExactListingComesFirst(t *testing.T) {
	r, err := NewRecommender(context.Background(), NewHashEmbedder(0), domain.DefaultListings, Options{})
	require.NoError(t, err)
	require.Equal(t, len(domain.DefaultListings), r.Len())

	for _, listing := range domain.DefaultListings {
		got, err := r.Recommend(context.Background(), listing)
		require.NoError(t, err)
		require.Len(t, got, DefaultTopK)
		assert.Equal(t, listing, got[0])
		assert.ElementsMatch(t, domain.DefaultListings, got)
	}

	_, err = r.Recommend(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrMissingMessage)
}

func TestRecommendRespectsTopK(t *testing.T) {
	r, err := NewRecommender(context.Background(), NewHashEmbedder(32), domain.DefaultListings, Options{TopK: 2})
	require.NoError(t, err)
	got, err := r.Recommend(context.Background(), "cheap room near public transport")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

type countingEmbedder struct {
	inner *HashEmbedder
	calls atomic.Int32
	fail  bool
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	if c.fail {
		return nil, errors.New("embedding backend down")
	}
	return c.inner.Embed(ctx, texts)
}

func TestBuildIndexBatchesKeepListingOrder(t *testing.T) {
	listings := make([]string, 0, 10)
	for i := range 10 {
		listings = append(listings, "listing number "+string(rune('a'+i)))
	}
	emb := &countingEmbedder{inner: NewHashEmbedder(16)}
	idx, err := BuildIndex(context.Background(), emb, listings, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 10, idx.Len())
	assert.EqualValues(t, 4, emb.calls.Load())

	want, _ := emb.inner.Embed(context.Background(), listings[7:8])
	hits, err := idx.Search(want[0], 1)
	require.NoError(t, err)
	assert.Equal(t, 7, hits[0].Position)
}

func TestBuildIndexPropagatesEmbedderError(t *testing.T) {
	_, err := BuildIndex(context.Background(), &countingEmbedder{fail: true}, domain.DefaultListings, 1, 2)
	assert.ErrorContains(t, err, "embedding backend down")
}

func TestLoadListingsSources(t *testing.T) {
	ctx := context.Background()

	got, err := LoadListings(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultListings, got)

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "listings.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("listings:\n  - Quiet studio\n  - ' '\n  - Shared flat\n"), 0o644))
	got, err = LoadListings(ctx, yamlPath, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Quiet studio", "Shared flat"}, got)

	jsonPath := filepath.Join(dir, "listings.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`["Loft downtown"]`), 0o644))
	got, err = LoadListings(ctx, jsonPath, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Loft downtown"}, got)

	reader := func(_ context.Context, bucket, key string) ([]byte, error) {
		assert.Equal(t, "catalogue", bucket)
		assert.Equal(t, "houses/listings.yaml", key)
		return []byte("- Garden room\n"), nil
	}
	got, err = LoadListings(ctx, "minio://catalogue/houses/listings.yaml", reader)
	require.NoError(t, err)
	assert.Equal(t, []string{"Garden room"}, got)

	_, err = LoadListings(ctx, "minio://catalogue/houses/listings.yaml", nil)
	assert.Error(t, err)
	_, err = LoadListings(ctx, filepath.Join(dir, "missing.yaml"), nil)
	assert.Error(t, err)
	_, err = ParseListings([]byte("[]"))
	assert.Error(t, err)
}

func TestOpenAIEmbedderOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 1, "embedding": []float32{0, 1}},
				{"object": "embedding", "index": 0, "embedding": []float32{1, 0}},
			},
			"model": "test-embed",
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "key", "test-embed")
	out, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, out)
}
