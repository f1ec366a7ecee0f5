package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	commonlog "chatbot_server/server/common/log"
	"chatbot_server/server/common/transport/httpresp"
)

const DefaultTopK = 3

var ErrMissingMessage = errors.New(httpresp.ErrMissingMessage)

type Options struct {
	TopK        int
	BatchSize   int
	Concurrency int
}

// Recommender answers nearest-listing queries. Listings and their vectors
// are built together at construction and never change afterwards.
type Recommender struct {
	embedder Embedder
	index    *Index
	listings []string
	topK     int
}

func NewRecommender(ctx context.Context, embedder Embedder, listings []string, opts Options) (*Recommender, error) {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	startedAt := time.Now()
	index, err := BuildIndex(ctx, embedder, listings, opts.BatchSize, opts.Concurrency)
	if err != nil {
		return nil, err
	}
	commonlog.Infof("event=recommend_index action=build status=ok listings=%d dim=%d latency_ms=%d", index.Len(), index.Dim(), time.Since(startedAt).Milliseconds())
	return &Recommender{
		embedder: embedder,
		index:    index,
		listings: append([]string(nil), listings...),
		topK:     opts.TopK,
	}, nil
}

// BuildIndex embeds listings in batches, running up to concurrency batches at
// once, and indexes the vectors in listing order.
func BuildIndex(ctx context.Context, embedder Embedder, listings []string, batchSize, concurrency int) (*Index, error) {
	if len(listings) == 0 {
		return nil, errors.New("no listings to index")
	}
	if batchSize <= 0 {
		batchSize = 16
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	vectors := make([][]float32, len(listings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for start := 0; start < len(listings); start += batchSize {
		end := min(start+batchSize, len(listings))
		g.Go(func() error {
			out, err := embedder.Embed(gctx, listings[start:end])
			if err != nil {
				return errors.Wrapf(err, "embed listings %d-%d", start, end-1)
			}
			if len(out) != end-start {
				return errors.Errorf("embed listings %d-%d: got %d vectors", start, end-1, len(out))
			}
			copy(vectors[start:end], out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewIndex(vectors)
}

func (r *Recommender) Len() int { return r.index.Len() }

func (r *Recommender) Recommend(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrMissingMessage
	}
	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, errors.Wrap(err, "embed query")
	}
	if len(vecs) != 1 {
		return nil, errors.Errorf("embed query: got %d vectors", len(vecs))
	}
	hits, err := r.index.Search(vecs[0], r.topK)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(hits))
	for _, hit := range hits {
		out = append(out, r.listings[hit.Position])
	}
	return out, nil
}
