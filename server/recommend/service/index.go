package service

import (
	"sort"

	"github.com/pkg/errors"

	"chatbot_server/server/recommend/domain"
)

// Index is an exact flat L2 index. It is immutable once built.
type Index struct {
	dim     int
	vectors [][]float32
}

func NewIndex(vectors [][]float32) (*Index, error) {
	if len(vectors) == 0 {
		return nil, errors.New("index needs at least one vector")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, errors.New("index vectors must not be empty")
	}
	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, errors.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
		stored[i] = append([]float32(nil), v...)
	}
	return &Index{dim: dim, vectors: stored}, nil
}

func (x *Index) Len() int { return len(x.vectors) }

func (x *Index) Dim() int { return x.dim }

// Search returns the k nearest positions by ascending squared L2 distance.
// Equal distances keep insertion order; k is clamped to [1, Len()].
func (x *Index) Search(query []float32, k int) ([]domain.Hit, error) {
	if len(query) != x.dim {
		return nil, errors.Errorf("query has dimension %d, want %d", len(query), x.dim)
	}
	if k < 1 {
		k = 1
	}
	if k > len(x.vectors) {
		k = len(x.vectors)
	}
	hits := make([]domain.Hit, len(x.vectors))
	for i, v := range x.vectors {
		var d float32
		for j := range v {
			diff := v[j] - query[j]
			d += diff * diff
		}
		hits[i] = domain.Hit{Position: i, Distance: d}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })
	return hits[:k], nil
}
