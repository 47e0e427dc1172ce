package curation

import (
	"context"
	"fmt"

	"github.com/justestif/go-gem-curator/internal/vecmath"
)

// CentroidService computes a playlist's aggregate position in embedding
// space. The centroid is recomputed per session, never persisted.
type CentroidService struct {
	catalog Catalog
}

// NewCentroidService creates a CentroidService over the given catalog.
func NewCentroidService(catalog Catalog) *CentroidService {
	return &CentroidService{catalog: catalog}
}

// Compute averages the playlist's non-null member embeddings and returns
// the unit-normalized result. A playlist with no embedded members yields
// (nil, nil): an expected boundary condition, not an error. Callers branch
// on nil and present a "nothing to work with" outcome.
//
// Normalization matters for ranking invariance: cosine distance ranking
// depends only on direction, and a unit-length query keeps the numbers
// stable if the metric ever changes to dot product.
func (s *CentroidService) Compute(ctx context.Context, playlistID int64) ([]float32, error) {
	vecs, err := s.catalog.PlaylistEmbeddings(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("loading playlist embeddings: %w", err)
	}

	mean := vecmath.Mean(vecs)
	if mean == nil {
		return nil, nil
	}
	return vecmath.Normalize(mean), nil
}
