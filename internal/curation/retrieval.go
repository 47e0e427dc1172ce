package curation

import (
	"context"
	"errors"
	"fmt"

	"github.com/justestif/go-gem-curator/internal/vecmath"
)

// ErrSearchFailed marks a retrieval failure (degenerate query vector or
// unreachable storage) as distinct from "search succeeded with zero
// results". The two cases drive different user-facing messages.
var ErrSearchFailed = errors.New("vector search failed")

// Engine performs constrained nearest-neighbor retrieval against the
// catalog. It owns the contract; the catalog owns the mechanism (pgvector
// index at scale, linear scan for small catalogs).
type Engine struct {
	catalog Catalog
}

// NewEngine creates a retrieval engine over the given catalog.
func NewEngine(catalog Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Search returns up to limit candidates ordered ascending by distance to
// query, honoring the exclusion state and numeric filters. An empty
// exclusion state excludes nothing. Failures wrap ErrSearchFailed.
func (e *Engine) Search(ctx context.Context, query []float32, excl *ExclusionState, filters Filters, limit int) ([]Candidate, error) {
	if len(query) == 0 || vecmath.Norm(query) == 0 {
		return nil, fmt.Errorf("%w: degenerate query vector", ErrSearchFailed)
	}

	var excludeIDs []int64
	var excludeArtists []string
	if excl != nil {
		excludeIDs = excl.TrackIDList()
		excludeArtists = excl.ArtistList()
	}

	candidates, err := e.catalog.RankByDistance(ctx, query, excludeIDs, excludeArtists, filters, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	return candidates, nil
}
