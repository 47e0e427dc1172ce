package curation

import (
	"context"
	"sort"
	"sync"

	"github.com/justestif/go-gem-curator/internal/vecmath"
)

// Filters restricts retrieval to numeric feature ranges. Nil bounds are
// inactive. Semantics are strict: a track with a nil value for a filtered
// dimension is excluded by that filter.
type Filters struct {
	MinBPM    *float64
	MaxBPM    *float64
	MinEnergy *float64
	MaxEnergy *float64
}

// Match reports whether the track satisfies every active bound.
func (f Filters) Match(t *Track) bool {
	if f.MinBPM != nil && (t.BPM == nil || *t.BPM < *f.MinBPM) {
		return false
	}
	if f.MaxBPM != nil && (t.BPM == nil || *t.BPM > *f.MaxBPM) {
		return false
	}
	if f.MinEnergy != nil && (t.Energy == nil || *t.Energy < *f.MinEnergy) {
		return false
	}
	if f.MaxEnergy != nil && (t.Energy == nil || *t.Energy > *f.MaxEnergy) {
		return false
	}
	return true
}

// Catalog is the read boundary to the track library. The production
// implementation pushes ranking and filtering into PostgreSQL/pgvector;
// MemoryCatalog serves small catalogs and tests with the same contract.
type Catalog interface {
	// PlaylistTracks returns the member tracks of a playlist in order.
	PlaylistTracks(ctx context.Context, playlistID int64) ([]Track, error)

	// PlaylistEmbeddings returns the non-null member embeddings.
	PlaylistEmbeddings(ctx context.Context, playlistID int64) ([][]float32, error)

	// RankByDistance returns up to limit eligible tracks ordered ascending
	// by cosine distance to query, skipping excluded IDs/artists and tracks
	// failing the filters. Empty exclusion lists exclude nothing.
	RankByDistance(ctx context.Context, query []float32, excludeIDs []int64, excludeArtists []string, filters Filters, limit int) ([]Candidate, error)

	// FeatureAxis returns steering anchors for a named feature: the
	// centroid of high-feature tracks and of low-feature tracks. Either
	// may be nil when the catalog cannot provide the axis.
	FeatureAxis(ctx context.Context, feature string) (pos, neg []float32, err error)

	// AddTrackToPlaylist appends a track to a playlist (user accepted a
	// recommendation). Pure delegation; does not touch workflow state.
	AddTrackToPlaylist(ctx context.Context, playlistID, trackID int64) error
}

// MemoryCatalog is an in-memory Catalog backed by a brute-force linear
// scan. Ranking cost is O(n) per query, fine for catalogs up to a few
// thousand tracks and for tests.
type MemoryCatalog struct {
	mu        sync.RWMutex
	tracks    map[int64]Track
	vecs      map[int64][]float32
	playlists map[int64][]int64
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		tracks:    make(map[int64]Track),
		vecs:      make(map[int64][]float32),
		playlists: make(map[int64][]int64),
	}
}

// AddTrack registers a track with an optional embedding. A nil embedding
// makes the track ineligible for retrieval, mirroring the catalog
// invariant.
func (c *MemoryCatalog) AddTrack(t Track, embedding []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks[t.ID] = t
	if embedding != nil {
		c.vecs[t.ID] = embedding
	}
}

// SetPlaylist replaces a playlist's member track IDs.
func (c *MemoryCatalog) SetPlaylist(playlistID int64, trackIDs []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playlists[playlistID] = append([]int64(nil), trackIDs...)
}

// PlaylistTracks implements Catalog.
func (c *MemoryCatalog) PlaylistTracks(_ context.Context, playlistID int64) ([]Track, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.playlists[playlistID]
	tracks := make([]Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := c.tracks[id]; ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

// PlaylistEmbeddings implements Catalog.
func (c *MemoryCatalog) PlaylistEmbeddings(_ context.Context, playlistID int64) ([][]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out [][]float32
	for _, id := range c.playlists[playlistID] {
		if v, ok := c.vecs[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// RankByDistance implements Catalog with a full scan over embedded tracks.
func (c *MemoryCatalog) RankByDistance(_ context.Context, query []float32, excludeIDs []int64, excludeArtists []string, filters Filters, limit int) ([]Candidate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	excludedID := make(map[int64]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excludedID[id] = true
	}
	excludedArtist := make(map[string]bool, len(excludeArtists))
	for _, a := range excludeArtists {
		excludedArtist[a] = true
	}

	var out []Candidate
	for id, vec := range c.vecs {
		if excludedID[id] {
			continue
		}
		t := c.tracks[id]
		if excludedArtist[t.Artist] {
			continue
		}
		if !filters.Match(&t) {
			continue
		}
		out = append(out, Candidate{
			Track:    t,
			Distance: vecmath.CosineDistance(query, vec),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FeatureAxis implements Catalog: anchors are the mean embeddings of the
// top (>= 0.7) and bottom (<= 0.3) tracks by the named feature.
func (c *MemoryCatalog) FeatureAxis(_ context.Context, feature string) ([]float32, []float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var hi, lo [][]float32
	for id, vec := range c.vecs {
		t := c.tracks[id]
		v := featureValue(&t, feature)
		if v == nil {
			continue
		}
		switch {
		case *v >= 0.7:
			hi = append(hi, vec)
		case *v <= 0.3:
			lo = append(lo, vec)
		}
	}
	return vecmath.Mean(hi), vecmath.Mean(lo), nil
}

// AddTrackToPlaylist implements Catalog.
func (c *MemoryCatalog) AddTrackToPlaylist(_ context.Context, playlistID, trackID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.playlists[playlistID] {
		if id == trackID {
			return nil
		}
	}
	c.playlists[playlistID] = append(c.playlists[playlistID], trackID)
	return nil
}

func featureValue(t *Track, feature string) *float64 {
	switch feature {
	case "energy":
		return t.Energy
	case "danceability":
		return t.Danceability
	case "valence":
		return t.Valence
	case "acousticness":
		return t.Acousticness
	default:
		return nil
	}
}

var _ Catalog = (*MemoryCatalog)(nil)
