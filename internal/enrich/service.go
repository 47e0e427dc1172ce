package enrich

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/sync/errgroup"

	"github.com/justestif/go-gem-curator/internal/curation"
)

// ErrTrackNotFound is returned when the external catalog has no match for
// a track.
var ErrTrackNotFound = errors.New("track not found in external catalog")

const defaultConcurrency = 4

// MusicSource resolves tracks against an external catalog and fetches
// their audio features and artist genres. *SpotifyClient is the production
// implementation.
type MusicSource interface {
	FindTrack(ctx context.Context, artist, title string) (*TrackLookup, error)
	AudioFeatures(ctx context.Context, ids []spotify.ID) ([]*spotify.AudioFeatures, error)
	ArtistGenres(ctx context.Context, id spotify.ID) ([]string, error)
}

// GenreSource supplies genre names when the primary source has none.
// *lastfm.Client is the production implementation.
type GenreSource interface {
	TopGenres(ctx context.Context, artist, title string, limit int) ([]string, error)
}

// FeatureSink persists enrichment results so future sessions skip the
// round trip. *db.CatalogRepository is the production implementation.
type FeatureSink interface {
	SaveFeatures(ctx context.Context, features map[int64]curation.Features) error
}

// Service implements curation.Enricher. Track resolution fans out with
// bounded concurrency; audio features come back in one batched call.
// Everything is best effort: a track that cannot be resolved or enriched
// is simply absent from the result.
type Service struct {
	source      MusicSource
	genres      GenreSource
	sink        FeatureSink
	concurrency int
}

// NewService wires an enrichment service. Any collaborator may be nil;
// the service then skips that stage.
func NewService(source MusicSource, genres GenreSource, sink FeatureSink) *Service {
	return &Service{
		source:      source,
		genres:      genres,
		sink:        sink,
		concurrency: defaultConcurrency,
	}
}

// EnrichBatch implements curation.Enricher.
func (s *Service) EnrichBatch(ctx context.Context, tracks []curation.Track) (map[int64]curation.Features, error) {
	out := make(map[int64]curation.Features, len(tracks))
	if len(tracks) == 0 {
		return out, nil
	}

	lookups := make([]*TrackLookup, len(tracks))
	if s.source != nil {
		s.resolveAll(ctx, tracks, lookups)
		if err := s.fetchFeatures(ctx, tracks, lookups, out); err != nil {
			return out, err
		}
		s.fetchArtistGenres(ctx, tracks, lookups, out)
	}

	s.fillGenresFromTags(ctx, tracks, out)

	if s.sink != nil && len(out) > 0 {
		if err := s.sink.SaveFeatures(ctx, out); err != nil {
			log.Printf("persisting enriched features: %v", err)
		}
	}
	return out, nil
}

// resolveAll maps local tracks to external IDs with bounded concurrency.
// Per-track failures are logged and skipped.
func (s *Service) resolveAll(ctx context.Context, tracks []curation.Track, lookups []*TrackLookup) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range tracks {
		i := i
		g.Go(func() error {
			lookup, err := s.source.FindTrack(gctx, tracks[i].Artist, tracks[i].Title)
			if err != nil {
				if !errors.Is(err, ErrTrackNotFound) {
					log.Printf("resolving %q by %q: %v", tracks[i].Title, tracks[i].Artist, err)
				}
				return nil
			}
			lookups[i] = lookup
			return nil
		})
	}
	g.Wait()
}

// fetchFeatures batches one audio-features call for all resolved tracks.
func (s *Service) fetchFeatures(ctx context.Context, tracks []curation.Track, lookups []*TrackLookup, out map[int64]curation.Features) error {
	var ids []spotify.ID
	indexByID := make(map[spotify.ID]int)
	for i, l := range lookups {
		if l != nil {
			ids = append(ids, l.TrackID)
			indexByID[l.TrackID] = i
		}
	}
	if len(ids) == 0 {
		return nil
	}

	features, err := s.source.AudioFeatures(ctx, ids)
	if err != nil {
		return err
	}

	for _, f := range features {
		if f == nil {
			continue // no features available for this track
		}
		i, ok := indexByID[f.ID]
		if !ok {
			continue
		}
		t := &tracks[i]
		feat := out[t.ID]
		bpm := float64(f.Tempo)
		energy := float64(f.Energy)
		dance := float64(f.Danceability)
		valence := float64(f.Valence)
		acoustic := float64(f.Acousticness)
		loudness := float64(f.Loudness)
		key := int(f.Key)
		feat.BPM = &bpm
		feat.Energy = &energy
		feat.Danceability = &dance
		feat.Valence = &valence
		feat.Acousticness = &acoustic
		feat.Loudness = &loudness
		feat.Key = &key
		out[t.ID] = feat
	}
	return nil
}

// fetchArtistGenres fills genres from the primary source for tracks that
// still lack one.
func (s *Service) fetchArtistGenres(ctx context.Context, tracks []curation.Track, lookups []*TrackLookup, out map[int64]curation.Features) {
	type genreResult struct {
		trackID int64
		genre   string
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var mu sync.Mutex
	var results []genreResult

	for i := range tracks {
		i := i
		l := lookups[i]
		if l == nil || l.ArtistID == "" || tracks[i].Genre != "" {
			continue
		}
		g.Go(func() error {
			genres, err := s.source.ArtistGenres(gctx, l.ArtistID)
			if err != nil {
				log.Printf("fetching genres for %q: %v", tracks[i].Artist, err)
				return nil
			}
			if len(genres) > 0 {
				mu.Lock()
				results = append(results, genreResult{tracks[i].ID, strings.Join(genres[:min(3, len(genres))], ", ")})
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	for _, r := range results {
		feat := out[r.trackID]
		if feat.Genre == "" {
			feat.Genre = r.genre
			out[r.trackID] = feat
		}
	}
}

// fillGenresFromTags is the fallback genre pass over the tag source.
func (s *Service) fillGenresFromTags(ctx context.Context, tracks []curation.Track, out map[int64]curation.Features) {
	if s.genres == nil {
		return
	}
	for i := range tracks {
		t := &tracks[i]
		if t.Genre != "" || out[t.ID].Genre != "" {
			continue
		}
		tags, err := s.genres.TopGenres(ctx, t.Artist, t.Title, 3)
		if err != nil {
			log.Printf("fetching tags for %q by %q: %v", t.Title, t.Artist, err)
			continue
		}
		if len(tags) > 0 {
			feat := out[t.ID]
			feat.Genre = strings.Join(tags, ", ")
			out[t.ID] = feat
		}
	}
}

var _ curation.Enricher = (*Service)(nil)
