package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-gem-curator/internal/curation"
	"github.com/justestif/go-gem-curator/internal/vecmath"
)

// CatalogRepository implements curation.Catalog on PostgreSQL. Ranking and
// filtering run inside the database: pgvector's <=> operator computes
// cosine distance, and the numeric filters are pushed into the WHERE
// clause so candidate sets never leave the server unranked.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

const trackColumns = `id, title, artist, album, year, genre, bpm, energy, danceability, valence, acousticness, loudness, key`

// featureColumns whitelists the columns FeatureAxis may aggregate over.
// Feature names come from config, never user input, but the whitelist
// keeps column names out of string interpolation entirely.
var featureColumns = map[string]string{
	"energy":       "energy",
	"danceability": "danceability",
	"acousticness": "acousticness",
	"valence":      "valence",
}

func scanTrack(row pgx.Row, t *curation.Track) error {
	return row.Scan(
		&t.ID,
		&t.Title,
		&t.Artist,
		&t.Album,
		&t.Year,
		&t.Genre,
		&t.BPM,
		&t.Energy,
		&t.Danceability,
		&t.Valence,
		&t.Acousticness,
		&t.Loudness,
		&t.Key,
	)
}

// PlaylistTracks implements curation.Catalog.
func (r *CatalogRepository) PlaylistTracks(ctx context.Context, playlistID int64) ([]curation.Track, error) {
	query := `
		SELECT ` + trackColumns + `
		FROM tracks t
		JOIN playlist_tracks pt ON pt.track_id = t.id
		WHERE pt.playlist_id = $1
		ORDER BY pt.position
	`
	rows, err := r.pool.Query(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("querying playlist tracks: %w", err)
	}
	defer rows.Close()

	var tracks []curation.Track
	for rows.Next() {
		var t curation.Track
		if err := scanTrack(rows, &t); err != nil {
			return nil, fmt.Errorf("scanning playlist track: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading playlist tracks: %w", err)
	}
	return tracks, nil
}

// PlaylistEmbeddings implements curation.Catalog. Members without an
// embedding are skipped.
func (r *CatalogRepository) PlaylistEmbeddings(ctx context.Context, playlistID int64) ([][]float32, error) {
	query := `
		SELECT t.embedding::text
		FROM tracks t
		JOIN playlist_tracks pt ON pt.track_id = t.id
		WHERE pt.playlist_id = $1 AND t.embedding IS NOT NULL
	`
	rows, err := r.pool.Query(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("querying playlist embeddings: %w", err)
	}
	defer rows.Close()

	var vecs [][]float32
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		vec, err := vecmath.DecodeVector(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding: %w", err)
		}
		vecs = append(vecs, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading playlist embeddings: %w", err)
	}
	return vecs, nil
}

// RankByDistance implements curation.Catalog. The cardinality guards make
// empty exclusion lists a no-op instead of an exclude-everything trap, and
// the filter comparisons are strict: a NULL feature never satisfies an
// active bound.
func (r *CatalogRepository) RankByDistance(ctx context.Context, query []float32, excludeIDs []int64, excludeArtists []string, filters curation.Filters, limit int) ([]curation.Candidate, error) {
	sql := `
		SELECT ` + trackColumns + `, embedding <=> $1::vector AS distance
		FROM tracks
		WHERE embedding IS NOT NULL
		  AND (cardinality($2::bigint[]) = 0 OR id != ALL($2::bigint[]))
		  AND (cardinality($3::text[]) = 0 OR artist != ALL($3::text[]))
		  AND ($4::float8 IS NULL OR bpm >= $4)
		  AND ($5::float8 IS NULL OR bpm <= $5)
		  AND ($6::float8 IS NULL OR energy >= $6)
		  AND ($7::float8 IS NULL OR energy <= $7)
		ORDER BY distance, id
		LIMIT $8
	`
	if excludeIDs == nil {
		excludeIDs = []int64{}
	}
	if excludeArtists == nil {
		excludeArtists = []string{}
	}

	rows, err := r.pool.Query(ctx, sql,
		vecmath.EncodeVector(query),
		excludeIDs,
		excludeArtists,
		filters.MinBPM,
		filters.MaxBPM,
		filters.MinEnergy,
		filters.MaxEnergy,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ranking by distance: %w", err)
	}
	defer rows.Close()

	var candidates []curation.Candidate
	for rows.Next() {
		var c curation.Candidate
		if err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.Artist,
			&c.Album,
			&c.Year,
			&c.Genre,
			&c.BPM,
			&c.Energy,
			&c.Danceability,
			&c.Valence,
			&c.Acousticness,
			&c.Loudness,
			&c.Key,
			&c.Distance,
		); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading candidates: %w", err)
	}
	return candidates, nil
}

// FeatureAxis implements curation.Catalog: the anchors are the average
// embeddings of the high-feature (>= 0.7) and low-feature (<= 0.3) tracks.
// Either anchor is nil when its side has no tracks.
func (r *CatalogRepository) FeatureAxis(ctx context.Context, feature string) ([]float32, []float32, error) {
	col, ok := featureColumns[feature]
	if !ok {
		return nil, nil, fmt.Errorf("unknown feature %q", feature)
	}

	sql := fmt.Sprintf(`
		SELECT
			(AVG(embedding) FILTER (WHERE %s >= 0.7))::text,
			(AVG(embedding) FILTER (WHERE %s <= 0.3))::text
		FROM tracks
		WHERE embedding IS NOT NULL AND %s IS NOT NULL
	`, col, col, col)

	var posRaw, negRaw *string
	if err := r.pool.QueryRow(ctx, sql).Scan(&posRaw, &negRaw); err != nil {
		return nil, nil, fmt.Errorf("querying %s axis: %w", feature, err)
	}

	var pos, neg []float32
	if posRaw != nil {
		var err error
		if pos, err = vecmath.DecodeVector(*posRaw); err != nil {
			return nil, nil, fmt.Errorf("decoding %s axis: %w", feature, err)
		}
	}
	if negRaw != nil {
		var err error
		if neg, err = vecmath.DecodeVector(*negRaw); err != nil {
			return nil, nil, fmt.Errorf("decoding %s axis: %w", feature, err)
		}
	}
	return pos, neg, nil
}

// AddTrackToPlaylist implements curation.Catalog. Appends after the
// current last position; adding a track twice is a no-op.
func (r *CatalogRepository) AddTrackToPlaylist(ctx context.Context, playlistID, trackID int64) error {
	query := `
		INSERT INTO playlist_tracks (playlist_id, track_id, position, added_at)
		VALUES (
			$1, $2,
			COALESCE((SELECT MAX(position) + 1 FROM playlist_tracks WHERE playlist_id = $1), 0),
			NOW()
		)
		ON CONFLICT (playlist_id, track_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, playlistID, trackID); err != nil {
		return fmt.Errorf("adding track %d to playlist %d: %w", trackID, playlistID, err)
	}
	return nil
}

// UpdateFeaturesBatch persists enrichment results. COALESCE keeps existing
// values: enrichment fills gaps, it never overwrites analyzed data.
func (r *CatalogRepository) UpdateFeaturesBatch(ctx context.Context, features []TrackFeatures) error {
	if len(features) == 0 {
		return nil
	}

	query := `
		UPDATE tracks t SET
			bpm = COALESCE(t.bpm, u.bpm),
			energy = COALESCE(t.energy, u.energy),
			danceability = COALESCE(t.danceability, u.danceability),
			valence = COALESCE(t.valence, u.valence),
			acousticness = COALESCE(t.acousticness, u.acousticness),
			loudness = COALESCE(t.loudness, u.loudness),
			key = COALESCE(t.key, u.key),
			genre = COALESCE(NULLIF(t.genre, ''), u.genre, t.genre)
		FROM unnest(
			$1::bigint[], $2::float8[], $3::float8[], $4::float8[],
			$5::float8[], $6::float8[], $7::float8[], $8::int[], $9::text[]
		) AS u(id, bpm, energy, danceability, valence, acousticness, loudness, key, genre)
		WHERE t.id = u.id
	`

	ids := make([]int64, len(features))
	bpms := make([]*float64, len(features))
	energies := make([]*float64, len(features))
	dances := make([]*float64, len(features))
	valences := make([]*float64, len(features))
	acoustics := make([]*float64, len(features))
	loudnesses := make([]*float64, len(features))
	keys := make([]*int, len(features))
	genres := make([]*string, len(features))

	for i, f := range features {
		ids[i] = f.TrackID
		bpms[i] = f.BPM
		energies[i] = f.Energy
		dances[i] = f.Danceability
		valences[i] = f.Valence
		acoustics[i] = f.Acousticness
		loudnesses[i] = f.Loudness
		keys[i] = f.Key
		if f.Genre != "" {
			g := f.Genre
			genres[i] = &g
		}
	}

	_, err := r.pool.Exec(ctx, query,
		ids, bpms, energies, dances, valences, acoustics, loudnesses, keys, genres)
	if err != nil {
		return fmt.Errorf("batch updating track features: %w", err)
	}
	return nil
}

// SaveFeatures persists an enrichment result map, keyed by track ID.
func (r *CatalogRepository) SaveFeatures(ctx context.Context, features map[int64]curation.Features) error {
	batch := make([]TrackFeatures, 0, len(features))
	for id, f := range features {
		batch = append(batch, TrackFeatures{
			TrackID:      id,
			BPM:          f.BPM,
			Energy:       f.Energy,
			Danceability: f.Danceability,
			Valence:      f.Valence,
			Acousticness: f.Acousticness,
			Loudness:     f.Loudness,
			Key:          f.Key,
			Genre:        f.Genre,
		})
	}
	return r.UpdateFeaturesBatch(ctx, batch)
}

var _ curation.Catalog = (*CatalogRepository)(nil)
