package curation

import "context"

// Features is the nullable audio-feature payload an enrichment round can
// fill in. Nil fields leave the track's current value untouched.
type Features struct {
	BPM          *float64
	Energy       *float64
	Danceability *float64
	Valence      *float64
	Acousticness *float64
	Loudness     *float64
	Key          *int
	Genre        string
}

// Enricher batch-fetches missing audio features and genres for tracks.
// Best effort and at-least-once: the result map may be partial or empty,
// and a rate-limited upstream yields a partial result, never a session
// failure. The workflow guarantees each track is submitted at most once
// per session.
type Enricher interface {
	EnrichBatch(ctx context.Context, tracks []Track) (map[int64]Features, error)
}

// PitchRequest is one track plus the numeric evidence its pitch must cite.
type PitchRequest struct {
	ID       int64
	Title    string
	Artist   string
	Evidence string
}

// Narrator turns numeric evidence into prose. Opaque: given evidence,
// produce concise text. Failures are recovered at the call site with
// templated fallbacks.
type Narrator interface {
	// Pitches produces a one-sentence pitch per track in a single call.
	Pitches(ctx context.Context, profile *Profile, reqs []PitchRequest) (map[int64]string, error)

	// Justification produces the two-part explanation: what was understood
	// about the playlist, and why these tracks were selected.
	Justification(ctx context.Context, profile *Profile, cards []TrackCard, allKnown bool) (understanding, selection string, err error)
}

// Apply merges the enriched values into the track, keeping existing data.
func (f Features) Apply(t *Track) {
	if f.BPM != nil {
		t.BPM = f.BPM
	}
	if f.Energy != nil {
		t.Energy = f.Energy
	}
	if f.Danceability != nil {
		t.Danceability = f.Danceability
	}
	if f.Valence != nil {
		t.Valence = f.Valence
	}
	if f.Acousticness != nil {
		t.Acousticness = f.Acousticness
	}
	if f.Loudness != nil {
		t.Loudness = f.Loudness
	}
	if f.Key != nil {
		t.Key = f.Key
	}
	if f.Genre != "" && t.Genre == "" {
		t.Genre = f.Genre
	}
}

// NeedsEnrichment reports whether the track is missing the metadata the
// presentation layer wants to cite.
func NeedsEnrichment(t *Track) bool {
	return t.BPM == nil || t.Energy == nil || t.Genre == ""
}
