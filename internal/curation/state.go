// Package curation implements the discovery-and-curation state machine:
// playlist centroid computation, constrained nearest-neighbor retrieval,
// deterministic scoring and filtering, and a resumable multi-turn workflow
// with human-in-the-loop pauses and loop/iteration safety limits.
package curation

import (
	"time"
)

// Phase identifies a state-machine position. The await phases are genuine
// suspension points: the session is checkpointed and only advances when an
// external resume arrives for the same session ID.
type Phase string

const (
	PhaseStart          Phase = "start"
	PhaseAnalyze        Phase = "analyze"
	PhaseAwaitVibe      Phase = "await_vibe"
	PhaseRetrieve       Phase = "retrieve"
	PhaseScore          Phase = "score_and_filter"
	PhaseAwaitKnowledge Phase = "await_knowledge"
	PhaseDecide         Phase = "decide"
	PhaseEnrich         Phase = "enrich"
	PhaseNarrate        Phase = "narrate"
	PhasePresent        Phase = "present"
	PhaseDone           Phase = "done"
)

// Vibe choices offered after playlist analysis.
const (
	VibeSimilar  = "similar"
	VibeChill    = "chill"
	VibeEnergy   = "energy"
	VibeSurprise = "surprise"
)

// Resume actions accepted by the workflow.
const (
	ActionSetVibe         = "set_vibe"
	ActionSubmitKnowledge = "submit_knowledge"
	ActionAddTrack        = "add_track"
)

// Track is the canonical catalog record the core operates on. Embeddings are
// owned by the catalog and never appear here; the core only sees them through
// Catalog queries. Audio features are nullable: a nil pointer means the
// ingestion pipeline has not (yet) produced that feature.
type Track struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`
	Year   int    `json:"year,omitempty"`
	Genre  string `json:"genre,omitempty"`

	BPM          *float64 `json:"bpm,omitempty"`
	Energy       *float64 `json:"energy,omitempty"`
	Danceability *float64 `json:"danceability,omitempty"`
	Valence      *float64 `json:"valence,omitempty"`
	Acousticness *float64 `json:"acousticness,omitempty"`
	Loudness     *float64 `json:"loudness,omitempty"`
	Key          *int     `json:"key,omitempty"`
}

// Candidate pairs a track with its cosine distance to the query centroid.
// Smaller distance means more similar.
type Candidate struct {
	Track
	Distance float64 `json:"distance"`
}

// Option is a selectable choice presented to the user.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// TrackCard is one recommended track with its narration.
type TrackCard struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Reason string `json:"reason"`
}

// UIPayload is the user-facing output of a workflow turn. Every terminal
// branch, including failure branches, produces one.
type UIPayload struct {
	Message string      `json:"message"`
	Options []Option    `json:"options"`
	Cards   []TrackCard `json:"cards"`
}

// SessionState is the full checkpointed state of one curation conversation.
// It is the single canonical representation: every phase function takes and
// returns this type, and the checkpoint stores serialize exactly this shape.
type SessionState struct {
	ID         string `json:"id"`
	PlaylistID int64  `json:"playlist_id"`
	Phase      Phase  `json:"phase"`

	Vibe    string   `json:"vibe,omitempty"`
	Profile *Profile `json:"profile,omitempty"`

	Candidates []Candidate `json:"candidates,omitempty"`
	Shortlist  []Candidate `json:"shortlist,omitempty"`

	Exclusions   ExclusionState `json:"exclusions"`
	KnownArtists []string       `json:"known_artists,omitempty"`

	// EnrichedIDs records tracks already sent for enrichment this session,
	// so at-least-once delivery never enriches the same track twice.
	EnrichedIDs map[int64]bool `json:"enriched_ids,omitempty"`

	Understanding string      `json:"understanding,omitempty"`
	Selection     string      `json:"selection,omitempty"`
	Cards         []TrackCard `json:"cards,omitempty"`

	SearchRound      int  `json:"search_round"`
	KnowledgeRetried bool `json:"knowledge_retried"`

	// Iterations counts retrieval cycles; Choices keeps the most recent
	// DECIDE outcomes for the loop detector.
	Iterations int      `json:"iterations"`
	Choices    []string `json:"choices,omitempty"`

	// LastEvent fingerprints the most recently applied resume event so a
	// retried delivery of the same event replays LastUI instead of
	// re-running the machine.
	LastEvent string     `json:"last_event,omitempty"`
	LastUI    *UIPayload `json:"last_ui,omitempty"`

	Note     string `json:"note,omitempty"`
	Terminal bool   `json:"terminal"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version implements the store's optimistic at-most-one-writer check.
	Version int64 `json:"version"`
}

// Valid reports whether the state carries the fields every resume depends
// on. A state failing this check is corrupt and must surface as an explicit
// error rather than drive recommendations.
func (s *SessionState) Valid() bool {
	return s != nil && s.ID != "" && s.PlaylistID != 0 && s.Phase != ""
}
