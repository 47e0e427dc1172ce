package curation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/go-gem-curator/internal/vecmath"
)

// Workflow errors surfaced to callers. Everything else is absorbed into a
// user-facing PRESENT payload.
var (
	// ErrBadResume is returned for an unknown action or an action the
	// session's current phase is not awaiting.
	ErrBadResume = errors.New("resume does not match session state")

	// ErrMalformedState is returned when a checkpoint is missing required
	// fields. Continuing with corrupt state risks wrong recommendations,
	// so this crosses the boundary instead of being swallowed.
	ErrMalformedState = errors.New("malformed session state")
)

// Distinct user-facing messages for the expected-empty and degraded
// branches. Each branch gets its own text so the UI can tell them apart.
const (
	msgEmptyPlaylist = "Your playlist is empty, so I have nothing to work with yet. Add some tracks and try again."
	msgNoVectors     = "Your playlist's tracks haven't been analyzed yet, so I can't search for similar music. Try again once analysis has caught up."
	msgSearchFailed  = "Something went wrong while searching your library. Please try again in a moment."
	msgNoCandidates  = "I couldn't find any tracks matching your criteria. Try a different vibe or add more tracks to your library!"
	msgPlaylistGone  = "I couldn't read your playlist. Please try again later."
)

// ResumePayload carries the user input for a resume action. Only the field
// matching the action is read.
type ResumePayload struct {
	Vibe         string   `json:"vibe,omitempty"`
	KnownArtists []string `json:"known_artists,omitempty"`
	TrackID      int64    `json:"track_id,omitempty"`
}

// Workflow drives the curation state machine. Per-session execution is
// logically single-threaded: the checkpoint store's version check rejects
// concurrent writers for the same session ID.
type Workflow struct {
	catalog   Catalog
	store     Store
	centroids *CentroidService
	engine    *Engine
	scorer    *VibeScorer
	enricher  Enricher
	narrator  Narrator
	cfg       Config
	rng       *rand.Rand
}

// NewWorkflow wires the curation core. Enricher and narrator may be nil;
// the workflow then runs fully degraded with templated narration.
func NewWorkflow(catalog Catalog, store Store, enricher Enricher, narrator Narrator, cfg Config) *Workflow {
	seed := cfg.ShuffleSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Workflow{
		catalog:   catalog,
		store:     store,
		centroids: NewCentroidService(catalog),
		engine:    NewEngine(catalog),
		scorer:    NewVibeScorer(cfg),
		enricher:  enricher,
		narrator:  narrator,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Start begins a new curation session for a playlist and runs the machine
// until the first suspension or terminal state. The returned state carries
// the user-facing payload in LastUI.
func (w *Workflow) Start(ctx context.Context, playlistID int64) (*SessionState, error) {
	if playlistID <= 0 {
		return nil, fmt.Errorf("%w: invalid playlist id %d", ErrMalformedState, playlistID)
	}

	now := time.Now()
	st := &SessionState{
		ID:         uuid.NewString(),
		PlaylistID: playlistID,
		Phase:      PhaseStart,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	w.run(ctx, st)

	st.UpdatedAt = time.Now()
	if err := w.store.Put(ctx, st); err != nil {
		return nil, fmt.Errorf("checkpointing session: %w", err)
	}
	return st, nil
}

// Session returns the checkpointed state for a session ID without
// advancing anything.
func (w *Workflow) Session(ctx context.Context, id string) (*SessionState, error) {
	return w.store.Get(ctx, id)
}

// Resume applies a user action to a suspended session and runs the machine
// until the next suspension or terminal state. Safe against at-least-once
// delivery: a retried event whose fingerprint matches the last applied one
// replays the checkpointed payload without re-running anything.
func (w *Workflow) Resume(ctx context.Context, sessionID, action string, payload ResumePayload) (*SessionState, error) {
	st, err := w.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !st.Valid() {
		return nil, fmt.Errorf("%w: session %s", ErrMalformedState, sessionID)
	}

	// add_track is pure delegation to the playlist collaborator; it never
	// advances the machine.
	if action == ActionAddTrack {
		if err := w.catalog.AddTrackToPlaylist(ctx, st.PlaylistID, payload.TrackID); err != nil {
			return nil, fmt.Errorf("adding track to playlist: %w", err)
		}
		return st, nil
	}

	event := eventKey(action, payload)
	if st.LastEvent == event && !awaiting(st.Phase, action) {
		// Retried delivery of an event the machine already consumed.
		return st, nil
	}

	switch action {
	case ActionSetVibe:
		if st.Phase != PhaseAwaitVibe {
			return nil, fmt.Errorf("%w: session is not awaiting a vibe", ErrBadResume)
		}
		vibe := payload.Vibe
		if vibe == "" {
			vibe = VibeSimilar
		}
		switch vibe {
		case VibeSimilar, VibeChill, VibeEnergy, VibeSurprise:
		default:
			return nil, fmt.Errorf("%w: unknown vibe %q", ErrBadResume, payload.Vibe)
		}
		st.Vibe = vibe
		st.Phase = PhaseRetrieve

	case ActionSubmitKnowledge:
		if st.Phase != PhaseAwaitKnowledge {
			return nil, fmt.Errorf("%w: session is not awaiting artist knowledge", ErrBadResume)
		}
		known := ResolveKnownArtists(payload.KnownArtists, st.Shortlist)
		st.KnownArtists = mergeArtists(st.KnownArtists, known)
		st.Exclusions.AddArtists(known...)
		st.Phase = PhaseDecide

	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrBadResume, action)
	}

	st.LastEvent = event
	w.run(ctx, st)

	st.UpdatedAt = time.Now()
	if err := w.store.Put(ctx, st); err != nil {
		return nil, fmt.Errorf("checkpointing session: %w", err)
	}
	return st, nil
}

// run drives phases until a suspension point or terminal state. The two
// safety valves live here: the iteration cap bounds the number of
// retrieval cycles, the loop detector short-circuits a repeated decision
// sooner. One iteration is one retrieval cycle, so straight-line phases
// consume no budget and the valves are checked only when the machine is
// about to loop back through RETRIEVE.
func (w *Workflow) run(ctx context.Context, st *SessionState) {
	for {
		if st.Terminal || st.Phase == PhaseAwaitVibe || st.Phase == PhaseAwaitKnowledge {
			return
		}

		if st.Phase == PhaseRetrieve {
			if st.Iterations >= w.cfg.MaxIterations {
				log.Printf("session %s: iteration cap reached after %d cycles, forcing present", st.ID, st.Iterations)
				w.forcePresent(st, "Stopped early: iteration limit reached.")
			} else if w.stuck(st) {
				log.Printf("session %s: loop detected (%v), forcing present", st.ID, st.Choices)
				w.forcePresent(st, "Stopped early: I kept reaching the same decision.")
			} else {
				st.Iterations++
			}
		}

		switch st.Phase {
		case PhaseStart:
			st.Phase = PhaseAnalyze
		case PhaseAnalyze:
			w.analyze(ctx, st)
		case PhaseRetrieve:
			w.retrieve(ctx, st)
		case PhaseScore:
			w.score(st)
		case PhaseDecide:
			w.decide(st)
		case PhaseEnrich:
			w.enrich(ctx, st)
		case PhaseNarrate:
			w.narrate(ctx, st)
		case PhasePresent:
			w.present(st)
		default:
			log.Printf("session %s: unexpected phase %q", st.ID, st.Phase)
			w.presentMessage(st, msgSearchFailed)
		}
	}
}

// analyze loads and profiles the playlist, then suspends for the vibe
// choice. Empty and too-small playlists terminate here with their own
// messages.
func (w *Workflow) analyze(ctx context.Context, st *SessionState) {
	tracks, err := w.catalog.PlaylistTracks(ctx, st.PlaylistID)
	if err != nil {
		log.Printf("session %s: loading playlist %d: %v", st.ID, st.PlaylistID, err)
		w.presentMessage(st, msgPlaylistGone)
		return
	}

	if len(tracks) == 0 {
		w.presentMessage(st, msgEmptyPlaylist)
		return
	}
	if len(tracks) < w.cfg.MinPlaylistTracks {
		w.presentMessage(st, fmt.Sprintf(
			"Your playlist needs more tracks! It currently has %d, but I need at least %d to understand your taste. Add some more songs and try again.",
			len(tracks), w.cfg.MinPlaylistTracks))
		return
	}

	st.Profile = BuildProfile(tracks)

	// Member tracks are never recommended back.
	for _, t := range tracks {
		st.Exclusions.AddTracks(t.ID)
	}

	var stats []string
	if st.Profile.AvgBPM != nil {
		stats = append(stats, fmt.Sprintf("BPM: %.0f", *st.Profile.AvgBPM))
	}
	if st.Profile.AvgEnergy != nil {
		stats = append(stats, fmt.Sprintf("Energy: %.2f", *st.Profile.AvgEnergy))
	}

	msg := "I analyzed your playlist."
	if len(stats) > 0 {
		msg += "\n\n" + strings.Join(stats, ", ")
	}
	msg += "\n\n" + st.Profile.Description + "\n\nWhat vibe should I explore?"

	st.LastUI = &UIPayload{
		Message: msg,
		Options: []Option{
			{ID: "vibe-similar", Label: "More of this", Value: VibeSimilar},
			{ID: "vibe-chill", Label: "Chill", Value: VibeChill},
			{ID: "vibe-energy", Label: "Energy", Value: VibeEnergy},
			{ID: "vibe-surprise", Label: "Surprise", Value: VibeSurprise},
		},
	}
	st.Phase = PhaseAwaitVibe
}

// retrieve computes the centroid (optionally steered along the energy
// axis), builds vibe constraints, and runs the vector search.
func (w *Workflow) retrieve(ctx context.Context, st *SessionState) {
	centroid, err := w.centroids.Compute(ctx, st.PlaylistID)
	if err != nil {
		log.Printf("session %s: centroid: %v", st.ID, err)
		w.presentMessage(st, msgSearchFailed)
		return
	}
	if centroid == nil {
		w.presentMessage(st, msgNoVectors)
		return
	}

	query := w.steer(ctx, centroid, st.Vibe)
	filters := w.constraints(st.Vibe, st.Profile, st.SearchRound)

	limit := w.cfg.SearchLimit
	if st.SearchRound > 0 {
		limit = w.cfg.RetrySearchLimit
	}
	st.SearchRound++

	candidates, err := w.engine.Search(ctx, query, &st.Exclusions, filters, limit)
	if err != nil {
		log.Printf("session %s: search: %v", st.ID, err)
		w.presentMessage(st, msgSearchFailed)
		return
	}

	log.Printf("session %s: round %d found %d candidates", st.ID, st.SearchRound, len(candidates))
	st.Candidates = candidates
	st.Phase = PhaseScore
}

// score reduces the candidate round to a shortlist: artist diversity over a
// widened pool, then vibe ranking, then merge with picks kept from earlier
// rounds. New picks trigger the knowledge question; a round that added
// nothing goes straight to DECIDE.
func (w *Workflow) score(st *SessionState) {
	if len(st.Candidates) == 0 && len(st.Shortlist) == 0 {
		w.presentMessage(st, msgNoCandidates)
		return
	}

	seed := make([]string, 0, len(st.Shortlist))
	if st.Profile != nil {
		seed = append(seed, st.Profile.Artists...)
	}
	for _, c := range st.Shortlist {
		seed = append(seed, c.Artist)
	}

	// Rank the widened pool by vibe first, then enforce one-per-artist on
	// the ranked order. Duplicate artists can reach the shortlist only
	// when the pool holds fewer distinct artists than slots.
	pool := DedupeByArtist(st.Candidates, seed, w.cfg.ShortlistSize*w.cfg.DiversityPoolFactor)
	ranked := w.scorer.Filter(pool, st.Vibe, len(pool))
	picks := DedupeByArtist(ranked, seed, w.cfg.ShortlistSize)

	added := 0
	have := make(map[int64]bool, len(st.Shortlist))
	for _, c := range st.Shortlist {
		have[c.ID] = true
	}
	for _, c := range picks {
		if len(st.Shortlist) >= w.cfg.ShortlistSize {
			break
		}
		if !have[c.ID] {
			st.Shortlist = append(st.Shortlist, c)
			have[c.ID] = true
			added++
		}
	}
	st.Candidates = nil

	if len(st.Shortlist) == 0 {
		w.presentMessage(st, msgNoCandidates)
		return
	}
	if added == 0 {
		// Nothing new to ask about; the knowledge declaration on the
		// existing shortlist still stands.
		st.Phase = PhaseDecide
		return
	}

	artists := UniqueArtists(st.Shortlist, 0)
	options := make([]Option, 0, len(artists)+2)
	for _, a := range artists {
		options = append(options, Option{ID: "artist-" + a, Label: a, Value: a})
	}
	options = append(options,
		Option{ID: "knowledge-none", Label: "None of them", Value: KnowledgeNone},
		Option{ID: "knowledge-all", Label: "All of them", Value: KnowledgeAll},
	)

	msg := "Which of these artists do you know? (Select all that apply)"
	if fact := funFact(st.Shortlist, w.rng); fact != "" {
		msg += "\n\n" + fact
	}

	st.LastUI = &UIPayload{Message: msg, Options: options}
	st.Phase = PhaseAwaitKnowledge
}

// decide applies the knowledge gate and the minimum-candidate re-discovery
// rule. Its outcome feeds the loop detector.
func (w *Workflow) decide(st *SessionState) {
	unknown := FilterKnown(st.Shortlist, st.KnownArtists)
	short := len(unknown) < w.cfg.MinCandidates

	decision := DecideKnowledge(len(unknown), short, st.KnowledgeRetried && len(unknown) == 0)
	w.recordChoice(st, string(decision))

	switch decision {
	case DecisionSearchAgain:
		log.Printf("session %s: %d unknown of %d, searching again", st.ID, len(unknown), len(st.Shortlist))
		for _, c := range st.Shortlist {
			st.Exclusions.AddTracks(c.ID)
		}
		if len(unknown) == 0 {
			st.KnowledgeRetried = true
		}
		st.Shortlist = unknown
		st.Phase = PhaseRetrieve

	case DecisionGiveUp:
		// The retry already happened; present the best available rather
		// than looping forever.
		st.Note = "You knew all the artists I found, so these are the best matches from familiar names."
		st.Phase = PhaseEnrich

	case DecisionProceed:
		st.Shortlist = unknown
		st.Phase = PhaseEnrich
	}
}

// enrich fills missing audio features for shortlist tracks, best effort and
// at most once per track per session.
func (w *Workflow) enrich(ctx context.Context, st *SessionState) {
	defer func() { st.Phase = PhaseNarrate }()

	if w.enricher == nil {
		return
	}

	var missing []Track
	for i := range st.Shortlist {
		t := st.Shortlist[i].Track
		if NeedsEnrichment(&t) && !st.EnrichedIDs[t.ID] {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 {
		return
	}

	if st.EnrichedIDs == nil {
		st.EnrichedIDs = make(map[int64]bool, len(missing))
	}
	for _, t := range missing {
		st.EnrichedIDs[t.ID] = true
	}

	ectx, cancel := context.WithTimeout(ctx, w.cfg.EnrichTimeout)
	defer cancel()

	feats, err := w.enricher.EnrichBatch(ectx, missing)
	if err != nil {
		// Degraded dependency: partial or empty data, never session-fatal.
		log.Printf("session %s: enrichment degraded: %v", st.ID, err)
	}
	for i := range st.Shortlist {
		if f, ok := feats[st.Shortlist[i].ID]; ok {
			f.Apply(&st.Shortlist[i].Track)
		}
	}
}

// narrate produces pitches and the two-part justification, substituting
// deterministic templates whenever the collaborator fails or times out.
func (w *Workflow) narrate(ctx context.Context, st *SessionState) {
	defer func() { st.Phase = PhasePresent }()

	reqs := make([]PitchRequest, len(st.Shortlist))
	for i := range st.Shortlist {
		c := &st.Shortlist[i]
		reqs[i] = PitchRequest{
			ID:       c.ID,
			Title:    c.Title,
			Artist:   c.Artist,
			Evidence: buildEvidence(st.Profile, c),
		}
	}

	nctx, cancel := context.WithTimeout(ctx, w.cfg.NarrateTimeout)
	defer cancel()

	var pitches map[int64]string
	if w.narrator != nil {
		var err error
		pitches, err = w.narrator.Pitches(nctx, st.Profile, reqs)
		if err != nil {
			log.Printf("session %s: pitch generation degraded: %v", st.ID, err)
		}
	}

	st.Cards = make([]TrackCard, len(reqs))
	for i, r := range reqs {
		reason := pitches[r.ID]
		if reason == "" {
			reason = fallbackPitch
		}
		st.Cards[i] = TrackCard{ID: r.ID, Title: r.Title, Artist: r.Artist, Reason: reason}
	}

	allKnown := len(st.KnownArtists) > 0 && len(FilterKnown(st.Shortlist, st.KnownArtists)) == 0

	st.Understanding = fallbackUnderstanding
	st.Selection = fallbackSelection(len(st.Cards))
	if w.narrator != nil {
		understanding, selection, err := w.narrator.Justification(nctx, st.Profile, st.Cards, allKnown)
		if err != nil {
			log.Printf("session %s: justification degraded: %v", st.ID, err)
		} else {
			st.Understanding = understanding
			st.Selection = selection
		}
	}
}

// present builds the terminal payload. Reachable from every branch,
// including forced early termination, so it works with whatever state
// exists.
func (w *Workflow) present(st *SessionState) {
	cards := st.Cards
	if len(cards) == 0 {
		for _, c := range st.Shortlist {
			cards = append(cards, TrackCard{ID: c.ID, Title: c.Title, Artist: c.Artist, Reason: fallbackPitch})
		}
	}

	if len(cards) == 0 {
		w.presentMessage(st, msgNoCandidates)
		return
	}

	understanding := st.Understanding
	if understanding == "" {
		understanding = fallbackUnderstanding
	}
	selection := st.Selection
	if selection == "" {
		selection = fallbackSelection(len(cards))
	}

	msg := fmt.Sprintf("**Understanding:**\n%s\n\n**Selection:**\n%s", understanding, selection)
	if st.Note != "" {
		msg += "\n\n(" + st.Note + ")"
	}

	st.LastUI = &UIPayload{Message: msg, Cards: cards, Options: []Option{}}
	st.Terminal = true
	st.Phase = PhaseDone
}

// presentMessage terminates the session with a bare message payload. Used
// by the expected-empty and degraded branches, each with distinct text.
func (w *Workflow) presentMessage(st *SessionState, msg string) {
	if st.Note != "" {
		msg += "\n\n(" + st.Note + ")"
	}
	st.LastUI = &UIPayload{Message: msg, Options: []Option{}, Cards: []TrackCard{}}
	st.Terminal = true
	st.Phase = PhaseDone
}

func (w *Workflow) forcePresent(st *SessionState, note string) {
	if st.Note == "" {
		st.Note = note
	}
	st.Phase = PhasePresent
}

// stuck reports whether the last LoopWindow decisions are identical.
func (w *Workflow) stuck(st *SessionState) bool {
	n := w.cfg.LoopWindow
	if n <= 0 || len(st.Choices) < n {
		return false
	}
	last := st.Choices[len(st.Choices)-1]
	for _, c := range st.Choices[len(st.Choices)-n:] {
		if c != last {
			return false
		}
	}
	return true
}

func (w *Workflow) recordChoice(st *SessionState, choice string) {
	st.Choices = append(st.Choices, choice)
	if n := w.cfg.LoopWindow; n > 0 && len(st.Choices) > n {
		st.Choices = st.Choices[len(st.Choices)-n:]
	}
}

// steer nudges the centroid along the catalog's energy axis for the chill
// and energy vibes, when steering is enabled and the axis is available.
func (w *Workflow) steer(ctx context.Context, centroid []float32, vibe string) []float32 {
	if w.cfg.SteerWeight == 0 {
		return centroid
	}

	var weight float64
	switch vibe {
	case VibeChill:
		weight = -w.cfg.SteerWeight
	case VibeEnergy:
		weight = w.cfg.SteerWeight
	default:
		return centroid
	}

	pos, neg, err := w.catalog.FeatureAxis(ctx, "energy")
	if err != nil || pos == nil || neg == nil {
		return centroid
	}
	return vecmath.Normalize(vecmath.Steer(centroid, []vecmath.Axis{{Pos: pos, Neg: neg}}, []float64{weight}))
}

// constraints translates the vibe and playlist profile into numeric search
// filters, relaxed on retry rounds so a second pass casts a wider net.
func (w *Workflow) constraints(vibe string, profile *Profile, round int) Filters {
	var f Filters

	switch vibe {
	case VibeChill:
		f.MaxEnergy = ptr(w.cfg.ChillEnergyMax)
		f.MaxBPM = ptr(w.cfg.ChillBPMMax)
	case VibeEnergy:
		f.MinEnergy = ptr(w.cfg.EnergyMin)
		f.MinBPM = ptr(w.cfg.EnergyBPMMin)
	case VibeSimilar:
		if profile != nil && profile.AvgBPM != nil {
			f.MinBPM = ptr(maxFloat(0, *profile.AvgBPM-w.cfg.SimilarBPMWindow))
			f.MaxBPM = ptr(*profile.AvgBPM + w.cfg.SimilarBPMWindow)
		}
	default: // surprise: no constraints
	}

	if round > 0 {
		if f.MinBPM != nil {
			f.MinBPM = ptr(maxFloat(0, *f.MinBPM-w.cfg.RelaxBPMStep))
		}
		if f.MaxBPM != nil {
			f.MaxBPM = ptr(*f.MaxBPM + w.cfg.RelaxBPMStep)
		}
		if f.MinEnergy != nil {
			f.MinEnergy = ptr(maxFloat(0, *f.MinEnergy-w.cfg.RelaxEnergyStep))
		}
		if f.MaxEnergy != nil {
			f.MaxEnergy = ptr(minFloat(1, *f.MaxEnergy+w.cfg.RelaxEnergyStep))
		}
	}
	return f
}

// eventKey fingerprints a resume event so retried deliveries can be
// recognized. Artist lists are canonicalized by sorting.
func eventKey(action string, payload ResumePayload) string {
	switch action {
	case ActionSetVibe:
		return action + "|" + payload.Vibe
	case ActionSubmitKnowledge:
		artists := append([]string(nil), payload.KnownArtists...)
		sort.Strings(artists)
		return action + "|" + strings.Join(artists, ",")
	case ActionAddTrack:
		return action + "|" + strconv.FormatInt(payload.TrackID, 10)
	default:
		return action
	}
}

// awaiting reports whether phase is the suspension point that consumes the
// given action.
func awaiting(phase Phase, action string) bool {
	switch action {
	case ActionSetVibe:
		return phase == PhaseAwaitVibe
	case ActionSubmitKnowledge:
		return phase == PhaseAwaitKnowledge
	default:
		return false
	}
}

func mergeArtists(existing, added []string) []string {
	seen := make(map[string]bool, len(existing)+len(added))
	out := make([]string, 0, len(existing)+len(added))
	for _, a := range existing {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	for _, a := range added {
		if a != "" && !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

func ptr(f float64) *float64 { return &f }

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
