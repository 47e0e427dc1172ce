package curation

import (
	"math/rand"
	"sort"
	"time"
)

// VibePolicy selects how candidates are matched against a vibe.
type VibePolicy int

const (
	// PolicyWeighted scores each candidate by summing points for satisfied
	// soft conditions and keeps the best. It degrades gracefully: there is
	// always a best-effort top N, no relaxation step needed. The default.
	PolicyWeighted VibePolicy = iota

	// PolicyThreshold classifies candidates by fixed feature thresholds,
	// relaxing once when too few pass. Simpler mental model, kept as an
	// alternative mode.
	PolicyThreshold
)

// VibeScorer deterministically filters and orders candidates against a
// qualitative target. Surprise is the exception: it shuffles.
type VibeScorer struct {
	cfg Config
	rng *rand.Rand
}

// NewVibeScorer creates a scorer. With cfg.ShuffleSeed zero the Surprise
// shuffle is seeded from the clock; tests set a fixed seed.
func NewVibeScorer(cfg Config) *VibeScorer {
	seed := cfg.ShuffleSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &VibeScorer{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Filter reduces candidates to the top n for the vibe. Candidates with no
// audio features at all are never scored: when the whole input lacks
// features a random n is returned, because an all-zero ordering would
// masquerade as a real result.
func (s *VibeScorer) Filter(candidates []Candidate, vibe string, n int) []Candidate {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}

	switch vibe {
	case VibeSurprise:
		return s.shuffled(candidates, n)
	case VibeSimilar, "":
		// Rank order already encodes similarity.
		return truncate(candidates, n)
	}

	withFeatures := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Energy != nil {
			withFeatures = append(withFeatures, c)
		}
	}
	if len(withFeatures) == 0 {
		return s.shuffled(candidates, n)
	}

	if s.cfg.VibePolicy == PolicyThreshold {
		return s.thresholdFilter(withFeatures, vibe, n)
	}
	return s.weightedFilter(withFeatures, vibe, n)
}

// weightedFilter sums points per satisfied soft condition and keeps the n
// highest scorers, breaking ties by original rank.
func (s *VibeScorer) weightedFilter(candidates []Candidate, vibe string, n int) []Candidate {
	type scored struct {
		cand  Candidate
		score int
		rank  int
	}

	scoreds := make([]scored, len(candidates))
	for i, c := range candidates {
		scoreds[i] = scored{cand: c, score: s.weightedScore(&c.Track, vibe), rank: i}
	}

	sort.SliceStable(scoreds, func(i, j int) bool {
		if scoreds[i].score != scoreds[j].score {
			return scoreds[i].score > scoreds[j].score
		}
		return scoreds[i].rank < scoreds[j].rank
	})

	out := make([]Candidate, 0, n)
	for _, sc := range scoreds {
		if len(out) == n {
			break
		}
		out = append(out, sc.cand)
	}
	return out
}

// weightedScore awards +2 for strong signals and +1 for supporting ones.
func (s *VibeScorer) weightedScore(t *Track, vibe string) int {
	var score int
	switch vibe {
	case VibeChill:
		if t.Energy != nil && *t.Energy < 0.5 {
			score += 2
		}
		if t.Acousticness != nil && *t.Acousticness > 0.5 {
			score += 2
		}
		if t.BPM != nil && *t.BPM < s.cfg.ChillBPMMax {
			score++
		}
		if t.Valence != nil && *t.Valence < 0.5 {
			score++
		}
	case VibeEnergy:
		if t.Energy != nil && *t.Energy > s.cfg.EnergyMin {
			score += 2
		}
		if t.Danceability != nil && *t.Danceability > 0.6 {
			score += 2
		}
		if t.BPM != nil && *t.BPM > s.cfg.EnergyBPMMin {
			score++
		}
		if t.Valence != nil && *t.Valence > 0.5 {
			score++
		}
	}
	return score
}

// thresholdFilter keeps candidates crossing the vibe's energy threshold,
// relaxing once when fewer than VibeMinMatches pass, then sorts by energy
// (ascending for chill, descending for energy).
func (s *VibeScorer) thresholdFilter(candidates []Candidate, vibe string, n int) []Candidate {
	var pass func(e float64) bool
	var relaxed func(e float64) bool
	ascending := true

	switch vibe {
	case VibeChill:
		pass = func(e float64) bool { return e < s.cfg.ChillEnergyMax }
		relaxed = func(e float64) bool { return e < s.cfg.ChillEnergyRelaxed }
	case VibeEnergy:
		pass = func(e float64) bool { return e > s.cfg.EnergyMin }
		relaxed = func(e float64) bool { return e > s.cfg.EnergyMinRelaxed }
		ascending = false
	default:
		return truncate(candidates, n)
	}

	filtered := filterByEnergy(candidates, pass)
	if len(filtered) < s.cfg.VibeMinMatches {
		filtered = filterByEnergy(candidates, relaxed)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if ascending {
			return *filtered[i].Energy < *filtered[j].Energy
		}
		return *filtered[i].Energy > *filtered[j].Energy
	})
	return truncate(filtered, n)
}

func filterByEnergy(candidates []Candidate, keep func(float64) bool) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Energy != nil && keep(*c.Energy) {
			out = append(out, c)
		}
	}
	return out
}

func (s *VibeScorer) shuffled(candidates []Candidate, n int) []Candidate {
	out := append([]Candidate(nil), candidates...)
	s.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return truncate(out, n)
}

func truncate(candidates []Candidate, n int) []Candidate {
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}
