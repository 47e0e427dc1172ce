package curation

import "sort"

// Sentinel values the UI sends instead of an artist list.
const (
	KnowledgeAll  = "all"
	KnowledgeNone = "none"
)

// KnowledgeDecision is the outcome of the knowledge gate.
type KnowledgeDecision string

const (
	// DecisionProceed: enough unknown artists remain; continue with them.
	DecisionProceed KnowledgeDecision = "proceed"
	// DecisionSearchAgain: loop back for a fresh retrieval round.
	DecisionSearchAgain KnowledgeDecision = "search_again"
	// DecisionGiveUp: the retry already happened; present what we have
	// rather than looping forever.
	DecisionGiveUp KnowledgeDecision = "give_up"
)

// DecideKnowledge applies the gate's branching rule. unknown is the number
// of shortlist tracks by artists the user does not know; short reports
// whether that number is below the minimum worth presenting; retried
// reports whether a re-search has already happened this session. The
// one-retry cap is the primary infinite-loop guard alongside the workflow's
// iteration counter.
func DecideKnowledge(unknown int, short bool, retried bool) KnowledgeDecision {
	if unknown == 0 || short {
		if retried {
			return DecisionGiveUp
		}
		return DecisionSearchAgain
	}
	return DecisionProceed
}

// ResolveKnownArtists expands the sentinel values: ["all"] means every
// artist on the shortlist, ["none"] means no artists. Anything else is
// taken literally.
func ResolveKnownArtists(declared []string, shortlist []Candidate) []string {
	if len(declared) == 1 {
		switch declared[0] {
		case KnowledgeAll:
			return UniqueArtists(shortlist, 0)
		case KnowledgeNone:
			return nil
		}
	}
	return declared
}

// FilterKnown returns the candidates whose artist is not in known,
// preserving order.
func FilterKnown(candidates []Candidate, known []string) []Candidate {
	if len(known) == 0 {
		return candidates
	}
	knownSet := make(map[string]bool, len(known))
	for _, a := range known {
		knownSet[a] = true
	}
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !knownSet[c.Artist] {
			out = append(out, c)
		}
	}
	return out
}

// UniqueArtists returns the distinct non-empty artist names from the
// candidates, sorted, truncated to limit when limit > 0.
func UniqueArtists(candidates []Candidate, limit int) []string {
	set := make(map[string]bool)
	for _, c := range candidates {
		if c.Artist != "" {
			set[c.Artist] = true
		}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names
}
