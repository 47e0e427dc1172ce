package curation

import (
	"fmt"
	"math/rand"
	"strings"
)

// Templated fallback narration used when the narration collaborator is
// unavailable. Deterministic on purpose: a degraded dependency must never
// stall or crash the session.
const (
	fallbackPitch         = "A great track that complements your playlist's vibe."
	fallbackUnderstanding = "Your playlist has a unique character that I've analyzed carefully."
)

func fallbackSelection(count int) string {
	return fmt.Sprintf("I found %d tracks that complement your vibe with their own unique qualities.", count)
}

// buildEvidence renders the comparative numeric context for one candidate:
// actual numbers against the playlist averages, so the narrator has real
// evidence to cite instead of inventing qualities.
func buildEvidence(profile *Profile, c *Candidate) string {
	var parts []string

	if c.BPM != nil && profile != nil && profile.AvgBPM != nil {
		bpm, avg := *c.BPM, *profile.AvgBPM
		switch {
		case absDiff(bpm, avg) < 10:
			parts = append(parts, fmt.Sprintf("its %.0f BPM matches your playlist's %.0f BPM tempo", bpm, avg))
		case bpm < avg:
			parts = append(parts, fmt.Sprintf("its slower %.0f BPM (vs your %.0f) creates a more relaxed feel", bpm, avg))
		default:
			parts = append(parts, fmt.Sprintf("its faster %.0f BPM (vs your %.0f) adds subtle energy", bpm, avg))
		}
	}

	if c.Energy != nil && profile != nil && profile.AvgEnergy != nil {
		e, avg := *c.Energy, *profile.AvgEnergy
		switch {
		case absDiff(e, avg) < 0.1:
			parts = append(parts, fmt.Sprintf("energy level of %.2f closely matches your %.2f", e, avg))
		case e < avg:
			parts = append(parts, fmt.Sprintf("lower energy (%.2f vs %.2f) maintains the intimate vibe", e, avg))
		default:
			parts = append(parts, fmt.Sprintf("higher energy (%.2f vs %.2f) adds dynamic contrast", e, avg))
		}
	}

	if c.Acousticness != nil {
		parts = append(parts, fmt.Sprintf("%.0f%% acoustic character", *c.Acousticness*100))
	}
	if c.Genre != "" {
		parts = append(parts, fmt.Sprintf("rooted in %s", firstGenre(c.Genre)))
	}

	if len(parts) == 0 {
		return "unique sonic qualities"
	}
	return strings.Join(parts, "; ")
}

// funFact produces the interstitial line shown while the user considers the
// knowledge prompt: one feature insight about the candidate pool.
func funFact(candidates []Candidate, rng *rand.Rand) string {
	var facts []string

	var tempoSum float64
	var tempoN int
	var danceSum float64
	var danceN int
	for i := range candidates {
		if candidates[i].BPM != nil {
			tempoSum += *candidates[i].BPM
			tempoN++
		}
		if candidates[i].Danceability != nil {
			danceSum += *candidates[i].Danceability
			danceN++
		}
	}

	if tempoN > 0 {
		avg := tempoSum / float64(tempoN)
		switch {
		case avg > 140:
			facts = append(facts, fmt.Sprintf("Average tempo: %.0f BPM (perfect for running!)", avg))
		case avg > 120:
			facts = append(facts, fmt.Sprintf("Average tempo: %.0f BPM (upbeat)", avg))
		case avg < 90:
			facts = append(facts, fmt.Sprintf("Average tempo: %.0f BPM (slow & dreamy)", avg))
		default:
			facts = append(facts, fmt.Sprintf("Average tempo: %.0f BPM (moderate)", avg))
		}
	}
	if danceN > 0 {
		avg := danceSum / float64(danceN)
		if avg > 0.8 {
			facts = append(facts, fmt.Sprintf("Danceability: %.0f%% - top-shelf groove", avg*100))
		} else if avg > 0.6 {
			facts = append(facts, fmt.Sprintf("Danceability: %.0f%% - these tracks move", avg*100))
		}
	}

	if len(facts) == 0 {
		return ""
	}
	return facts[rng.Intn(len(facts))]
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
