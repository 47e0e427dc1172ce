package curation

// DedupeByArtist enforces "at most one track per artist" over a ranked
// candidate list. The seen set starts from seedArtists so the seed
// playlist's own artists are never "discovered". If diversity exhausts the
// list before wanted tracks are accepted, a second pass fills the remaining
// slots from the rejected duplicate-artist candidates in their original
// rank order: strict diversity is preferred but never allowed to shrink the
// result below what the catalog can supply.
func DedupeByArtist(candidates []Candidate, seedArtists []string, wanted int) []Candidate {
	if wanted <= 0 {
		return nil
	}

	seen := make(map[string]bool, len(seedArtists))
	for _, a := range seedArtists {
		seen[a] = true
	}

	accepted := make([]Candidate, 0, wanted)
	var rejected []Candidate

	for _, c := range candidates {
		if len(accepted) == wanted {
			break
		}
		if c.Artist != "" && seen[c.Artist] {
			rejected = append(rejected, c)
			continue
		}
		seen[c.Artist] = true
		accepted = append(accepted, c)
	}

	// Fallback fill from duplicate-artist candidates, rank order preserved.
	for _, c := range rejected {
		if len(accepted) == wanted {
			break
		}
		accepted = append(accepted, c)
	}

	return accepted
}
