package curation

import "testing"

func byArtist(id int64, artist string) Candidate {
	return Candidate{Track: Track{ID: id, Artist: artist}, Distance: float64(id) * 0.01}
}

func TestDedupeByArtist(t *testing.T) {
	tests := []struct {
		name    string
		cands   []Candidate
		seed    []string
		wanted  int
		wantIDs []int64
	}{
		{
			name: "one track per artist",
			cands: []Candidate{
				byArtist(1, "A"), byArtist(2, "A"), byArtist(3, "B"), byArtist(4, "C"),
			},
			wanted:  3,
			wantIDs: []int64{1, 3, 4},
		},
		{
			name: "seed artists never discovered",
			cands: []Candidate{
				byArtist(1, "Seed"), byArtist(2, "Fresh"),
			},
			seed:    []string{"Seed"},
			wanted:  1,
			wantIDs: []int64{2},
		},
		{
			name: "fallback fill from duplicates in rank order",
			cands: []Candidate{
				byArtist(1, "A"), byArtist(2, "A"), byArtist(3, "A"),
			},
			wanted:  3,
			wantIDs: []int64{1, 2, 3},
		},
		{
			name: "seed rejects refill before cutting below supply",
			cands: []Candidate{
				byArtist(1, "Seed"), byArtist(2, "Seed"), byArtist(3, "B"),
			},
			seed:    []string{"Seed"},
			wanted:  2,
			wantIDs: []int64{3, 1},
		},
		{
			name: "empty artist never deduped",
			cands: []Candidate{
				byArtist(1, ""), byArtist(2, ""), byArtist(3, "A"),
			},
			wanted:  3,
			wantIDs: []int64{1, 2, 3},
		},
		{
			name:    "zero wanted",
			cands:   []Candidate{byArtist(1, "A")},
			wanted:  0,
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DedupeByArtist(tt.cands, tt.seed, tt.wanted)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d candidates, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("position %d: id = %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}
}
