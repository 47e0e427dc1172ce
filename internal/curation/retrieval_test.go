package curation

import (
	"context"
	"errors"
	"testing"
)

func retrievalCatalog() *MemoryCatalog {
	c := NewMemoryCatalog()
	c.AddTrack(Track{ID: 1, Artist: "A", BPM: ptr(100), Energy: ptr(0.4)}, angleVec(0.1))
	c.AddTrack(Track{ID: 2, Artist: "B", BPM: ptr(120), Energy: ptr(0.8)}, angleVec(0.3))
	c.AddTrack(Track{ID: 3, Artist: "C", BPM: nil, Energy: ptr(0.6)}, angleVec(0.2))
	c.AddTrack(Track{ID: 4, Artist: "D", BPM: ptr(140), Energy: nil}, angleVec(0.4))
	return c
}

func TestSearchOrdersByDistance(t *testing.T) {
	e := NewEngine(retrievalCatalog())

	got, err := e.Search(context.Background(), angleVec(0), nil, Filters{}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	wantOrder := []int64{1, 3, 2, 4}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d candidates, want %d", len(got), len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("position %d: id = %d, want %d", i, got[i].ID, id)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Distance < got[i-1].Distance {
			t.Errorf("distances not ascending at position %d", i)
		}
	}
}

func TestSearchEmptyExclusionsExcludeNothing(t *testing.T) {
	e := NewEngine(retrievalCatalog())

	got, err := e.Search(context.Background(), angleVec(0), &ExclusionState{}, Filters{}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("empty exclusion state removed candidates: got %d, want 4", len(got))
	}
}

func TestSearchHonorsExclusions(t *testing.T) {
	e := NewEngine(retrievalCatalog())

	var excl ExclusionState
	excl.AddTracks(1)
	excl.AddArtists("B")

	got, err := e.Search(context.Background(), angleVec(0), &excl, Filters{}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, c := range got {
		if c.ID == 1 {
			t.Error("excluded track 1 returned")
		}
		if c.Artist == "B" {
			t.Error("excluded artist B returned")
		}
	}
	if len(got) != 2 {
		t.Errorf("got %d candidates, want 2", len(got))
	}
}

func TestSearchStrictNullFilters(t *testing.T) {
	e := NewEngine(retrievalCatalog())

	// A BPM bound excludes track 3 (nil BPM); an energy bound excludes
	// track 4 (nil energy).
	got, err := e.Search(context.Background(), angleVec(0), nil, Filters{
		MinBPM:    ptr(90),
		MinEnergy: ptr(0.3),
	}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, c := range got {
		if c.ID == 3 || c.ID == 4 {
			t.Errorf("track %d with a nil filtered feature returned", c.ID)
		}
	}
	if len(got) != 2 {
		t.Errorf("got %d candidates, want 2", len(got))
	}
}

func TestSearchLimit(t *testing.T) {
	e := NewEngine(retrievalCatalog())

	got, err := e.Search(context.Background(), angleVec(0), nil, Filters{}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d candidates, want limit 2", len(got))
	}
}

func TestSearchDegenerateQuery(t *testing.T) {
	e := NewEngine(retrievalCatalog())

	for _, query := range [][]float32{nil, {}, {0, 0}} {
		if _, err := e.Search(context.Background(), query, nil, Filters{}, 10); !errors.Is(err, ErrSearchFailed) {
			t.Errorf("query %v: err = %v, want ErrSearchFailed", query, err)
		}
	}
}

func TestCentroidCompute(t *testing.T) {
	c := NewMemoryCatalog()
	c.AddTrack(Track{ID: 1, Artist: "A"}, []float32{2, 0})
	c.AddTrack(Track{ID: 2, Artist: "B"}, []float32{0, 2})
	c.AddTrack(Track{ID: 3, Artist: "C"}, nil) // no embedding
	c.SetPlaylist(1, []int64{1, 2, 3})
	c.SetPlaylist(2, []int64{3})

	s := NewCentroidService(c)

	got, err := s.Compute(context.Background(), 1)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// Mean of [2,0] and [0,2] is [1,1], normalized to unit length.
	const want = 0.70710678
	if len(got) != 2 || absDiff(float64(got[0]), want) > 1e-5 || absDiff(float64(got[1]), want) > 1e-5 {
		t.Errorf("centroid = %v, want [%v %v]", got, want, want)
	}

	// No embedded members: nil centroid, nil error.
	got, err = s.Compute(context.Background(), 2)
	if err != nil || got != nil {
		t.Errorf("empty playlist: centroid = %v, err = %v, want nil/nil", got, err)
	}
}
