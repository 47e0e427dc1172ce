package curation

import (
	"context"
	"errors"
	"testing"
)

func newSession(id string) *SessionState {
	return &SessionState{ID: id, PlaylistID: 1, Phase: PhaseAwaitVibe}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	st := newSession("s1")
	st.Vibe = VibeChill
	st.Exclusions.AddTracks(7, 8)
	st.Exclusions.AddArtists("A")

	if err := s.Put(ctx, st); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if st.Version != 1 {
		t.Errorf("version after first put = %d, want 1", st.Version)
	}

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Vibe != VibeChill || !got.Exclusions.TrackIDs[7] || !got.Exclusions.HasArtist("A") {
		t.Errorf("state lost in round trip: %+v", got)
	}
	if got.Version != 1 {
		t.Errorf("loaded version = %d, want 1", got.Version)
	}

	// The copy is deep: mutating it must not leak into the store.
	got.Exclusions.AddArtists("B")
	again, _ := s.Get(ctx, "s1")
	if again.Exclusions.HasArtist("B") {
		t.Error("mutation of a loaded session leaked into the store")
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStoreVersionConflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, newSession("s1")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Two readers load version 1; the second writer must lose.
	a, _ := s.Get(ctx, "s1")
	b, _ := s.Get(ctx, "s1")

	if err := s.Put(ctx, a); err != nil {
		t.Fatalf("first writer: %v", err)
	}
	if err := s.Put(ctx, b); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("second writer: err = %v, want ErrVersionConflict", err)
	}
}

func TestMemoryStoreRejectsMalformed(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Put(context.Background(), &SessionState{ID: "x"}); err == nil {
		t.Error("malformed state stored without error")
	}
}

func TestExclusionStateMonotonic(t *testing.T) {
	var e ExclusionState

	if got := e.TrackIDList(); len(got) != 0 {
		t.Errorf("fresh state TrackIDList = %v, want empty", got)
	}

	e.AddTracks(3, 1, 2)
	e.AddTracks(1) // repeat
	e.AddArtists("B", "", "A")
	e.AddArtists("A")

	ids := e.TrackIDList()
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("TrackIDList = %v, want [1 2 3]", ids)
	}

	artists := e.ArtistList()
	if len(artists) != 2 || artists[0] != "A" || artists[1] != "B" {
		t.Errorf("ArtistList = %v, want [A B]", artists)
	}
	if e.HasArtist("") {
		t.Error("empty artist name recorded")
	}
}
