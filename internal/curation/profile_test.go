package curation

import (
	"strings"
	"testing"
)

func TestBuildProfileAverages(t *testing.T) {
	tracks := []Track{
		{ID: 1, Title: "One", Artist: "A", BPM: ptr(100), Energy: ptr(0.4), Genre: "indie rock"},
		{ID: 2, Title: "Two", Artist: "B", BPM: ptr(120), Energy: nil, Genre: "indie rock, shoegaze"},
		{ID: 3, Title: "Three", Artist: "A", BPM: nil, Energy: ptr(0.6), Genre: "dream pop"},
	}

	p := BuildProfile(tracks)
	if p.TrackCount != 3 {
		t.Errorf("TrackCount = %d, want 3", p.TrackCount)
	}
	if p.AvgBPM == nil || *p.AvgBPM != 110 {
		t.Errorf("AvgBPM = %v, want 110", p.AvgBPM)
	}
	if p.AvgEnergy == nil || absDiff(*p.AvgEnergy, 0.5) > 1e-9 {
		t.Errorf("AvgEnergy = %v, want 0.5", p.AvgEnergy)
	}
	if len(p.Artists) != 2 || p.Artists[0] != "A" || p.Artists[1] != "B" {
		t.Errorf("Artists = %v, want [A B]", p.Artists)
	}
	// Only the first comma-separated genre counts, so "indie rock" leads.
	if len(p.TopGenres) == 0 || p.TopGenres[0] != "indie rock" {
		t.Errorf("TopGenres = %v, want indie rock first", p.TopGenres)
	}
	if len(p.SampleTracks) != 3 || p.SampleTracks[0] != "A - One" {
		t.Errorf("SampleTracks = %v", p.SampleTracks)
	}
}

func TestBuildProfileNoFeatures(t *testing.T) {
	p := BuildProfile([]Track{{ID: 1, Artist: "A"}})
	if p.AvgBPM != nil || p.AvgEnergy != nil {
		t.Errorf("averages should be nil without features: %+v", p)
	}
	if p.Description == "" {
		t.Error("description should still render without features")
	}
}

func TestBuildProfileEmpty(t *testing.T) {
	p := BuildProfile(nil)
	if p.TrackCount != 0 || p.AvgBPM != nil {
		t.Errorf("empty profile = %+v", p)
	}
}

func TestDominantMoodFromAverages(t *testing.T) {
	// Two fully featured tracks sit below the clustering minimum, so the
	// mood comes from the plain feature average.
	tracks := []Track{
		{ID: 1, Energy: ptr(0.9), Valence: ptr(0.8), Danceability: ptr(0.7), Acousticness: ptr(0.1)},
		{ID: 2, Energy: ptr(0.8), Valence: ptr(0.9), Danceability: ptr(0.6), Acousticness: ptr(0.2)},
	}
	if got := dominantMood(tracks); got != "Upbeat Party" {
		t.Errorf("mood = %q, want Upbeat Party", got)
	}

	if got := dominantMood([]Track{{ID: 1}}); got != "" {
		t.Errorf("mood without features = %q, want empty", got)
	}
}

func TestMoodName(t *testing.T) {
	tests := []struct {
		name     string
		centroid map[string]float64
		want     string
	}{
		{"upbeat party", map[string]float64{"energy": 0.8, "valence": 0.8}, "Upbeat Party"},
		{"intense dark", map[string]float64{"energy": 0.8, "valence": 0.2}, "Intense & Dark"},
		{"chill happy", map[string]float64{"energy": 0.3, "valence": 0.8}, "Chill & Happy"},
		{"reflective", map[string]float64{"energy": 0.3, "valence": 0.2}, "Reflective & Melancholy"},
		{
			"acoustic modifier",
			map[string]float64{"energy": 0.3, "valence": 0.2, "acousticness": 0.8},
			"Reflective & Melancholy (Acoustic)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := moodName(tt.centroid); got != tt.want {
				t.Errorf("moodName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	p := &Profile{
		AvgBPM:    ptr(150),
		AvgEnergy: ptr(0.8),
		TopGenres: []string{"techno", "house", "trance"},
		Mood:      "Upbeat Party",
	}

	got := describe(p)
	for _, want := range []string{"fast-paced, driving", "intense and powerful", "techno, house", "Upbeat Party"} {
		if !strings.Contains(got, want) {
			t.Errorf("description %q missing %q", got, want)
		}
	}
}
