package curation

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// Profile is the statistical summary of the seed playlist computed during
// the ANALYZE phase. Averages are nil when no member track carries the
// feature.
type Profile struct {
	TrackCount   int      `json:"track_count"`
	AvgBPM       *float64 `json:"avg_bpm,omitempty"`
	AvgEnergy    *float64 `json:"avg_energy,omitempty"`
	TopGenres    []string `json:"top_genres,omitempty"`
	Artists      []string `json:"artists,omitempty"`
	Mood         string   `json:"mood,omitempty"`
	Description  string   `json:"description,omitempty"`
	SampleTracks []string `json:"sample_tracks,omitempty"`
}

// profileFeatureDims are the audio features used for mood clustering.
var profileFeatureDims = []string{"energy", "valence", "danceability", "acousticness"}

const moodClusterCount = 3

// BuildProfile summarizes the playlist's members: feature averages, top
// genres, member artists, a kmeans-derived mood name, and a rule-based
// description used in the analyze message.
func BuildProfile(tracks []Track) *Profile {
	p := &Profile{TrackCount: len(tracks)}
	if len(tracks) == 0 {
		return p
	}

	var bpmSum, energySum float64
	var bpmN, energyN int
	genreCounts := make(map[string]int)
	artistSet := make(map[string]bool)

	for i := range tracks {
		t := &tracks[i]
		if t.BPM != nil {
			bpmSum += *t.BPM
			bpmN++
		}
		if t.Energy != nil {
			energySum += *t.Energy
			energyN++
		}
		if g := firstGenre(t.Genre); g != "" {
			genreCounts[g]++
		}
		if t.Artist != "" {
			artistSet[t.Artist] = true
		}
	}

	if bpmN > 0 {
		avg := bpmSum / float64(bpmN)
		p.AvgBPM = &avg
	}
	if energyN > 0 {
		avg := energySum / float64(energyN)
		p.AvgEnergy = &avg
	}

	p.TopGenres = topByCount(genreCounts, 5)

	for a := range artistSet {
		p.Artists = append(p.Artists, a)
	}
	sort.Strings(p.Artists)

	for i := 0; i < len(tracks) && i < 5; i++ {
		if tracks[i].Artist != "" && tracks[i].Title != "" {
			p.SampleTracks = append(p.SampleTracks, fmt.Sprintf("%s - %s", tracks[i].Artist, tracks[i].Title))
		}
	}

	p.Mood = dominantMood(tracks)
	p.Description = describe(p)
	return p
}

// dominantMood clusters member features with k-means and names the largest
// cluster's centroid. Tracks missing any clustered feature are skipped;
// with too few usable tracks the plain feature average is named instead.
func dominantMood(tracks []Track) string {
	var obs clusters.Observations
	for i := range tracks {
		if coords, ok := featureCoords(&tracks[i]); ok {
			obs = append(obs, coords)
		}
	}
	if len(obs) == 0 {
		return ""
	}

	if len(obs) < moodClusterCount {
		return moodName(averageCoords(obs))
	}

	km := kmeans.New()
	result, err := km.Partition(obs, moodClusterCount)
	if err != nil {
		log.Printf("mood clustering failed, falling back to feature average: %v", err)
		return moodName(averageCoords(obs))
	}

	largest := result[0]
	for _, c := range result[1:] {
		if len(c.Observations) > len(largest.Observations) {
			largest = c
		}
	}

	centroid := make(map[string]float64, len(profileFeatureDims))
	for i, name := range profileFeatureDims {
		centroid[name] = largest.Center[i]
	}
	return moodName(centroid)
}

// moodName maps a feature centroid onto a 2x2 energy/valence quadrant with
// an acousticness modifier.
func moodName(centroid map[string]float64) string {
	highEnergy := centroid["energy"] > 0.6
	highValence := centroid["valence"] > 0.5

	var base string
	switch {
	case highEnergy && highValence:
		base = "Upbeat Party"
	case highEnergy && !highValence:
		base = "Intense & Dark"
	case !highEnergy && highValence:
		base = "Chill & Happy"
	default:
		base = "Reflective & Melancholy"
	}

	if centroid["acousticness"] > 0.6 {
		return base + " (Acoustic)"
	}
	return base
}

// describe renders the rule-based one-liner shown in the analyze message.
func describe(p *Profile) string {
	tempo := "moderate, relaxed"
	if p.AvgBPM != nil {
		switch bpm := *p.AvgBPM; {
		case bpm < 90:
			tempo = "slow, contemplative"
		case bpm < 120:
			tempo = "moderate, relaxed"
		case bpm < 140:
			tempo = "upbeat, energetic"
		default:
			tempo = "fast-paced, driving"
		}
	}

	energy := "balanced and dynamic"
	if p.AvgEnergy != nil {
		switch e := *p.AvgEnergy; {
		case e < 0.3:
			energy = "mellow and intimate"
		case e < 0.6:
			energy = "balanced and dynamic"
		default:
			energy = "intense and powerful"
		}
	}

	genre := "eclectic"
	if len(p.TopGenres) > 0 {
		genre = strings.Join(p.TopGenres[:min(2, len(p.TopGenres))], ", ")
	}

	desc := fmt.Sprintf("This playlist has a %s tempo with %s vibes, featuring %s influences.", tempo, energy, genre)
	if p.Mood != "" {
		desc += fmt.Sprintf(" Overall mood: %s.", p.Mood)
	}
	return desc
}

func featureCoords(t *Track) (clusters.Coordinates, bool) {
	if t.Energy == nil || t.Valence == nil || t.Danceability == nil || t.Acousticness == nil {
		return nil, false
	}
	return clusters.Coordinates{*t.Energy, *t.Valence, *t.Danceability, *t.Acousticness}, true
}

func averageCoords(obs clusters.Observations) map[string]float64 {
	sums := make([]float64, len(profileFeatureDims))
	for _, o := range obs {
		for i, v := range o.Coordinates() {
			sums[i] += v
		}
	}
	out := make(map[string]float64, len(profileFeatureDims))
	for i, name := range profileFeatureDims {
		out[name] = sums[i] / float64(len(obs))
	}
	return out
}

func firstGenre(genre string) string {
	first, _, _ := strings.Cut(genre, ",")
	return strings.TrimSpace(first)
}

func topByCount(counts map[string]int, limit int) []string {
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for n, c := range counts {
		entries = append(entries, entry{n, c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.name
	}
	return out
}
