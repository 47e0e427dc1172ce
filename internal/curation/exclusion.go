package curation

import "sort"

// ExclusionState accumulates the track IDs and artist names omitted from
// further retrieval within a session. It only ever grows: rounds complete
// and the user declares known artists, but nothing is un-excluded.
type ExclusionState struct {
	TrackIDs map[int64]bool  `json:"track_ids,omitempty"`
	Artists  map[string]bool `json:"artists,omitempty"`
}

// AddTracks marks track IDs as excluded.
func (e *ExclusionState) AddTracks(ids ...int64) {
	if e.TrackIDs == nil {
		e.TrackIDs = make(map[int64]bool, len(ids))
	}
	for _, id := range ids {
		e.TrackIDs[id] = true
	}
}

// AddArtists marks artist names as excluded. Empty names are ignored.
func (e *ExclusionState) AddArtists(names ...string) {
	if e.Artists == nil {
		e.Artists = make(map[string]bool, len(names))
	}
	for _, n := range names {
		if n != "" {
			e.Artists[n] = true
		}
	}
}

// HasArtist reports whether the artist is excluded.
func (e *ExclusionState) HasArtist(name string) bool {
	return e.Artists[name]
}

// TrackIDList returns the excluded track IDs in ascending order. An empty
// exclusion state yields an empty list, which retrieval treats as "exclude
// nothing".
func (e *ExclusionState) TrackIDList() []int64 {
	ids := make([]int64, 0, len(e.TrackIDs))
	for id := range e.TrackIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ArtistList returns the excluded artist names sorted alphabetically.
func (e *ExclusionState) ArtistList() []string {
	names := make([]string, 0, len(e.Artists))
	for n := range e.Artists {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
