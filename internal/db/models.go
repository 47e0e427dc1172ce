package db

// TrackFeatures carries the enrichment write-back for one track. Nil
// fields leave the stored value untouched.
type TrackFeatures struct {
	TrackID      int64
	BPM          *float64
	Energy       *float64
	Danceability *float64
	Valence      *float64
	Acousticness *float64
	Loudness     *float64
	Key          *int
	Genre        string
}
