package curation

import "time"

// Config holds every tunable the curation core uses. The reference values
// in DefaultConfig are the ones the production behavior was tuned against;
// deployments override them through the configuration file.
type Config struct {
	// ShortlistSize is the number of tracks presented to the user.
	ShortlistSize int
	// MinCandidates is the minimum shortlist size worth presenting; fewer
	// triggers a re-discovery round with the shortlist excluded.
	MinCandidates int
	// MinPlaylistTracks is the smallest playlist worth analyzing.
	MinPlaylistTracks int

	// MaxIterations caps retrieval cycles per session; hitting it forces
	// PRESENT with whatever shortlist has accumulated.
	MaxIterations int
	// LoopWindow is how many recent DECIDE outcomes the loop detector
	// inspects; that many identical outcomes in a row force PRESENT.
	LoopWindow int

	// SearchLimit and RetrySearchLimit bound candidate retrieval on the
	// first round and on relaxation rounds respectively.
	SearchLimit      int
	RetrySearchLimit int
	// DiversityPoolFactor widens the diversity pass: the artist de-dupe
	// runs over ShortlistSize*DiversityPoolFactor candidates before vibe
	// ranking truncates to ShortlistSize.
	DiversityPoolFactor int

	// Vibe scoring thresholds (threshold-filter policy and search
	// constraint construction).
	VibePolicy         VibePolicy
	VibeMinMatches     int
	ChillEnergyMax     float64
	ChillEnergyRelaxed float64
	EnergyMin          float64
	EnergyMinRelaxed   float64
	ChillBPMMax        float64
	EnergyBPMMin       float64
	SimilarBPMWindow   float64
	RelaxBPMStep       float64
	RelaxEnergyStep    float64

	// SteerWeight scales centroid steering along the catalog's energy axis
	// for the chill (negative) and energy (positive) vibes. Zero disables
	// steering.
	SteerWeight float64

	// ShuffleSeed seeds the Surprise shuffle; zero means seed from the
	// clock (non-deterministic, the production setting).
	ShuffleSeed int64

	// Collaborator call budgets.
	EnrichTimeout  time.Duration
	NarrateTimeout time.Duration
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		ShortlistSize:       5,
		MinCandidates:       3,
		MinPlaylistTracks:   5,
		MaxIterations:       10,
		LoopWindow:          3,
		SearchLimit:         50,
		RetrySearchLimit:    100,
		DiversityPoolFactor: 3,
		VibePolicy:          PolicyWeighted,
		VibeMinMatches:      3,
		ChillEnergyMax:      0.6,
		ChillEnergyRelaxed:  0.75,
		EnergyMin:           0.7,
		EnergyMinRelaxed:    0.5,
		ChillBPMMax:         110,
		EnergyBPMMin:        120,
		SimilarBPMWindow:    20,
		RelaxBPMStep:        10,
		RelaxEnergyStep:     0.1,
		SteerWeight:         0,
		ShuffleSeed:         0,
		EnrichTimeout:       15 * time.Second,
		NarrateTimeout:      20 * time.Second,
	}
}
