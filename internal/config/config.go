// Package config loads gem-curator configuration from TOML files with
// environment variable overrides for secrets.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/justestif/go-gem-curator/internal/curation"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Spotify  SpotifyConfig  `koanf:"spotify"`
	Lastfm   LastfmConfig   `koanf:"lastfm"`
	OpenAI   OpenAIConfig   `koanf:"openai"`
	Curation CurationConfig `koanf:"curation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `koanf:"addr"` // default ":8080"
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL string `koanf:"url"` // overridden by DATABASE_URL
}

// SpotifyConfig holds the client-credentials pair for catalog enrichment.
type SpotifyConfig struct {
	ClientID     string `koanf:"client_id"`     // overridden by SPOTIFY_CLIENT_ID
	ClientSecret string `koanf:"client_secret"` // overridden by SPOTIFY_CLIENT_SECRET
}

// LastfmConfig holds the Last.fm API key for the genre fallback.
type LastfmConfig struct {
	APIKey string `koanf:"api_key"` // overridden by LASTFM_API_KEY
}

// OpenAIConfig holds narration settings.
type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"` // overridden by OPENAI_API_KEY
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

// CurationConfig holds workflow tuning knobs. Zero values mean "use the
// built-in default".
type CurationConfig struct {
	ShortlistSize     int     `koanf:"shortlist_size"`
	MinCandidates     int     `koanf:"min_candidates"`
	MinPlaylistTracks int     `koanf:"min_playlist_tracks"`
	MaxIterations     int     `koanf:"max_iterations"`
	SearchLimit       int     `koanf:"search_limit"`
	RetrySearchLimit  int     `koanf:"retry_search_limit"`
	VibePolicy        string  `koanf:"vibe_policy"` // "weighted" or "threshold"
	SteerWeight       float64 `koanf:"steer_weight"`
	ShuffleSeed       int64   `koanf:"shuffle_seed"`
	EnrichTimeoutSec  int     `koanf:"enrich_timeout_sec"`
	NarrateTimeoutSec int     `koanf:"narrate_timeout_sec"`
}

// Load reads configuration files in priority order (last wins), then
// applies environment overrides for secrets.
func Load() (*Config, error) {
	k := koanf.New(".")

	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{Addr: ":8080"},
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg.Database.URL, "DATABASE_URL")
	applyEnv(&cfg.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	applyEnv(&cfg.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	applyEnv(&cfg.Lastfm.APIKey, "LASTFM_API_KEY")
	applyEnv(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	applyEnv(&cfg.Server.Addr, "GEM_CURATOR_ADDR")

	return cfg, nil
}

func configPaths() []string {
	paths := []string{}

	// 1. ~/.config/gem-curator/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "gem-curator", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func applyEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// HasSpotifyConfig reports whether catalog enrichment is configured.
func (c *Config) HasSpotifyConfig() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

// HasLastfmConfig reports whether the genre fallback is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != ""
}

// HasOpenAIConfig reports whether narration is configured.
func (c *Config) HasOpenAIConfig() bool {
	return c.OpenAI.APIKey != ""
}

// WorkflowConfig applies the configured overrides onto the built-in
// curation defaults.
func (c *Config) WorkflowConfig() curation.Config {
	cfg := curation.DefaultConfig()

	if v := c.Curation.ShortlistSize; v > 0 {
		cfg.ShortlistSize = v
	}
	if v := c.Curation.MinCandidates; v > 0 {
		cfg.MinCandidates = v
	}
	if v := c.Curation.MinPlaylistTracks; v > 0 {
		cfg.MinPlaylistTracks = v
	}
	if v := c.Curation.MaxIterations; v > 0 {
		cfg.MaxIterations = v
	}
	if v := c.Curation.SearchLimit; v > 0 {
		cfg.SearchLimit = v
	}
	if v := c.Curation.RetrySearchLimit; v > 0 {
		cfg.RetrySearchLimit = v
	}
	if c.Curation.VibePolicy == "threshold" {
		cfg.VibePolicy = curation.PolicyThreshold
	}
	if v := c.Curation.SteerWeight; v != 0 {
		cfg.SteerWeight = v
	}
	if v := c.Curation.ShuffleSeed; v != 0 {
		cfg.ShuffleSeed = v
	}
	if v := c.Curation.EnrichTimeoutSec; v > 0 {
		cfg.EnrichTimeout = time.Duration(v) * time.Second
	}
	if v := c.Curation.NarrateTimeoutSec; v > 0 {
		cfg.NarrateTimeout = time.Duration(v) * time.Second
	}
	return cfg
}
