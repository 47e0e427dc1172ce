// Command gem-curator runs the conversational playlist curator API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/justestif/go-gem-curator/internal/config"
	"github.com/justestif/go-gem-curator/internal/curation"
	"github.com/justestif/go-gem-curator/internal/db"
	"github.com/justestif/go-gem-curator/internal/enrich"
	"github.com/justestif/go-gem-curator/internal/lastfm"
	"github.com/justestif/go-gem-curator/internal/narrate"
	"github.com/justestif/go-gem-curator/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("please set database.url in config.toml or the DATABASE_URL environment variable")
	}

	ctx := context.Background()

	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	catalog := database.Catalog()
	store := database.CurationSessions()

	// Optional collaborators: the workflow degrades gracefully when any
	// of them is absent.
	var enricher curation.Enricher
	var source enrich.MusicSource
	var genres enrich.GenreSource

	if cfg.HasSpotifyConfig() {
		spotifyClient, err := enrich.NewSpotifyClient(ctx, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
		if err != nil {
			log.Printf("Spotify enrichment disabled: %v", err)
		} else {
			source = spotifyClient
		}
	}
	if cfg.HasLastfmConfig() {
		genres = lastfm.NewClient(cfg.Lastfm.APIKey)
	}
	if source != nil || genres != nil {
		enricher = enrich.NewService(source, genres, catalog)
	} else {
		log.Println("Enrichment disabled: no Spotify or Last.fm credentials configured")
	}

	var narrator curation.Narrator
	if cfg.HasOpenAIConfig() {
		narrator = narrate.New(narrate.Config{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		})
	} else {
		log.Println("Narration disabled: templated responses will be used")
	}

	workflow := curation.NewWorkflow(catalog, store, enricher, narrator, cfg.WorkflowConfig())

	server := web.NewServer(cfg.Server.Addr, workflow)
	return server.Run()
}
