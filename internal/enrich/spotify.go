// Package enrich fills missing audio features and genres for recommended
// tracks from external music APIs.
package enrich

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// TrackLookup is one track resolved against the external catalog.
type TrackLookup struct {
	TrackID  spotify.ID
	ArtistID spotify.ID
}

// SpotifyClient wraps the Spotify Web API using the client-credentials
// flow. No user authorization is involved: enrichment only reads public
// catalog data.
type SpotifyClient struct {
	api *spotify.Client
}

// NewSpotifyClient authenticates with the client-credentials flow and
// returns a ready client. The token refreshes itself via the oauth2
// transport.
func NewSpotifyClient(ctx context.Context, clientID, clientSecret string) (*SpotifyClient, error) {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticating with Spotify: %w", err)
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	return &SpotifyClient{api: spotify.New(httpClient)}, nil
}

// NewSpotifyClientFromAPI wraps an existing API client. Used by tests to
// point at a local server.
func NewSpotifyClientFromAPI(api *spotify.Client) *SpotifyClient {
	return &SpotifyClient{api: api}
}

// FindTrack resolves a local track against the Spotify catalog by artist
// and title. Returns ErrTrackNotFound when nothing matches.
func (c *SpotifyClient) FindTrack(ctx context.Context, artist, title string) (*TrackLookup, error) {
	query := fmt.Sprintf("track:%s artist:%s", title, artist)
	result, err := c.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, fmt.Errorf("searching for %q by %q: %w", title, artist, err)
	}
	if result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		return nil, ErrTrackNotFound
	}

	hit := result.Tracks.Tracks[0]
	lookup := &TrackLookup{TrackID: hit.ID}
	if len(hit.Artists) > 0 {
		lookup.ArtistID = hit.Artists[0].ID
	}
	return lookup, nil
}

// AudioFeatures fetches audio features for up to 100 tracks in one call.
func (c *SpotifyClient) AudioFeatures(ctx context.Context, ids []spotify.ID) ([]*spotify.AudioFeatures, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	features, err := c.api.GetAudioFeatures(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("fetching audio features: %w", err)
	}
	return features, nil
}

// ArtistGenres returns the genres Spotify attributes to an artist.
func (c *SpotifyClient) ArtistGenres(ctx context.Context, id spotify.ID) ([]string, error) {
	artist, err := c.api.GetArtist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching artist %s: %w", id, err)
	}
	return artist.Genres, nil
}
