// Package spotify resolves queries against the Spotify catalog and reads track titles from open.spotify.com.
package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/changkevin51/Music-Downloader/internal/core"
)

const (
	// TrackURLPrefix is the canonical location of every track page.
	TrackURLPrefix = "https://open.spotify.com/track/"
	// UnknownArtist is the default value when artist name is not available
	UnknownArtist = "Unknown"
)

// Client talks to the Spotify Web API with app-only (client credentials) auth.
type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	auth   *clientcredentials.Config
	client *spotify.Client
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	tokenURL := config.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	auth := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     tokenURL,
	}

	var opts []spotify.ClientOption
	if config.APIBaseURL != "" {
		opts = append(opts, spotify.WithBaseURL(strings.TrimSuffix(config.APIBaseURL, "/")+"/"))
	}

	return &Client{
		config: config,
		logger: logger,
		auth:   auth,
		client: spotify.New(auth.Client(context.Background()), opts...),
	}
}

// Authenticate fetches an access token so bad credentials surface at startup.
func (c *Client) Authenticate(ctx context.Context) error {
	token, err := c.auth.Token(ctx)
	if err != nil {
		return fmt.Errorf("spotify authentication failed: %w", err)
	}
	c.logger.Info("Authenticated successfully", zap.Time("token_expiry", token.Expiry))
	return nil
}

// SearchTopTrack runs a top-1 track search. Zero matches yield core.ErrNotFound.
func (c *Client) SearchTopTrack(ctx context.Context, query string) (*core.CatalogTrack, error) {
	c.logger.Debug("Searching catalog", zap.String("query", query))

	results, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, fmt.Errorf("%w: no tracks match %q", core.ErrNotFound, query)
	}

	track := c.convertSpotifyTrack(&results.Tracks.Tracks[0])
	c.logger.Info("Catalog search matched",
		zap.String("query", query),
		zap.String("track", track.Name),
		zap.Strings("artists", track.Artists),
		zap.String("url", track.URL))
	return track, nil
}

func (c *Client) convertSpotifyTrack(track *spotify.FullTrack) *core.CatalogTrack {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}
	if len(artists) == 0 {
		artists = append(artists, UnknownArtist)
	}

	trackURL := track.ExternalURLs["spotify"]
	if trackURL == "" {
		trackURL = TrackURLPrefix + track.ID.String()
	}

	return &core.CatalogTrack{
		ID:      track.ID.String(),
		Name:    track.Name,
		Artists: artists,
		URL:     trackURL,
	}
}
