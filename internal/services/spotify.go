// Spotify Web API implementation of [MusicProvider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/desertthunder/sonicvision/internal/credentials"
	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/shared"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// SpotifyTokenKey is the KV key holding the cached client-credentials token.
	SpotifyTokenKey = "spotify_token"

	spotifyPageSize = 20
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	ReleaseDate  string          `json:"release_date"`
	Images       []SpotifyImage  `json:"images"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	PreviewURL   *string         `json:"preview_url"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
		Total int            `json:"total"`
	} `json:"tracks"`
}

type spotifyNewReleasesResponse struct {
	Albums struct {
		Items []SpotifyAlbum `json:"items"`
	} `json:"albums"`
}

// SpotifyOptions overrides endpoints and plumbing, mainly for tests.
type SpotifyOptions struct {
	BaseURL    string
	TokenURL   string
	Tokens     credentials.KV // caches the app token across runs when set
	Cache      Cache
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Spotify searches the Spotify catalogue with an app (client-credentials) token.
type Spotify struct {
	provider
	market string
}

// NewSpotify creates a [Spotify] provider. Client ID and secret are required.
func NewSpotify(cfg shared.SpotifyConfig, opts SpotifyOptions) (*Spotify, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	base := opts.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     opts.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	var src oauth2.TokenSource = cc.TokenSource(ctx)
	if opts.Tokens != nil {
		src = &kvTokenSource{kv: opts.Tokens, key: SpotifyTokenKey, base: src}
	}
	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, src))

	market := cfg.Market
	if market == "" {
		market = "US"
	}

	return &Spotify{
		provider: provider{
			name:    "spotify",
			baseURL: strings.TrimRight(opts.BaseURL, "/"),
			client:  client,
			limiter: newLimiter(cfg.RequestsPerSecond),
			cache:   opts.Cache,
			logger:  shared.WithLogger(opts.Logger, "service", "spotify"),
		},
		market: market,
	}, nil
}

func (s *Spotify) Name() string {
	return "Spotify"
}

// SearchMusic searches tracks, twenty per page. An empty query returns an empty page without a request.
func (s *Spotify) SearchMusic(ctx context.Context, query string, page int) (*models.MusicPage, error) {
	if page < 1 {
		page = 1
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return &models.MusicPage{Items: []models.Music{}, Page: page}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(spotifyPageSize))
	params.Set("offset", strconv.Itoa((page-1)*spotifyPageSize))
	params.Set("market", s.market)

	var resp spotifySearchResponse
	if err := s.getJSON(ctx, "/search", params, nil, &resp); err != nil {
		return nil, err
	}

	items := make([]models.Music, 0, len(resp.Tracks.Items))
	for _, t := range resp.Tracks.Items {
		items = append(items, t.toMusic())
	}

	return &models.MusicPage{
		Items:   items,
		Page:    page,
		Total:   resp.Tracks.Total,
		HasMore: len(resp.Tracks.Items) == spotifyPageSize,
	}, nil
}

// TrendingMusic lists new album releases in the configured market.
func (s *Spotify) TrendingMusic(ctx context.Context) ([]models.Music, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(spotifyPageSize))
	params.Set("country", s.market)

	var resp spotifyNewReleasesResponse
	if err := s.getJSON(ctx, "/browse/new-releases", params, nil, &resp); err != nil {
		return nil, err
	}

	items := make([]models.Music, 0, len(resp.Albums.Items))
	for _, a := range resp.Albums.Items {
		items = append(items, models.Music{
			ID:         a.ID,
			Title:      a.Name,
			Artist:     artistNames(a.Artists),
			Album:      a.Name,
			CoverURL:   firstImage(a.Images),
			SpotifyURL: a.ExternalURLs.Spotify,
		})
	}
	return items, nil
}

// Track retrieves a single track by ID.
func (s *Spotify) Track(ctx context.Context, trackID string) (*models.Music, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	var track SpotifyTrack
	if err := s.getJSON(ctx, "/tracks/"+url.PathEscape(trackID), nil, nil, &track); err != nil {
		return nil, err
	}
	m := track.toMusic()
	return &m, nil
}

func (t SpotifyTrack) toMusic() models.Music {
	m := models.Music{
		ID:         t.ID,
		Title:      t.Name,
		Artist:     artistNames(t.Artists),
		Album:      t.Album.Name,
		CoverURL:   firstImage(t.Album.Images),
		Duration:   t.DurationMS / 1000,
		SpotifyURL: t.ExternalURLs.Spotify,
	}
	if t.PreviewURL != nil {
		m.PreviewURL = *t.PreviewURL
	}
	return m
}

func artistNames(artists []SpotifyArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func firstImage(images []SpotifyImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

// kvTokenSource persists app tokens so separate CLI runs share one until it expires.
type kvTokenSource struct {
	kv   credentials.KV
	key  string
	base oauth2.TokenSource
}

func (k *kvTokenSource) Token() (*oauth2.Token, error) {
	ctx := context.Background()

	if raw, ok, err := k.kv.Get(ctx, k.key); err == nil && ok {
		var tok oauth2.Token
		if err := json.Unmarshal([]byte(raw), &tok); err == nil && tok.Valid() {
			return &tok, nil
		}
	}

	tok, err := k.base.Token()
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(tok); err == nil {
		_ = k.kv.Set(ctx, k.key, string(raw))
	}
	return tok, nil
}
