// TMDB implementation of [MovieProvider]
//
// Response types based on https://developer.themoviedb.org/reference
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/shared"
)

const (
	tmdbBaseURL = "https://api.themoviedb.org/3"

	// PosterBaseURL prefixes TMDB poster paths.
	PosterBaseURL = "https://image.tmdb.org/t/p/w500"
	// NoPosterURL is used when a movie has no poster.
	NoPosterURL = "/images/no-poster.png"
)

type tmdbMovie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
}

type tmdbPage struct {
	Page         int         `json:"page"`
	Results      []tmdbMovie `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

type tmdbDetail struct {
	tmdbMovie
	Genres  []models.Genre `json:"genres"`
	Runtime int            `json:"runtime"`
	Budget  int64          `json:"budget"`
	Revenue int64          `json:"revenue"`
	Credits *struct {
		Cast []models.CastMember `json:"cast"`
		Crew []models.CrewMember `json:"crew"`
	} `json:"credits"`
}

// TMDBOptions overrides endpoints and plumbing, mainly for tests.
type TMDBOptions struct {
	BaseURL    string
	Cache      Cache
	HTTPClient *http.Client
	Logger     *log.Logger
}

// TMDB queries The Movie Database with either a v3 API key or a v4 read access token.
type TMDB struct {
	provider
	apiKey      string
	accessToken string
	language    string
}

// NewTMDB creates a [TMDB] provider. One of APIKey or AccessToken is required.
func NewTMDB(cfg shared.TMDBConfig, opts TMDBOptions) (*TMDB, error) {
	if cfg.APIKey == "" && cfg.AccessToken == "" {
		return nil, fmt.Errorf("%w: tmdb api_key or access_token", shared.ErrMissingCredentials)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = tmdbBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &TMDB{
		provider: provider{
			name:    "tmdb",
			baseURL: strings.TrimRight(opts.BaseURL, "/"),
			client:  opts.HTTPClient,
			limiter: newLimiter(cfg.RequestsPerSecond),
			cache:   opts.Cache,
			logger:  shared.WithLogger(opts.Logger, "service", "tmdb"),
		},
		apiKey:      cfg.APIKey,
		accessToken: cfg.AccessToken,
		language:    cfg.Language,
	}, nil
}

func (t *TMDB) Name() string {
	return "TMDB"
}

// authorize adds credentials outside the cache key.
func (t *TMDB) authorize(req *http.Request) {
	if t.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.accessToken)
		return
	}
	q := req.URL.Query()
	q.Set("api_key", t.apiKey)
	req.URL.RawQuery = q.Encode()
}

func (t *TMDB) params() url.Values {
	params := url.Values{}
	if t.language != "" {
		params.Set("language", t.language)
	}
	return params
}

// SearchMovies searches movies by title. An empty query returns an empty page without a request.
func (t *TMDB) SearchMovies(ctx context.Context, query string, page int) (*models.MoviePage, error) {
	if page < 1 {
		page = 1
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return &models.MoviePage{Items: []models.Movie{}, Page: page}, nil
	}

	params := t.params()
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))

	var resp tmdbPage
	if err := t.getJSON(ctx, "/search/movie", params, t.authorize, &resp); err != nil {
		return nil, err
	}
	return resp.toPage(), nil
}

// TrendingMovies lists this week's trending movies.
func (t *TMDB) TrendingMovies(ctx context.Context) ([]models.Movie, error) {
	var resp tmdbPage
	if err := t.getJSON(ctx, "/trending/movie/week", t.params(), t.authorize, &resp); err != nil {
		return nil, err
	}
	return resp.toPage().Items, nil
}

// MovieDetails fetches a movie with its credits. Director is taken from the crew.
func (t *TMDB) MovieDetails(ctx context.Context, id int) (*models.MovieDetail, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: movie id %d", shared.ErrInvalidArgument, id)
	}

	params := t.params()
	params.Set("append_to_response", "credits")

	var resp tmdbDetail
	if err := t.getJSON(ctx, "/movie/"+strconv.Itoa(id), params, t.authorize, &resp); err != nil {
		return nil, err
	}

	detail := &models.MovieDetail{
		Movie:   resp.toMovie(),
		Genres:  resp.Genres,
		Runtime: resp.Runtime,
		Budget:  resp.Budget,
		Revenue: resp.Revenue,
	}
	if resp.Credits != nil {
		detail.Cast = resp.Credits.Cast
		detail.Crew = resp.Credits.Crew
		if i := slices.IndexFunc(detail.Crew, func(c models.CrewMember) bool { return c.Job == "Director" }); i >= 0 {
			detail.Director = detail.Crew[i].Name
		}
	}
	return detail, nil
}

// Genres lists the movie genres.
func (t *TMDB) Genres(ctx context.Context) ([]models.Genre, error) {
	var resp struct {
		Genres []models.Genre `json:"genres"`
	}
	if err := t.getJSON(ctx, "/genre/movie/list", t.params(), t.authorize, &resp); err != nil {
		return nil, err
	}
	return resp.Genres, nil
}

// PosterURL maps a TMDB poster path to a full image URL.
func PosterURL(path string) string {
	if path == "" {
		return NoPosterURL
	}
	return PosterBaseURL + path
}

func (m tmdbMovie) toMovie() models.Movie {
	return models.Movie{
		ID:          m.ID,
		Title:       m.Title,
		Overview:    m.Overview,
		PosterURL:   PosterURL(m.PosterPath),
		ReleaseDate: m.ReleaseDate,
		VoteAverage: m.VoteAverage,
	}
}

func (p tmdbPage) toPage() *models.MoviePage {
	items := make([]models.Movie, 0, len(p.Results))
	for _, m := range p.Results {
		items = append(items, m.toMovie())
	}
	return &models.MoviePage{
		Items:      items,
		Page:       p.Page,
		TotalPages: p.TotalPages,
		Total:      p.TotalResults,
	}
}
