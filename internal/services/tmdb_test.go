package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/sonicvision/internal/shared"
	tu "github.com/desertthunder/sonicvision/internal/testing"
)

type fakeTMDB struct {
	server *httptest.Server
	calls  atomic.Int32
	last   atomic.Pointer[http.Request]
}

func newFakeTMDB(t *testing.T) *fakeTMDB {
	t.Helper()
	f := &fakeTMDB{}

	page := map[string]any{
		"page":          1,
		"total_pages":   4,
		"total_results": 61,
		"results": []map[string]any{
			{"id": 603, "title": "The Matrix", "poster_path": "/m.jpg", "release_date": "1999-03-30", "vote_average": 8.2},
			{"id": 604, "title": "No Poster", "poster_path": ""},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /3/search/movie", func(w http.ResponseWriter, r *http.Request) { tu.WriteJSON(w, http.StatusOK, page) })
	mux.HandleFunc("GET /3/trending/movie/week", func(w http.ResponseWriter, r *http.Request) { tu.WriteJSON(w, http.StatusOK, page) })
	mux.HandleFunc("GET /3/genre/movie/list", func(w http.ResponseWriter, r *http.Request) {
		tu.WriteJSON(w, http.StatusOK, map[string]any{"genres": []map[string]any{{"id": 28, "name": "Action"}}})
	})
	mux.HandleFunc("GET /3/movie/603", func(w http.ResponseWriter, r *http.Request) {
		tu.WriteJSON(w, http.StatusOK, map[string]any{
			"id": 603, "title": "The Matrix", "runtime": 136, "budget": 63000000,
			"genres": []map[string]any{{"id": 28, "name": "Action"}},
			"credits": map[string]any{
				"cast": []map[string]any{{"id": 1, "name": "Keanu Reeves", "character": "Neo"}},
				"crew": []map[string]any{
					{"id": 2, "name": "Bill Pope", "job": "Director of Photography"},
					{"id": 3, "name": "Lana Wachowski", "job": "Director"},
				},
			},
		})
	})
	mux.HandleFunc("GET /3/movie/500", func(w http.ResponseWriter, r *http.Request) {
		tu.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status_message": "down"})
	})

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.last.Store(r)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func TestTMDB(t *testing.T) {
	ctx := context.Background()

	newTMDB := func(t *testing.T, f *fakeTMDB, cfg shared.TMDBConfig) *TMDB {
		t.Helper()
		tm, err := NewTMDB(cfg, TMDBOptions{BaseURL: f.server.URL + "/3"})
		if err != nil {
			t.Fatalf("failed to create tmdb: %v", err)
		}
		return tm
	}

	t.Run("requires credentials", func(t *testing.T) {
		if _, err := NewTMDB(shared.TMDBConfig{}, TMDBOptions{}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("api key auth", func(t *testing.T) {
		f := newFakeTMDB(t)
		page, err := newTMDB(t, f, shared.TMDBConfig{APIKey: "k3y", Language: "en-US"}).SearchMovies(ctx, "matrix", 2)
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}

		q := f.last.Load().URL.Query()
		for k, v := range map[string]string{"api_key": "k3y", "query": "matrix", "page": "2", "language": "en-US"} {
			if q.Get(k) != v {
				t.Errorf("param %s: expected %s, got %s", k, v, q.Get(k))
			}
		}
		if page.TotalPages != 4 || page.Total != 61 || len(page.Items) != 2 {
			t.Errorf("unexpected page %+v", page)
		}
	})

	t.Run("bearer auth", func(t *testing.T) {
		f := newFakeTMDB(t)
		if _, err := newTMDB(t, f, shared.TMDBConfig{AccessToken: "v4"}).TrendingMovies(ctx); err != nil {
			t.Fatalf("trending failed: %v", err)
		}
		r := f.last.Load()
		if r.Header.Get("Authorization") != "Bearer v4" || r.URL.Query().Has("api_key") {
			t.Errorf("expected bearer auth only, got header=%q query=%q", r.Header.Get("Authorization"), r.URL.RawQuery)
		}
	})

	t.Run("poster urls", func(t *testing.T) {
		f := newFakeTMDB(t)
		movies, err := newTMDB(t, f, shared.TMDBConfig{APIKey: "k"}).TrendingMovies(ctx)
		if err != nil {
			t.Fatalf("trending failed: %v", err)
		}
		if movies[0].PosterURL != PosterBaseURL+"/m.jpg" {
			t.Errorf("unexpected poster %s", movies[0].PosterURL)
		}
		if movies[1].PosterURL != NoPosterURL {
			t.Errorf("expected fallback poster, got %s", movies[1].PosterURL)
		}
		if movies[0].Year() != 1999 {
			t.Errorf("expected 1999, got %d", movies[0].Year())
		}
	})

	t.Run("empty search makes no request", func(t *testing.T) {
		f := newFakeTMDB(t)
		page, err := newTMDB(t, f, shared.TMDBConfig{APIKey: "k"}).SearchMovies(ctx, "", 1)
		if err != nil || len(page.Items) != 0 {
			t.Fatalf("expected empty page, got %+v, %v", page, err)
		}
		if f.calls.Load() != 0 {
			t.Error("expected no request")
		}
	})

	t.Run("details with credits", func(t *testing.T) {
		f := newFakeTMDB(t)
		d, err := newTMDB(t, f, shared.TMDBConfig{APIKey: "k"}).MovieDetails(ctx, 603)
		if err != nil {
			t.Fatalf("details failed: %v", err)
		}
		if f.last.Load().URL.Query().Get("append_to_response") != "credits" {
			t.Error("expected credits appended")
		}
		if d.Director != "Lana Wachowski" || d.Runtime != 136 || len(d.Cast) != 1 || d.PosterURL != NoPosterURL {
			t.Errorf("unexpected detail %+v", d)
		}
	})

	t.Run("details invalid id", func(t *testing.T) {
		f := newFakeTMDB(t)
		if _, err := newTMDB(t, f, shared.TMDBConfig{APIKey: "k"}).MovieDetails(ctx, 0); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("server error classified", func(t *testing.T) {
		f := newFakeTMDB(t)
		_, err := newTMDB(t, f, shared.TMDBConfig{APIKey: "k"}).MovieDetails(ctx, 500)
		if !errors.Is(err, shared.ErrServer) {
			t.Errorf("expected ErrServer, got %v", err)
		}
	})

	t.Run("genres", func(t *testing.T) {
		f := newFakeTMDB(t)
		genres, err := newTMDB(t, f, shared.TMDBConfig{APIKey: "k"}).Genres(ctx)
		if err != nil || len(genres) != 1 || genres[0].Name != "Action" {
			t.Errorf("unexpected genres %v, %v", genres, err)
		}
	})

	t.Run("cache key excludes api key", func(t *testing.T) {
		f := newFakeTMDB(t)
		cache := &memoryCache{}
		tm, _ := NewTMDB(shared.TMDBConfig{APIKey: "secret"}, TMDBOptions{BaseURL: f.server.URL + "/3", Cache: cache})
		if _, err := tm.SearchMovies(ctx, "matrix", 1); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		for k := range cache.items {
			if strings.Contains(k, "secret") || strings.Contains(k, "api_key") {
				t.Errorf("cache key leaked api key: %s", k)
			}
		}
		if _, err := tm.SearchMovies(ctx, "matrix", 1); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if f.calls.Load() != 1 {
			t.Errorf("expected second search served from cache, got %d calls", f.calls.Load())
		}
	})
}
