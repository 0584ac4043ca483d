package tasks

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/sonicvision/internal/formatter"
	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/pipeline"
	"github.com/desertthunder/sonicvision/internal/shared"
)

type mockMusic struct {
	results  map[string][]models.Music
	err      map[string]error
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (m *mockMusic) Name() string { return "mock" }

func (m *mockMusic) SearchMusic(ctx context.Context, query string, page int) (*models.MusicPage, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if err := m.err[query]; err != nil {
		return nil, err
	}
	return &models.MusicPage{Items: m.results[query], Page: page}, nil
}

func (m *mockMusic) TrendingMusic(context.Context) ([]models.Music, error) { return nil, nil }

type mockMovies struct {
	results map[string][]models.Movie
}

func (m *mockMovies) Name() string { return "mock" }

func (m *mockMovies) SearchMovies(_ context.Context, query string, page int) (*models.MoviePage, error) {
	return &models.MoviePage{Items: m.results[query], Page: page}, nil
}

func (m *mockMovies) TrendingMovies(context.Context) ([]models.Movie, error) { return nil, nil }

type mockBackend struct {
	mu         sync.Mutex
	playlists  map[int]*models.Playlist
	watchlists map[int]*models.Watchlist
	added      []string
	movies     []int
	reordered  []string
	failTrack  map[string]error
	createErr  error
	creates    int
}

func newMockBackend() *mockBackend {
	return &mockBackend{playlists: map[int]*models.Playlist{}, watchlists: map[int]*models.Watchlist{}}
}

func (b *mockBackend) Playlist(_ context.Context, id int) (*models.Playlist, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if pl, ok := b.playlists[id]; ok {
		return pl, nil
	}
	return nil, &pipeline.NotFoundError{Method: "GET", URL: fmt.Sprintf("/playlists/%d/", id)}
}

func (b *mockBackend) CreatePlaylist(_ context.Context, in models.PlaylistInput) (*models.Playlist, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creates++
	if b.createErr != nil {
		return nil, b.createErr
	}
	pl := &models.Playlist{ID: 10 + len(b.playlists), Name: in.Name, Description: in.Description}
	b.playlists[pl.ID] = pl
	return pl, nil
}

func (b *mockBackend) AddTrack(_ context.Context, id int, trackID string) (*models.PlaylistTrack, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failTrack[trackID]; err != nil {
		return nil, err
	}
	b.added = append(b.added, trackID)
	return &models.PlaylistTrack{TrackID: trackID, Position: len(b.added)}, nil
}

func (b *mockBackend) ReorderTracks(_ context.Context, id int, trackIDs []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reordered = trackIDs
	return nil
}

func (b *mockBackend) Watchlist(_ context.Context, id int) (*models.Watchlist, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if wl, ok := b.watchlists[id]; ok {
		return wl, nil
	}
	return nil, &pipeline.NotFoundError{Method: "GET", URL: fmt.Sprintf("/watchlists/%d/", id)}
}

func (b *mockBackend) CreateWatchlist(_ context.Context, in models.WatchlistInput) (*models.Watchlist, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creates++
	wl := &models.Watchlist{ID: 20 + len(b.watchlists), Name: in.Name}
	b.watchlists[wl.ID] = wl
	return wl, nil
}

func (b *mockBackend) AddMovie(_ context.Context, id, movieID int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.movies = append(b.movies, movieID)
	return nil
}

func track(id, title string) []models.Music {
	return []models.Music{{ID: id, Title: title, Artist: "Artist"}}
}

func TestBuildPlaylist(t *testing.T) {
	ctx := context.Background()

	t.Run("matches, adds and reorders", func(t *testing.T) {
		music := &mockMusic{results: map[string][]models.Music{
			"one":   track("t1", "One"),
			"two":   track("t2", "Two"),
			"three": track("t3", "Three"),
		}}
		backend := newMockBackend()
		progress := make(chan ProgressUpdate, 32)

		c := NewCurator(music, nil, backend, CuratorOptions{Workers: 2})
		res, err := c.BuildPlaylist(ctx, progress, "Mix", []string{"one", "missing", "two", "three"})
		if err != nil {
			t.Fatalf("BuildPlaylist failed: %v", err)
		}

		if res.SuccessCount != 3 || res.FailedCount != 1 || res.Total != 4 {
			t.Errorf("unexpected counts %+v", res)
		}
		if math.Abs(res.MatchPercentage-75) > 0.001 {
			t.Errorf("expected 75%%, got %.2f", res.MatchPercentage)
		}
		if res.Matches[1].Matched || res.Matches[1].Query != "missing" {
			t.Errorf("unexpected unmatched entry %+v", res.Matches[1])
		}
		if !slices.Equal(backend.reordered, []string{"t1", "t2", "t3"}) {
			t.Errorf("expected reorder in query order, got %v", backend.reordered)
		}
		if backend.playlists[res.ID].Name != "Mix" {
			t.Errorf("expected playlist created with name Mix")
		}

		close(progress)
		phases := map[Phase]int{}
		for u := range progress {
			phases[u.Phase]++
		}
		if phases[SearchTracks] != 4 || phases[CreatePlaylist] != 1 || phases[AddTracks] != 3 {
			t.Errorf("unexpected progress phases %v", phases)
		}
	})

	t.Run("bounded concurrency", func(t *testing.T) {
		results := map[string][]models.Music{}
		queries := make([]string, 12)
		for i := range queries {
			queries[i] = fmt.Sprintf("q%d", i)
			results[queries[i]] = track(fmt.Sprintf("t%d", i), queries[i])
		}
		music := &mockMusic{results: results, delay: 10 * time.Millisecond}

		c := NewCurator(music, nil, newMockBackend(), CuratorOptions{Workers: 3})
		if _, err := c.BuildPlaylist(ctx, nil, "Big", queries); err != nil {
			t.Fatalf("BuildPlaylist failed: %v", err)
		}
		if peak := music.peak.Load(); peak > 3 {
			t.Errorf("expected at most 3 concurrent searches, got %d", peak)
		}
	})

	t.Run("records add failures", func(t *testing.T) {
		music := &mockMusic{results: map[string][]models.Music{"a": track("t1", "A"), "b": track("t2", "B")}}
		backend := newMockBackend()
		backend.failTrack = map[string]error{"t2": &pipeline.ValidationError{StatusCode: 400, Message: "duplicate"}}

		res, err := NewCurator(music, nil, backend, CuratorOptions{}).BuildPlaylist(ctx, nil, "Mix", []string{"a", "b"})
		if err != nil {
			t.Fatalf("BuildPlaylist failed: %v", err)
		}
		if res.SuccessCount != 1 || !errors.Is(res.Matches[1].Error, shared.ErrValidation) {
			t.Errorf("expected one validation failure, got %+v", res.Matches)
		}
		if backend.reordered != nil {
			t.Error("single track should not be reordered")
		}
	})

	t.Run("no matches creates nothing", func(t *testing.T) {
		backend := newMockBackend()
		res, err := NewCurator(&mockMusic{}, nil, backend, CuratorOptions{}).BuildPlaylist(ctx, nil, "Empty", []string{"x", "y"})
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if res == nil || res.FailedCount != 2 {
			t.Errorf("expected result with 2 failures, got %+v", res)
		}
		if backend.creates != 0 {
			t.Error("playlist should not be created without matches")
		}
	})

	t.Run("expired session stops the build", func(t *testing.T) {
		expired := &pipeline.AuthExpiredError{StatusCode: 401, Cause: shared.ErrRefreshFailed}
		music := &mockMusic{
			results: map[string][]models.Music{"a": track("t1", "A")},
			err:     map[string]error{"b": expired},
		}
		backend := newMockBackend()

		_, err := NewCurator(music, nil, backend, CuratorOptions{}).BuildPlaylist(ctx, nil, "Mix", []string{"a", "b"})
		if !pipeline.IsAuthExpired(err) {
			t.Fatalf("expected auth expired, got %v", err)
		}
		if backend.creates != 0 {
			t.Error("playlist should not be created after session expiry")
		}
	})

	t.Run("search errors are per query", func(t *testing.T) {
		music := &mockMusic{
			results: map[string][]models.Music{"a": track("t1", "A")},
			err:     map[string]error{"b": &pipeline.ServerError{StatusCode: 502}},
		}
		res, err := NewCurator(music, nil, newMockBackend(), CuratorOptions{}).BuildPlaylist(ctx, nil, "Mix", []string{"a", "b"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !errors.Is(res.Matches[1].Error, shared.ErrServer) {
			t.Errorf("expected server error on second match, got %v", res.Matches[1].Error)
		}
	})

	t.Run("create failure", func(t *testing.T) {
		backend := newMockBackend()
		backend.createErr = &pipeline.ValidationError{StatusCode: 400, Fields: map[string][]string{"name": {"required"}}}
		music := &mockMusic{results: map[string][]models.Music{"a": track("t1", "A")}}

		_, err := NewCurator(music, nil, backend, CuratorOptions{}).BuildPlaylist(ctx, nil, "", []string{"a"})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("argument checks", func(t *testing.T) {
		if _, err := NewCurator(nil, nil, newMockBackend(), CuratorOptions{}).BuildPlaylist(ctx, nil, "x", []string{"a"}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if _, err := NewCurator(&mockMusic{}, nil, newMockBackend(), CuratorOptions{}).BuildPlaylist(ctx, nil, "x", nil); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("full progress channel does not block", func(t *testing.T) {
		music := &mockMusic{results: map[string][]models.Music{"a": track("t1", "A"), "b": track("t2", "B")}}
		progress := make(chan ProgressUpdate)

		done := make(chan error, 1)
		go func() {
			_, err := NewCurator(music, nil, newMockBackend(), CuratorOptions{}).BuildPlaylist(ctx, progress, "Mix", []string{"a", "b"})
			done <- err
		}()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("build blocked on progress channel")
		}
	})
}

func TestBuildWatchlist(t *testing.T) {
	ctx := context.Background()

	movies := &mockMovies{results: map[string][]models.Movie{
		"matrix":       {{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-30"}},
		"blade runner": {{ID: 78, Title: "Blade Runner"}},
	}}
	backend := newMockBackend()

	res, err := NewCurator(nil, movies, backend, CuratorOptions{}).BuildWatchlist(ctx, nil, "Sci-Fi", []string{"matrix", "blade runner", "nothing"})
	if err != nil {
		t.Fatalf("BuildWatchlist failed: %v", err)
	}

	if res.SuccessCount != 2 || res.FailedCount != 1 {
		t.Errorf("unexpected counts %+v", res)
	}
	if res.Matches[0].Title != "The Matrix (1999)" || res.Matches[0].Ref != "603" {
		t.Errorf("unexpected match %+v", res.Matches[0])
	}
	slices.Sort(backend.movies)
	if !slices.Equal(backend.movies, []int{78, 603}) {
		t.Errorf("unexpected movies added %v", backend.movies)
	}

	if _, err := NewCurator(nil, nil, backend, CuratorOptions{}).BuildWatchlist(ctx, nil, "x", []string{"a"}); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestBulkExport(t *testing.T) {
	ctx := context.Background()

	backend := newMockBackend()
	backend.playlists[1] = &models.Playlist{ID: 1, Name: "One", Tracks: []models.PlaylistTrack{{TrackID: "t1", Position: 1}}}
	backend.playlists[2] = &models.Playlist{ID: 2, Name: "Two"}
	backend.watchlists[3] = &models.Watchlist{ID: 3, Name: "Three", Movies: []models.WatchlistMovie{{ID: 603, Title: "The Matrix"}}}

	var resolved atomic.Int32
	opts := BulkExportOpts{
		Format:    formatter.FormatText,
		OutputDir: filepath.Join(t.TempDir(), "out"),
		RateLimit: 1000,
		ResolveTrack: func(_ context.Context, ids []string) map[string]models.Music {
			resolved.Add(1)
			return map[string]models.Music{"t1": {ID: "t1", Title: "Song", Artist: "Band"}}
		},
	}

	refs := []CollectionRef{
		{Kind: formatter.KindPlaylist, ID: 1},
		{Kind: formatter.KindPlaylist, ID: 2},
		{Kind: formatter.KindWatchlist, ID: 3},
		{Kind: formatter.KindWatchlist, ID: 99},
	}

	progress := make(chan ProgressUpdate, 16)
	res, err := NewCurator(nil, nil, backend, CuratorOptions{}).BulkExport(ctx, progress, refs, opts)
	if err != nil {
		t.Fatalf("BulkExport failed: %v", err)
	}

	if res.Total != 4 || res.Successful != 3 || res.Failed != 1 {
		t.Errorf("unexpected counts %+v", res)
	}
	if resolved.Load() != 1 {
		t.Errorf("expected resolver called once for the non-empty playlist, got %d", resolved.Load())
	}

	text, err := os.ReadFile(filepath.Join(opts.OutputDir, "playlist_1.txt"))
	if err != nil {
		t.Fatalf("missing playlist export: %v", err)
	}
	if !strings.Contains(string(text), "1. Band - Song") {
		t.Errorf("resolved track missing from export:\n%s", text)
	}

	manifest, err := os.ReadFile(res.ManifestPath)
	if err != nil {
		t.Fatalf("missing manifest: %v", err)
	}
	if !strings.Contains(string(manifest), `"failed": 1`) || !strings.Contains(string(manifest), "not found") {
		t.Errorf("unexpected manifest:\n%s", manifest)
	}

	t.Run("unknown kind", func(t *testing.T) {
		res, err := NewCurator(nil, nil, backend, CuratorOptions{}).BulkExport(ctx, nil, []CollectionRef{{Kind: "album", ID: 1}}, BulkExportOpts{OutputDir: t.TempDir(), RateLimit: 1000})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Failed != 1 || !errors.Is(res.Results[0].Error, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid kind failure, got %+v", res.Results)
		}
	})
}
