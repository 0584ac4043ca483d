// package tasks builds backend collections from provider searches.
//
// The core type is [Curator], which fans searches and inserts out over a bounded worker group.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/pipeline"
	"github.com/desertthunder/sonicvision/internal/services"
	"github.com/desertthunder/sonicvision/internal/shared"
)

const (
	defaultWorkers = 4
	maxWorkers     = 10
)

// Backend is the part of the SonicVision API a [Curator] writes to. *api.Client satisfies it.
type Backend interface {
	Playlist(ctx context.Context, id int) (*models.Playlist, error)
	CreatePlaylist(ctx context.Context, in models.PlaylistInput) (*models.Playlist, error)
	AddTrack(ctx context.Context, id int, trackID string) (*models.PlaylistTrack, error)
	ReorderTracks(ctx context.Context, id int, trackIDs []string) error
	Watchlist(ctx context.Context, id int) (*models.Watchlist, error)
	CreateWatchlist(ctx context.Context, in models.WatchlistInput) (*models.Watchlist, error)
	AddMovie(ctx context.Context, id, movieID int) error
}

// MatchResult represents the result of one search query.
type MatchResult struct {
	Query   string // Search text as given
	Ref     string // Spotify track ID or TMDB movie ID of the best match
	Title   string // Display title of the match
	Matched bool   // A search result was found
	Added   bool   // The match was added to the collection
	Error   error  // Search or insert failure
}

// BuildResult summarises a build.
type BuildResult struct {
	ID              int           // Created playlist or watchlist ID
	Name            string        // Collection name
	Matches         []MatchResult // Per-query results in input order
	SuccessCount    int           // Entries added
	FailedCount     int           // Queries not matched or not added
	Total           int           // Number of queries
	MatchPercentage float64       // SuccessCount as a percentage of Total
}

// CuratorOptions tunes concurrency.
type CuratorOptions struct {
	Workers int // concurrent requests per phase, default 4, capped at 10
	Logger  *log.Logger
}

// Curator turns search queries into backend playlists and watchlists.
type Curator struct {
	music   services.MusicProvider
	movies  services.MovieProvider
	backend Backend
	workers int
	logger  *log.Logger
}

// NewCurator creates a [Curator]. Either provider may be nil when the matching build is not used.
func NewCurator(music services.MusicProvider, movies services.MovieProvider, backend Backend, opts CuratorOptions) *Curator {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Curator{
		music:   music,
		movies:  movies,
		backend: backend,
		workers: workers,
		logger:  shared.WithLogger(logger, "component", "curator"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (c *Curator) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// fatal reports errors that end the whole build instead of a single entry.
func fatal(err error) bool {
	return pipeline.IsAuthExpired(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// BuildPlaylist searches each query on the music provider, creates a playlist named name and adds the top match of each.
//
// Tracks are inserted concurrently, then reordered to follow the query order.
func (c *Curator) BuildPlaylist(ctx context.Context, progress chan<- ProgressUpdate, name string, queries []string) (*BuildResult, error) {
	if c.music == nil {
		return nil, fmt.Errorf("%w: music provider not configured", shared.ErrServiceUnavailable)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: at least one search query", shared.ErrMissingArgument)
	}

	matches, err := c.search(ctx, progress, SearchTracks, queries, func(ctx context.Context, m *MatchResult) error {
		page, err := c.music.SearchMusic(ctx, m.Query, 1)
		if err != nil {
			return err
		}
		if len(page.Items) > 0 {
			m.Ref, m.Title, m.Matched = page.Items[0].ID, page.Items[0].Artist+" - "+page.Items[0].Title, true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &BuildResult{Name: name, Matches: matches, Total: len(queries)}
	if countMatched(matches) == 0 {
		result.FailedCount = result.Total
		return result, fmt.Errorf("%w: no tracks were matched - cannot create empty playlist", shared.ErrNotFound)
	}

	pl, err := c.backend.CreatePlaylist(ctx, models.PlaylistInput{
		Name:        name,
		Description: fmt.Sprintf("Curated from %d searches", len(queries)),
	})
	if err != nil {
		return result, fmt.Errorf("failed to create playlist: %w", err)
	}
	result.ID = pl.ID
	c.sendProgress(progress, createPlaylistUpdate(pl))

	err = c.add(ctx, progress, AddTracks, matches, func(ctx context.Context, m *MatchResult) error {
		_, err := c.backend.AddTrack(ctx, pl.ID, m.Ref)
		return err
	})
	c.summarise(result)
	if err != nil {
		return result, err
	}

	order := make([]string, 0, result.SuccessCount)
	for _, m := range matches {
		if m.Added {
			order = append(order, m.Ref)
		}
	}
	if len(order) > 1 {
		if err := c.backend.ReorderTracks(ctx, pl.ID, order); err != nil {
			c.logger.Warn("failed to reorder curated playlist", "playlist", pl.ID, "error", err)
		}
	}

	c.logger.Info("playlist curated", "playlist", pl.ID, "added", result.SuccessCount, "failed", result.FailedCount)
	return result, nil
}

// BuildWatchlist searches each title on the movie provider, creates a watchlist named name and adds the top match of each.
func (c *Curator) BuildWatchlist(ctx context.Context, progress chan<- ProgressUpdate, name string, titles []string) (*BuildResult, error) {
	if c.movies == nil {
		return nil, fmt.Errorf("%w: movie provider not configured", shared.ErrServiceUnavailable)
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("%w: at least one movie title", shared.ErrMissingArgument)
	}

	matches, err := c.search(ctx, progress, SearchMovies, titles, func(ctx context.Context, m *MatchResult) error {
		page, err := c.movies.SearchMovies(ctx, m.Query, 1)
		if err != nil {
			return err
		}
		if len(page.Items) > 0 {
			movie := page.Items[0]
			m.Ref, m.Title, m.Matched = strconv.Itoa(movie.ID), movie.Title, true
			if y := movie.Year(); y > 0 {
				m.Title = fmt.Sprintf("%s (%d)", movie.Title, y)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &BuildResult{Name: name, Matches: matches, Total: len(titles)}
	if countMatched(matches) == 0 {
		result.FailedCount = result.Total
		return result, fmt.Errorf("%w: no movies were matched - cannot create empty watchlist", shared.ErrNotFound)
	}

	wl, err := c.backend.CreateWatchlist(ctx, models.WatchlistInput{
		Name:        name,
		Description: fmt.Sprintf("Curated from %d titles", len(titles)),
	})
	if err != nil {
		return result, fmt.Errorf("failed to create watchlist: %w", err)
	}
	result.ID = wl.ID
	c.sendProgress(progress, createWatchlistUpdate(wl))

	err = c.add(ctx, progress, AddMovies, matches, func(ctx context.Context, m *MatchResult) error {
		id, err := strconv.Atoi(m.Ref)
		if err != nil {
			return err
		}
		return c.backend.AddMovie(ctx, wl.ID, id)
	})
	c.summarise(result)
	if err != nil {
		return result, err
	}

	c.logger.Info("watchlist curated", "watchlist", wl.ID, "added", result.SuccessCount, "failed", result.FailedCount)
	return result, nil
}

// search runs lookup for every query with at most c.workers in flight.
//
// Per-query failures are recorded on the match. Only a [fatal] error stops the group.
func (c *Curator) search(ctx context.Context, progress chan<- ProgressUpdate, phase Phase, queries []string, lookup func(context.Context, *MatchResult) error) ([]MatchResult, error) {
	matches := make([]MatchResult, len(queries))
	total := len(queries)
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, q := range queries {
		matches[i].Query = q
		g.Go(func() error {
			m := &matches[i]
			if err := lookup(gctx, m); err != nil {
				if fatal(err) {
					return err
				}
				m.Error = err
			}
			c.sendProgress(progress, searchUpdate(phase, int(done.Add(1)), total, m.Query, m.Matched))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matches, nil
}

// add inserts every matched entry with at most c.workers in flight.
func (c *Curator) add(ctx context.Context, progress chan<- ProgressUpdate, phase Phase, matches []MatchResult, insert func(context.Context, *MatchResult) error) error {
	total := countMatched(matches)
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i := range matches {
		if !matches[i].Matched {
			continue
		}
		g.Go(func() error {
			m := &matches[i]
			err := insert(gctx, m)
			if err != nil && fatal(err) {
				return err
			}
			m.Error = err
			m.Added = err == nil
			c.sendProgress(progress, addUpdate(phase, int(done.Add(1)), total, m.Title, err))
			return nil
		})
	}

	return g.Wait()
}

func (c *Curator) summarise(r *BuildResult) {
	r.SuccessCount = 0
	for _, m := range r.Matches {
		if m.Added {
			r.SuccessCount++
		}
	}
	r.FailedCount = r.Total - r.SuccessCount
	if r.Total > 0 {
		r.MatchPercentage = float64(r.SuccessCount) / float64(r.Total) * 100
	}
}

func countMatched(matches []MatchResult) int {
	n := 0
	for _, m := range matches {
		if m.Matched {
			n++
		}
	}
	return n
}
