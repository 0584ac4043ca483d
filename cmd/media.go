package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/shared"
)

// MusicSearch searches Spotify tracks.
func (r *Runner) MusicSearch(ctx context.Context, cmd *cli.Command) error {
	query, err := stringArg(cmd, "query")
	if err != nil {
		return err
	}
	sp, err := r.spotifyProvider(ctx)
	if err != nil {
		return err
	}

	r.logger.Infof("searching spotify for %q", query)
	page, err := sp.SearchMusic(ctx, query, cmd.Int("page"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}

	r.writePlain("Page %d • %d of %d results\n\n", page.Page, len(page.Items), page.Total)
	r.writeTracks(page.Items)
	if page.HasMore {
		r.writePlain("\nMore results: --page %d\n", page.Page+1)
	}
	return nil
}

// MusicTrending lists Spotify new releases.
func (r *Runner) MusicTrending(ctx context.Context, cmd *cli.Command) error {
	sp, err := r.spotifyProvider(ctx)
	if err != nil {
		return err
	}

	tracks, err := sp.TrendingMusic(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}
	r.writePlainHeader("New Releases")
	r.writeTracks(tracks)
	return nil
}

func (r *Runner) writeTracks(tracks []models.Music) {
	for i, t := range tracks {
		r.writePlain("%2d. %s - %s", i+1, t.Artist, t.Title)
		if t.Duration > 0 {
			r.writePlain(" [%s]", shared.FormatDuration(t.Duration))
		}
		r.writePlain("\n    ID: %s", t.ID)
		if t.Album != "" {
			r.writePlain(" • %s", t.Album)
		}
		r.writePlain("\n")
	}
}

// MoviesSearch searches TMDB.
func (r *Runner) MoviesSearch(ctx context.Context, cmd *cli.Command) error {
	query, err := stringArg(cmd, "query")
	if err != nil {
		return err
	}
	tmdb, err := r.tmdbProvider()
	if err != nil {
		return err
	}

	r.logger.Infof("searching tmdb for %q", query)
	page, err := tmdb.SearchMovies(ctx, query, cmd.Int("page"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}

	r.writePlain("Page %d of %d • %d results\n\n", page.Page, page.TotalPages, page.Total)
	r.writeMovies(page.Items)
	return nil
}

// MoviesTrending lists this week's trending movies.
func (r *Runner) MoviesTrending(ctx context.Context, cmd *cli.Command) error {
	tmdb, err := r.tmdbProvider()
	if err != nil {
		return err
	}

	movies, err := tmdb.TrendingMovies(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(movies, cmd.Bool("pretty"))
	}
	r.writePlainHeader("Trending This Week")
	r.writeMovies(movies)
	return nil
}

func (r *Runner) writeMovies(movies []models.Movie) {
	for i, m := range movies {
		title := m.Title
		if y := m.Year(); y > 0 {
			title = fmt.Sprintf("%s (%d)", title, y)
		}
		r.writePlain("%2d. %s ★ %.1f\n    ID: %d\n", i+1, title, m.VoteAverage, m.ID)
	}
}

// MoviesDetails shows a movie with its director and top billed cast.
func (r *Runner) MoviesDetails(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	tmdb, err := r.tmdbProvider()
	if err != nil {
		return err
	}

	d, err := tmdb.MovieDetails(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(d, cmd.Bool("pretty"))
	}

	title := d.Title
	if y := d.Year(); y > 0 {
		title = fmt.Sprintf("%s (%d)", title, y)
	}
	r.writePlainHeader(title)

	genres := make([]string, len(d.Genres))
	for i, g := range d.Genres {
		genres[i] = g.Name
	}
	if len(genres) > 0 {
		r.writePlain("Genres: %s\n", strings.Join(genres, ", "))
	}
	if d.Runtime > 0 {
		r.writePlain("Runtime: %d min\n", d.Runtime)
	}
	if d.Director != "" {
		r.writePlain("Director: %s\n", d.Director)
	}
	r.writePlain("Rating: ★ %.1f\n", d.VoteAverage)
	if d.Overview != "" {
		r.writePlainln("%s", d.Overview)
	}
	if len(d.Cast) > 0 {
		r.writePlain("\nCast:\n")
		for _, c := range d.Cast[:min(len(d.Cast), 8)] {
			r.writePlain("  %s as %s\n", c.Name, c.Character)
		}
	}
	return nil
}
