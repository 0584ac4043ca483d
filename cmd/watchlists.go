package main

import (
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/sonicvision/internal/formatter"
	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/shared"
)

// WatchlistsList prints the user's watchlists.
func (r *Runner) WatchlistsList(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	wls, err := client.Watchlists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(wls, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d watchlists:\n\n", len(wls))
	for i, wl := range wls {
		r.writePlain("%d. %s\n", i+1, wl.Name)
		if wl.Description != "" {
			r.writePlain("   Description: %s\n", wl.Description)
		}
		r.writePlain("   ID: %d\n", wl.ID)
		r.writePlain("   Movies: %d (%d watched)\n", wl.MovieCount, wl.WatchedCount)
		r.writePlain("   Visibility: %s\n", shared.VisibilityString(wl.IsPublic))
		r.writePlain("\n")
	}
	return nil
}

// WatchlistsGet prints a watchlist with a checkbox per movie.
func (r *Runner) WatchlistsGet(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	wl, err := client.Watchlist(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(wl, cmd.Bool("pretty"))
	}

	c := formatter.FromWatchlist(wl)
	r.writePlainHeader(c.Name)
	if c.Description != "" {
		r.writePlain("%s\n", c.Description)
	}
	r.writePlain("Owner: %s • %s • %d movies\n\n", c.Owner, shared.VisibilityString(c.Public), len(c.Entries))
	for _, e := range c.Entries {
		box := " "
		if e.Done {
			box = "x"
		}
		line := []string{e.Title}
		if e.Subtitle != "" {
			line = append(line, "("+e.Subtitle+")")
		}
		if e.Length != "" {
			line = append(line, "["+e.Length+"]")
		}
		r.writePlain("[%s] %s  #%s\n", box, strings.Join(line, " "), e.Ref)
	}
	return nil
}

// WatchlistsCreate creates a watchlist.
func (r *Runner) WatchlistsCreate(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	wl, err := client.CreateWatchlist(ctx, models.WatchlistInput{
		Name:        cmd.String("name"),
		Description: cmd.String("description"),
		IsPublic:    cmd.Bool("public"),
	})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created watchlist %q (ID %d)\n", wl.Name, wl.ID)
}

// WatchlistsDelete deletes a watchlist.
func (r *Runner) WatchlistsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}
	if err := client.DeleteWatchlist(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted watchlist %d\n", id)
}

// WatchlistsAddMovie adds a TMDB movie to a watchlist.
func (r *Runner) WatchlistsAddMovie(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	movieID, err := idArg(cmd, "movie-id")
	if err != nil {
		return err
	}
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	if err := client.AddMovie(ctx, id, movieID); err != nil {
		return err
	}
	return r.writePlain("✓ Added movie %d to watchlist %d\n", movieID, id)
}

// WatchlistsToggleWatched flips the watched flag of a movie.
func (r *Runner) WatchlistsToggleWatched(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	movieID, err := idArg(cmd, "movie-id")
	if err != nil {
		return err
	}
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	if err := client.ToggleWatched(ctx, id, movieID); err != nil {
		return err
	}
	return r.writePlain("✓ Toggled watched for movie %d\n", movieID)
}

// WatchlistsExport writes watchlists to disk.
func (r *Runner) WatchlistsExport(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	ids, err := argIDs(cmd)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		wls, err := client.Watchlists(ctx)
		if err != nil {
			return err
		}
		for _, wl := range wls {
			ids = append(ids, wl.ID)
		}
	}

	return r.export(ctx, cmd, formatter.KindWatchlist, ids, nil)
}
