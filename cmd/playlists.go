package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/sonicvision/internal/formatter"
	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/shared"
	"github.com/desertthunder/sonicvision/internal/tasks"
)

// PlaylistsList prints the user's playlists.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	playlists, err := client.Playlists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %d\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		r.writePlain("   Visibility: %s\n", shared.VisibilityString(p.IsPublic))
		r.writePlain("\n")
	}
	return nil
}

// PlaylistsGet prints one playlist with its tracks resolved on Spotify when configured.
func (r *Runner) PlaylistsGet(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	pl, err := client.Playlist(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(pl, cmd.Bool("pretty"))
	}

	var resolved map[string]models.Music
	if resolve := r.trackResolver(ctx); resolve != nil && len(pl.Tracks) > 0 {
		ids := make([]string, len(pl.Tracks))
		for i, t := range pl.Tracks {
			ids[i] = t.TrackID
		}
		resolved = resolve(ctx, ids)
	}

	c := formatter.FromPlaylist(pl, resolved)
	r.writePlainHeader(c.Name)
	if c.Description != "" {
		r.writePlain("%s\n", c.Description)
	}
	r.writePlain("Owner: %s • %s • %d tracks\n", c.Owner, shared.VisibilityString(c.Public), len(c.Entries))
	if len(pl.Collaborators) > 0 {
		r.writePlain("Collaborators:")
		for _, col := range pl.Collaborators {
			r.writePlain(" %s", col.User.Username)
		}
		r.writePlain("\n")
	}
	r.writePlain("\n")
	for _, e := range c.Entries {
		if e.Subtitle != "" {
			r.writePlain("%2d. %s - %s", e.Position, e.Subtitle, e.Title)
		} else {
			r.writePlain("%2d. %s", e.Position, e.Title)
		}
		if e.Length != "" {
			r.writePlain(" [%s]", e.Length)
		}
		r.writePlain("\n")
	}
	return nil
}

// PlaylistsCreate creates a playlist.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	public := cmd.Bool("public")
	pl, err := client.CreatePlaylist(ctx, models.PlaylistInput{
		Name:        cmd.String("name"),
		Description: cmd.String("description"),
		IsPublic:    &public,
	})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created playlist %q (ID %d)\n", pl.Name, pl.ID)
}

// PlaylistsUpdate sends only the flags that were given.
func (r *Runner) PlaylistsUpdate(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}

	var patch models.PlaylistPatch
	if cmd.IsSet("name") {
		name := cmd.String("name")
		patch.Name = &name
	}
	if cmd.IsSet("description") {
		desc := cmd.String("description")
		patch.Description = &desc
	}
	if cmd.IsSet("public") {
		public := cmd.Bool("public")
		patch.IsPublic = &public
	}
	if patch.Name == nil && patch.Description == nil && patch.IsPublic == nil {
		return fmt.Errorf("%w: nothing to update, pass --name, --description or --public", shared.ErrMissingArgument)
	}

	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}
	pl, err := client.UpdatePlaylist(ctx, id, patch)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Updated playlist %q\n", pl.Name)
}

// PlaylistsDelete deletes a playlist.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}
	if err := client.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted playlist %d\n", id)
}

// PlaylistsAddTrack appends a Spotify track to a playlist.
func (r *Runner) PlaylistsAddTrack(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	trackID, err := stringArg(cmd, "track-id")
	if err != nil {
		return err
	}
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	track, err := client.AddTrack(ctx, id, trackID)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Added %s at position %d\n", track.TrackID, track.Position)
}

// PlaylistsRemoveTrack removes a track from a playlist.
func (r *Runner) PlaylistsRemoveTrack(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	trackID, err := stringArg(cmd, "track-id")
	if err != nil {
		return err
	}
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	if err := client.RemoveTrack(ctx, id, trackID); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s\n", trackID)
}

// PlaylistsShare prints a share link.
func (r *Runner) PlaylistsShare(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	link, err := client.SharePlaylist(ctx, id)
	if err != nil {
		return err
	}
	r.writePlain("Share code: %s\n", link.ShareCode)
	if link.ShareURL != "" {
		r.writePlain("Share URL: %s\n", link.ShareURL)
	}
	return nil
}

// PlaylistsExport writes playlists to disk.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	ids, err := argIDs(cmd)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		pls, err := client.Playlists(ctx)
		if err != nil {
			return err
		}
		for _, pl := range pls {
			ids = append(ids, pl.ID)
		}
	}

	return r.export(ctx, cmd, formatter.KindPlaylist, ids, r.trackResolver(ctx))
}

// export runs a bulk export and prints its summary.
func (r *Runner) export(ctx context.Context, cmd *cli.Command, kind formatter.Kind, ids []int, resolve tasks.TrackResolver) error {
	if len(ids) == 0 {
		return r.writePlain("Nothing to export\n")
	}

	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	refs := make([]tasks.CollectionRef, len(ids))
	for i, id := range ids {
		refs[i] = tasks.CollectionRef{Kind: kind, ID: id}
	}

	curator := tasks.NewCurator(nil, nil, client, tasks.CuratorOptions{Logger: r.logger})
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("   %s\n", update.Message)
		}
	}()

	result, err := curator.BulkExport(ctx, progress, refs, tasks.BulkExportOpts{
		Format:       cmd.String("format"),
		OutputDir:    cmd.String("output"),
		NumWorkers:   cmd.Int("workers"),
		RateLimit:    cmd.Float("rate"),
		ResolveTrack: resolve,
		HTTPClient:   r.httpClient,
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Exported: %d/%d\n", result.Successful, result.Total)
	r.writePlain("Output: %s\n", result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	if result.Failed > 0 {
		r.writePlain("\nFailed to export %d collections:\n", result.Failed)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s %d: %s\n", res.Kind, res.ID, res.Reason)
			}
		}
	}
	return nil
}

// argIDs parses every positional argument as an ID.
func argIDs(cmd *cli.Command) ([]int, error) {
	var ids []int
	for _, raw := range cmd.Args().Slice() {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q is not a valid ID", shared.ErrInvalidArgument, raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
