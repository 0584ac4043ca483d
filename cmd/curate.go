package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/sonicvision/internal/shared"
	"github.com/desertthunder/sonicvision/internal/tasks"
)

// CuratePlaylist builds a playlist from Spotify searches.
func (r *Runner) CuratePlaylist(ctx context.Context, cmd *cli.Command) error {
	queries, err := queriesFrom(cmd)
	if err != nil {
		return err
	}
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}
	sp, err := r.spotifyProvider(ctx)
	if err != nil {
		return err
	}

	curator := tasks.NewCurator(sp, nil, client, tasks.CuratorOptions{Workers: cmd.Int("workers"), Logger: r.logger})
	return r.runBuild(ctx, "playlist", cmd.String("name"), len(queries), func(progress chan<- tasks.ProgressUpdate) (*tasks.BuildResult, error) {
		return curator.BuildPlaylist(ctx, progress, cmd.String("name"), queries)
	})
}

// CurateWatchlist builds a watchlist from TMDB searches.
func (r *Runner) CurateWatchlist(ctx context.Context, cmd *cli.Command) error {
	titles, err := queriesFrom(cmd)
	if err != nil {
		return err
	}
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}
	tmdb, err := r.tmdbProvider()
	if err != nil {
		return err
	}

	curator := tasks.NewCurator(nil, tmdb, client, tasks.CuratorOptions{Workers: cmd.Int("workers"), Logger: r.logger})
	return r.runBuild(ctx, "watchlist", cmd.String("name"), len(titles), func(progress chan<- tasks.ProgressUpdate) (*tasks.BuildResult, error) {
		return curator.BuildWatchlist(ctx, progress, cmd.String("name"), titles)
	})
}

func (r *Runner) runBuild(ctx context.Context, what, name string, total int, build func(chan<- tasks.ProgressUpdate) (*tasks.BuildResult, error)) error {
	r.logger.Info("starting build", "kind", what, "name", name, "queries", total)
	r.writePlain("Building %s %q from %d queries...\n", what, name, total)

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		last := tasks.Phase(-1)
		for update := range progress {
			if update.Phase != last {
				r.writePlain("\n%s\n", update.Phase)
				last = update.Phase
			}
			r.writePlain("   %s\n", update.Message)
		}
	}()

	result, err := build(progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Build Complete!")
	r.writePlain("%s: %s (ID %d)\n", strings.ToUpper(what[:1])+what[1:], result.Name, result.ID)
	r.writePlain("Success rate: %d/%d (%.1f%%)\n", result.SuccessCount, result.Total, result.MatchPercentage)

	if result.FailedCount > 0 {
		r.writePlain("\nNot added (%d):\n", result.FailedCount)
		for _, m := range result.Matches {
			if m.Added {
				continue
			}
			reason := "no match"
			if m.Error != nil {
				reason = m.Error.Error()
			}
			r.writePlain("  - %s: %s\n", m.Query, reason)
		}
	}
	return nil
}

// queriesFrom collects queries from positional arguments and --file, skipping blank lines.
func queriesFrom(cmd *cli.Command) ([]string, error) {
	var queries []string
	for _, q := range cmd.Args().Slice() {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}

	if path := cmd.String("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open queries: %w", err)
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if q := strings.TrimSpace(sc.Text()); q != "" && !strings.HasPrefix(q, "#") {
				queries = append(queries, q)
			}
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("failed to read queries: %w", err)
		}
	}

	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: at least one query or --file", shared.ErrMissingArgument)
	}
	return queries, nil
}
