package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/sonicvision/internal/shared"
	"github.com/desertthunder/sonicvision/internal/ui"
)

// Browse launches the interactive terminal browser.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	opts := ui.Options{ResolveTracks: r.trackResolver(ctx)}
	if sp, err := r.spotifyProvider(ctx); err == nil {
		opts.Music = sp
	}
	if tmdb, err := r.tmdbProvider(); err == nil {
		opts.Movies = tmdb
	}

	model := ui.NewModel(ctx, client, opts)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if model.Expired() {
		return model.Err()
	}
	return nil
}
