package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/sonicvision/internal/models"
)

func watchlistPath(id int) string { return fmt.Sprintf("/watchlists/%d/", id) }

func watchlistMoviePath(id, movieID int) string {
	return fmt.Sprintf("/watchlists/%d/movies/%d/", id, movieID)
}

// Watchlists lists the current user's watchlists.
func (c *Client) Watchlists(ctx context.Context) ([]models.Watchlist, error) {
	return list[models.Watchlist](ctx, c, "/watchlists/", nil)
}

// Watchlist fetches one watchlist with its movies.
func (c *Client) Watchlist(ctx context.Context, id int) (*models.Watchlist, error) {
	var w models.Watchlist
	if err := c.call(ctx, http.MethodGet, watchlistPath(id), nil, nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateWatchlist creates a watchlist.
func (c *Client) CreateWatchlist(ctx context.Context, in models.WatchlistInput) (*models.Watchlist, error) {
	var w models.Watchlist
	if err := c.call(ctx, http.MethodPost, "/watchlists/", nil, in, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// UpdateWatchlist replaces a watchlist's metadata.
func (c *Client) UpdateWatchlist(ctx context.Context, id int, in models.WatchlistInput) (*models.Watchlist, error) {
	var w models.Watchlist
	if err := c.call(ctx, http.MethodPut, watchlistPath(id), nil, in, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// DeleteWatchlist removes a watchlist.
func (c *Client) DeleteWatchlist(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodDelete, watchlistPath(id), nil, nil, nil)
}

// AddMovie adds a TMDB movie to a watchlist.
func (c *Client) AddMovie(ctx context.Context, id, movieID int) error {
	return c.call(ctx, http.MethodPost, watchlistMoviePath(id, movieID), nil, nil, nil)
}

// RemoveMovie removes a movie from a watchlist.
func (c *Client) RemoveMovie(ctx context.Context, id, movieID int) error {
	return c.call(ctx, http.MethodDelete, watchlistMoviePath(id, movieID), nil, nil, nil)
}

// ToggleWatched flips the watched flag of a movie in a watchlist.
func (c *Client) ToggleWatched(ctx context.Context, id, movieID int) error {
	return c.call(ctx, http.MethodPut, watchlistMoviePath(id, movieID)+"watched/", nil, nil, nil)
}

// ImportTMDBList creates a watchlist from a public TMDB list.
func (c *Client) ImportTMDBList(ctx context.Context, listID int) (*models.Watchlist, error) {
	var w models.Watchlist
	if err := c.call(ctx, http.MethodPost, "/tmdb/lists/import/", nil, map[string]int{"list_id": listID}, &w); err != nil {
		return nil, err
	}
	return &w, nil
}
