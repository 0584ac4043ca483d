package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/shared"
)

func playlistPath(id int, action string) string {
	if action == "" {
		return fmt.Sprintf("/playlists/%d/", id)
	}
	return fmt.Sprintf("/playlists/%d/%s/", id, action)
}

// Playlists lists the playlists visible to the current user.
func (c *Client) Playlists(ctx context.Context) ([]models.Playlist, error) {
	return list[models.Playlist](ctx, c, "/playlists/", nil)
}

// Playlist fetches one playlist with its tracks.
func (c *Client) Playlist(ctx context.Context, id int) (*models.Playlist, error) {
	var p models.Playlist
	if err := c.call(ctx, http.MethodGet, playlistPath(id, ""), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePlaylist creates a playlist owned by the current user.
func (c *Client) CreatePlaylist(ctx context.Context, in models.PlaylistInput) (*models.Playlist, error) {
	var p models.Playlist
	if err := c.call(ctx, http.MethodPost, "/playlists/", nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePlaylist applies a partial update.
func (c *Client) UpdatePlaylist(ctx context.Context, id int, patch models.PlaylistPatch) (*models.Playlist, error) {
	var p models.Playlist
	if err := c.call(ctx, http.MethodPatch, playlistPath(id, ""), nil, patch, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePlaylist removes a playlist.
func (c *Client) DeletePlaylist(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodDelete, playlistPath(id, ""), nil, nil, nil)
}

// AddTrack appends a Spotify track to a playlist.
func (c *Client) AddTrack(ctx context.Context, id int, trackID string) (*models.PlaylistTrack, error) {
	if strings.TrimSpace(trackID) == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	var t models.PlaylistTrack
	if err := c.call(ctx, http.MethodPost, playlistPath(id, "add_track"), nil, map[string]string{"track_id": trackID}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// RemoveTrack removes a track from a playlist.
func (c *Client) RemoveTrack(ctx context.Context, id int, trackID string) error {
	if strings.TrimSpace(trackID) == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	return c.call(ctx, http.MethodPost, playlistPath(id, "remove_track"), nil, map[string]string{"track_id": trackID}, nil)
}

// ReorderTracks sets the playlist order to trackIDs.
func (c *Client) ReorderTracks(ctx context.Context, id int, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return fmt.Errorf("%w: track order", shared.ErrMissingArgument)
	}
	return c.call(ctx, http.MethodPost, playlistPath(id, "reorder_tracks"), nil, map[string][]string{"track_positions": trackIDs}, nil)
}

// AddCollaborator grants userID access to the playlist.
func (c *Client) AddCollaborator(ctx context.Context, id, userID int, canEdit bool) (*models.Collaborator, error) {
	var collab models.Collaborator
	body := map[string]any{"user_id": userID, "can_edit": canEdit}
	if err := c.call(ctx, http.MethodPost, playlistPath(id, "add_collaborator"), nil, body, &collab); err != nil {
		return nil, err
	}
	return &collab, nil
}

// RemoveCollaborator revokes userID's access.
func (c *Client) RemoveCollaborator(ctx context.Context, id, userID int) error {
	return c.call(ctx, http.MethodPost, playlistPath(id, "remove_collaborator"), nil, map[string]int{"user_id": userID}, nil)
}

// SharePlaylist generates a share code and link.
func (c *Client) SharePlaylist(ctx context.Context, id int) (*models.ShareLink, error) {
	var link models.ShareLink
	if err := c.call(ctx, http.MethodPost, playlistPath(id, "share"), nil, nil, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// SharedPlaylist fetches a playlist by its share code.
func (c *Client) SharedPlaylist(ctx context.Context, code string) (*models.Playlist, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: share code", shared.ErrMissingArgument)
	}
	var p models.Playlist
	if err := c.call(ctx, http.MethodGet, "/playlists/share/"+url.PathEscape(code)+"/", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
