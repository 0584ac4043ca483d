package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/sonicvision/internal/formatter"
	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/shared"
)

var (
	_ list.Item = sectionItem{}
	_ list.Item = playlistItem{}
	_ list.Item = watchlistItem{}
	_ list.Item = entryItem{}
	_ list.Item = musicItem{}
	_ list.Item = movieItem{}
)

// sectionItem is a row of the home menu.
type sectionItem struct {
	section Section
}

func (i sectionItem) FilterValue() string { return i.section.String() }
func (i sectionItem) Title() string       { return i.section.String() }
func (i sectionItem) Description() string {
	switch i.section {
	case SectionPlaylists:
		return "Your playlists on SonicVision"
	case SectionWatchlists:
		return "Your watchlists on SonicVision"
	case SectionTrendingMusic:
		return "New releases on Spotify"
	case SectionTrendingMovies:
		return "Trending this week on TMDB"
	default:
		return ""
	}
}

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks • %s", i.playlist.TrackCount, shared.VisibilityString(i.playlist.IsPublic))
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// watchlistItem wraps [models.Watchlist] to implement [list.Item].
type watchlistItem struct {
	watchlist models.Watchlist
}

func (i watchlistItem) FilterValue() string { return i.watchlist.Name }
func (i watchlistItem) Title() string       { return i.watchlist.Name }
func (i watchlistItem) Description() string {
	desc := fmt.Sprintf("%d/%d watched", i.watchlist.WatchedCount, i.watchlist.MovieCount)
	if i.watchlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.watchlist.Description)
	}
	return desc
}

// entryItem wraps a [formatter.Entry] of an opened collection.
type entryItem struct {
	entry formatter.Entry
}

func (i entryItem) FilterValue() string { return i.entry.Title }
func (i entryItem) Title() string {
	title := fmt.Sprintf("%d. %s", i.entry.Position, i.entry.Title)
	if i.entry.Done {
		title += " ✓"
	}
	return title
}
func (i entryItem) Description() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{i.entry.Subtitle, i.entry.Detail, i.entry.Length} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " • ")
}

// musicItem wraps [models.Music] to implement [list.Item].
type musicItem struct {
	music models.Music
}

func (i musicItem) FilterValue() string { return i.music.Title }
func (i musicItem) Title() string       { return i.music.Title }
func (i musicItem) Description() string {
	desc := i.music.Artist
	if i.music.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.music.Album)
	}
	return desc
}

// movieItem wraps [models.Movie] to implement [list.Item].
type movieItem struct {
	movie models.Movie
}

func (i movieItem) FilterValue() string { return i.movie.Title }
func (i movieItem) Title() string {
	if y := i.movie.Year(); y > 0 {
		return fmt.Sprintf("%s (%d)", i.movie.Title, y)
	}
	return i.movie.Title
}
func (i movieItem) Description() string {
	return fmt.Sprintf("★ %.1f", i.movie.VoteAverage)
}
