package tasks

import (
	"fmt"

	"github.com/desertthunder/sonicvision/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	SearchTracks Phase = iota
	CreatePlaylist
	AddTracks
	SearchMovies
	CreateWatchlist
	AddMovies
	ExportCollection
)

func (p Phase) String() string {
	switch p {
	case SearchTracks:
		return "search_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case SearchMovies:
		return "search_movies"
	case CreateWatchlist:
		return "create_watchlist"
	case AddMovies:
		return "add_movies"
	case ExportCollection:
		return "export_collection"
	default:
		return ""
	}
}

func searchUpdate(phase Phase, step, total int, query string, found bool) ProgressUpdate {
	mark := "✓"
	if !found {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s", step, total, mark, query),
	}
}

func createPlaylistUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %d)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func createWatchlistUpdate(wl *models.Watchlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateWatchlist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Watchlist created: %s (ID: %d)", wl.Name, wl.ID),
		Data:    wl,
	}
}

func addUpdate(phase Phase, step, total int, title string, err error) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] Added %s", step, total, title)
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] Failed to add %s: %v", step, total, title, err)
	}
	return ProgressUpdate{Phase: phase, Step: step, Total: total, Message: msg}
}

func exportingUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
