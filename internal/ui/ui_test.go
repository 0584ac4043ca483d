package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/pipeline"
	"github.com/desertthunder/sonicvision/internal/shared"
)

type fakeBackend struct {
	playlists  []models.Playlist
	watchlists []models.Watchlist
	err        error
}

func (f *fakeBackend) Playlists(context.Context) ([]models.Playlist, error) {
	return f.playlists, f.err
}

func (f *fakeBackend) Playlist(_ context.Context, id int) (*models.Playlist, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, pl := range f.playlists {
		if pl.ID == id {
			return &pl, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeBackend) Watchlists(context.Context) ([]models.Watchlist, error) {
	return f.watchlists, f.err
}

func (f *fakeBackend) Watchlist(_ context.Context, id int) (*models.Watchlist, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, wl := range f.watchlists {
		if wl.ID == id {
			return &wl, nil
		}
	}
	return nil, shared.ErrNotFound
}

type fakeMusic struct{}

func (fakeMusic) Name() string { return "spotify" }
func (fakeMusic) SearchMusic(context.Context, string, int) (*models.MusicPage, error) {
	return &models.MusicPage{}, nil
}
func (fakeMusic) TrendingMusic(context.Context) ([]models.Music, error) {
	return []models.Music{{ID: "t1", Title: "Nights", Artist: "Frank Ocean"}}, nil
}

func newTestModel(backend *fakeBackend, opts Options) *Model {
	m := NewModel(context.Background(), backend, opts)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func keyRune(r rune) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}} }

func sampleBackend() *fakeBackend {
	return &fakeBackend{
		playlists: []models.Playlist{{
			ID:         42,
			Name:       "Road Trip",
			TrackCount: 2,
			Owner:      models.UserRef{Username: "alice"},
			Tracks: []models.PlaylistTrack{
				{TrackID: "b", Position: 1},
				{TrackID: "a", Position: 0},
			},
		}},
		watchlists: []models.Watchlist{{
			ID:     7,
			Name:   "Weekend",
			Movies: []models.WatchlistMovie{{ID: 603, Title: "The Matrix", Year: 1999, Watched: true}},
		}},
	}
}

func TestModel(t *testing.T) {
	t.Run("home lists optional sections", func(t *testing.T) {
		m := newTestModel(sampleBackend(), Options{})
		if n := len(m.home.Items()); n != 2 {
			t.Errorf("expected 2 sections without providers, got %d", n)
		}

		m = newTestModel(sampleBackend(), Options{Music: fakeMusic{}})
		if n := len(m.home.Items()); n != 3 {
			t.Errorf("expected 3 sections with music, got %d", n)
		}
	})

	t.Run("enter starts loading", func(t *testing.T) {
		m := newTestModel(sampleBackend(), Options{})
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if cmd == nil || !m.loading {
			t.Fatal("expected a fetch command and loading state")
		}
		if !strings.Contains(m.View(), "Loading") {
			t.Error("expected loading indicator")
		}
	})

	t.Run("playlists then entries", func(t *testing.T) {
		m := newTestModel(sampleBackend(), Options{
			ResolveTracks: func(_ context.Context, ids []string) map[string]models.Music {
				return map[string]models.Music{"a": {Title: "Alpha", Artist: "Artist A"}}
			},
		})

		m.Update(m.fetchSection(SectionPlaylists)())
		if m.State() != SectionView || len(m.items.Items()) != 1 {
			t.Fatalf("expected section view with one playlist, got view %d", m.State())
		}

		m.Update(m.fetchPlaylist(42)())
		if m.State() != EntriesView {
			t.Fatalf("expected entries view, got %d", m.State())
		}
		first := m.entries.Items()[0].(entryItem)
		if first.entry.Title != "Alpha" || first.entry.Position != 1 {
			t.Errorf("expected resolved first track, got %+v", first.entry)
		}
		second := m.entries.Items()[1].(entryItem)
		if second.entry.Title != "b" {
			t.Errorf("unresolved track should keep its id, got %q", second.entry.Title)
		}
		if !strings.Contains(m.View(), "by alice") {
			t.Error("expected owner header")
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.State() != SectionView {
			t.Errorf("esc should go back to section view, got %d", m.State())
		}
		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.State() != HomeView {
			t.Errorf("esc should go back home, got %d", m.State())
		}
	})

	t.Run("watchlist entries mark watched", func(t *testing.T) {
		m := newTestModel(sampleBackend(), Options{})
		m.Update(m.fetchWatchlist(7)())

		e := m.entries.Items()[0].(entryItem)
		if !strings.HasSuffix(e.Title(), "✓") || e.Description() != "1999" {
			t.Errorf("unexpected entry rendering %q / %q", e.Title(), e.Description())
		}
	})

	t.Run("trending music", func(t *testing.T) {
		m := newTestModel(sampleBackend(), Options{Music: fakeMusic{}})
		m.Update(m.fetchSection(SectionTrendingMusic)())

		it, ok := m.items.Items()[0].(musicItem)
		if !ok || it.Description() != "Frank Ocean" {
			t.Errorf("unexpected trending item %+v", m.items.Items()[0])
		}
		if cmd := m.open(); cmd != nil {
			t.Error("trending rows should not open")
		}
	})

	t.Run("errors stay on screen", func(t *testing.T) {
		backend := sampleBackend()
		backend.err = errors.New("boom")
		m := newTestModel(backend, Options{})

		_, cmd := m.Update(m.fetchSection(SectionPlaylists)())
		if cmd != nil {
			t.Error("ordinary errors should not quit")
		}
		if m.State() != HomeView || !strings.Contains(m.View(), "boom") {
			t.Errorf("expected error on home view, got view %d", m.State())
		}
	})

	t.Run("expired session quits", func(t *testing.T) {
		backend := sampleBackend()
		backend.err = &pipeline.AuthExpiredError{StatusCode: 401}
		m := newTestModel(backend, Options{})

		_, cmd := m.Update(m.fetchSection(SectionPlaylists)())
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
		if !m.Expired() || !strings.Contains(m.View(), "sv auth login") {
			t.Error("expected login hint")
		}
	})

	t.Run("quit key", func(t *testing.T) {
		m := newTestModel(sampleBackend(), Options{})
		_, cmd := m.Update(keyRune('q'))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}
