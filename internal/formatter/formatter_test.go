package formatter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/shared"
	th "github.com/desertthunder/sonicvision/internal/testing"
)

func testPlaylist() *models.Playlist {
	return &models.Playlist{
		ID:          7,
		Name:        "Road Trip",
		Description: "Windows down",
		Owner:       models.UserRef{ID: 1, Username: "alice"},
		IsPublic:    true,
		Tracks: []models.PlaylistTrack{
			{ID: 2, TrackID: "t2", Position: 2},
			{ID: 1, TrackID: "t1", Position: 1},
			{ID: 3, TrackID: "unknown", Position: 3},
		},
	}
}

func testResolved() map[string]models.Music {
	return map[string]models.Music{
		"t1": {ID: "t1", Title: "Song One", Artist: "Artist One", Album: "Album One", Duration: 185},
		"t2": {ID: "t2", Title: "Song Two", Artist: "Artist Two", Duration: 240},
	}
}

func testWatchlist() *models.Watchlist {
	return &models.Watchlist{
		ID:    3,
		Name:  "Sci-Fi",
		Owner: "alice",
		Movies: []models.WatchlistMovie{
			{ID: 603, Title: "The Matrix", Year: 1999, Duration: 136, Genres: []string{"Action", "Science Fiction"}, Watched: true},
			{ID: 78, Title: "Blade Runner"},
		},
	}
}

func TestCollections(t *testing.T) {
	t.Run("FromPlaylist orders by position and resolves tracks", func(t *testing.T) {
		c := FromPlaylist(testPlaylist(), testResolved())

		if c.Kind != KindPlaylist || c.Owner != "alice" || c.Slug() != "playlist_7" {
			t.Errorf("unexpected collection header: %+v", c)
		}
		if len(c.Entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(c.Entries))
		}
		if c.Entries[0].Ref != "t1" || c.Entries[0].Length != "3:05" {
			t.Errorf("unexpected first entry: %+v", c.Entries[0])
		}
		if c.Entries[2].Title != "unknown" || c.Entries[2].Subtitle != "" {
			t.Errorf("unresolved track should keep its id as title, got %+v", c.Entries[2])
		}
	})

	t.Run("FromWatchlist", func(t *testing.T) {
		c := FromWatchlist(testWatchlist())
		e := c.Entries[0]
		if e.Subtitle != "1999" || e.Detail != "Action, Science Fiction" || e.Length != "136 min" || !e.Done {
			t.Errorf("unexpected entry: %+v", e)
		}
		if c.Entries[1].Subtitle != "" || c.Entries[1].Detail != "" || c.Entries[1].Length != "" || c.Entries[1].Done {
			t.Errorf("missing fields should stay empty: %+v", c.Entries[1])
		}
	})
}

func TestExporters(t *testing.T) {
	playlist := FromPlaylist(testPlaylist(), testResolved())
	watchlist := FromWatchlist(testWatchlist())

	t.Run("ExportToCSV", func(t *testing.T) {
		t.Run("playlist", func(t *testing.T) {
			data, err := ExportToCSV(playlist)
			if err != nil {
				t.Fatalf("ExportToCSV failed: %v", err)
			}
			output := string(data)
			if !strings.HasPrefix(output, "Position,Track ID,Title,Artist,Album,Duration\n") {
				t.Errorf("CSV missing headers, got: %s", output)
			}
			if !strings.Contains(output, "1,t1,Song One,Artist One,Album One,3:05") {
				t.Errorf("CSV missing first track, got: %s", output)
			}
		})

		t.Run("watchlist", func(t *testing.T) {
			data, err := ExportToCSV(watchlist)
			if err != nil {
				t.Fatalf("ExportToCSV failed: %v", err)
			}
			output := string(data)
			if !strings.Contains(output, `1,603,The Matrix,1999,"Action, Science Fiction",136 min,true`) {
				t.Errorf("CSV missing movie row, got: %s", output)
			}
			if !strings.Contains(output, "2,78,Blade Runner,,,,false") {
				t.Errorf("CSV missing unwatched row, got: %s", output)
			}
		})
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("without cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(playlist, "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			output := string(data)
			for _, want := range []string{
				"# Road Trip",
				"**Description**: Windows down",
				"**Tracks**: 3",
				"**Visibility**: Public",
				"1. Artist One - Song One (Album One) [3:05]",
				"3. unknown",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("markdown missing %q, got:\n%s", want, output)
				}
			}
			if strings.Contains(output, "![Cover]") {
				t.Error("markdown should not reference a cover")
			}
		})

		t.Run("with cover image", func(t *testing.T) {
			data, _ := ExportToMarkdown(playlist, "cover.jpg")
			if !strings.Contains(string(data), "![Cover](cover.jpg)") {
				t.Error("markdown missing cover reference")
			}
		})

		t.Run("watchlist checkboxes", func(t *testing.T) {
			data, _ := ExportToMarkdown(watchlist, "")
			output := string(data)
			if !strings.Contains(output, "- [x] The Matrix (1999) [136 min]") || !strings.Contains(output, "- [ ] Blade Runner\n") {
				t.Errorf("unexpected watchlist markdown:\n%s", output)
			}
			if !strings.Contains(output, "**Movies**: 2") {
				t.Error("markdown missing movie count")
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(playlist)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, "Playlist: Road Trip") || !strings.Contains(output, "2. Artist Two - Song Two") {
			t.Errorf("unexpected text export:\n%s", output)
		}

		data, _ = ExportToText(watchlist)
		if !strings.Contains(string(data), "Watchlist: Sci-Fi") || !strings.Contains(string(data), "1. The Matrix (1999)") {
			t.Errorf("unexpected watchlist text:\n%s", data)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(playlist)
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}
		var meta map[string]any
		if err := json.Unmarshal(data, &meta); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if meta["name"] != "Road Trip" || meta["entries"] != nil {
			t.Errorf("unexpected metadata: %v", meta)
		}
		if len(playlist.Entries) != 3 {
			t.Error("metadata export must not modify the collection")
		}
	})
}

func TestDownloadImage(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(ctx, nil, ""); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("NonOKStatus", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		if _, err := DownloadImage(ctx, srv.Client(), srv.URL); err == nil {
			t.Error("expected error for 404")
		}
	})
}

func TestWriters(t *testing.T) {
	ctx := context.Background()
	playlist := FromPlaylist(testPlaylist(), testResolved())

	t.Run("WriteCSVExport", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "road")
		res, err := WriteCSVExport(playlist, base)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		th.AssertFileExists(t, res.EntriesFile)
		th.AssertFileExists(t, res.MetadataFile)
		if !strings.HasSuffix(res.EntriesFile, "road_entries.csv") {
			t.Errorf("unexpected entries path %s", res.EntriesFile)
		}
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("downloads cover", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("jpeg"))
			}))
			defer srv.Close()

			c := *playlist
			c.Cover = srv.URL + "/cover"
			dir := filepath.Join(t.TempDir(), "md")

			res, err := WriteMarkdownExport(ctx, &c, dir, srv.Client())
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if len(res.Files) != 2 || res.CoverImage == "" {
				t.Fatalf("expected cover and README, got %v", res.Files)
			}
			if got := th.MustReadFile(t, res.CoverImage); got != "jpeg" {
				t.Errorf("unexpected cover content %q", got)
			}
			if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "README.md")), "![Cover](cover.jpg)") {
				t.Error("README should reference downloaded cover")
			}
		})

		t.Run("cover failure is ignored", func(t *testing.T) {
			srv := httptest.NewServer(http.NotFoundHandler())
			defer srv.Close()

			c := *playlist
			c.Cover = srv.URL
			res, err := WriteMarkdownExport(ctx, &c, filepath.Join(t.TempDir(), "md"), srv.Client())
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if len(res.Files) != 1 || res.CoverImage != "" {
				t.Errorf("expected README only, got %v", res.Files)
			}
		})
	})

	t.Run("Write", func(t *testing.T) {
		tests := []struct {
			format string
			files  []string
		}{
			{FormatCSV, []string{"playlist_7_entries.csv", "playlist_7_metadata.json"}},
			{FormatMarkdown, []string{"playlist_7/README.md"}},
			{FormatText, []string{"playlist_7.txt"}},
			{FormatJSON, []string{"playlist_7.json"}},
			{"", []string{"playlist_7.json"}},
		}

		for _, tt := range tests {
			t.Run("format "+tt.format, func(t *testing.T) {
				dir := t.TempDir()
				files, err := Write(ctx, playlist, tt.format, dir, nil)
				if err != nil {
					t.Fatalf("Write failed: %v", err)
				}
				if len(files) != len(tt.files) {
					t.Fatalf("expected %d files, got %v", len(tt.files), files)
				}
				for _, f := range tt.files {
					th.AssertFileExists(t, filepath.Join(dir, f))
				}
			})
		}

		t.Run("unknown format", func(t *testing.T) {
			if _, err := Write(ctx, playlist, "xml", t.TempDir(), nil); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("WriteJSONExport round trips entries", func(t *testing.T) {
		path, err := WriteJSONExport(playlist, filepath.Join(t.TempDir(), "p.json"))
		if err != nil {
			t.Fatalf("WriteJSONExport failed: %v", err)
		}
		raw, _ := os.ReadFile(path)
		var got Collection
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(got.Entries) != 3 || got.Entries[1].Title != "Song Two" {
			t.Errorf("unexpected entries %+v", got.Entries)
		}
	})
}
