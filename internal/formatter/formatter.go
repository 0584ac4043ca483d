// package formatter exports playlists and watchlists to CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/shared"
)

// Kind names the collection being exported.
type Kind string

const (
	KindPlaylist  Kind = "playlist"
	KindWatchlist Kind = "watchlist"
)

// Formats accepted by [Write].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatJSON     = "json"
)

// Entry is one exported row: a track of a playlist or a movie of a watchlist.
type Entry struct {
	Position int    `json:"position"`
	Ref      string `json:"ref"`                // Spotify track ID or TMDB movie ID
	Title    string `json:"title"`              // Track ID when the track could not be resolved
	Subtitle string `json:"subtitle,omitempty"` // artist or release year
	Detail   string `json:"detail,omitempty"`   // album or genres
	Length   string `json:"length,omitempty"`   // m:ss for tracks, minutes for movies
	Done     bool   `json:"done,omitempty"`     // watched
}

// Collection is the export view over a [models.Playlist] or [models.Watchlist].
type Collection struct {
	Kind        Kind    `json:"kind"`
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Owner       string  `json:"owner,omitempty"`
	Public      bool    `json:"public"`
	Cover       string  `json:"cover,omitempty"`
	Entries     []Entry `json:"entries"`
}

// Slug is the base file name for the collection.
func (c *Collection) Slug() string {
	return fmt.Sprintf("%s_%d", c.Kind, c.ID)
}

// FromPlaylist builds a [Collection] in track position order. Tracks missing from resolved keep their ID as title.
func FromPlaylist(pl *models.Playlist, resolved map[string]models.Music) *Collection {
	tracks := slices.Clone(pl.Tracks)
	slices.SortStableFunc(tracks, func(a, b models.PlaylistTrack) int { return a.Position - b.Position })

	c := &Collection{
		Kind:        KindPlaylist,
		ID:          pl.ID,
		Name:        pl.Name,
		Description: pl.Description,
		Owner:       pl.Owner.Username,
		Public:      pl.IsPublic,
		Cover:       pl.CoverImage,
		Entries:     make([]Entry, 0, len(tracks)),
	}

	for i, tr := range tracks {
		e := Entry{Position: i + 1, Ref: tr.TrackID, Title: tr.TrackID}
		if m, ok := resolved[tr.TrackID]; ok {
			e.Title = m.Title
			e.Subtitle = m.Artist
			e.Detail = m.Album
			if m.Duration > 0 {
				e.Length = shared.FormatDuration(m.Duration)
			}
		}
		c.Entries = append(c.Entries, e)
	}
	return c
}

// FromWatchlist builds a [Collection] in watchlist order.
func FromWatchlist(wl *models.Watchlist) *Collection {
	c := &Collection{
		Kind:        KindWatchlist,
		ID:          wl.ID,
		Name:        wl.Name,
		Description: wl.Description,
		Owner:       wl.Owner,
		Public:      wl.IsPublic,
		Cover:       wl.CoverURL,
		Entries:     make([]Entry, 0, len(wl.Movies)),
	}

	for i, m := range wl.Movies {
		e := Entry{Position: i + 1, Ref: strconv.Itoa(m.ID), Title: m.Title, Done: m.Watched}
		if m.Year > 0 {
			e.Subtitle = strconv.Itoa(m.Year)
		}
		if len(m.Genres) > 0 {
			e.Detail = strings.Join(m.Genres, ", ")
		}
		if m.Duration > 0 {
			e.Length = fmt.Sprintf("%d min", m.Duration)
		}
		c.Entries = append(c.Entries, e)
	}
	return c
}

func (c *Collection) headers() []string {
	if c.Kind == KindWatchlist {
		return []string{"Position", "Movie ID", "Title", "Year", "Genres", "Runtime", "Watched"}
	}
	return []string{"Position", "Track ID", "Title", "Artist", "Album", "Duration"}
}

// ExportToCSV renders the entries as CSV with a header row.
func ExportToCSV(c *Collection) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(c.headers()); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range c.Entries {
		record := []string{strconv.Itoa(e.Position), e.Ref, e.Title, e.Subtitle, e.Detail, e.Length}
		if c.Kind == KindWatchlist {
			record = append(record, strconv.FormatBool(e.Done))
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the collection as Markdown with an optional cover image
func ExportToMarkdown(c *Collection, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", c.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if c.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", c.Description)
	}
	if c.Owner != "" {
		fmt.Fprintf(&buf, "**Owner**: %s\n", c.Owner)
	}

	section := "Tracks"
	if c.Kind == KindWatchlist {
		section = "Movies"
	}
	fmt.Fprintf(&buf, "**%s**: %d\n", section, len(c.Entries))
	fmt.Fprintf(&buf, "**Visibility**: %s\n\n", shared.VisibilityString(c.Public))

	fmt.Fprintf(&buf, "## %s\n\n", section)
	for _, e := range c.Entries {
		if c.Kind == KindWatchlist {
			box := " "
			if e.Done {
				box = "x"
			}
			fmt.Fprintf(&buf, "- [%s] %s%s%s\n", box, e.Title, paren(e.Subtitle), bracket(e.Length))
			continue
		}

		name := e.Title
		if e.Subtitle != "" {
			name = e.Subtitle + " - " + e.Title
		}
		fmt.Fprintf(&buf, "%d. %s%s%s\n", e.Position, name, paren(e.Detail), bracket(e.Length))
	}

	return buf.Bytes(), nil
}

func paren(s string) string {
	if s == "" {
		return ""
	}
	return " (" + s + ")"
}

func bracket(s string) string {
	if s == "" {
		return ""
	}
	return " [" + s + "]"
}

// ExportToText renders the collection as plain text
func ExportToText(c *Collection) ([]byte, error) {
	var buf bytes.Buffer

	label := "Playlist"
	if c.Kind == KindWatchlist {
		label = "Watchlist"
	}

	fmt.Fprintf(&buf, "%s: %s\n", label, c.Name)
	if c.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", c.Description)
	}
	fmt.Fprintf(&buf, "Entries: %d\n\n", len(c.Entries))

	for _, e := range c.Entries {
		if e.Subtitle != "" && c.Kind == KindPlaylist {
			fmt.Fprintf(&buf, "%d. %s - %s\n", e.Position, e.Subtitle, e.Title)
		} else {
			fmt.Fprintf(&buf, "%d. %s%s\n", e.Position, e.Title, paren(e.Subtitle))
		}
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image with client and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty image URL", shared.ErrInvalidArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToMetadataJSON generates the collection metadata without entries
func ToMetadataJSON(c *Collection) ([]byte, error) {
	meta := *c
	meta.Entries = nil
	return shared.MarshalJSON(meta, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	EntriesFile  string
	MetadataFile string
}

// WriteCSVExport writes {base}_entries.csv and {base}_metadata.json. base defaults to the collection slug.
func WriteCSVExport(c *Collection, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = c.Slug()
	}

	csvData, err := ExportToCSV(c)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	entriesFile := baseFilepath + "_entries.csv"
	if err := os.WriteFile(entriesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(c)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{EntriesFile: entriesFile, MetadataFile: metadataFile}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes {dir}/README.md and, when the cover downloads, {dir}/cover.jpg.
//
// Directory name defaults to the collection slug. A failed cover download is not an error.
func WriteMarkdownExport(ctx context.Context, c *Collection, outputDir string, client *http.Client) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = c.Slug()
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var coverImageFilename string
	if c.Cover != "" {
		if imageData, err := DownloadImage(ctx, client, c.Cover); err == nil {
			coverPath := filepath.Join(outputDir, "cover.jpg")
			if err := os.WriteFile(coverPath, imageData, 0644); err == nil {
				coverImageFilename = "cover.jpg"
				result.CoverImage = coverPath
				result.Files = append(result.Files, coverPath)
			}
		}
	}

	mdData, err := ExportToMarkdown(c, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteTextExport writes the plain text export. path defaults to {slug}.txt.
func WriteTextExport(c *Collection, path string) (string, error) {
	if path == "" {
		path = c.Slug() + ".txt"
	}

	textData, err := ExportToText(c)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the full collection as indented JSON. path defaults to {slug}.json.
func WriteJSONExport(c *Collection, path string) (string, error) {
	if path == "" {
		path = c.Slug() + ".json"
	}

	data, err := shared.MarshalJSON(c, true)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}
	return path, nil
}

// Write exports c into dir in format and returns the files written.
func Write(ctx context.Context, c *Collection, format, dir string, client *http.Client) ([]string, error) {
	base := filepath.Join(dir, c.Slug())

	switch format {
	case FormatCSV:
		res, err := WriteCSVExport(c, base)
		if err != nil {
			return nil, err
		}
		return []string{res.EntriesFile, res.MetadataFile}, nil
	case FormatMarkdown:
		res, err := WriteMarkdownExport(ctx, c, base, client)
		if err != nil {
			return nil, err
		}
		return res.Files, nil
	case FormatText:
		path, err := WriteTextExport(c, base+".txt")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case FormatJSON, "":
		path, err := WriteJSONExport(c, base+".json")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}
