package tasks

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/sonicvision/internal/formatter"
	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/shared"
)

// CollectionRef names a backend playlist or watchlist to export.
type CollectionRef struct {
	Kind formatter.Kind
	ID   int
}

// TrackResolver looks up track metadata for playlist exports. Unknown IDs are left out of the map.
type TrackResolver func(ctx context.Context, trackIDs []string) map[string]models.Music

// BulkExportOpts contains configuration for bulk exports.
type BulkExportOpts struct {
	Format       string        // Export format: json, csv, markdown, txt
	OutputDir    string        // Base output directory (default: sonicvision_export_{epoch})
	NumWorkers   int           // Concurrent workers (default: 5, max 10)
	RateLimit    float64       // Backend fetches per second (default: 5)
	ResolveTrack TrackResolver // Optional track metadata lookup
	HTTPClient   *http.Client  // Used for cover downloads
}

// CollectionExportResult is the outcome for one collection.
type CollectionExportResult struct {
	Kind    formatter.Kind `json:"kind"`
	ID      int            `json:"id"`
	Name    string         `json:"name"`
	Success bool           `json:"success"`
	Files   []string       `json:"files,omitempty"`
	Error   error          `json:"-"`
	Reason  string         `json:"error,omitempty"`
}

// BulkExportResult summarises a bulk export.
type BulkExportResult struct {
	Total           int                      `json:"total"`
	Successful      int                      `json:"successful"`
	Failed          int                      `json:"failed"`
	OutputDirectory string                   `json:"output_directory"`
	ManifestPath    string                   `json:"-"`
	Results         []CollectionExportResult `json:"results"`
}

type exportJob struct {
	ref        CollectionRef
	collection *formatter.Collection
}

// BulkExport exports multiple collections concurrently with rate limiting and progress tracking.
//
// Fetches are rate limited and fed to a worker pool that writes the files. Partial failures are
// recorded per collection and summarised in export_manifest.json.
func (c *Curator) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, refs []CollectionRef, opts BulkExportOpts) (*BulkExportResult, error) {
	if c.backend == nil {
		return nil, fmt.Errorf("%w: backend not configured", shared.ErrServiceUnavailable)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("sonicvision_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Total:           len(refs),
		OutputDirectory: opts.OutputDir,
		Results:         make([]CollectionExportResult, 0, len(refs)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan exportJob, len(refs))
	results := make(chan CollectionExportResult, len(refs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go c.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, ref := range refs {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			collection, err := c.fetchCollection(ctx, ref, opts.ResolveTrack)
			if err != nil {
				results <- CollectionExportResult{
					Kind:  ref.Kind,
					ID:    ref.ID,
					Name:  fmt.Sprintf("Unknown (%s %d)", ref.Kind, ref.ID),
					Error: fmt.Errorf("failed to fetch %s: %w", ref.Kind, err),
				}
				continue
			}

			c.sendProgress(prog, exportingUpdate(i+1, len(refs), collection.Name))
			jobs <- exportJob{ref: ref, collection: collection}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Error != nil {
			res.Reason = res.Error.Error()
		}
		result.Results = append(result.Results, res)

		if res.Success {
			result.Successful++
			c.sendProgress(prog, exportCompletedUpdate(completed, len(refs), res.Name, len(res.Files)))
		} else {
			result.Failed++
			c.sendProgress(prog, exportFailedUpdate(completed, len(refs), res.Name, res.Error))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	data, err := shared.MarshalJSON(result, true)
	if err == nil {
		err = os.WriteFile(manifestPath, data, 0644)
	}
	if err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (c *Curator) fetchCollection(ctx context.Context, ref CollectionRef, resolve TrackResolver) (*formatter.Collection, error) {
	switch ref.Kind {
	case formatter.KindPlaylist:
		pl, err := c.backend.Playlist(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		var resolved map[string]models.Music
		if resolve != nil && len(pl.Tracks) > 0 {
			ids := make([]string, 0, len(pl.Tracks))
			for _, t := range pl.Tracks {
				ids = append(ids, t.TrackID)
			}
			resolved = resolve(ctx, ids)
		}
		return formatter.FromPlaylist(pl, resolved), nil
	case formatter.KindWatchlist:
		wl, err := c.backend.Watchlist(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return formatter.FromWatchlist(wl), nil
	default:
		return nil, fmt.Errorf("%w: collection kind %q", shared.ErrInvalidArgument, ref.Kind)
	}
}

// exportWorker is a worker goroutine that writes collections from the jobs channel.
func (c *Curator) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- CollectionExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		res := CollectionExportResult{
			Kind: job.ref.Kind,
			ID:   job.ref.ID,
			Name: job.collection.Name,
		}

		if err := ctx.Err(); err != nil {
			res.Error = err
			results <- res
			continue
		}

		files, err := formatter.Write(ctx, job.collection, opts.Format, opts.OutputDir, opts.HTTPClient)
		if err != nil {
			res.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		} else {
			res.Success = true
			res.Files = files
		}
		results <- res
	}
}
