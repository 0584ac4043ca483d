// Package tasks builds SonicVision collections from provider searches with real-time progress reporting.
//
// # Core Operations
//
// [Curator] exposes three operations:
//
//  1. [Curator.BuildPlaylist] : search queries → Spotify tracks → backend playlist
//     - Searches each query on the music provider (top result wins)
//     - Creates the playlist once at least one query matched
//     - Adds tracks concurrently, then reorders them to query order
//
//  2. [Curator.BuildWatchlist] : titles → TMDB movies → backend watchlist
//
//  3. [Curator.BulkExport] : backend playlists and watchlists → files
//     - Rate-limited fetches feed a worker pool
//     - Writes json, csv, markdown or txt through the formatter package
//     - Records per-collection failures in export_manifest.json
//
// # Concurrency
//
// Searches and inserts run through an [errgroup.Group] limited to [CuratorOptions.Workers].
// A failure on one entry is recorded on its [MatchResult]. An expired session or a cancelled
// context stops the whole group, so a build never keeps issuing requests after logout.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
